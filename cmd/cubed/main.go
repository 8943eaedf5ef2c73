// Command cubed is the query gateway daemon: it serves the compiler's
// HTTP surface and, when enabled, runs the shard placement controller
// alongside it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cube "github.com/reveald/cube"
	"github.com/reveald/cube/internal/config"
	"github.com/reveald/cube/internal/httpapi"
	"github.com/reveald/cube/internal/savedquery"
	"github.com/reveald/cube/model"
	"github.com/reveald/cube/queryjson"
	"github.com/reveald/cube/shardctl"
)

const defaultRequestTimeout = 30 * time.Second

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "cubed",
		Short: "query gateway and shard placement controller",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to settings file")

	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("cubed (development build)")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the query gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err == nil {
		log = log.Level(level)
	}

	timeout := defaultRequestTimeout
	if settings.Elasticsearch.TimeoutSeconds > 0 {
		timeout = time.Duration(settings.Elasticsearch.TimeoutSeconds) * time.Second
	}

	opts := []cube.ElasticBackendOption{
		cube.WithScheme(settings.Elasticsearch.Scheme),
		cube.WithCredentials(settings.Elasticsearch.Username, settings.Elasticsearch.Password),
		cube.WithLogger(log),
		cube.WithHttpClient(&http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: timeout},
		}),
	}
	if settings.Elasticsearch.CACertPath != "" {
		cert, err := os.ReadFile(settings.Elasticsearch.CACertPath)
		if err != nil {
			return fmt.Errorf("reading ca cert: %w", err)
		}
		opts = append(opts, cube.WithCACert(cert))
	}

	backend, err := cube.NewElasticBackend(settings.Elasticsearch.Nodes, opts...)
	if err != nil {
		return fmt.Errorf("building elasticsearch backend: %w", err)
	}

	schema := model.StaticSchema{}
	gateway := cube.NewGateway(backend, schema, settings.Elasticsearch.Index, log)
	saved := savedquery.NewStore()
	server := httpapi.NewServer(gateway, queryjson.Decoder{}, saved, log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settings.ShardController.Enabled {
		zones := map[string]shardctl.Zone{}
		for _, z := range settings.ShardController.Zones {
			zones[z.Name] = shardctl.Zone{Name: z.Name, Risky: z.Risky}
		}
		client := shardctl.NewClient(backend.GetClient(), zones)
		controller := shardctl.NewController(client, log)
		go func() {
			if err := controller.Run(ctx); err != nil && err != context.Canceled {
				log.Error().Err(err).Msg("shard controller stopped")
			}
		}()
	}

	httpServer := &http.Server{
		Addr:    settings.HTTP.Bind,
		Handler: server.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("bind", settings.HTTP.Bind).Msg("starting query gateway")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
