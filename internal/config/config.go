// Package config loads the gateway's settings document: the
// Elasticsearch cluster to query, the zone table the shard controller
// rebalances across, and HTTP bind options. Bound with viper/
// mapstructure, the same way project-cortex's internal/config package
// shapes its settings.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ElasticsearchSettings configures the backend's connection.
type ElasticsearchSettings struct {
	Nodes          []string `mapstructure:"nodes" yaml:"nodes"`
	Index          string   `mapstructure:"index" yaml:"index"`
	Username       string   `mapstructure:"username" yaml:"username"`
	Password       string   `mapstructure:"password" yaml:"password"`
	Scheme         string   `mapstructure:"scheme" yaml:"scheme"`
	CACertPath     string   `mapstructure:"ca_cert_path" yaml:"ca_cert_path"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// HTTPSettings configures internal/httpapi's listener.
type HTTPSettings struct {
	Bind string `mapstructure:"bind" yaml:"bind"`
}

// ZoneSettings declares one availability zone's reliability
// classification for the shard placement controller.
type ZoneSettings struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Risky bool   `mapstructure:"risky" yaml:"risky"`
}

// ShardControllerSettings configures Core B.
type ShardControllerSettings struct {
	Enabled bool           `mapstructure:"enabled" yaml:"enabled"`
	Zones   []ZoneSettings `mapstructure:"zones" yaml:"zones"`
}

// Settings is the gateway's full configuration document.
type Settings struct {
	Elasticsearch   ElasticsearchSettings   `mapstructure:"elasticsearch" yaml:"elasticsearch"`
	HTTP            HTTPSettings            `mapstructure:"http" yaml:"http"`
	ShardController ShardControllerSettings `mapstructure:"shard_controller" yaml:"shard_controller"`
	LogLevel        string                  `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns sensible settings for a local single-node cluster.
func Default() *Settings {
	return &Settings{
		Elasticsearch: ElasticsearchSettings{
			Nodes:          []string{"localhost:9200"},
			Index:          "cube",
			Scheme:         "http",
			TimeoutSeconds: 30,
		},
		HTTP: HTTPSettings{
			Bind: ":8080",
		},
		ShardController: ShardControllerSettings{
			Enabled: false,
		},
		LogLevel: "info",
	}
}

// Load reads settings from path (if non-empty), overlaying Default().
// Environment variables prefixed CUBE_ override keys that the settings
// file sets; no keys are bound to the environment, so an environment
// variable for a key absent from the file is not read.
func Load(path string) (*Settings, error) {
	settings := Default()

	v := viper.New()
	v.SetEnvPrefix("CUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return settings, nil
}
