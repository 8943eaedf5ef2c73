// Package cube is the query gateway: it compiles a model.Query into an
// Elasticsearch request through package plan, executes it against a
// Backend, and reshapes the response through packages walk and format.
package cube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rs/zerolog"

	"github.com/reveald/cube/model"
)

// Backend is anything able to run a compiled request body against
// Elasticsearch and return the raw decoded response. ElasticBackend is
// the production implementation; tests supply their own.
type Backend interface {
	Execute(ctx context.Context, index string, body map[string]any) (map[string]any, error)
}

// ElasticBackend wraps an elasticsearch.Client, kept from the teacher's
// own ElasticBackend: functional options configure the client, Execute
// marshals the request body and posts it through esapi.
type ElasticBackend struct {
	client *elasticsearch.Client
	config elasticsearch.Config
	log    zerolog.Logger
}

// ElasticBackendOption configures an ElasticBackend at construction.
type ElasticBackendOption func(*ElasticBackend)

// WithScheme sets the scheme ("http"/"https") used for every address.
func WithScheme(scheme string) ElasticBackendOption {
	return func(b *ElasticBackend) {
		b.config.Addresses = updateURLScheme(b.config.Addresses, scheme)
	}
}

func updateURLScheme(addresses []string, scheme string) []string {
	updated := make([]string, len(addresses))
	for i, addr := range addresses {
		addr = strings.TrimPrefix(addr, "http://")
		addr = strings.TrimPrefix(addr, "https://")
		updated[i] = scheme + "://" + addr
	}
	return updated
}

// WithCredentials sets basic-auth credentials for every request.
func WithCredentials(username, password string) ElasticBackendOption {
	return func(b *ElasticBackend) {
		b.config.Username = username
		b.config.Password = password
	}
}

// WithHttpClient configures a custom *http.Client's transport.
func WithHttpClient(httpClient *http.Client) ElasticBackendOption {
	return func(b *ElasticBackend) {
		b.config.Transport = httpClient.Transport
	}
}

// WithCACert configures a custom CA certificate.
func WithCACert(cert []byte) ElasticBackendOption {
	return func(b *ElasticBackend) {
		b.config.CACert = cert
	}
}

// WithLogger attaches a zerolog.Logger the backend logs request
// failures through.
func WithLogger(log zerolog.Logger) ElasticBackendOption {
	return func(b *ElasticBackend) {
		b.log = log
	}
}

// NewElasticBackend creates a new ElasticBackend targeting nodes.
func NewElasticBackend(nodes []string, opts ...ElasticBackendOption) (*ElasticBackend, error) {
	addresses := make([]string, len(nodes))
	for i, node := range nodes {
		if !strings.HasPrefix(node, "http://") && !strings.HasPrefix(node, "https://") {
			addresses[i] = "http://" + node
		} else {
			addresses[i] = node
		}
	}

	backend := &ElasticBackend{
		config: elasticsearch.Config{Addresses: addresses},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(backend)
	}

	client, err := elasticsearch.NewClient(backend.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	backend.client = client
	return backend, nil
}

// GetClient returns the underlying *elasticsearch.Client, for callers
// (such as shardctl) that need the same transport for cluster-admin
// calls.
func (b *ElasticBackend) GetClient() *elasticsearch.Client {
	return b.client
}

// Execute posts body as a search request against index and returns the
// decoded response as a generic map, for package walk to drill through.
func (b *ElasticBackend) Execute(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling search body: %w", err)
	}

	res, err := b.client.Search(
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(index),
		b.client.Search.WithBody(strings.NewReader(string(payload))),
	)
	if err != nil {
		b.log.Error().Err(err).Str("index", index).Msg("elasticsearch request failed")
		return nil, &model.UpstreamError{Template: "elasticsearch request failed", Cause: err}
	}
	defer res.Body.Close()

	decoded, err := decodeResponse(res)
	if err != nil {
		b.log.Error().Err(err).Str("index", index).Msg("elasticsearch search failed")
		return nil, err
	}
	return decoded, nil
}

func decodeResponse(res *esapi.Response) (map[string]any, error) {
	var decoded map[string]any
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, &model.UpstreamError{Template: "malformed elasticsearch response", Cause: err}
	}
	if res.IsError() {
		return nil, &model.UpstreamError{Template: fmt.Sprintf("elasticsearch returned %s", res.Status())}
	}
	return decoded, nil
}
