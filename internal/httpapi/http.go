// Package httpapi is the thin net/http adapter active_data/app.py's
// Flask routes correspond to: POST /query compiles and runs a query,
// GET /find/<hash> looks up a previously saved one. Neither route
// reimplements the compiler; both delegate to cube.Gateway.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reveald/cube/internal/savedquery"
	"github.com/reveald/cube/model"
)

// Gateway is the subset of cube.Gateway the HTTP layer needs.
type Gateway interface {
	Execute(ctx context.Context, query *model.Query) (*model.Result, error)
}

// Decoder parses a raw, variable-interpolated JSON body into a
// model.Query. Kept as an interface so internal/httpapi doesn't need to
// import package plan/model's JSON shape decisions directly.
type Decoder interface {
	Decode(body []byte) (*model.Query, error)
}

// Server wires a Gateway, query Decoder, and saved-query Finder/Store
// behind net/http handlers, the same way the teacher's own examples
// serve reveald without pulling in a web framework.
type Server struct {
	gateway Gateway
	decoder Decoder
	saved   *savedquery.Store
	log     zerolog.Logger
}

// NewServer builds a Server.
func NewServer(gateway Gateway, decoder Decoder, saved *savedquery.Store, log zerolog.Logger) *Server {
	return &Server{gateway: gateway, decoder: decoder, saved: saved, log: log}
}

// Routes returns the server's http.Handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/find/", s.handleFind)
	return mux
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, &model.UpstreamError{Template: "could not read request body", Cause: err})
		return
	}

	text := Interpolate(string(raw), r.URL.Query())

	query, err := s.decoder.Decode([]byte(text))
	if err != nil {
		s.writeError(w, &model.CompileError{Template: "could not parse query", Cause: err})
		return
	}

	result, err := s.gateway.Execute(r.Context(), query)
	if err != nil {
		s.writeError(w, err)
		return
	}

	hash := s.saved.Save(json.RawMessage(text))
	s.log.Info().Str("hash", hash).Msg("query saved")

	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)

	payload := resultPayload(result)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	hash := strings.TrimPrefix(r.URL.Path, "/find/")
	if hash == "" {
		s.writeError(w, &model.CompileError{Template: "not found"})
		return
	}

	body, ok := s.saved.Find(hash)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "ERROR",
			"template": "not found",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.Warn().Err(err).Msg("request failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":     "ERROR",
		"template": err.Error(),
	})
}

func resultPayload(result *model.Result) map[string]any {
	if result.Hits != nil || result.Formatted == nil {
		return map[string]any{
			"meta": map[string]any{
				"total":    result.TotalHitCount,
				"duration": result.Duration.String(),
			},
			"hits": result.Hits,
		}
	}
	return map[string]any{
		"meta": map[string]any{
			"total":    result.TotalHitCount,
			"duration": result.Duration.String(),
		},
		"data": result.Formatted,
	}
}
