package cube

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/reveald/cube/model"
	"github.com/reveald/cube/plan"
	"github.com/reveald/cube/walk"
)

// Gateway is the query compiler's front door: Execute compiles a
// model.Query, runs it against Backend, and reshapes the response.
// Kept from the teacher's endpoint.go Execute, which captured
// start := time.Now() and set result.Duration = time.Since(start)
// around a feature chain; the same timing idiom wraps compile+execute
// here.
type Gateway struct {
	backend Backend
	schema  model.Schema
	index   string
	log     zerolog.Logger
}

// NewGateway builds a Gateway querying index through backend, resolving
// variables against schema.
func NewGateway(backend Backend, schema model.Schema, index string, log zerolog.Logger) *Gateway {
	return &Gateway{backend: backend, schema: schema, index: index, log: log}
}

// Execute compiles query, runs it, and returns a formatted model.Result.
func (g *Gateway) Execute(ctx context.Context, query *model.Query) (*model.Result, error) {
	start := time.Now()

	compiled, err := plan.Compile(query, g.schema)
	if err != nil {
		return nil, err
	}

	response, err := g.backend.Execute(ctx, g.index, compiled.Body)
	if err != nil {
		return nil, err
	}

	result, err := reshape(compiled, response)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)

	g.log.Debug().
		Str("index", g.index).
		Bool("aggregate", compiled.IsAggregate).
		Dur("duration", result.Duration).
		Msg("query executed")

	return result, nil
}

func reshape(compiled *plan.Compiled, response map[string]any) (*model.Result, error) {
	if !compiled.IsAggregate {
		return reshapeHits(response)
	}

	aggsRaw, _ := response["aggregations"].(map[string]any)
	rows := walk.Walk(compiled.Decoders, compiled.Pulls, aggsRaw)

	formatted, contentType, err := formatResult(compiled, rows)
	if err != nil {
		return nil, err
	}

	return &model.Result{
		TotalHitCount: totalHits(response),
		Formatted:     formatted,
		ContentType:   contentType,
	}, nil
}

func reshapeHits(response map[string]any) (*model.Result, error) {
	hitsObj, _ := response["hits"].(map[string]any)
	var hits []map[string]any
	if arr, ok := hitsObj["hits"].([]any); ok {
		for _, h := range arr {
			hm, ok := h.(map[string]any)
			if !ok {
				continue
			}
			source, _ := hm["_source"].(map[string]any)
			if source == nil {
				source = map[string]any{}
			}
			hits = append(hits, source)
		}
	}
	return &model.Result{
		TotalHitCount: totalHits(response),
		Hits:          hits,
		ContentType:   "application/json",
	}, nil
}

func totalHits(response map[string]any) int64 {
	hitsObj, ok := response["hits"].(map[string]any)
	if !ok {
		return 0
	}
	total, ok := hitsObj["total"].(map[string]any)
	if !ok {
		return 0
	}
	v, _ := total["value"].(float64)
	return int64(v)
}
