// Package metawait implements the "meta.testing" polling wait
// active_data/app.py performs before running a query in testing mode:
// block until every named column reports a fresh LastUpdated, or until
// the caller's context deadline expires.
package metawait

import (
	"context"
	"time"

	"github.com/reveald/cube/model"
)

// Interval is the poll cadence, matching the original's 1-second sleep
// between schema checks.
const Interval = time.Second

// Wait blocks until every column resolved from names in schema, other
// than nested and object columns, has a non-nil LastUpdated, or ctx is
// done. Columns absent from the schema
// entirely are treated as already current (there is nothing to wait
// for), matching the original's "no matching column" fallthrough.
func Wait(ctx context.Context, schema model.Schema, names []string) error {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		if allUpdated(schema, names) {
			return nil
		}
		select {
		case <-ctx.Done():
			return &model.SchemaTimeout{Template: "timed out waiting for schema metadata"}
		case <-ticker.C:
		}
	}
}

func allUpdated(schema model.Schema, names []string) bool {
	for _, name := range names {
		cols := schema.Columns(name)
		if len(cols) == 0 {
			continue
		}
		for _, c := range cols {
			if c.Type == "nested" || c.Type == "object" {
				continue
			}
			if c.LastUpdated == nil {
				return false
			}
		}
	}
	return true
}
