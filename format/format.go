// Package format implements the three response shapes a compiled
// aggregation can be rendered into, mirroring jx_elasticsearch's
// format_dispatch: cube (a dense N-dimensional array, one axis per
// edge), table (column-oriented rows, one row per realized groupby
// key), and list (one object per realized combination). Each carries
// its own MIME content type, matching the original's per-format
// response headers.
package format

import (
	"github.com/reveald/cube/aggbuilder"
	"github.com/reveald/cube/decode"
	"github.com/reveald/cube/model"
	"github.com/reveald/cube/walk"
)

// ContentType returns the MIME type a given format name renders as.
func ContentType(name string) string {
	switch name {
	case "table":
		return "application/json; meta=table"
	case "list":
		return "application/json; meta=list"
	default:
		return "application/json; meta=cube"
	}
}

// Render dispatches on query.Format. When no format is given it uses
// "table" for a groupby query, "cube" when edges are present, and
// "list" otherwise.
func Render(query *model.Query, decoders []decode.Decoder, pulls []aggbuilder.Pull, rows []walk.Row) (any, string, error) {
	name := query.Format
	if name == "" {
		if query.IsGroupBy() {
			name = "table"
		} else if len(query.Edges) > 0 {
			name = "cube"
		} else {
			name = "list"
		}
	}

	switch name {
	case "table":
		return renderTable(query, decoders, pulls, rows), ContentType(name), nil
	case "list":
		return renderList(query, decoders, pulls, rows), ContentType(name), nil
	case "cube":
		return renderCube(query, decoders, pulls, rows), ContentType(name), nil
	}
	return nil, "", &model.FormatError{Template: "unknown format: " + name}
}

