package format

import (
	"github.com/reveald/cube/aggbuilder"
	"github.com/reveald/cube/decode"
	"github.com/reveald/cube/model"
	"github.com/reveald/cube/walk"
)

// renderList produces one object per realized combination, keyed by
// edge name and select name, matching jx_elasticsearch's list format
// (the default when a query has no edges/groupby at all).
func renderList(query *model.Query, decoders []decode.Decoder, pulls []aggbuilder.Pull, rows []walk.Row) []map[string]any {
	labelsByDecoder := make([][]string, len(decoders))
	for i, d := range decoders {
		labelsByDecoder[i] = d.Labels()
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		item := make(map[string]any, len(decoders)+len(pulls))
		for i, idx := range row.Coord {
			if idx >= 0 && idx < len(labelsByDecoder[i]) {
				item[decoders[i].Edge().Name] = labelsByDecoder[i][idx]
			}
		}
		for pi, p := range pulls {
			item[p.DisplayName] = row.Values[pi]
		}
		out = append(out, item)
	}
	return out
}
