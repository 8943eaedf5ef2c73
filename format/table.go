package format

import (
	"github.com/reveald/cube/aggbuilder"
	"github.com/reveald/cube/decode"
	"github.com/reveald/cube/model"
	"github.com/reveald/cube/walk"
)

// Table is a column-oriented result: one header per edge (in compound
// groupby-key order) followed by one header per select, and one data
// row per realized combination, matching jx_elasticsearch's table
// format (`header` + `data` list of lists).
type Table struct {
	Header []string
	Data   [][]any
}

func renderTable(query *model.Query, decoders []decode.Decoder, pulls []aggbuilder.Pull, rows []walk.Row) *Table {
	header := make([]string, 0, len(decoders)+len(pulls))
	for _, d := range decoders {
		header = append(header, d.Edge().Name)
	}
	for _, p := range pulls {
		header = append(header, p.DisplayName)
	}

	labelsByDecoder := make([][]string, len(decoders))
	for i, d := range decoders {
		labelsByDecoder[i] = d.Labels()
	}

	data := make([][]any, 0, len(rows))
	for _, row := range rows {
		record := make([]any, 0, len(header))
		for i, idx := range row.Coord {
			if idx >= 0 && idx < len(labelsByDecoder[i]) {
				record = append(record, labelsByDecoder[i][idx])
			} else {
				record = append(record, nil)
			}
		}
		record = append(record, row.Values...)
		data = append(data, record)
	}

	return &Table{Header: header, Data: data}
}
