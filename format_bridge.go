package cube

import (
	"github.com/reveald/cube/format"
	"github.com/reveald/cube/plan"
	"github.com/reveald/cube/walk"
)

// formatResult bridges package plan's Compiled (which format cannot
// import, to avoid a plan<->format cycle through the cube gateway) into
// package format's Render.
func formatResult(compiled *plan.Compiled, rows []walk.Row) (any, string, error) {
	return format.Render(compiled.Query, compiled.Decoders, compiled.Pulls, rows)
}
