// Package decode implements the Decoder capability jx_elasticsearch's
// AggsDecoder hierarchy provides: each Edge/GroupBy dimension is bound
// to one Decoder, which knows how to contribute its own aggregation
// clause to the compiled query and how to turn a walked result bucket
// back into a coordinate in the output cube.
package decode

import (
	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/model"
)

// Decoder is implemented by every edge-binding strategy. NumColumns is
// how many slots the decoder occupies in the coordinate tuple
// walk.Walk builds, one decoder after another. Every
// decoder in this package occupies exactly one slot, including
// DimFieldListDecoder — its field tuple decodes to a single composite
// "/"-joined coordinate rather than one slot per field (see its
// NumColumns doc comment), so the interface still reports NumColumns
// as a count for forward compatibility with a decoder kind that might
// someday need more than one.
type Decoder interface {
	// Edge returns the model.Edge this decoder was built from.
	Edge() model.Edge
	// NumColumns is how many coordinate slots this decoder occupies.
	NumColumns() int
	// AppendAggregation writes this decoder's contribution directly into
	// doc as "_match" (plus "_other"/"_missing" siblings where
	// applicable), wrapping inner as each one's nested sub-aggregation.
	AppendAggregation(doc esdoc.Node, inner esdoc.Node)
	// GetIndex returns the coordinate index a decoded bucket key maps
	// to within this decoder's partitions, resolving to a fresh index
	// for previously unseen values when the domain is open (Default).
	GetIndex(key any) int
	// Count records one occurrence of key during domain discovery
	// (count_dim in the original).
	Count(key any)
	// DoneCount finalizes discovery and returns the realized partition
	// count, assigning stable indices to every counted key.
	DoneCount() int
	// Labels returns a display label per realized partition, in
	// coordinate-index order, for the cube formatter's edge axes.
	Labels() []string
}
