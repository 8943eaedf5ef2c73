package shardctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReasonPullsBracketedCode(t *testing.T) {
	decoded := map[string]any{
		"error": "failed: [NO(the shard cannot be allocated)] because disk watermark",
	}
	assert.Equal(t, "(the shard cannot be allocated)", extractReason(decoded))
}

func TestExtractReasonFallsBackToWholeStringWhenUnbracketed(t *testing.T) {
	decoded := map[string]any{"error": "generic failure"}
	assert.Equal(t, "generic failure", extractReason(decoded))
}

func TestParseIntTrimsWhitespace(t *testing.T) {
	assert.Equal(t, int64(42), parseInt("  42 "))
}

func TestParseIntDefaultsToZeroOnGarbage(t *testing.T) {
	assert.Equal(t, int64(0), parseInt("n/a"))
}
