package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHasLocalSingleNodeCluster(t *testing.T) {
	d := Default()
	assert.Equal(t, []string{"localhost:9200"}, d.Elasticsearch.Nodes)
	assert.False(t, d.ShardController.Enabled)
	assert.Equal(t, 30, d.Elasticsearch.TimeoutSeconds)
}

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().HTTP.Bind, s.HTTP.Bind)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	contents := "elasticsearch:\n  index: orders\n  timeout_seconds: 5\nshard_controller:\n  enabled: true\n  zones:\n    - name: us-east-1a\n      risky: true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "orders", s.Elasticsearch.Index)
	assert.Equal(t, 5, s.Elasticsearch.TimeoutSeconds)
	assert.True(t, s.ShardController.Enabled)
	require.Len(t, s.ShardController.Zones, 1)
	assert.Equal(t, "us-east-1a", s.ShardController.Zones[0].Name)
}
