package conf

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, firstRun, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, firstRun)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "placed", cfg.FirstStep)
	assert.Contains(t, cfg.TerminalSteps, "cancelled")
	assert.Contains(t, cfg.DefaultSteps, "shipped")

	// second load reads the file back unchanged
	reloaded, firstRun, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, firstRun)
	assert.Equal(t, cfg.Database, reloaded.Database)
	assert.Equal(t, cfg.DefaultSteps, reloaded.DefaultSteps)
}

func TestUnmarshalJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg, _, err := LoadOrCreate(path)
	require.NoError(t, err)

	var feed FeedDefaults
	require.NoError(t, cfg.UnmarshalJob("catalogfeed", &feed))
	assert.Equal(t, "./feeds", feed.WatchDir)
	assert.Equal(t, 10, feed.PollSec)

	require.Error(t, cfg.UnmarshalJob("nope", &feed))
}
