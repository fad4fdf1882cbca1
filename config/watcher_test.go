package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/fleetview/testutil"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	testutil.IsolateHome(t)
	project := t.TempDir()
	testutil.WriteFile(t, project, "fleetview.yml", "store:\n  scan_capacity: 5\n")

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(project, 20*time.Millisecond, nil, func(c *Config) { reloaded <- c })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	testutil.WriteFile(t, project, "fleetview.yml", "store:\n  scan_capacity: 7\n")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 7, cfg.Store.ScanCapacity)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after config change")
	}
}

func TestWatcherKeepsPreviousOnBrokenFile(t *testing.T) {
	testutil.IsolateHome(t)
	project := t.TempDir()
	testutil.WriteFile(t, project, "fleetview.yml", "store:\n  scan_capacity: 5\n")

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(project, 20*time.Millisecond, nil, func(c *Config) { reloaded <- c })
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	testutil.WriteFile(t, project, "fleetview.yml", "store: [broken\n")
	testutil.WriteFile(t, project, "unrelated.txt", "noise")

	select {
	case cfg := <-reloaded:
		t.Fatalf("unexpected reload: %+v", cfg.Store)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestIsConfigFile(t *testing.T) {
	testutil.IsolateHome(t)
	assert.True(t, isConfigFile("/x/fleetview.yml"))
	assert.True(t, isConfigFile("/x/.fleetview.override.yaml"))
	assert.True(t, isConfigFile("/x/fleetview.toml"))
	assert.False(t, isConfigFile("/x/grove.yml"))
	assert.False(t, isConfigFile("/x/fleetview.yml.swp"))
}
