package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expandd/internal/config"
	"expandd/internal/engine"
	"expandd/internal/hook"
	"expandd/internal/inject"
	"expandd/internal/logging"
	"expandd/internal/metrics"
	"expandd/internal/resolver"
	"expandd/internal/snippets"
)

func writeLibrary(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "work.toml")
	content := `
[[snippets]]
name = "signature"
trigger = "Sig"
template = "Cheers"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testDaemon(t *testing.T, cfg *config.Config, libraryPath string) *daemon {
	t.Helper()

	eng, err := engine.New(engine.Config{
		Hook:     hook.NewSimulated(hook.Options{}),
		Injector: &inject.RecordingInjector{},
		Resolver: resolver.New(nil, resolver.Env{}),
		Metrics:  metrics.NewExpanddMetrics(metrics.NewRegistry("test")),
	})
	require.NoError(t, err)
	eng.SetEnabled(cfg.Engine.Enabled)

	d := &daemon{
		cfg:    cfg,
		log:    logging.Default(),
		store:  snippets.New([]string{libraryPath}, false, nil),
		engine: eng,
	}
	_, err = d.reload(context.Background())
	require.NoError(t, err)
	return d
}

func TestApplyConfigTogglesEngine(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Engine.Enabled = true
	d := testDaemon(t, cfg, writeLibrary(t, t.TempDir()))
	require.True(t, d.engine.Enabled())

	next := config.DefaultConfig()
	next.Engine.Enabled = false
	d.applyConfig(context.Background(), next)
	assert.False(t, d.engine.Enabled())

	next = config.DefaultConfig()
	next.Engine.Enabled = true
	d.applyConfig(context.Background(), next)
	assert.True(t, d.engine.Enabled())
}

func TestApplyConfigRepublishesMatchingOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Matching.CaseSensitive = true
	d := testDaemon(t, cfg, writeLibrary(t, t.TempDir()))

	// The startup snapshot is case sensitive: the lowercase spelling
	// does not match.
	_, ok := d.engine.Snapshot().Match([]rune("sig"))
	require.False(t, ok)

	next := config.DefaultConfig()
	next.Matching.CaseSensitive = false
	d.applyConfig(context.Background(), next)

	// After the config edit the trigger set is republished under the
	// new matching options.
	_, ok = d.engine.Snapshot().Match([]rune("sig"))
	assert.True(t, ok)
}
