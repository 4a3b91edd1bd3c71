package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/plughost/pkg/config"
	"github.com/marmos91/plughost/pkg/container"
	"github.com/marmos91/plughost/pkg/plugin"
	"github.com/marmos91/plughost/samples/backend/store"
)

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := GetRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	t.Cleanup(func() {
		root.SetOut(nil)
		root.SetErr(nil)
		root.SetArgs(nil)
		cfgFile = ""
	})
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Cleanup(func() { versionShort = false })

	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)

	versionShort = false
	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "plughost "+Version)
	assert.Contains(t, out, "Go version:")
}

func TestInitCommand_WritesLoadableConfig(t *testing.T) {
	t.Cleanup(func() { initForce = false })
	path := filepath.Join(t.TempDir(), "plughost", "config.yaml")

	out, err := execute(t, "init", "--config", path, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created at: "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Plugins)
}

func TestLogsCommand_StdoutRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.InitConfigToPath(path, false))

	_, err := execute(t, "logs", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a file")
}

func TestExtractTimestamp(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		got := extractTimestamp("[2026-01-15 10:30:45] [INFO] [backend] Plugin phase completed")
		want := time.Date(2026, 1, 15, 10, 30, 45, 0, time.Local)
		assert.True(t, want.Equal(got), "got %v", got)
	})

	t.Run("JSON", func(t *testing.T) {
		got := extractTimestamp(`{"time":"2026-01-15T10:30:45.123Z","level":"INFO","msg":"Plugins activated"}`)
		want := time.Date(2026, 1, 15, 10, 30, 45, 123000000, time.UTC)
		assert.True(t, want.Equal(got), "got %v", got)
	})

	t.Run("None", func(t *testing.T) {
		assert.True(t, extractTimestamp("goroutine 1 [running]:").IsZero())
		assert.True(t, extractTimestamp(`{"time":"yesterday"}`).IsZero())
		assert.True(t, extractTimestamp("").IsZero())
	})
}

func TestTailLines(t *testing.T) {
	lines := []string{
		"[2026-01-15 10:00:00] [INFO] one",
		"[2026-01-15 11:00:00] [INFO] two",
		"continuation without timestamp",
		"[2026-01-15 12:00:00] [INFO] three",
	}
	input := strings.Join(lines, "\n") + "\n"

	got, err := tailLines(strings.NewReader(input), 2, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, lines[2:], got)

	got, err = tailLines(strings.NewReader(input), 10, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, lines, got)

	since := time.Date(2026, 1, 15, 10, 30, 0, 0, time.Local)
	got, err = tailLines(strings.NewReader(input), 10, since)
	require.NoError(t, err)
	assert.Equal(t, lines[1:], got)

	got, err = tailLines(strings.NewReader(input), 0, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestShowLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plughost.log")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\n"), 0644))

	var buf bytes.Buffer
	require.NoError(t, showLogs(&buf, path, 2, time.Time{}))
	assert.Equal(t, "b\nc\n", buf.String())
}

func TestHostConfig(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Metrics.Enabled = true

	hc := hostConfig(cfg)
	assert.Equal(t, cfg.Server.Port, hc.Port)
	assert.Equal(t, cfg.Server.ShutdownTimeout, hc.ShutdownTimeout)
	assert.True(t, hc.Metrics, "metrics served by the host without a dedicated port")

	cfg.Metrics.Port = 9090
	assert.False(t, hostConfig(cfg).Metrics)
}

type closingPlugin struct {
	plugin.Base
	order *[]string
	err   error
}

func (c *closingPlugin) Close() error {
	*c.order = append(*c.order, c.Name())
	return c.err
}

type plainPlugin struct{ plugin.Base }

func TestStoreConfig(t *testing.T) {
	t.Run("SQLite", func(t *testing.T) {
		cfg := config.GetDefaultConfig()
		cfg.Samples.Database.SQLite.Path = filepath.Join(t.TempDir(), "backend.db")

		got := storeConfig(cfg.Samples.Database)
		assert.Equal(t, store.DatabaseTypeSQLite, got.Type)
		assert.Equal(t, cfg.Samples.Database.SQLite.Path, got.SQLite.Path)
		require.NoError(t, got.Validate())
	})

	t.Run("Postgres", func(t *testing.T) {
		db := config.DatabaseConfig{
			Type: config.DatabasePostgres,
			Postgres: config.PostgresConfig{
				Host: "db", Port: 5433, Database: "forecasts", User: "plughost",
				Password: "secret", SSLMode: "require", MaxOpenConns: 4, MaxIdleConns: 1,
			},
		}

		got := storeConfig(db)
		assert.Equal(t, store.DatabaseTypePostgres, got.Type)
		assert.Equal(t, store.PostgresConfig{
			Host: "db", Port: 5433, Database: "forecasts", User: "plughost",
			Password: "secret", SSLMode: "require", MaxOpenConns: 4, MaxIdleConns: 1,
		}, got.Postgres)
		require.NoError(t, got.Validate())
	})
}

func TestClosePlugins_ReverseOrder(t *testing.T) {
	var order []string
	first := &closingPlugin{order: &order}
	first.SetName("first")
	second := &closingPlugin{order: &order, err: errors.New("already closed")}
	second.SetName("second")

	closePlugins([]plugin.Plugin{first, &plainPlugin{}, second})
	assert.Equal(t, []string{"second", "first"}, order)
}

func (c *closingPlugin) Install(container.Registrar) error { return nil }

func (c *closingPlugin) Configure(context.Context, container.Resolver, any) error { return nil }

func (p *plainPlugin) Install(container.Registrar) error { return nil }

func (p *plainPlugin) Configure(context.Context, container.Resolver, any) error { return nil }
