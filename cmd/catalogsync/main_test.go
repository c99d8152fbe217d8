package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogsync/internal/config"
	"catalogsync/internal/runner"
)

// clearEnv keeps the operator's environment out of config loading.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"SOURCE_KIND", "SOURCE_DIR", "EVIDENCE_DIR", "MAP_FILE", "NAME_MAP_REDIS_URL",
		"COL_PRODUCT", "COL_QTY", "COL_STATUS", "LOG_LEVEL", "LOG_FORMAT", "METRICS_TEXTFILE",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "catalogsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPreviewCommand(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(in, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "estoque.csv"),
		[]byte("Nome;Estoque;Status Venda\nCoxinha;5;Ativo\nKibe;0;Ativo\n"), 0o644))

	cfgPath := writeConfig(t, dir,
		"source:",
		"  kind: local",
		"  local_dir: "+in,
		"evidence:",
		"  dir: "+filepath.Join(dir, "evidence"),
		"  journal: false",
		"names:",
		"  file: "+filepath.Join(dir, "map.json"),
	)

	for _, args := range [][]string{
		{"preview", "--config", cfgPath},
		{"--dry-run", "--config", cfgPath},
	} {
		out, err := runCLI(t, append(args, "--env-file", filepath.Join(dir, "missing.env"))...)
		require.NoError(t, err, args)
		assert.Contains(t, out, "Preview of estoque.csv: 2 items (1 available, 1 unavailable)")
		assert.Contains(t, out, "Coxinha")
	}
	assert.FileExists(t, filepath.Join(dir, "evidence", "last.csv"))
}

func TestPreviewCommand_ConfigError(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "source:", "  kind: local")

	_, err := runCLI(t, "preview", "--config", cfgPath, "--env-file", filepath.Join(dir, "missing.env"))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.True(t, runner.IsFatal(err))
}

func TestFlagsAreExclusive(t *testing.T) {
	_, err := runCLI(t, "--dry-run", "--login")
	assert.Error(t, err)
}

func TestOptionsMode(t *testing.T) {
	assert.Equal(t, runner.ModeApply, (&options{}).mode())
	assert.Equal(t, runner.ModePreview, (&options{dryRun: true}).mode())
	assert.Equal(t, runner.ModeAuthenticate, (&options{login: true}).mode())
}

func TestConfirmEnter(t *testing.T) {
	var out bytes.Buffer
	err := confirmEnter(strings.NewReader("\n"), &out)(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "press ENTER")

	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = confirmEnter(pr, io.Discard)(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInitCommand(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "conf", "catalogsync.yaml")

	out, err := runCLI(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Columns, cfg.Columns)
	assert.True(t, cfg.Rules.StopSellAtZero)

	_, err = runCLI(t, "init", "--config", path)
	assert.ErrorIs(t, err, config.ErrConfigExists)

	_, err = runCLI(t, "init", "--config", path, "--force")
	assert.NoError(t, err)
}
