package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starter/internal/common/config"
	apperrors "starter/internal/common/errors"
)

// setup isolates a run in a fresh working directory with stdout logging off.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.DebugEnv, "")
	t.Setenv("STARTER_LOGGING_STDOUT", "false")
	t.Setenv("STARTER_TASKS_DELAY_MS", "5")
	return dir
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func readLog(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "starter.log"))
	require.NoError(t, err)
	return string(data)
}

func TestRun_SyncPipeline(t *testing.T) {
	dir := setup(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "input.json"), []byte(`{"id": 42}`), 0o644))

	code, _, _ := run(t)
	require.Equal(t, apperrors.ExitOK, code)

	matches, err := filepath.Glob(filepath.Join(dir, "output", "output_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, map[string]interface{}{"id": float64(42)}, out["original_data"])

	log := readLog(t, dir)
	assert.Contains(t, log, " - starter.Application - INFO - pipeline started")
	assert.Contains(t, log, " - starter.Application - INFO - pipeline completed")
	assert.NotContains(t, log, "DEBUG")
}

func TestRun_AsyncPipeline(t *testing.T) {
	dir := setup(t)

	code, _, _ := run(t, "--async")
	require.Equal(t, apperrors.ExitOK, code)

	log := readLog(t, dir)
	assert.Contains(t, log, "async processing completed")
	for _, want := range []string{"Task 0 completed", "Task 1 completed", "Task 2 completed"} {
		assert.Contains(t, log, want)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "output", "*.json"))
	assert.Empty(t, matches, "async path does no file output")
	assert.DirExists(t, filepath.Join(dir, "data"))
}

func TestRun_Debug(t *testing.T) {
	dir := setup(t)

	code, _, _ := run(t, "--debug", "--async")
	require.Equal(t, apperrors.ExitOK, code)
	assert.Contains(t, readLog(t, dir), " - starter - DEBUG - debug mode enabled")
}

func TestRun_DebugFromEnvironment(t *testing.T) {
	dir := setup(t)
	t.Setenv(config.DebugEnv, "TRUE")

	code, _, _ := run(t, "--async")
	require.Equal(t, apperrors.ExitOK, code)
	assert.Contains(t, readLog(t, dir), "DEBUG")
}

func TestRun_Version(t *testing.T) {
	dir := setup(t)

	code, stdout, _ := run(t, "--version")
	assert.Equal(t, apperrors.ExitOK, code)
	assert.Equal(t, "starter "+config.Version+"\n", stdout)
	assert.NoDirExists(t, filepath.Join(dir, "output"))
}

func TestRun_ConfigFile(t *testing.T) {
	dir := setup(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: reporter
paths:
  output_dir: reports
  output_prefix: report
metrics:
  textfile_path: metrics/starter.prom
`), 0o644))

	code, _, _ := run(t, "--config", path)
	require.Equal(t, apperrors.ExitOK, code)

	matches, _ := filepath.Glob(filepath.Join(dir, "reports", "report_*.json"))
	assert.Len(t, matches, 1)
	assert.FileExists(t, filepath.Join(dir, "reporter.log"))

	prom, err := os.ReadFile(filepath.Join(dir, "metrics", "starter.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `starter_pipeline_runs_total{mode="sync",status="success"}`)
	assert.Contains(t, string(prom), "app_run_duration")
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name   string
		config string
		args   []string
		want   int
	}{
		{name: "missing config file", args: []string{"--config", "does-not-exist.yaml"}, want: apperrors.ExitFailure},
		{name: "invalid config", config: "tasks:\n  count: 0\n", want: apperrors.ExitFailure},
		{name: "unreachable redis", config: "storage:\n  backend: redis\n  redis:\n    address: 127.0.0.1:1\n", want: apperrors.ExitFailure},
		{name: "missing schema", config: "validation:\n  input_schema: nope.json\n", want: apperrors.ExitFailure},
		{name: "unknown flag", args: []string{"--bogus"}, want: ExitUsage},
		{name: "positional argument", args: []string{"extra"}, want: ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setup(t)
			args := tt.args
			if tt.config != "" {
				path := filepath.Join(dir, "test.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.config), 0o644))
				args = append([]string{"--config", path}, args...)
			}

			code, _, _ := run(t, args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestRun_StartupFailureLoggedToStdout(t *testing.T) {
	dir := setup(t)

	code, stdout, _ := run(t, "--config", "does-not-exist.yaml")
	require.Equal(t, apperrors.ExitFailure, code)

	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3} - starter - ERROR - execution failed`, stdout)
	assert.Contains(t, stdout, "does-not-exist.yaml")
	assert.NoFileExists(t, filepath.Join(dir, "starter.log"))
}

func TestRun_LogsMirroredToStdout(t *testing.T) {
	dir := setup(t)
	t.Setenv("STARTER_LOGGING_STDOUT", "true")

	code, stdout, _ := run(t, "--async")
	require.Equal(t, apperrors.ExitOK, code)
	assert.Equal(t, readLog(t, dir), stdout)
}

func TestRun_OutputDirCannotBeCreated(t *testing.T) {
	dir := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output"), []byte("not a dir"), 0o644))

	code, _, _ := run(t)
	assert.Equal(t, apperrors.ExitFailure, code)
}

func TestRun_RedisBackend(t *testing.T) {
	dir := setup(t)
	mr := miniredis.RunT(t)
	t.Setenv("STARTER_STORAGE_BACKEND", "redis")
	t.Setenv("STARTER_STORAGE_REDIS_ADDRESS", mr.Addr())

	code, _, _ := run(t)
	require.Equal(t, apperrors.ExitOK, code)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Regexp(t, `^starter:output_\d{8}_\d{6}\.json$`, keys[0])

	matches, _ := filepath.Glob(filepath.Join(dir, "output", "*.json"))
	assert.Empty(t, matches)
}

func TestRun_InterruptExitsCleanly(t *testing.T) {
	setup(t)
	t.Setenv("STARTER_TASKS_DELAY_MS", "3600000")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	code := Run(ctx, []string{"--async"}, &stdout, &stderr)
	assert.Equal(t, apperrors.ExitOK, code)
}
