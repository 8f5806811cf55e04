package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(InputLoads.WithLabelValues("absent"))
	InputLoads.WithLabelValues("absent").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(InputLoads.WithLabelValues("absent")))

	beforeTasks := testutil.ToFloat64(AsyncTasksCompleted)
	AsyncTasksCompleted.Add(3)
	assert.Equal(t, beforeTasks+3, testutil.ToFloat64(AsyncTasksCompleted))
}

func TestWriteTextfile(t *testing.T) {
	PipelineRuns.WithLabelValues("sync", "success").Inc()
	path := filepath.Join(t.TempDir(), "textfile", "starter.prom")

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `starter_pipeline_runs_total{mode="sync",status="success"}`)
}

func TestWriteTextfile_BadDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	assert.Error(t, WriteTextfile(filepath.Join(blocker, "starter.prom")))
}

func TestWriteTextfile_ExtraGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	extra := prometheus.NewCounter(prometheus.CounterOpts{Name: "extra_events_total", Help: "test counter"})
	reg.MustRegister(extra)
	extra.Inc()

	path := filepath.Join(t.TempDir(), "starter.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "extra_events_total 1")
}
