// internal/common/metrics/metrics.go
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starter_pipeline_runs_total",
			Help: "Total number of pipeline runs by mode and status",
		},
		[]string{"mode", "status"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "starter_pipeline_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	InputLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starter_input_loads_total",
			Help: "Input record loads by outcome (loaded, absent, malformed)",
		},
		[]string{"outcome"},
	)

	OutputsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starter_outputs_saved_total",
			Help: "Output records saved by storage backend",
		},
		[]string{"backend"},
	)

	AsyncTasksCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starter_async_tasks_completed_total",
			Help: "Asynchronous demo tasks that finished successfully",
		},
	)
)

// WriteTextfile dumps the default registry, plus any extra gatherers, in the
// node_exporter textfile format.
func WriteTextfile(path string, extra ...prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, append(prometheus.Gatherers{prometheus.DefaultGatherer}, extra...)); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
