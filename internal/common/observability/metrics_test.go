package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starter/internal/common/logger"
)

func TestRecordRun(t *testing.T) {
	obs := New("starter-test", logger.NewNoOpLogger())
	defer obs.Shutdown()

	obs.RecordRun(context.Background(), "sync", "success", 25*time.Millisecond)
	obs.RecordRun(context.Background(), "async", "failure", time.Second)

	families, err := obs.Gatherer().Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "app_runs")
	assert.Contains(t, joined, "app_run_duration")
}

func TestRecordRun_CounterValue(t *testing.T) {
	obs := New("starter-test", logger.NewNoOpLogger())
	defer obs.Shutdown()

	for i := 0; i < 3; i++ {
		obs.RecordRun(context.Background(), "sync", "success", time.Millisecond)
	}

	count, err := testutil.GatherAndCount(obs.Gatherer())
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestShutdown_WithoutProvider(t *testing.T) {
	obs := &Observability{logger: logger.NewNoOpLogger()}
	obs.RecordRun(context.Background(), "sync", "success", time.Millisecond)
	assert.NotPanics(t, obs.Shutdown)
}
