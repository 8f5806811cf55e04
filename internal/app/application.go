// Package app holds the Application type: a load → transform → save pipeline
// over JSON records plus an asynchronous fan-out demo.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"starter/internal/common/config"
	apperrors "starter/internal/common/errors"
	"starter/internal/common/logger"
	"starter/internal/common/metrics"
	"starter/internal/common/utils"
	"starter/internal/common/validation"
	"starter/internal/storage"
)

const (
	// TimestampLayout is ISO-8601 local time with microseconds.
	TimestampLayout = "2006-01-02T15:04:05.000000"
	// OutputNameLayout has one-second resolution, so two saves in the same
	// second share a name and the later one wins.
	OutputNameLayout = "20060102_150405"
)

// TaskFunc is one unit of the asynchronous fan-out.
type TaskFunc func(ctx context.Context, id int) (string, error)

type Application struct {
	config  *config.Config
	options map[string]interface{}
	logger  logger.Logger
	files   *utils.FileHelper
	sink    storage.Sink
	schema  *validation.SchemaValidator
	now     func() time.Time
	task    TaskFunc
	runID   string
}

type Option func(*Application)

// WithOptions attaches caller-supplied settings. A nil map is stored as empty.
func WithOptions(opts map[string]interface{}) Option {
	return func(a *Application) {
		if opts != nil {
			a.options = opts
		}
	}
}

func WithSink(sink storage.Sink) Option {
	return func(a *Application) { a.sink = sink }
}

// WithSchema makes LoadData reject records that fail the schema.
func WithSchema(v *validation.SchemaValidator) Option {
	return func(a *Application) { a.schema = v }
}

func WithClock(now func() time.Time) Option {
	return func(a *Application) { a.now = now }
}

func WithTask(task TaskFunc) Option {
	return func(a *Application) { a.task = task }
}

// New builds an Application. Without WithSink, output goes to files under
// cfg.Paths.OutputDir.
func New(cfg *config.Config, log logger.Logger, opts ...Option) *Application {
	runID := uuid.NewString()
	log = log.Named("Application").WithFields(map[string]interface{}{"runId": runID})

	a := &Application{
		config:  cfg,
		options: map[string]interface{}{},
		logger:  log,
		files:   utils.NewFileHelper(log),
		now:     time.Now,
		runID:   runID,
	}
	a.task = a.delayTask
	for _, opt := range opts {
		opt(a)
	}
	if a.sink == nil {
		a.sink = storage.NewFileSink(cfg.Paths.OutputDir, a.files)
	}

	a.logger.Info("initializing application", map[string]interface{}{
		"version": cfg.App.Version,
		"backend": a.sink.Backend(),
		"options": len(a.options),
	})
	return a
}

// Options returns the caller-supplied settings.
func (a *Application) Options() map[string]interface{} {
	return a.options
}

func (a *Application) RunID() string {
	return a.runID
}

// Run executes the synchronous pipeline. Errors are logged and returned unchanged.
func (a *Application) Run(ctx context.Context) error {
	start := time.Now()
	a.logger.Info("pipeline started", nil)

	if err := a.ProcessData(ctx); err != nil {
		a.logger.Error("pipeline failed", map[string]interface{}{"error": err.Error()})
		metrics.PipelineRuns.WithLabelValues("sync", "failure").Inc()
		return err
	}

	metrics.PipelineRuns.WithLabelValues("sync", "success").Inc()
	a.logger.Info("pipeline completed", map[string]interface{}{
		"durationMs": time.Since(start).Milliseconds(),
	})
	return nil
}

// ProcessData runs load, transform and save in order; the first failure stops it.
func (a *Application) ProcessData(ctx context.Context) error {
	a.logger.Info("processing data", nil)

	start := time.Now()
	var res LoadResult
	if a.config.Pipeline.StrictInput {
		var err error
		if res, err = a.LoadDataStrict(); err != nil {
			return err
		}
	} else {
		res = a.LoadData()
	}
	observe("load", start)

	start = time.Now()
	var out *OutputRecord
	if res.Raw != nil {
		out = a.wrap(res.Raw)
	} else {
		var err error
		if out, err = a.TransformData(res.Record); err != nil {
			return err
		}
	}
	observe("transform", start)

	if err := ctx.Err(); err != nil {
		return err
	}

	start = time.Now()
	if _, err := a.SaveData(ctx, out); err != nil {
		return err
	}
	observe("save", start)
	return nil
}

// LoadData reads the input record. It never fails: a missing file and an
// unreadable or invalid one both produce an empty record, told apart by Status.
func (a *Application) LoadData() LoadResult {
	path := a.config.InputPath()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			a.logger.Warn("input file does not exist", map[string]interface{}{"path": path})
			metrics.InputLoads.WithLabelValues(LoadStatusAbsent.String()).Inc()
			return LoadResult{Status: LoadStatusAbsent, Record: Record{}, Path: path}
		}
		return a.malformed(path, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return a.malformed(path, err)
	}
	text, err := utils.Decode(raw, utils.DefaultEncoding)
	if err != nil {
		return a.malformed(path, err)
	}

	record, err := decodeRecord(text)
	if err != nil {
		return a.malformed(path, err)
	}

	if a.schema != nil {
		result, err := a.schema.Validate(record)
		if err != nil {
			return a.malformed(path, err)
		}
		if !result.Valid {
			return a.malformed(path, apperrors.NewSchemaViolationError(result.GetErrorMessages()))
		}
	}

	a.logger.Debug("input loaded", map[string]interface{}{"path": path, "keys": len(record)})
	metrics.InputLoads.WithLabelValues(LoadStatusLoaded.String()).Inc()
	return LoadResult{
		Status: LoadStatusLoaded,
		Record: record,
		Raw:    json.RawMessage(strings.TrimSpace(text)),
		Path:   path,
	}
}

// decodeRecord parses exactly one JSON object. Numbers stay json.Number so
// integers beyond float64 precision survive.
func decodeRecord(text string) (Record, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var record Record
	if err := dec.Decode(&record); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("input is not a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after the input object")
	}
	return record, nil
}

func (a *Application) malformed(path string, err error) LoadResult {
	a.logger.WithError(err).Error("failed to load input data", map[string]interface{}{"path": path})
	metrics.InputLoads.WithLabelValues(LoadStatusMalformed.String()).Inc()
	return LoadResult{Status: LoadStatusMalformed, Record: Record{}, Path: path, Err: err}
}

// LoadDataStrict is LoadData that fails on malformed input instead of
// substituting an empty record. A missing file is still not an error.
func (a *Application) LoadDataStrict() (LoadResult, error) {
	res := a.LoadData()
	if res.Status == LoadStatusMalformed {
		return res, apperrors.NewInputMalformedError(res.Path, res.Err)
	}
	return res, nil
}

// TransformData wraps data with a timestamp and the processed marker.
// Map keys come out sorted; the pipeline itself wraps the input's own bytes
// so its key order is kept.
func (a *Application) TransformData(data Record) (*OutputRecord, error) {
	if data == nil {
		data = Record{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		a.logger.Error("failed to transform data", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	return a.wrap(raw), nil
}

func (a *Application) wrap(raw json.RawMessage) *OutputRecord {
	return &OutputRecord{
		Timestamp:    a.now().Format(TimestampLayout),
		OriginalData: raw,
		Processed:    true,
	}
}

// SaveData serializes rec and hands it to the sink under a timestamped name.
// It returns the location reported by the sink.
func (a *Application) SaveData(ctx context.Context, rec *OutputRecord) (string, error) {
	payload, err := EncodeRecord(rec)
	if err != nil {
		a.logger.Error("failed to save data", map[string]interface{}{"error": err.Error()})
		return "", err
	}

	location, err := a.sink.Save(ctx, a.OutputName(a.now()), payload)
	if err != nil {
		a.logger.Error("failed to save data", map[string]interface{}{
			"backend": a.sink.Backend(),
			"error":   err.Error(),
		})
		return "", err
	}

	metrics.OutputsSaved.WithLabelValues(a.sink.Backend()).Inc()
	a.logger.Info("data saved", map[string]interface{}{"location": location})
	return location, nil
}

// OutputName is the record name used for a save at t.
func (a *Application) OutputName(t time.Time) string {
	return fmt.Sprintf("%s_%s.json", a.config.Paths.OutputPrefix, t.Format(OutputNameLayout))
}

// EncodeRecord renders v as 2-space indented JSON without escaping HTML or
// non-ASCII characters. Embedded json.RawMessage values are re-indented but
// keep their key order and number literals.
func EncodeRecord(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// AsyncProcess runs tasks.count tasks concurrently and returns their results
// in task order. The first failing task fails the whole call.
func (a *Application) AsyncProcess(ctx context.Context) ([]string, error) {
	count := a.config.Tasks.Count
	a.logger.Info("async processing started", map[string]interface{}{"tasks": count})

	results := make([]string, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			res, err := a.task(gctx, i)
			if err != nil {
				return err
			}
			results[i] = res
			metrics.AsyncTasksCompleted.Inc()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Error("async processing failed", map[string]interface{}{"error": err.Error()})
		metrics.PipelineRuns.WithLabelValues("async", "failure").Inc()
		return nil, err
	}

	metrics.PipelineRuns.WithLabelValues("async", "success").Inc()
	a.logger.Info("async processing completed", map[string]interface{}{"results": results})
	return results, nil
}

// delayTask waits tasks.delay_ms and reports completion.
func (a *Application) delayTask(ctx context.Context, id int) (string, error) {
	timer := time.NewTimer(config.GetDuration(a.config.Tasks.DelayMS))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
	}
	return fmt.Sprintf("Task %d completed", id), nil
}

func observe(stage string, start time.Time) {
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
