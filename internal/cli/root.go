// Package cli wires command-line flags to the application.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"starter/internal/app"
	"starter/internal/common/config"
	apperrors "starter/internal/common/errors"
	"starter/internal/common/logger"
	"starter/internal/common/metrics"
	"starter/internal/common/observability"
	"starter/internal/common/validation"
	"starter/internal/storage"
)

// ExitUsage is returned when the arguments cannot be parsed.
const ExitUsage = 2

type options struct {
	debug      bool
	configPath string
	async      bool
}

// Execute runs the CLI with os.Args and returns the process exit code.
// SIGINT and SIGTERM cancel the run and exit with status 0.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// Run parses args and executes the selected pipeline.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &options{}
	exitCode := apperrors.ExitOK

	cmd := newRootCommand(opts, func(cmd *cobra.Command) {
		exitCode = execute(cmd.Context(), opts, cmd.OutOrStdout())
	})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintln(stderr, cmd.UsageString())
		return ExitUsage
	}
	return exitCode
}

// newRootCommand builds the root command; run is invoked after flags parse.
func newRootCommand(opts *options, run func(cmd *cobra.Command)) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "starter",
		Short:         "Load, transform and save a JSON record, or run the async task demo",
		Version:       config.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run(cmd)
			return nil
		},
	}
	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := cmd.Flags()
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.BoolVar(&opts.async, "async", false, "run the asynchronous task demo instead of the pipeline")

	return cmd
}

func execute(ctx context.Context, opts *options, stdout io.Writer) int {
	bootstrap := bootstrapLogger(stdout)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return apperrors.NewErrorHandler(bootstrap).Handle(err, false)
	}
	if err := config.EnsureDirectories(cfg); err != nil {
		return apperrors.NewErrorHandler(bootstrap).Handle(err, false)
	}

	inst, err := logger.Build(logger.Options{
		Name:   cfg.App.Name,
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Stdout: cfg.Logging.Stdout,
		Output: stdout,
	})
	if err != nil {
		return apperrors.NewErrorHandler(bootstrap).Handle(err, false)
	}
	defer inst.Close()

	log := logger.NewZapAdapter(inst.Logger)
	if opts.debug {
		inst.SetDebug()
		log.Debug("debug mode enabled", nil)
	}
	handler := apperrors.NewErrorHandler(log)

	appOpts, closeSink, err := buildOptions(ctx, cfg, log)
	if err != nil {
		return handler.Handle(err, ctx.Err() != nil)
	}
	defer closeSink()

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	application := app.New(cfg, log, appOpts...)
	mode, start := "sync", time.Now()
	if opts.async {
		mode = "async"
		_, err = application.AsyncProcess(ctx)
	} else {
		err = application.Run(ctx)
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	obs.RecordRun(ctx, mode, status, time.Since(start))

	if path := cfg.Metrics.TextfilePath; path != "" {
		if werr := metrics.WriteTextfile(path, obs.Gatherer()); werr != nil {
			log.Warn("failed to write metrics", map[string]interface{}{"path": path, "error": werr.Error()})
		}
	}

	return handler.Handle(err, ctx.Err() != nil)
}

// bootstrapLogger reports failures that happen before the configured logger
// exists. It writes the same line format to stdout only.
func bootstrapLogger(stdout io.Writer) logger.Logger {
	inst, err := logger.Build(logger.Options{Name: "starter", Level: "info", Stdout: true, Output: stdout})
	if err != nil {
		return logger.NewNoOpLogger()
	}
	return logger.NewZapAdapter(inst.Logger)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func buildOptions(ctx context.Context, cfg *config.Config, log logger.Logger) ([]app.Option, func(), error) {
	var opts []app.Option

	if cfg.Validation.InputSchema != "" {
		schema, err := validation.LoadSchema(cfg.Validation.InputSchema)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, app.WithSchema(schema))
	}

	sink, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, app.WithSink(sink))

	closeSink := func() {
		if err := sink.Close(); err != nil {
			log.Warn("failed to close storage", map[string]interface{}{"error": err.Error()})
		}
	}
	return opts, closeSink, nil
}
