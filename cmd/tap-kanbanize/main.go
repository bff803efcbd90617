package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-kanbanize/pkg/clients"
	"github.com/ajitpratap0/tap-kanbanize/pkg/config"
	"github.com/ajitpratap0/tap-kanbanize/pkg/connector/sources/kanbanize"
	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
	"github.com/ajitpratap0/tap-kanbanize/pkg/logger"
	"github.com/ajitpratap0/tap-kanbanize/pkg/metrics"
	"github.com/ajitpratap0/tap-kanbanize/pkg/observability"
	"github.com/ajitpratap0/tap-kanbanize/pkg/singer"
)

var version = "0.1.1"

const serviceName = "tap-kanbanize"

// options holds the command line flags
type options struct {
	configFile  string
	stateFile   string
	catalogFile string
	discover    bool
	logLevel    string
	metricsFile string
}

// reportedError marks an error the run already logged
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		var reported *reportedError
		if !stderrors.As(err, &reported) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   serviceName,
		Short: "Singer tap for Kanbanize",
		Long: `tap-kanbanize extracts tasks from a Kanbanize board and writes them to
stdout as Singer SCHEMA, RECORD and STATE messages.

Examples:
  tap-kanbanize --config config.json --discover > catalog.json
  tap-kanbanize --config config.json --catalog catalog.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTap(cmd.Context(), opts, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to the config file (required)")
	flags.StringVarP(&opts.stateFile, "state", "s", "", "Path to the state file")
	flags.StringVar(&opts.catalogFile, "catalog", "", "Path to the catalog file selecting streams to sync")
	flags.StringVarP(&opts.catalogFile, "properties", "p", "", "Path to the catalog file")
	flags.BoolVarP(&opts.discover, "discover", "d", false, "Print the catalog of available streams and exit")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	_ = root.MarkFlagRequired("config")
	_ = flags.MarkDeprecated("properties", "use --catalog instead")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tap-kanbanize v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	return root
}

// runTap sets up logging and reports any failure of the run through it
func runTap(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	logCfg := logger.DefaultConfig()
	logCfg.Level = opts.logLevel
	logCfg.Output = stderr
	base, err := logger.New(logCfg)
	if err != nil {
		return err
	}
	defer func() { _ = base.Sync() }()

	ctx = logger.WithJobID(ctx, uuid.NewString())
	log := logger.WithContext(ctx, base)

	if err := run(ctx, opts, log, stdout, stderr); err != nil {
		log.Error("tap failed",
			zap.String("error_type", string(errors.TypeOf(err))),
			zap.Any("details", errors.DetailsOf(err)),
			zap.Error(err))
		return &reportedError{err: err}
	}
	return nil
}

func run(ctx context.Context, opts *options, log *zap.Logger, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configFile, log)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry := metrics.NewRegistry(log)
	if opts.metricsFile != "" {
		defer func() {
			if err := registry.WriteTextfile(opts.metricsFile); err != nil {
				log.Warn("failed to write metrics file", zap.String("path", opts.metricsFile), zap.Error(err))
			}
		}()
	}

	if opts.discover {
		log.Info("running discovery")
		catalog, err := kanbanize.Discover(kanbanize.Schemas)
		if err != nil {
			return err
		}
		return singer.WriteCatalog(stdout, catalog)
	}

	catalog, err := loadCatalog(opts.catalogFile, log)
	if err != nil {
		return err
	}
	state, err := singer.LoadState(opts.stateFile)
	if err != nil {
		return err
	}

	tp, shutdown, err := observability.NewTracerProvider(observability.TracingConfig{
		Enabled:        cfg.Trace,
		ServiceName:    serviceName,
		ServiceVersion: version,
		JobID:          jobID(ctx),
		Output:         stderr,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to set up tracing")
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()
	tracer := tp.Tracer(serviceName)

	httpClient := clients.NewHTTPClient(kanbanize.HTTPConfig(cfg), log, tracer)
	defer httpClient.Close()

	tap := kanbanize.NewTap(cfg, state, catalog, kanbanize.Options{
		Logger:     log,
		Metrics:    registry,
		Tracer:     tracer,
		HTTPClient: httpClient,
	})
	return tap.Sync(ctx, singer.NewWriter(stdout))
}

// loadCatalog reads the supplied catalog, or discovers one when none is given
func loadCatalog(path string, log *zap.Logger) (*singer.Catalog, error) {
	if path != "" {
		return singer.LoadCatalog(path)
	}
	log.Info("no catalog supplied, running discovery")
	return kanbanize.Discover(kanbanize.Schemas)
}

func jobID(ctx context.Context) string {
	id, _ := ctx.Value(logger.JobIDKey).(string)
	return id
}
