// flightarchive extracts flight movements from the airport's monthly
// traffic workbooks into one JSON document.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tzl-ops/flightarchive/pkg/config"
	apperrors "github.com/tzl-ops/flightarchive/pkg/errors"
	ingesttelemetry "github.com/tzl-ops/flightarchive/pkg/ingest/telemetry"
	"github.com/tzl-ops/flightarchive/pkg/logging"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// app carries state shared by the commands of one invocation.
type app struct {
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string

	mgr     *config.Manager
	cfg     *config.Config
	log     *zap.Logger
	metrics *ingesttelemetry.Metrics

	stdout io.Writer
	stderr io.Writer

	// upload copies a written output to dest; nil uses the S3 client.
	upload func(ctx context.Context, path, dest string) (string, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var coded *apperrors.Error
		if a.verbose && errors.As(err, &coded) {
			fmt.Fprint(os.Stderr, coded.FormatStack())
		}
		os.Exit(apperrors.ExitCode(err))
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "flightarchive",
		Short: "Extract flight records from monthly traffic workbooks",
		Long: `flightarchive reads the airport's archive of monthly Excel workbooks
(root/<year>/[report dir]/<MM. MONTH>/<workbook>.xlsx), recognises which of the
historical column layouts each daily sheet uses, and writes every flight
movement to a single JSON document.

Rows that cannot be read are counted and reported, never fatal. Exit codes:
  3  archive root missing     4  year directory missing
  5  no month folders         6  output write or upload failed
  7  invalid configuration    130 interrupted`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (applied after the standard locations)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: json, console")

	root.AddCommand(newExtractCmd(a), newInspectCmd(a), newWatchCmd(a), newConfigCmd(a))
	return root
}

// setup loads configuration and builds the logger.
func (a *app) setup() error {
	paths := config.DefaultPaths()
	if a.cfgFile != "" {
		if _, err := os.Stat(a.cfgFile); err != nil {
			return apperrors.Wrapf(err, apperrors.CodeInvalidConfig, "config file %s", a.cfgFile)
		}
		paths = append(paths, a.cfgFile)
	}

	a.mgr = config.NewManagerWithPaths(paths, ".env")
	if err := a.mgr.Load(); err != nil {
		return err
	}
	a.cfg = a.mgr.Get()

	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Log.Format = a.logFormat
	}
	if a.verbose {
		a.cfg.Log.Level = "debug"
	}

	log, err := logging.New(a.cfg.Log)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidConfig, "logger")
	}
	a.log = log.With(zap.String("version", version))
	a.metrics = ingesttelemetry.NewMetrics("flightarchive")
	return nil
}
