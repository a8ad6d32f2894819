package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/winprob/internal/adapters/classifier"
	app "github.com/okian/winprob/internal/app"
	"github.com/okian/winprob/internal/replay"
	"github.com/okian/winprob/pkg/logger"
)

// Default flag values.
const (
	defaultURL     = "http://localhost:8000"
	defaultModel   = "models/ipl_logistic.yaml"
	defaultTimeout = 5 * time.Second
	defaultRetries = 2
)

type options struct {
	file    string
	mode    string
	url     string
	model   string
	format  string
	workers int
	retries int
	timeout time.Duration
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay an innings through the win-probability model",
		Long: `Loads a recorded second innings (YAML), evaluates every snapshot either
in process or against a running service, and prints the win-probability worm.`,
		Example: `  replay --file innings/csk_v_mi_2019_final.yaml
  replay --file innings/csk_v_mi_2019_final.yaml --mode remote --url http://localhost:8000
  replay --file innings/csk_v_mi_2019_final.yaml --format json`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			if err := logger.InitWithWriter(cmd.ErrOrStderr()); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			return logger.SetLevelString(level)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReplay(cmd.Context(), opts, out)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "Innings timeline (YAML)")
	f.StringVarP(&opts.mode, "mode", "m", replay.ModeLocal, "local or remote")
	f.StringVar(&opts.url, "url", defaultURL, "Base URL of the service (remote mode)")
	f.StringVar(&opts.model, "model", defaultModel, "Logistic model artifact (local mode)")
	f.StringVarP(&opts.format, "format", "o", replay.FormatTable, "table or json")
	f.IntVarP(&opts.workers, "workers", "w", runtime.NumCPU(), "Concurrent evaluations")
	f.IntVar(&opts.retries, "retries", defaultRetries, "Retries per request (remote mode)")
	f.DurationVar(&opts.timeout, "timeout", defaultTimeout, "HTTP request timeout (remote mode)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runReplay(ctx context.Context, opts *options, out io.Writer) error {
	log := logger.Named("replay")

	inn, err := replay.LoadInnings(opts.file)
	if err != nil {
		return err
	}

	var p replay.Predictor
	switch opts.mode {
	case replay.ModeLocal:
		built, err := classifier.Build(ctx, classifier.Settings{
			Backend:   classifier.BackendLogistic,
			ModelPath: opts.model,
			Logger:    log,
		})
		if err != nil {
			return err
		}
		defer built.Close()
		p = replay.NewLocal(app.New(
			app.WithClassifier(built.Classifier),
			app.WithBackendName(built.Backend),
			app.WithBatchWorkers(opts.workers),
			app.WithLogger(log),
		))
	case replay.ModeRemote:
		p = replay.NewRemote(opts.url, opts.timeout, opts.retries, opts.workers)
	default:
		return fmt.Errorf("%w: %q", replay.ErrUnknownMode, opts.mode)
	}

	worm, err := replay.Run(ctx, inn, p, log)
	if err != nil {
		return err
	}
	return replay.Render(out, worm, opts.format)
}
