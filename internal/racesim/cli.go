package racesim

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/racetime/pkg/logger"
)

const (
	defaultParticipants = 500
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultSettle       = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
	logFilePermission   = 0o600
)

// NewCommand returns the race-sim root command.
func NewCommand() *cobra.Command {
	cfg := &Config{}
	var (
		logFile    string
		runTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "race-sim",
		Short: "Simulate a timed race against a running results service",
		Long: `race-sim generates a race (entrants, start and finish reads with
mangled tags, retransmissions, no-shows and dropouts), feeds it to the
service concurrently and checks the served leaderboards against a local
computation over the same data.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closeLog, err := setupLogging(logFile, cfg.Verbose)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
			defer cancel()
			return Run(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.StringVar(&cfg.Race, "race", "", "race id (generated when empty)")
	f.StringVar(&cfg.Date, "date", time.Now().Format(time.DateOnly), "race day, YYYY-MM-DD")
	f.IntVar(&cfg.Participants, "participants", defaultParticipants, "registered entrants to generate")
	f.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "generator seed")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "concurrent read submitters")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.DurationVar(&cfg.SettleTimeout, "settle", defaultSettle, "how long to wait for results to catch up")
	f.StringVar(&cfg.StartReader, "start-reader", "192.168.10.1", "start gate reader address")
	f.StringVar(&cfg.FinishReader, "finish-reader", "192.168.10.2", "finish gate reader address")
	f.StringVarP(&cfg.OutputFile, "output", "o", "", "write the scenario here (.zst compresses)")
	f.StringVarP(&cfg.InputFile, "input", "i", "", "replay a saved scenario instead of generating one")
	f.StringVar(&logFile, "log", "", "also write logs to this file")
	f.DurationVar(&runTimeout, "run-timeout", defaultRunTimeout, "overall run deadline")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging")
	cmd.MarkFlagsMutuallyExclusive("input", "participants")

	return cmd
}

func setupLogging(logFile string, verbose bool) (func(), error) {
	var (
		out     io.Writer = os.Stdout
		closeFn           = func() {}
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closeFn = func() { _ = file.Close() }
	}

	if err := logger.Init(logger.WithOutput(out)); err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closeFn, nil
}
