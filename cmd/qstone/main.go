package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DjordjeVuckovic/qstone/internal/config"
	"github.com/DjordjeVuckovic/qstone/internal/connection"
	"github.com/DjordjeVuckovic/qstone/internal/connector"
	"github.com/DjordjeVuckovic/qstone/internal/trace"
	"github.com/DjordjeVuckovic/qstone/internal/trace/sink"
)

// ExitRunIncomplete is returned when a run produced no result.
const ExitRunIncomplete = 3

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if code := exitCode(err); code != 0 {
		os.Exit(code)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "qstone",
		Short:         "Execute quantum circuits on a configured backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newQPUConfigCommand())
	return rootCmd
}

// exitCode logs err and maps it to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		slog.Warn(ee.msg)
		return ee.code
	}
	slog.Error("Command failed", "error", err)
	return 1
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a circuit and print the execution result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			circuitPath, _ := cmd.Flags().GetString("circuit")
			reps, _ := cmd.Flags().GetInt("reps")

			conn, closeFn, err := setup(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := conn.Run(cmd.Context(), circuitPath, reps)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			if res.IsEmpty() {
				return &exitError{code: ExitRunIncomplete, msg: "run step incomplete: empty result"}
			}
			return nil
		},
	}

	cmd.Flags().String("circuit", "", "OpenQASM 2 circuit file")
	cmd.Flags().Int("reps", 100, "Number of repetitions")
	_ = cmd.MarkFlagRequired("circuit")
	return cmd
}

func newQPUConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "qpu-config",
		Short: "Print the remote QPU configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, closeFn, err := setup(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			qc, err := conn.QueryQPUConfig(cmd.Context())
			if err != nil {
				return fmt.Errorf("query qpu config: %w", err)
			}
			return printJSON(cmd, qc)
		},
	}
}

func setup(cmd *cobra.Command) (*connector.Connector, func(), error) {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	s, err := sink.New(cmd.Context(), cfg.Trace)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace sink: %w", err)
	}
	logger := slog.Default().With("job_id", cfg.Identity.JobID)
	tracer := trace.New(trace.WithSink(s), trace.WithIdentity(cfg.Identity), trace.WithLogger(logger))
	closeFn := func() {
		if err := tracer.Close(); err != nil {
			logger.Warn("failed to close trace sink", "error", err)
		}
	}

	conn, err := connector.New(cfg.Connector,
		connection.WithLogger(logger),
		connection.WithTracer(tracer),
	)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	logger.Debug("Connector ready", "protocol", conn.Protocol(), "backend", conn.Backend())
	return conn, closeFn, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
