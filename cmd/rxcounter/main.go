// Command rxcounter is a terminal counter built on rx handles. The run
// command opens an interactive screen; dump replays a scripted session and
// prints the registry.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	tcellbackend "github.com/odvcencio/furry-rx/backend/tcell"
	"github.com/odvcencio/furry-rx/inspect"
	"github.com/odvcencio/furry-rx/registry"
	"github.com/odvcencio/furry-rx/runtime"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rxcounter",
		Short: "A reactive terminal counter",
		Long: `rxcounter renders a counter whose values live in an rx registry.

Settings are read from the environment (and a .env file if present):

  RXCOUNTER_LOG_LEVEL      debug, info, warn, error (default warn)
  RXCOUNTER_DEBUG_ADDR     address for the debug server (default off)
  RXCOUNTER_AUTO_INTERVAL  auto increment period (default 1s)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		dumpCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rxcounter: %s\n", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		debugAddr string
		interval  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive counter",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("debug-addr") {
				cfg.DebugAddr = debugAddr
			}
			if cmd.Flags().Changed("interval") {
				cfg.AutoInterval = interval
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCounter(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&debugAddr, "debug-addr", "", "Serve /debug/rx and /metrics on this address")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Auto increment period")

	return cmd
}

func runCounter(ctx context.Context, cfg *Config) error {
	logger := cfg.Logger()
	screen, err := tcellbackend.New()
	if err != nil {
		return err
	}

	var c *counter
	app := runtime.NewApp(runtime.AppConfig{
		Backend: screen,
		Root: func(s *runtime.Scope) runtime.Element {
			return c.root(s)
		},
		Update: func(app *runtime.App, msg runtime.Message) bool {
			return c.update(app, msg)
		},
		KeyHandler: func(app *runtime.App, msg runtime.KeyMsg) (runtime.Command, bool) {
			return c.handleKey(app, msg)
		},
		Logger: logger,
	})

	promReg := prometheus.NewRegistry()
	reg := registry.Make(
		registry.WithScheduler(app.StateScheduler()),
		registry.WithLogger(logger),
		registry.WithMetrics(registry.NewMetrics(registry.WithRegisterer(promReg))),
	)
	defer reg.Dispose()
	c = newCounter(reg, time.Now)

	app.Every(cfg.AutoInterval, func(now time.Time) runtime.Message {
		return runtime.TickMsg{Time: now}
	})

	if cfg.DebugAddr != "" {
		srv := inspect.NewServer(reg,
			inspect.WithAddr(cfg.DebugAddr),
			inspect.WithGatherer(promReg),
			inspect.WithLogger(logger),
		)
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := srv.ListenAndServe(serveCtx); err != nil {
				logger.Error("debug server failed", "error", err)
			}
		}()
	}

	err = app.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
