package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/odvcencio/furry-rx/inspect"
	"github.com/odvcencio/furry-rx/registry"
	"github.com/odvcencio/furry-rx/runtime"
)

func dumpCmd() *cobra.Command {
	var (
		steps    int
		format   string
		markdown bool
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Replay a scripted session and print the registry",
		Long: `Render the counter without a terminal, increment it the given number
of times, then print the final view and a snapshot of every live node.

Examples:
  rxcounter dump
  rxcounter dump --steps 10 --format noop
  rxcounter dump --markdown`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			return dump(cmd.OutOrStdout(), cfg.Logger(), steps, format, markdown)
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 3, "Number of increments to replay")
	cmd.Flags().StringVarP(&format, "format", "f", "terminal256", "Chroma formatter for the JSON snapshot")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print the snapshot as a Markdown table")

	return cmd
}

func dump(w io.Writer, logger *slog.Logger, steps int, format string, markdown bool) error {
	var c *counter
	root := runtime.NewRoot(func(s *runtime.Scope) runtime.Element {
		return c.root(s)
	}, runtime.WithLogger(logger))
	defer root.Unmount()

	reg := registry.Make(
		registry.WithScheduler(root.Scheduler()),
		registry.WithLogger(logger),
	)
	defer reg.Dispose()
	c = newCounter(reg, time.Now)

	root.Render()
	for range steps {
		c.increment(1)
		root.Render()
	}

	if _, err := fmt.Fprintf(w, "%s\n\n", root.View()); err != nil {
		return fmt.Errorf("write view: %w", err)
	}
	entries := inspect.Snapshot(reg)
	if markdown {
		_, err := io.WriteString(w, inspect.Markdown(entries))
		return err
	}
	data, err := inspect.JSON(entries)
	if err != nil {
		return err
	}
	if err := inspect.Highlight(w, data, format); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}
