package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"catalogsync/internal/browser"
	"catalogsync/internal/catalog"
	"catalogsync/internal/config"
	"catalogsync/internal/evidence"
	"catalogsync/internal/logging"
	"catalogsync/internal/metrics"
	"catalogsync/internal/namemap"
	"catalogsync/internal/report"
	"catalogsync/internal/runner"
	"catalogsync/internal/source"
)

// execute loads configuration, wires a runner for mode and runs it. Item
// failures are reported, not returned.
func execute(cmd *cobra.Command, opts *options, mode runner.Mode) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.Initialize(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return err
	}
	defer logging.Flush()
	logging.Boot("catalogsync %s (config %s)", mode, opts.configPath)

	r, cleanup, err := buildRunner(ctx, cmd, cfg, mode)
	defer cleanup()
	if err != nil {
		return err
	}

	if _, err := r.Run(ctx, mode); err != nil {
		if runner.IsFatal(err) {
			logging.RunError("run aborted, fix configuration or source: %v", err)
		} else {
			logging.RunError("run aborted: %v", err)
		}
		return err
	}
	return nil
}

// buildRunner wires only what mode needs. cleanup is always non-nil.
func buildRunner(ctx context.Context, cmd *cobra.Command, cfg *config.Config, mode runner.Mode) (*runner.Runner, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logging.BootWarn("cleanup: %v", err)
			}
		}
	}

	r := &runner.Runner{
		Rules: catalog.Rules{StopSellAtZero: cfg.Rules.StopSellAtZero},
		Columns: catalog.Columns{
			Name:     cfg.Columns.Name,
			Quantity: cfg.Columns.Quantity,
			Status:   cfg.Columns.Status,
		},
		ItemTimeout:     cfg.GetItemTimeout(),
		MetricsTextfile: cfg.Metrics.Textfile,
		Report:          report.NewRenderer(true),
		Out:             cmd.OutOrStdout(),
		Confirm:         confirmEnter(cmd.InOrStdin(), cmd.ErrOrStderr()),
	}

	if mode != runner.ModeAuthenticate {
		folder, err := source.Open(ctx, cfg.Source, nil)
		if err != nil {
			return nil, cleanup, err
		}
		if c, ok := folder.(io.Closer); ok {
			closers = append(closers, c.Close)
		}
		r.Source = folder

		names, err := namemap.Open(cfg.Names)
		if err != nil {
			return nil, cleanup, err
		}
		if c, ok := names.(io.Closer); ok {
			closers = append(closers, c.Close)
		}
		r.Names = names

		rec, err := evidence.NewRecorder(cfg.Evidence.Dir, cfg.Evidence.Journal)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, rec.Close)
		r.Evidence = rec
	}

	if mode != runner.ModePreview {
		if err := cfg.Browser.Validate(); err != nil {
			return nil, cleanup, err
		}
		manager := browser.NewSessionManager(
			browser.ConfigFrom(cfg),
			browser.FileTokenStore{Path: cfg.Browser.SessionFile},
		)
		r.Opener = runner.BrowserOpener{Manager: manager}
		r.Metrics = metrics.New()
	}

	return r, cleanup, nil
}

// confirmEnter blocks until the operator presses ENTER or ctx ends.
func confirmEnter(in io.Reader, out io.Writer) func(context.Context) error {
	return func(ctx context.Context) error {
		fmt.Fprintln(out, "Sign in to the panel in the Chrome window, then press ENTER here.")
		done := make(chan error, 1)
		// On cancellation the reader stays blocked on in until the process
		// exits; stdin is never closed here.
		go func() {
			_, err := bufio.NewReader(in).ReadString('\n')
			if errors.Is(err, io.EOF) {
				err = nil
			}
			done <- err
		}()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
