package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sghaida/scopedi/di"
	"github.com/sghaida/scopedi/internal/config"
	"github.com/sghaida/scopedi/internal/logging"
	"github.com/sghaida/scopedi/internal/metrics"
	"github.com/sghaida/scopedi/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// options are the persistent flags.
type options struct {
	configPath string
	debug      bool
	logLevel   string
	metrics    bool
	noColor    bool
}

// env is what every command runs with, built once flags are parsed.
type env struct {
	cfg       *config.Config
	log       *zap.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
}

func newRootCmd() *cobra.Command {
	var (
		opts options
		e    = &env{}
	)

	cmd := &cobra.Command{
		Use:   "readi",
		Short: "Render the scoped injector demo",
		Long: `readi mounts the demo application, a tree of scoped injectors,
and renders it as HTML to stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			defer func() { _ = e.log.Sync() }()
			if e.registry == nil {
				return nil
			}
			return metrics.WriteText(cmd.OutOrStdout(), e.registry, "readi_")
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "configuration file (default ./"+config.FileName+" when present)")
	f.BoolVar(&opts.debug, "debug", false, "wrap every injector's output with its providers")
	f.StringVar(&opts.logLevel, "log-level", "", "override log.level")
	f.BoolVar(&opts.metrics, "metrics", false, "print scope metrics after the command")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colors")

	cmd.AddCommand(
		renderCmd(e),
		counterCmd(e),
		providersCmd(e),
	)
	return cmd
}

func (e *env) setup(cmd *cobra.Command, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = opts.debug
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if opts.noColor {
		color.NoColor = true
	}

	log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.log = log
	if opts.metrics {
		e.registry = prometheus.NewRegistry()
		e.collector = metrics.NewCollector(e.registry)
	}
	return nil
}

// mount renders tree under a root scope carrying the env's logger and
// hooks. The returned release unmounts the tree and disposes the root scope.
func (e *env) mount(ctx context.Context, tree templ.Component) (*ui.Root, func() error, error) {
	scopeOpts := []di.Option{di.WithLabel("root"), di.WithLogger(e.log)}
	if e.collector != nil {
		scopeOpts = append(scopeOpts, di.WithHooks(e.collector))
	}
	boot, err := di.NewScope(nil, nil, scopeOpts...)
	if err != nil {
		return nil, nil, err
	}

	root := ui.NewRoot(tree,
		ui.WithRootScope(boot),
		ui.WithLogger(e.log),
		ui.WithDebug(e.cfg.Debug),
		ui.WithErrorHandler(func(err error) {
			e.log.Error("re-render failed", zap.Error(err))
		}),
	)
	release := func() error {
		err := root.Unmount()
		if derr := boot.Dispose(); derr != nil && err == nil {
			err = derr
		}
		return err
	}

	if err := root.Render(ctx); err != nil {
		_ = release()
		return nil, nil, err
	}
	return root, release, nil
}

// waitOutput polls root until its output satisfies ready.
func waitOutput(ctx context.Context, root *ui.Root, ready func(string) bool) (string, error) {
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()

	for {
		if out := root.Output(); ready(out) {
			return out, nil
		}
		select {
		case <-ctx.Done():
			return root.Output(), fmt.Errorf("waiting for render: %w", ctx.Err())
		case <-tick.C:
		}
	}
}

func loaded(out string) bool {
	return !strings.Contains(out, `class="loading"`)
}

func writeLine(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}
