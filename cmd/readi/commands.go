package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sghaida/scopedi/di"
	"github.com/sghaida/scopedi/examples/app"
	"github.com/sghaida/scopedi/ui"
	"github.com/spf13/cobra"
)

// =============================================================================
// readi render
// =============================================================================

func renderCmd(e *env) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the demo tree",
		Long: `Mount the demo tree, wait for the heroes to load and print the
final HTML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a := app.NewApp(e.cfg, e.log)
			root, release, err := e.mount(ctx, a.Tree)
			if err != nil {
				return err
			}

			out, werr := waitOutput(ctx, root, loaded)
			if err := release(); err != nil {
				return err
			}
			if werr != nil {
				return werr
			}
			return writeLine(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for async loads")
	return cmd
}

// =============================================================================
// readi counter
// =============================================================================

func counterCmd(e *env) *cobra.Command {
	var (
		clicks int
		down   bool
		batch  bool
	)

	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Click the counter and print every render",
		Long: `Mount the counter module under the application providers, click it
--clicks times and print the tree after each render.

With --batch the clicks are applied inside one batch, so the tree renders
once after the last click.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if clicks < 0 {
				return fmt.Errorf("--clicks must not be negative, got %d", clicks)
			}

			counter := app.CounterModule()
			tree := ui.Provide(app.RootProviders(e.cfg, e.log), counter).Label("App")
			root, release, err := e.mount(cmd.Context(), tree)
			if err != nil {
				return err
			}
			defer func() { _ = release() }()

			w := cmd.OutOrStdout()
			if err := writeLine(w, root.Output()); err != nil {
				return err
			}

			svc, err := di.Resolve[*app.CounterService](counter.Scope(), app.CounterToken)
			if err != nil {
				return err
			}
			click := svc.Increment
			if down {
				click = svc.Decrement
			}

			if batch {
				root.Batch(func() {
					for range clicks {
						click()
					}
				})
				if err := writeLine(w, root.Output()); err != nil {
					return err
				}
			} else {
				for range clicks {
					click()
					if err := writeLine(w, root.Output()); err != nil {
						return err
					}
				}
			}
			if err := root.Err(); err != nil {
				return err
			}

			_, err = fmt.Fprintf(w, "count=%d renders=%d\n", svc.Count(), root.Renders())
			return err
		},
	}

	cmd.Flags().IntVar(&clicks, "clicks", 1, "number of clicks")
	cmd.Flags().BoolVar(&down, "down", false, "click DEC instead of INC")
	cmd.Flags().BoolVar(&batch, "batch", false, "apply all clicks in one batch")
	return cmd
}

// =============================================================================
// readi providers
// =============================================================================

func providersCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Print each module's injector chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app.NewApp(e.cfg, e.log)
			_, release, err := e.mount(cmd.Context(), a.Tree)
			if err != nil {
				return err
			}
			defer func() { _ = release() }()

			w := cmd.OutOrStdout()
			for i, module := range []*ui.ProviderNode{a.Counter, a.Heroes} {
				if i > 0 {
					if err := writeLine(w, ""); err != nil {
						return err
					}
				}
				if err := di.Fprint(w, module.Scope()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
