package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"polarconv/internal/backend"
	"polarconv/internal/convert"
	"polarconv/internal/history"
	"polarconv/internal/logging"
	"polarconv/internal/notifications"
	"polarconv/internal/trigger"
	"polarconv/internal/ui"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var output string
	var overwrite bool
	var openFolder bool

	cmd := &cobra.Command{
		Use:   "convert <world-dir>",
		Short: "Convert an Anvil world folder into a Polar container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			req, err := convert.NewRequest(args[0], output, overwrite || cfg.Convert.OverwriteExisting)
			if err != nil {
				return err
			}

			lifecycle, err := backend.New(cfg, logger)
			if err != nil {
				return err
			}

			opts := []convert.Option{
				convert.WithFreeSpaceReserve(uint64(cfg.Convert.MinFreeMiB) << 20),
			}
			store, err := history.Open(cfg)
			if err != nil {
				logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "this run will not be recorded in conversion history"),
				)
			} else {
				defer store.Close()
				opts = append(opts, convert.WithRecorder(store))
			}
			pipeline := convert.NewPipeline(lifecycle, logger, opts...)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			loop := ui.NewLoop()
			screen := newConsoleScreen(runCtx, cmd.OutOrStdout(), logger, notifications.NewService(cfg))
			if openFolder || cfg.Convert.OpenOnSuccess {
				screen.open = ui.OpenPath
			}

			var (
				result convert.Outcome
				shown  bool
			)
			screen.onShown = func(outcome convert.Outcome) {
				result = outcome
				shown = true
				loop.Close()
			}

			trig := trigger.New(runCtx, pipeline, func() (convert.Request, error) {
				return req, nil
			}, screen, loop, logger)
			button := trig.Attach(screen)

			if err := loop.Post(func() {
				screen.render()
				button.Press()
				screen.render()
			}); err != nil {
				return err
			}
			runErr := loop.Run(runCtx)
			trig.Wait()
			screen.Wait()

			if !shown {
				if runErr != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "Conversion cancelled")
					return context.Canceled
				}
				return errors.New("conversion finished without an outcome")
			}
			if !result.Succeeded {
				return errReported
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination .polar file (default <world-dir>/<world-name>.polar)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the destination file if it already exists")
	cmd.Flags().BoolVar(&openFolder, "open", false, "Open the world folder after a successful conversion")
	return cmd
}
