package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/partgraph/internal/log"
	"github.com/zjrosen/partgraph/internal/presentation"
	"github.com/zjrosen/partgraph/internal/registry/application"
	"github.com/zjrosen/partgraph/internal/watcher"
)

func newWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rescan whenever a manifest changes",
		Long: `Scan once, then watch the manifest directories and rescan after each burst
of changes. Every scan prints a report. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := c.openSession(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()
			if len(s.dirs) == 0 {
				return errors.New("no manifest directories to watch")
			}

			f := c.formatter(cmd)
			emit := func(report *application.ScanReport, errs []error) {
				dto := presentation.FromScanReport(report, s.svc.Registry().Stats(), errs)
				if err := f.FormatScanReport(dto); err != nil {
					log.ErrorErr(log.CatWatcher, "writing report", err)
				}
				events := s.svc.EventStats()
				log.Debug(log.CatWatcher, "registry events",
					"published", events.Published,
					"delivered", events.Delivered,
					"dropped", events.Dropped,
				)
			}

			report, errs, err := s.scan(ctx)
			if err != nil {
				return err
			}
			emit(report, errs)

			cfg := watcher.DefaultConfig(s.dirs...)
			cfg.DebounceDur = c.cfg.Watch.Debounce
			err = s.svc.Watch(ctx, cfg, func(report *application.ScanReport, err error) {
				if report != nil {
					emit(report, manifestErrors(err))
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
