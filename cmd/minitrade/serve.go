package main

import (
	"fmt"
	"net"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/regholl2023/minitrade/internal/config"
	"github.com/regholl2023/minitrade/internal/notifier"
	"github.com/regholl2023/minitrade/internal/recorder"
	"github.com/regholl2023/minitrade/internal/scheduler"
	"github.com/regholl2023/minitrade/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	var noJobs bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the quote capture jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			rec, err := recorder.Open(config.ExpandPath(cfg.Watch.SQLitePath))
			if err != nil {
				log.WithError(err).Warn("init sqlite recorder failed, using noop")
				rec = recorder.NewNoopRecorder()
			}
			defer rec.Close()

			src, err := a.quoteSource()
			if err != nil {
				return err
			}
			sched := scheduler.NewScheduler(ctx, src, cfg.Watch.Tickers, notifier.New(cfg.Providers.Mailjet), rec)
			sched.Notify = cfg.Watch.Notify
			if !noJobs {
				if err := sched.RegisterAll(cfg.Watch.SpotCron, cfg.Watch.DailyCron); err != nil {
					return fmt.Errorf("register cron tasks: %w", err)
				}
				sched.Start()
				defer sched.Stop()
			}

			srv := server.New(cfg, rec, server.WithJobs(sched.Jobs))
			addr := net.JoinHostPort(cfg.Scheduler.Host, strconv.Itoa(cfg.Scheduler.Port))
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().BoolVar(&noJobs, "no-jobs", false, "serve the API without running capture jobs")
	return cmd
}
