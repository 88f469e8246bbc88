package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"holidayd/internal/banner"
	"holidayd/internal/clock"
	"holidayd/internal/config"
	appLog "holidayd/internal/log"
	"holidayd/internal/reminder"
	"holidayd/internal/scheduler"
	"holidayd/internal/store"
	"holidayd/internal/web"
)

var serveCmd = LeafCommand{
	Use:   "serve",
	Short: "Run the daemon: HTTP API, banner page and scheduled jobs",
	StrFlags: []StringFlag{
		{Name: "listen", Usage: "HTTP listen address (overrides config)"},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if l, _ := cmd.Flags().GetString("listen"); l != "" {
			cfg.Listen = l
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cmd, cfg)
	},
}.Build()

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	appLog.Info("holidayd starting",
		"version", appVersion,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"region", cfg.Region,
		"target_site", cfg.TargetSite,
		"source", cfg.Source,
	)

	kv, err := store.OpenFile(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}

	loc := cfg.Location()
	c := clock.Real{Loc: loc}
	surface := banner.NewMemorySurface()
	hub := web.NewHub()
	presenter := banner.NewPresenter(banner.Multi{surface, hub}, c, cfg.Banner.Durations())

	svc := reminder.New(buildSource(cfg), kv, c, presenter, nil, reminder.Options{
		TargetSite:    cfg.TargetSite,
		DefaultRegion: cfg.Region,
	})
	svc.InstallDefaults(ctx)

	sched := scheduler.New(ctx, loc)
	if err := sched.Add(scheduler.Job{
		Name: "sweep",
		Spec: cfg.SweepCron,
		Run: func(ctx context.Context) {
			n := svc.Sweep(ctx)
			appLog.Info("sweep done", "removed", n)
		},
	}); err != nil {
		return err
	}
	if cfg.PrefetchCron != "" {
		if err := sched.Add(scheduler.Job{Name: "prefetch", Spec: cfg.PrefetchCron, Run: svc.Prefetch}); err != nil {
			return err
		}
	}
	// Stale flags from before a restart go right away.
	runStartupSweep(sched)
	sched.Start()
	defer func() {
		<-sched.Stop().Done()
		appLog.Info("scheduler stopped")
	}()

	srv := web.NewServer(cfg, svc, surface, hub)
	srv.SetJobs(sched)

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s serving on %s\n", Primary("holidayd"), Info("http://"+cfg.Listen))
	return srv.Run(ctx)
}

type jobRunner interface {
	RunNow(name string) error
}

func runStartupSweep(jobs jobRunner) {
	if err := jobs.RunNow("sweep"); err != nil {
		appLog.Error("startup sweep failed", err)
	}
}
