package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"buscom.dev/transit/operator"
	"buscom.dev/transit/runner"
	"buscom.dev/transit/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the feed loops and the HTTP API",
	RunE:  serve,
}

func serve(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	manager, cfg, err := newManager(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workers := len(manager.Operators())
	dailyRunner := runner.New(time.Duration(cfg.Schedule.DailyTimeoutS)*time.Second, workers, logger)
	pollRunner := runner.New(time.Duration(cfg.Schedule.RealtimeTimeoutS)*time.Second, workers, logger)

	// Build the first snapshots before accepting traffic. Operators
	// whose feed is down start empty and recover at the next refresh.
	dailyRunner.RunCycle(ctx, manager.DailyTasks())

	go dailyLoop(ctx, dailyRunner, manager.DailyTasks(), cfg.Schedule, logger)
	go pollLoop(ctx, pollRunner, manager.RealtimeTasks(), cfg.Schedule)

	srv := &http.Server{
		Addr:    server.ListenAddr(cfg.Server.Port),
		Handler: server.New(manager, logger).Router(cfg.Server.AllowedOrigins),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.Int("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// dailyLoop rebuilds snapshots once a day at the configured local
// time.
func dailyLoop(ctx context.Context, r *runner.Runner, tasks []runner.Task, sched operator.ScheduleConfig, logger *zap.Logger) {
	for {
		next := nextRefresh(time.Now(), sched.InitHour, sched.InitMinute)
		logger.Info("next schedule refresh", zap.Time("at", next))

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			r.RunCycle(ctx, tasks)
		}
	}
}

func pollLoop(ctx context.Context, r *runner.Runner, tasks []runner.Task, sched operator.ScheduleConfig) {
	ticker := time.NewTicker(time.Duration(sched.RealtimeSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunCycle(ctx, tasks)
		}
	}
}

func nextRefresh(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
