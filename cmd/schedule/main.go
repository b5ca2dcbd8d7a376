// cmd/schedule/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"campushours/pkg/browser"
	"campushours/pkg/config"
	"campushours/pkg/extract"
	"campushours/pkg/log"
	"campushours/pkg/metrics"
	"campushours/pkg/scheduler"
	"campushours/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	prodLog := flag.Bool("prod-log", true, "Use production (JSON) logging")
	runOnStart := flag.Bool("run-on-start", true, "Run one scrape immediately at startup")
	flag.Parse()

	if err := log.Init(*prodLog); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.L().Fatal("config_load_failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.L().Fatal("store_open_failed", zap.Error(err))
	}
	defer gateway.Close()
	if err := gateway.Migrate(cfg.Facilities()); err != nil {
		log.L().Fatal("store_migrate_failed", zap.Error(err))
	}

	manager := browser.NewManager(cfg.Browser.ExecPath, *cfg.Browser.Headless)
	if err := manager.Acquire(ctx); err != nil {
		log.L().Fatal("browser_launch_failed", zap.Error(err))
	}
	defer manager.Shutdown()

	meters := metrics.New("campushours")
	fetcher := &extract.BrowserFetcher{
		Manager:    manager,
		NavTimeout: cfg.NavTimeout(),
		Settle:     cfg.SettleDelay(),
	}
	sched := scheduler.New(fetcher, gateway, cfg.Facilities(), scheduler.Options{
		Attempts:        cfg.Scrape.Attempts,
		RetryDelay:      cfg.RetryDelay(),
		FacilityTimeout: cfg.FacilityTimeout(),
	}, meters)

	runAll := func() {
		report := sched.RunAll(ctx)
		log.L().Info("scheduled_run_finished",
			zap.Int("total_records", report.TotalRecords),
			zap.Int("failures", report.Failures))
	}

	trigger := cron.New()
	if _, err := trigger.AddFunc(cfg.Schedule.Cron, runAll); err != nil {
		log.L().Fatal("cron_spec_invalid", zap.String("spec", cfg.Schedule.Cron), zap.Error(err))
	}
	trigger.Start()
	log.L().Info("scheduler_started", zap.String("cron", cfg.Schedule.Cron))

	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Schedule.MetricsPort),
		Handler:      promhttp.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.L().Info("metrics_listening", zap.Int("port", cfg.Schedule.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			log.L().Error("metrics_server_failed", zap.Error(err))
		}
	}()

	if *runOnStart {
		go runAll()
	}

	<-ctx.Done()
	log.L().Info("shutting_down")

	cronCtx := trigger.Stop()
	<-cronCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.L().Warn("metrics_shutdown_failed", zap.Error(err))
	}
}
