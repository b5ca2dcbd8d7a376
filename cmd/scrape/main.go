// cmd/scrape/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"campushours/pkg/browser"
	"campushours/pkg/config"
	"campushours/pkg/extract"
	"campushours/pkg/log"
	"campushours/pkg/scheduler"
	"campushours/pkg/store"
)

var (
	flagConfig   string
	flagFacility string
	flagProdLog  bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape campus facility hours once and store them",
		Long: `Runs the facility hours pipeline one time: opens a headless browser,
extracts each facility's weekly hours, normalizes the free text and replaces
the stored records. With --facility only that source is scraped.`,
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	cmd.Flags().StringVar(&flagFacility, "facility", "", "Scrape one facility: library, recreation, dining, shuttle or tutoring")
	cmd.Flags().BoolVar(&flagProdLog, "prod-log", false, "Use production (JSON) logging")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	if err := log.Init(flagProdLog); err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer gateway.Close()
	if err := gateway.Migrate(cfg.Facilities()); err != nil {
		return err
	}

	manager := browser.NewManager(cfg.Browser.ExecPath, *cfg.Browser.Headless)
	if err := manager.Acquire(ctx); err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	// Shutdown runs on every exit path, panics included, so no orphaned
	// browser process survives the run.
	defer manager.Shutdown()

	fetcher := &extract.BrowserFetcher{
		Manager:    manager,
		NavTimeout: cfg.NavTimeout(),
		Settle:     cfg.SettleDelay(),
	}
	sched := scheduler.New(fetcher, gateway, cfg.Facilities(), scheduler.Options{
		Attempts:        cfg.Scrape.Attempts,
		RetryDelay:      cfg.RetryDelay(),
		FacilityTimeout: cfg.FacilityTimeout(),
	}, nil)

	if flagFacility != "" {
		outcome, err := sched.RunOne(ctx, flagFacility)
		if err != nil {
			return err
		}
		printJSON(outcome)
		if outcome.Error != "" {
			return fmt.Errorf("%s scrape failed: %s", outcome.Facility, outcome.Error)
		}
		return nil
	}

	report := sched.RunAll(ctx)
	printJSON(report)
	if report.Failures > 0 {
		return fmt.Errorf("%d of %d facilities failed", report.Failures, len(report.Outcomes))
	}
	return nil
}

func printJSON(value any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(value)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
