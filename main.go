package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chanakanakandala/ikman-lk-housing-data/config"
	"github.com/chanakanakandala/ikman-lk-housing-data/models"
	"github.com/chanakanakandala/ikman-lk-housing-data/scraper/ikman"
	"github.com/chanakanakandala/ikman-lk-housing-data/services"
	"github.com/chanakanakandala/ikman-lk-housing-data/storage"
	"github.com/chanakanakandala/ikman-lk-housing-data/utils"
)

const dateLayout = "2006-01-02"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ikman-housing",
		Short:        "Collects and curates ikman.lk housing listings",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newCrawlCmd(), newCleanCmd(), newHistoryCmd())
	return root
}

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl [location-slug...]",
		Short: "Scrape listings for the given locations (all registry locations when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := utils.NewLogger(cfg.LogLevel)
			defer func() { _ = logger.Sync() }()

			locations, err := storage.LoadLocations(cfg.LocationsFile)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				locations, err = selectLocations(locations, args)
				if err != nil {
					return err
				}
			}
			if len(locations) == 0 {
				return errors.New("no locations to scrape")
			}

			client := ikman.New(cfg)
			store := storage.NewSnapshotStore(cfg.RawScrapeDir)
			ledger := storage.NewLedger(cfg.HistoryFile)

			crawler := services.NewCrawler(client, store, ledger, cfg.SkipPhrases, logger)
			crawler.OnPage(func(ev models.PageEvent) {
				logger.Infof("[crawl] %s: page %d of %d — accepted %d of %d ads",
					ev.Location, ev.Page, ev.TotalPages, ev.AdsAccepted, ev.AdsSeen)
			})

			rec, err := crawler.Crawl(cmd.Context(), locations)
			if err != nil {
				return err
			}

			fmt.Printf("\nScraped %d ads across %d pages (%d locations)\n",
				rec.TotalAdsScraped, rec.TotalPagesScraped, len(rec.LocationsScraped))
			if rec.Truncated {
				fmt.Println("Warning: at least one location was truncated by a failed page fetch")
			}
			fmt.Printf("Snapshot: %s\n", rec.SnapshotFile)
			return nil
		},
	}
}

func newCleanCmd() *cobra.Command {
	var fromFlag, toFlag string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Merge snapshots in a date range into one deduplicated dataset",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.Load()
			logger := utils.NewLogger(cfg.LogLevel)
			defer func() { _ = logger.Sync() }()

			start, err := time.Parse(dateLayout, fromFlag)
			if err != nil {
				return fmt.Errorf("invalid --from date %q (want YYYY-MM-DD)", fromFlag)
			}
			end, err := time.Parse(dateLayout, toFlag)
			if err != nil {
				return fmt.Errorf("invalid --to date %q (want YYYY-MM-DD)", toFlag)
			}
			if end.Before(start) {
				return errors.New("--to must not be before --from")
			}

			ledger := storage.NewLedger(cfg.HistoryFile)
			store := storage.NewSnapshotStore(cfg.RawScrapeDir)
			merger := services.NewMerger(ledger, store, storage.NewCleanedFileWriter(),
				cfg.FuzzyThreshold, cfg.CleanedDir, logger)

			if cfg.PostgresEnabled {
				pg, err := storage.NewPostgresWriter(cfg.DSN())
				if err != nil {
					return err
				}
				defer pg.Close()
				merger.SetMirror(pg)
			}

			result := merger.Cleanup(start, end)
			if !result.Success {
				return errors.New(result.Message)
			}
			fmt.Println(result.Message)
			fmt.Printf("Cleaned dataset: %s\n", result.File)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toFlag, "to", "", "end date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show past crawl runs",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.Load()

			runs, err := storage.NewLedger(cfg.HistoryFile).All()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No crawl runs recorded yet.")
				return nil
			}

			for _, run := range runs {
				status := ""
				if run.Truncated {
					status = " (truncated)"
				}
				fmt.Printf("%s  %d locations, %d pages, %d ads%s\n  -> %s\n",
					run.Timestamp, len(run.LocationsScraped),
					run.TotalPagesScraped, run.TotalAdsScraped, status,
					run.SnapshotFile)
			}
			return nil
		},
	}
}

func selectLocations(all []models.Location, slugs []string) ([]models.Location, error) {
	bySlug := make(map[string]models.Location, len(all))
	for _, loc := range all {
		bySlug[loc.Slug] = loc
	}

	selected := make([]models.Location, 0, len(slugs))
	for _, slug := range slugs {
		loc, ok := bySlug[slug]
		if !ok {
			return nil, fmt.Errorf("unknown location slug %q", slug)
		}
		selected = append(selected, loc)
	}
	return selected, nil
}
