package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	appconfig "github.com/tripweaver/tripweaver/config"
	"github.com/tripweaver/tripweaver/internal/scrapehub"
	"github.com/tripweaver/tripweaver/internal/search"
	srv "github.com/tripweaver/tripweaver/internal/server"
	"github.com/tripweaver/tripweaver/internal/telemetry"
)

func main() {
	var cfgPath string
	var root = &cobra.Command{Use: "tripweaver"}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return srv.Run(cfgPath)
		},
	}

	var migDir string
	var direction string
	var steps int
	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appconfig.LoadConfig(cfgPath)
			dsn, err := cfg.Storage.Postgres.DSN()
			if err != nil {
				return err
			}
			return srv.Migrate(migDir, dsn, direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	var (
		destination   string
		origin        string
		accommodation string
		startDate     string
		endDate       string
		tripLength    int
		travelers     int
		budget        float64
	)
	var searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Run one search fan-out and print the bundle as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if destination == "" {
				return fmt.Errorf("--destination is required")
			}
			cfg := appconfig.LoadConfig(cfgPath)

			tele := telemetry.NewTelemetry(cfg.Telemetry, log.New(os.Stderr, "[TELEMETRY] ", log.LstdFlags), nil)
			hub := scrapehub.NewClient(cfg.Scraper.BaseURL, cfg.Scraper.HTTPTimeout, cfg.Scraper.HTTPRetries, cfg.Scraper.HTTPBackoff)
			registry := search.NewRegistry(hub, log.New(os.Stderr, "[REGISTRY] ", log.LstdFlags))
			runner := search.NewRunner(hub, cfg.Search, log.New(os.Stderr, "[SEARCH] ", log.LstdFlags), tele)
			orch := search.NewOrchestrator(cfg.Search, registry, runner, log.New(os.Stderr, "[ORCH] ", log.LstdFlags), tele)

			inputs := search.TripInputs{
				Destination:    destination,
				OriginCity:     origin,
				Accommodation:  accommodation,
				StartDate:      startDate,
				EndDate:        endDate,
				TripLengthDays: tripLength,
				Travelers:      travelers,
				Budget:         budget,
			}
			bundle, err := orch.GatherSearchBundle(context.Background(), inputs, uuid.NewString())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(bundle)
		},
	}
	searchCmd.Flags().StringVar(&destination, "destination", "", "destination city")
	searchCmd.Flags().StringVar(&origin, "origin", "", "origin city (enables flight search)")
	searchCmd.Flags().StringVar(&accommodation, "accommodation", "", "lodging preference text")
	searchCmd.Flags().StringVar(&startDate, "start", "", "start date (2006-01-02)")
	searchCmd.Flags().StringVar(&endDate, "end", "", "end date (2006-01-02)")
	searchCmd.Flags().IntVar(&tripLength, "days", 0, "trip length in days when dates are omitted")
	searchCmd.Flags().IntVar(&travelers, "travelers", 1, "number of travelers")
	searchCmd.Flags().Float64Var(&budget, "budget", 0, "total trip budget")

	root.AddCommand(serve, migrate, searchCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
