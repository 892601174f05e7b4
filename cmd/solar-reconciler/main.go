// Command solar-reconciler fills gaps in per-device daily generation
// summaries by fetching the missing months from the provider API and writing
// them into the local DuckDB store.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/heliotrack/go-solar-reconciler/internal/config"
	"github.com/heliotrack/go-solar-reconciler/internal/engine"
	"github.com/heliotrack/go-solar-reconciler/internal/logger"
	"github.com/heliotrack/go-solar-reconciler/internal/provider"
	"github.com/heliotrack/go-solar-reconciler/internal/storage"
	"github.com/heliotrack/go-solar-reconciler/internal/timerange"
)

var version = "dev"

var (
	configFile string
	startLabel string
	endLabel   string
	dryRun     bool
	deviceID   string
	jsonOut    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "solar-reconciler",
		Short: "Gap-filling reconciler for daily solar generation summaries",
		Long: "Compares the locally stored daily generation summaries of every " +
			"device against its expected history, fetches the missing months " +
			"from the provider API, and writes the recovered days back " +
			"idempotently.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(backfillCmd())
	rootCmd.AddCommand(devicesCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func backfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Find and fill missing daily summaries",
		Long: "Runs one reconciliation pass. Without --start/--end each device " +
			"is checked from its first generation day up to yesterday (UTC); " +
			"with both flags only the given date range is checked. A run that " +
			"completes with some months still failing exits 0; the report " +
			"shows what is left for the next run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := windowFromFlags()
			if err != nil {
				return err
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log, closer, err := logger.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := storage.NewDuckDBStore(cfg.Database.Path, log)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			if err := store.Initialize(ctx); err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}

			client := provider.NewSolarCloudClient(cfg.Provider, log)
			fetcher := provider.NewResilientFetcher(client, cfg.Provider, log)

			eng := engine.New(store, store, store, fetcher, window, engine.Options{
				DryRun:          dryRun,
				DeviceID:        deviceID,
				MaxMonthsPerRun: cfg.Provider.MaxMonthsPerRun,
			}, log)

			report, err := eng.Run(ctx)
			if err != nil {
				if report != nil {
					renderReport(report)
				}
				return fmt.Errorf("reconciliation aborted: %w", err)
			}

			renderReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&startLabel, "start", "", "range start date (YYYY-MM-DD), requires --end")
	cmd.Flags().StringVar(&endLabel, "end", "", "range end date (YYYY-MM-DD), requires --start")
	cmd.Flags().BoolVar(&dryRun, "dry", false, "compute and fetch but skip all writes")
	cmd.Flags().StringVar(&deviceID, "device", "", "restrict the run to one device ID")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the run report as JSON")
	return cmd
}

// windowFromFlags validates the --start/--end pair and picks the window
// policy. Both flags must be given together; a lone one is an argument error.
func windowFromFlags() (engine.WindowPolicy, error) {
	if startLabel == "" && endLabel == "" {
		return engine.FullHistoryWindow{}, nil
	}
	if startLabel == "" || endLabel == "" {
		return nil, fmt.Errorf("--start and --end must be given together")
	}

	start, err := timerange.ParseDate(startLabel)
	if err != nil {
		return nil, fmt.Errorf("invalid --start %q: %w", startLabel, err)
	}
	end, err := timerange.ParseDate(endLabel)
	if err != nil {
		return nil, fmt.Errorf("invalid --end %q: %w", endLabel, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("--end %s precedes --start %s", endLabel, startLabel)
	}
	return engine.FixedRangeWindow{Start: start, End: end}, nil
}

func renderReport(report *engine.RunReport) {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		return
	}
	report.WriteText(os.Stdout)
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the devices known to the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log, closer, err := logger.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := storage.NewDuckDBStore(cfg.Database.Path, log)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			if err := store.Initialize(ctx); err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}

			devices, err := store.ListDevices(ctx)
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}

			if len(devices) == 0 {
				fmt.Println("no devices in store")
				return nil
			}
			for _, dev := range devices {
				firstGen := "unknown"
				if dev.HasKnownStart() {
					firstGen = timerange.FormatDate(*dev.FirstGenerationAt)
				}
				fmt.Printf("%s  %-24s first generation: %s\n", dev.DeviceID, dev.Name, firstGen)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("solar-reconciler %s\n", version)
		},
	}
}
