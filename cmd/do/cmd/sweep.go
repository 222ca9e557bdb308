package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/amenitymap/internal/app"
	"github.com/templui/amenitymap/internal/config"
	"github.com/templui/amenitymap/internal/logger"
)

func SweepCmd() *cobra.Command {
	var (
		olderThan time.Duration
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete uploaded images that were never confirmed",
		Long: `Lists every object under amenities/ in storage and deletes the ones older
than --older-than that no amenity image record points to. These are left
behind when an upload succeeds but its confirmation fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

			if !cmd.Flags().Changed("older-than") {
				olderThan = cfg.ImageOrphanMaxAge
			}
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.ImageService.SweepOrphans(cmd.Context(), olderThan, dryRun)
			if err != nil {
				return err
			}

			for _, key := range result.Orphans {
				fmt.Println(key)
			}
			if dryRun {
				fmt.Printf("scanned %d objects, would delete %d orphans\n", result.Scanned, len(result.Orphans))
				return nil
			}
			fmt.Printf("scanned %d objects, deleted %d of %d orphans\n", result.Scanned, result.Deleted, len(result.Orphans))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "only sweep objects older than this")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list orphans without deleting them")

	return cmd
}
