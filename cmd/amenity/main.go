package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var apiURL string

	rootCmd := &cobra.Command{
		Use:          "amenity",
		Short:        "Submit and browse amenities from the command line",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("AMENITYMAP_API", "http://localhost:8090"), "API base URL")

	rootCmd.AddCommand(submitCmd(&apiURL))
	rootCmd.AddCommand(listCmd(&apiURL))
	rootCmd.AddCommand(imagesCmd(&apiURL))
	rootCmd.AddCommand(categoriesCmd(&apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
