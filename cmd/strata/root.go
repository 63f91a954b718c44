package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Strata is a spatial desktop-navigation engine",
	Long: `Strata manages a shared tree of sectors, apps and windows observed by
independent per-monitor viewports that zoom, jump, split and merge.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
