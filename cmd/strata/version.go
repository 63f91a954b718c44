package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stratadesk/strata"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(strata.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
