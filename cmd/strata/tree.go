package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratadesk/strata/internal/presentation/tree"
	"github.com/stratadesk/strata/pkg/domain"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the spatial tree of a running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		var graphResp struct {
			Version uint64     `json:"version"`
			Root    *tree.Node `json:"root"`
		}
		if err := getJSON(addr+"/graph", &graphResp); err != nil {
			return fmt.Errorf("failed to fetch graph: %w", err)
		}

		var viewports []domain.Viewport
		if err := getJSON(addr+"/viewports", &viewports); err != nil {
			return fmt.Errorf("failed to fetch viewports: %w", err)
		}

		tree.NewRenderer(os.Stdout).Render(graphResp.Root, viewports)
		return nil
	},
}

func getJSON(url string, v any) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().StringP("addr", "a", "http://localhost:8080", "Daemon base URL")
}
