package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"ganymede-hq/ganymede/pkg/cli"
	"ganymede-hq/ganymede/pkg/proxy/types"
)

var modelsFlags struct {
	target string
	format string
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models a running gateway serves",
	Long: `Query a running gateway's /v1/models endpoint.

Examples:
  # List models from the default address
  ganymede models

  # Query another gateway
  ganymede models --target http://gateway:8384

  # JSON output
  ganymede models --format json`,
	RunE: listModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().StringVar(&modelsFlags.target, "target", "http://127.0.0.1:8384", "gateway URL")
	modelsCmd.Flags().StringVar(&modelsFlags.format, "format", "text", "output format: text, json")
}

func listModels(cmd *cobra.Command, args []string) error {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Get(modelsFlags.target + "/v1/models")
	if err != nil {
		return cli.NewCommandError("models", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cli.NewCommandError("models", fmt.Errorf("gateway returned %s", resp.Status))
	}

	var list types.ModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return cli.NewCommandError("models", fmt.Errorf("bad response body: %w", err))
	}

	if modelsFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(cmd.OutOrStdout(), list)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Models (%d):\n", len(list.Data))
	for _, entry := range list.Data {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", entry.ID)
	}
	return nil
}
