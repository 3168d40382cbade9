// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/writeup-engine/internal/session"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent compile sessions",
	Long: `History lists recent compile sessions from the local history database:
when each ran, whether it succeeded, how many attempts and repairs it
took, and which packages were installed along the way.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	yamlOutput, _ := cmd.Flags().GetBool("yaml")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := pipelineConfig()
	if limit > 0 {
		cfg.Session.MaxResults = limit
	}

	store, err := session.NewStore(cfg.Session)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListSessions(context.Background())
	if err != nil {
		return err
	}

	if yamlOutput {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(records) == 0 {
		fmt.Println("no sessions recorded")
		return nil
	}

	fmt.Printf("%-5s  %-20s  %-8s  %-9s  %-6s  %s\n",
		"ID", "Started", "Result", "Attempts", "Fixes", "File")
	for _, rec := range records {
		result := "failed"
		if rec.Success {
			result = "ok"
		}
		fmt.Printf("%-5d  %-20s  %-8s  %-9d  %-6d  %s\n",
			rec.ID,
			rec.StartedAt.Local().Format(time.DateTime),
			result,
			len(rec.Attempts),
			rec.Fixes,
			rec.TexPath,
		)
	}
	return nil
}

func init() {
	historyCmd.Flags().Bool("yaml", false, "output sessions as YAML")
	historyCmd.Flags().Int("limit", 0, "maximum sessions to list (0 = use config)")

	rootCmd.AddCommand(historyCmd)
}
