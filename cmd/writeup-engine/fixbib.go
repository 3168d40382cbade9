// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/writeup-engine/internal/bibfix"
)

var fixBibCmd = &cobra.Command{
	Use:   "fix-bib [path]",
	Short: "Repair bibliography syntax in .bib and .bbl files",
	Long: `Fix-bib scans bibliography files for syntax that breaks LaTeX: HTML
entities left over from web scraping and unescaped special characters
(& _ # %). Pass a single file or a directory; directories are scanned
for .bib and .bbl files, non-recursively.

By default files are rewritten in place after a backup is saved. Use
--dry-run to report what would change.`,
	Args: cobra.ExactArgs(1),
	RunE: runFixBib,
}

func runFixBib(cmd *cobra.Command, args []string) error {
	path := args[0]
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	var issues []string
	if info.IsDir() {
		issues, err = bibfix.FixDir(path, !dryRun)
	} else {
		switch filepath.Ext(path) {
		case ".bib", ".bbl":
			issues, err = bibfix.FixFile(path, !dryRun)
		default:
			return fmt.Errorf("not a bibliography file: %s", path)
		}
	}
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		fmt.Println("no bibliography syntax problems found")
		return nil
	}

	for _, issue := range issues {
		fmt.Println(issue)
	}
	if dryRun {
		fmt.Printf("\n%d problem(s) found (dry run, nothing written)\n", len(issues))
	} else {
		fmt.Printf("\n%d problem(s) repaired, backups saved\n", len(issues))
	}
	return nil
}

func init() {
	fixBibCmd.Flags().Bool("dry-run", false, "report problems without rewriting files")

	rootCmd.AddCommand(fixBibCmd)
}
