// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/writeup-engine/internal/compile"
	"github.com/pdiddy/writeup-engine/internal/session"
	"github.com/pdiddy/writeup-engine/internal/texbin"
	"github.com/pdiddy/writeup-engine/internal/texpkg"
	"github.com/pdiddy/writeup-engine/pkg/types"
)

var compileCmd = &cobra.Command{
	Use:   "compile [file.tex]",
	Short: "Compile a LaTeX file with validation, repair, and auto-install",
	Long: `Compile runs the full pipeline on one LaTeX file: structural validation,
resource checking, bibliography syntax repair, then the compiler with
automatic installation of missing packages and bounded retries. Repairs
rewrite the source in place after saving a backup; pass --no-fix to
report problems without touching any file.

Each run is recorded in the session history database (see the history
subcommand) unless --no-history is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func runCompile(cmd *cobra.Command, args []string) error {
	texPath, err := requireTexArg(args)
	if err != nil {
		return err
	}

	noFix, _ := cmd.Flags().GetBool("no-fix")
	skipValidation, _ := cmd.Flags().GetBool("skip-validation")
	noHistory, _ := cmd.Flags().GetBool("no-history")
	maxAttempts, _ := cmd.Flags().GetInt("max-attempts")

	cfg := pipelineConfig()
	if maxAttempts > 0 {
		cfg.Compile.MaxAttempts = maxAttempts
	}
	if d := durationFlag(cmd, "timeout"); d > 0 {
		cfg.Compile.Timeout = d
	}

	// Resolve toolchain binaries up front so subprocess invocations can
	// find installations living outside PATH.
	finder := texbin.NewFinder()
	if _, ok := finder.Find(cfg.Compile.Command); !ok {
		return fmt.Errorf("%s not found: install a TeX distribution or set compile.command", cfg.Compile.Command)
	}
	finder.Find(cfg.Compile.BibCommand)
	finder.Find(cfg.Installer.Command)

	installer := texpkg.New(cfg.Installer, log)
	orch := compile.New(cfg.Compile, cfg.Resources, installer, log)

	start := time.Now()
	var success bool
	var logText string
	if skipValidation {
		success, logText = orch.CompileWithAutoInstall(context.Background(), texPath)
	} else {
		success, logText = orch.CompileWithValidation(context.Background(), texPath, !noFix)
	}
	elapsed := time.Since(start)

	if !noHistory {
		recordSession(cfg.Session, types.SessionRecord{
			TexPath:   texPath,
			StartedAt: start,
			Duration:  elapsed,
			Success:   success,
			Fixes:     orch.Fixes(),
			Attempts:  orch.Attempts(),
		})
	}

	if !success {
		fmt.Println(logText)
		return fmt.Errorf("compilation failed after %d attempt(s)", len(orch.Attempts()))
	}

	fmt.Printf("compiled %s in %s (%d attempt(s), %d fix(es))\n",
		texPath, elapsed.Round(time.Millisecond), len(orch.Attempts()), orch.Fixes())
	return nil
}

// recordSession persists rec, logging rather than failing on error: a
// broken history database must not mask a compile result.
func recordSession(cfg types.SessionConfig, rec types.SessionRecord) {
	store, err := session.NewStore(cfg)
	if err != nil {
		log.Warnw("opening session history failed", "error", err)
		return
	}
	defer store.Close()

	if _, err := store.RecordSession(context.Background(), rec); err != nil {
		log.Warnw("recording session failed", "error", err)
	}
}

func init() {
	compileCmd.Flags().Bool("no-fix", false, "report problems without modifying any file")
	compileCmd.Flags().Bool("skip-validation", false, "compile directly, skipping the repair passes")
	compileCmd.Flags().Bool("no-history", false, "do not record this run in the session history")
	compileCmd.Flags().Int("max-attempts", 0, "compile attempts before giving up (0 = use config)")
	compileCmd.Flags().Duration("timeout", 0, "per-invocation compiler timeout (0 = use config)")

	rootCmd.AddCommand(compileCmd)
}
