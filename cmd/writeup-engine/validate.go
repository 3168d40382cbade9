// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/writeup-engine/internal/resources"
	"github.com/pdiddy/writeup-engine/internal/structure"
	"github.com/pdiddy/writeup-engine/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file.tex]",
	Short: "Check document structure and referenced resources",
	Long: `Validate checks a LaTeX file for structural problems (missing document
envelope, misplaced preamble commands, unlabeled figures and sections)
and for broken resource references (missing figure files, style files,
undefined labels and citations).

By default problems are reported only. With --fix, fixable problems are
repaired in place after a backup is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

// validationReport is the combined result of both validators, shaped for
// YAML export.
type validationReport struct {
	File      string                `yaml:"file"`
	Structure types.StructureResult `yaml:"structure"`
	Resources types.ResourceIssues  `yaml:"resources"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	texPath, err := requireTexArg(args)
	if err != nil {
		return err
	}

	fix, _ := cmd.Flags().GetBool("fix")
	yamlOutput, _ := cmd.Flags().GetBool("yaml")

	cfg := pipelineConfig()

	report := validationReport{File: texPath}
	report.Structure = structure.ValidateFile(texPath, fix)
	if report.Structure.Err != "" {
		return fmt.Errorf("structure validation: %s", report.Structure.Err)
	}

	checker := resources.NewChecker(cfg.Resources)
	report.Resources, err = checker.FixFile(texPath, fix)
	if err != nil {
		return fmt.Errorf("resource validation: %w", err)
	}

	if yamlOutput {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}

	printValidationReport(report, fix)

	if !fix && (report.Structure.NeedsFixing() || !report.Resources.Empty()) {
		return fmt.Errorf("%d problem(s) found", len(report.Structure.Issues)+report.Resources.Total())
	}
	return nil
}

func printValidationReport(report validationReport, fixed bool) {
	if len(report.Structure.Issues) == 0 && report.Resources.Empty() {
		fmt.Printf("%s: no problems found\n", report.File)
		return
	}

	for _, issue := range report.Structure.Issues {
		status := "found"
		if issue.Fixed {
			status = "fixed"
		}
		fmt.Printf("%-5s  %-28s  %s\n", status, issue.Kind, issue.Detail)
	}

	printGroup := func(label string, items []string) {
		for _, item := range items {
			fmt.Printf("%-5s  %-28s  %s\n", "found", label, item)
		}
	}
	printGroup("missing-figure-file", report.Resources.MissingFigures)
	printGroup("missing-style-file", report.Resources.MissingStyleFiles)
	printGroup("undefined-reference", report.Resources.UndefinedLabels)
	printGroup("undefined-citation", report.Resources.UndefinedCitations)
	printGroup("warning", report.Resources.Warnings)

	total := len(report.Structure.Issues) + report.Resources.Total()
	if fixed {
		fmt.Printf("\n%d problem(s), %d repaired, backup saved\n", total, report.Structure.FixesApplied)
	} else {
		fmt.Printf("\n%d problem(s) found\n", total)
	}
}

func init() {
	validateCmd.Flags().Bool("fix", false, "repair fixable problems in place (saves a backup first)")
	validateCmd.Flags().Bool("yaml", false, "output the report as YAML")

	rootCmd.AddCommand(validateCmd)
}
