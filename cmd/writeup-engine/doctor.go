// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/writeup-engine/internal/texbin"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local TeX toolchain",
	Long: `Doctor probes for the external binaries the pipeline depends on: the
compiler, the bibliography processor, and the package manager. Common
TeX Live and TinyTeX install locations are searched in addition to PATH.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	yamlOutput, _ := cmd.Flags().GetBool("yaml")

	cfg := pipelineConfig()
	caps := texbin.NewFinder().Probe(
		cfg.Compile.Command,
		cfg.Compile.BibCommand,
		cfg.Installer.Command,
	)

	if yamlOutput {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(caps); err != nil {
			return err
		}
		return enc.Close()
	}

	missing := 0
	for _, c := range caps {
		if c.Available {
			fmt.Printf("ok       %-10s  %s\n", c.Tool, c.Path)
		} else {
			fmt.Printf("missing  %-10s\n", c.Tool)
			missing++
		}
	}

	if missing > 0 {
		return fmt.Errorf("%d tool(s) missing", missing)
	}
	fmt.Println("\ntoolchain ready")
	return nil
}

func init() {
	doctorCmd.Flags().Bool("yaml", false, "output capabilities as YAML")

	rootCmd.AddCommand(doctorCmd)
}
