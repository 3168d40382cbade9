// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/writeup-engine/internal/texbin"
	"github.com/pdiddy/writeup-engine/internal/texpkg"
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "Install LaTeX packages through the TeX package manager",
	Long: `Packages wraps the TeX package manager. LaTeX package names are mapped
to their distributable bundles automatically (tikz installs pgf,
algorithmic installs algorithms, and so on).`,
}

var packagesInstallCmd = &cobra.Command{
	Use:   "install [package...]",
	Short: "Install one or more LaTeX packages",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPackagesInstall,
}

func runPackagesInstall(cmd *cobra.Command, args []string) error {
	installer, err := newInstaller(cmd)
	if err != nil {
		return err
	}

	var failed []string
	for _, name := range args {
		if installer.Install(name) {
			fmt.Printf("installed %s\n", name)
		} else {
			fmt.Printf("failed    %s\n", name)
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d package(s) failed to install", len(failed))
	}
	return nil
}

var packagesEssentialsCmd = &cobra.Command{
	Use:   "essentials",
	Short: "Install the essential package set for research papers",
	Long: `Essentials installs the package set research papers routinely need:
math, figures, tables, algorithms, citations, and conference style
dependencies. Individual failures are tolerated as long as most of the
set installs.

With --script, a standalone bash install script is written to the given
path instead of invoking the package manager, for machines where this
tool is not available (CI images, containers).`,
	RunE: runPackagesEssentials,
}

func runPackagesEssentials(cmd *cobra.Command, args []string) error {
	if scriptPath, _ := cmd.Flags().GetString("script"); scriptPath != "" {
		cfg := pipelineConfig()
		if err := texpkg.WriteInstallScript(scriptPath, cfg.Installer.Command); err != nil {
			return err
		}
		fmt.Printf("install script written to %s\n", scriptPath)
		return nil
	}

	installer, err := newInstaller(cmd)
	if err != nil {
		return err
	}

	if !installer.InstallEssentials() {
		return fmt.Errorf("essential package installation fell short")
	}
	fmt.Println("essential packages installed")
	return nil
}

// newInstaller builds an Installer after resolving the package manager
// binary, failing fast when it is absent.
func newInstaller(cmd *cobra.Command) (*texpkg.Installer, error) {
	cfg := pipelineConfig()
	if d := durationFlag(cmd, "timeout"); d > 0 {
		cfg.Installer.Timeout = d
	}

	texbin.NewFinder().Find(cfg.Installer.Command)

	installer := texpkg.New(cfg.Installer, log)
	if !installer.Available() {
		return nil, fmt.Errorf("%s not found: install a TeX distribution or set installer.command", cfg.Installer.Command)
	}
	return installer, nil
}

func init() {
	packagesInstallCmd.Flags().Duration("timeout", 0, "per-package install timeout (0 = use config)")
	packagesEssentialsCmd.Flags().Duration("timeout", 0, "per-package install timeout (0 = use config)")
	packagesEssentialsCmd.Flags().String("script", "", "write a standalone install script to this path instead of installing")

	packagesCmd.AddCommand(packagesInstallCmd)
	packagesCmd.AddCommand(packagesEssentialsCmd)

	rootCmd.AddCommand(packagesCmd)
}
