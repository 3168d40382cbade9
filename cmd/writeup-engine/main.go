// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the writeup-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/writeup-engine/internal/logging"
	"github.com/pdiddy/writeup-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// log is the process-wide logger, built in PersistentPreRun once the
// configuration is resolved.
var log *zap.SugaredLogger

// rootCmd is the base command for the writeup-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "writeup-engine",
	Short: "Compile, validate, and repair generated LaTeX papers",
	Long: `writeup-engine turns machine-generated LaTeX into compiled PDFs. It
validates document structure, checks referenced resources, repairs common
bibliography syntax problems, and drives the compiler with automatic
package installation and bounded retries.

Each pipeline stage is a subcommand: compile, validate, fix-bib, and
packages. Use doctor to check the local TeX toolchain and history to
review past compile sessions.`,
}

func init() {
	// Assigned here rather than in the composite literal to avoid an
	// initialization cycle between rootCmd and pipelineConfig.
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cfg := pipelineConfig()
		logger := logging.New(cfg.Logging)
		cobra.OnFinalize(func() { logger.Sync() })
		log = logger.Sugar()
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./writeup-engine.yaml or ~/.config/writeup-engine/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "minimum log level: debug, info, warn, error")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("writeup-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "writeup-engine"))
		}
	}

	viper.SetEnvPrefix("WRITEUP_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig resolves the full configuration from the config file and
// environment, with zero values filled by stage defaults. Flags on
// individual subcommands override the relevant fields afterwards.
func pipelineConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		Compile: types.CompileConfig{
			Command:     viper.GetString("compile.command"),
			BibCommand:  viper.GetString("compile.bib_command"),
			MaxAttempts: viper.GetInt("compile.max_attempts"),
			Timeout:     viper.GetDuration("compile.timeout"),
			BibTimeout:  viper.GetDuration("compile.bib_timeout"),
		},
		Installer: types.InstallerConfig{
			Command: viper.GetString("installer.command"),
			Timeout: viper.GetDuration("installer.timeout"),
		},
		Resources: types.ResourceConfig{
			BibSearchDepth: viper.GetInt("resources.bib_search_depth"),
		},
		Logging: types.LoggingConfig{
			Level:      viper.GetString("logging.level"),
			File:       viper.GetString("logging.file"),
			MaxSizeMB:  viper.GetInt("logging.max_size_mb"),
			MaxBackups: viper.GetInt("logging.max_backups"),
		},
		Session: types.SessionConfig{
			DBPath:     viper.GetString("session.db_path"),
			MaxResults: viper.GetInt("session.max_results"),
		},
	}

	if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg.WithDefaults()
}

// requireTexArg validates that args holds exactly one .tex path.
func requireTexArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one LaTeX file argument")
	}
	texPath := args[0]
	if filepath.Ext(texPath) != ".tex" {
		return "", fmt.Errorf("not a .tex file: %s", texPath)
	}
	return texPath, nil
}

// durationFlag reads a duration flag, returning zero when unset so config
// defaults apply.
func durationFlag(cmd *cobra.Command, name string) time.Duration {
	d, _ := cmd.Flags().GetDuration(name)
	return d
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
