// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CompileConfig holds settings for the compile orchestrator.
type CompileConfig struct {
	// Command is the LaTeX compiler binary (default "pdflatex").
	Command string `json:"command" yaml:"command"`

	// BibCommand is the bibliography processor binary (default "bibtex").
	BibCommand string `json:"bib_command" yaml:"bib_command"`

	// MaxAttempts bounds the compile-install-retry loop (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// Timeout bounds one compiler invocation (default 2m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// BibTimeout bounds one bibliography-processor invocation (default 1m).
	BibTimeout time.Duration `json:"bib_timeout" yaml:"bib_timeout"`
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (c CompileConfig) WithDefaults() CompileConfig {
	if c.Command == "" {
		c.Command = "pdflatex"
	}
	if c.BibCommand == "" {
		c.BibCommand = "bibtex"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	if c.BibTimeout <= 0 {
		c.BibTimeout = time.Minute
	}
	return c
}

// InstallerConfig holds settings for the LaTeX package installer.
type InstallerConfig struct {
	// Command is the package manager binary (default "tlmgr").
	Command string `json:"command" yaml:"command"`

	// Timeout bounds one install invocation (default 1m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (c InstallerConfig) WithDefaults() InstallerConfig {
	if c.Command == "" {
		c.Command = "tlmgr"
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Minute
	}
	return c
}

// ResourceConfig holds settings for the resource checker.
type ResourceConfig struct {
	// BibSearchDepth is how many parent directory levels are searched for
	// .bib files when none is found next to the source (default 1).
	BibSearchDepth int `json:"bib_search_depth" yaml:"bib_search_depth"`
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (c ResourceConfig) WithDefaults() ResourceConfig {
	if c.BibSearchDepth <= 0 {
		c.BibSearchDepth = 1
	}
	return c
}

// LoggingConfig holds settings for the structured logger.
type LoggingConfig struct {
	// Level is the minimum level emitted: debug, info, warn, error
	// (default "info").
	Level string `json:"level" yaml:"level"`

	// File, when set, duplicates log output as JSON into a rotated file.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// MaxSizeMB is the rotation threshold for the log file (default 10).
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is how many rotated files to keep (default 3).
	MaxBackups int `json:"max_backups" yaml:"max_backups"`
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (c LoggingConfig) WithDefaults() LoggingConfig {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 3
	}
	return c
}

// SessionConfig holds settings for the compile-history store.
type SessionConfig struct {
	// DBPath is the SQLite database file recording compile sessions
	// (default ".writeup-engine/history.db").
	DBPath string `json:"db_path" yaml:"db_path"`

	// MaxResults is the default page size for history listings (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (c SessionConfig) WithDefaults() SessionConfig {
	if c.DBPath == "" {
		c.DBPath = ".writeup-engine/history.db"
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 20
	}
	return c
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Compile   CompileConfig   `json:"compile" yaml:"compile"`
	Installer InstallerConfig `json:"installer" yaml:"installer"`
	Resources ResourceConfig  `json:"resources" yaml:"resources"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Session   SessionConfig   `json:"session" yaml:"session"`
}

// WithDefaults returns a copy with every stage's defaults applied.
func (c PipelineConfig) WithDefaults() PipelineConfig {
	c.Compile = c.Compile.WithDefaults()
	c.Installer = c.Installer.WithDefaults()
	c.Resources = c.Resources.WithDefaults()
	c.Logging = c.Logging.WithDefaults()
	c.Session = c.Session.WithDefaults()
	return c
}
