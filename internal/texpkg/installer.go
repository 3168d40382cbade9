// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package texpkg installs missing LaTeX packages through an external
// package manager (tlmgr by default). An Installer carries an explicit
// per-session cache of confirmed and failed installs so a package is never
// attempted twice within one compile session.
package texpkg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/writeup-engine/pkg/types"
)

// essentialPackages are commonly needed by scientific paper templates.
var essentialPackages = []string{
	"siunitx", "multirow", "algorithm2e", "algorithms", "algorithmicx",
	"amsmath", "amsfonts", "amssymb", "amsthm", "mathtools",
	"graphicx", "subfigure", "subcaption", "booktabs", "array",
	"longtable", "tabularx", "rotating", "pdflscape",
	"hyperref", "url", "natbib", "biblatex", "cite",
	"xcolor", "tikz", "pgfplots", "listings", "verbatim",
	"geometry", "fancyhdr", "setspace", "enumitem",
	"caption", "float", "placeins", "afterpage",
}

// packageMappings translates a LaTeX package name to the distributable the
// package manager knows. Several LaTeX names ship in one bundle.
var packageMappings = map[string]string{
	"algorithmic": "algorithms",
	"algorithm":   "algorithms",
	"subcaption":  "caption",
	"pgfplots":    "pgf",
	"tikz":        "pgf",
}

// styleAliases maps a style filename some templates request to the
// equivalent file that may already exist locally. Used by the symlink
// fallback when installation is not possible.
var styleAliases = map[string]string{
	"iclr2025_icbinb": "iclr2025",
}

// essentialsSuccessRatio is the fraction of the essentials catalog that
// must install for InstallEssentials to report success.
const essentialsSuccessRatio = 0.8

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunTimed(timeout time.Duration, name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunTimed(timeout time.Duration, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := exec.CommandContext(ctx, name, args...).Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s timed out after %s", name, timeout)
		}
		return err
	}
	return nil
}

// Installer runs the external package manager and remembers, for the life
// of this instance, which packages installed and which failed.
type Installer struct {
	cfg  types.InstallerConfig
	exec executor
	log  *zap.SugaredLogger

	installed map[string]bool
	failed    map[string]bool
}

// New builds an Installer with defaults applied to cfg.
func New(cfg types.InstallerConfig, log *zap.SugaredLogger) *Installer {
	return newInstaller(cfg, log, &osExecutor{})
}

func newInstaller(cfg types.InstallerConfig, log *zap.SugaredLogger, exec executor) *Installer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Installer{
		cfg:       cfg.WithDefaults(),
		exec:      exec,
		log:       log,
		installed: make(map[string]bool),
		failed:    make(map[string]bool),
	}
}

// Available reports whether the package manager binary exists on PATH.
// Callers degrade to symlink fallbacks or plain failure when it does not.
func (i *Installer) Available() bool {
	_, err := i.exec.LookPath(i.cfg.Command)
	return err == nil
}

// Install attempts to install one LaTeX package. Idempotent per session: a
// name already confirmed returns true and a name already failed returns
// false, with no subprocess in either case. Timeout or a non-zero exit
// marks the name failed for the rest of the session.
func (i *Installer) Install(name string) bool {
	if i.installed[name] {
		return true
	}
	if i.failed[name] {
		return false
	}

	target := name
	if mapped, ok := packageMappings[name]; ok {
		target = mapped
	}

	i.log.Infow("installing LaTeX package", "package", name, "distributable", target)
	if err := i.exec.RunTimed(i.cfg.Timeout, i.cfg.Command, "install", target); err != nil {
		i.log.Warnw("package install failed", "package", name, "error", err)
		i.failed[name] = true
		return false
	}

	i.installed[name] = true
	return true
}

// InstallEssentials runs through the essentials catalog and reports success
// when at least 80% of it installed.
func (i *Installer) InstallEssentials() bool {
	if !i.Available() {
		i.log.Warnw("package manager not available", "command", i.cfg.Command)
		return false
	}

	success := 0
	for _, pkg := range essentialPackages {
		if i.Install(pkg) {
			success++
		}
	}

	i.log.Infow("essential package installation finished",
		"installed", success, "total", len(essentialPackages))
	return float64(success) >= essentialsSuccessRatio*float64(len(essentialPackages))
}

// SymlinkFallback handles template style files that are renamed variants of
// one another: when the missing name has a known alias whose .sty file
// already exists in dir, a symlink is created in place of an install.
func (i *Installer) SymlinkFallback(dir, missing string) bool {
	alias, ok := styleAliases[missing]
	if !ok {
		return false
	}

	source := alias + ".sty"
	if _, err := os.Stat(filepath.Join(dir, source)); err != nil {
		return false
	}

	linkPath := filepath.Join(dir, missing+".sty")
	if _, err := os.Lstat(linkPath); err == nil {
		return true // already in place
	}

	if err := os.Symlink(source, linkPath); err != nil {
		i.log.Warnw("symlink fallback failed", "missing", missing, "error", err)
		return false
	}
	i.log.Infow("created style symlink", "link", missing+".sty", "target", source)
	i.installed[missing] = true
	return true
}

// WriteInstallScript writes a standalone shell script that installs the
// essentials catalog, for machines where this tool cannot run the package
// manager itself.
func WriteInstallScript(path, command string) error {
	if command == "" {
		command = "tlmgr"
	}

	pkgs := make([]string, len(essentialPackages))
	copy(pkgs, essentialPackages)
	sort.Strings(pkgs)

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString("# Installs the LaTeX packages scientific paper templates commonly need.\n\n")
	fmt.Fprintf(&b, "if ! command -v %s &> /dev/null; then\n", command)
	fmt.Fprintf(&b, "    echo \"%s not found; install TinyTeX or TeX Live first\" >&2\n", command)
	b.WriteString("    exit 1\n")
	b.WriteString("fi\n\n")
	b.WriteString("PACKAGES=(\n")
	for _, pkg := range pkgs {
		fmt.Fprintf(&b, "    %q\n", pkg)
	}
	b.WriteString(")\n\n")
	b.WriteString("ok=0\n")
	b.WriteString("for pkg in \"${PACKAGES[@]}\"; do\n")
	fmt.Fprintf(&b, "    if %s install \"$pkg\" 2>/dev/null; then\n", command)
	b.WriteString("        ok=$((ok + 1))\n")
	b.WriteString("    else\n")
	b.WriteString("        echo \"$pkg installation failed (may already be installed)\" >&2\n")
	b.WriteString("    fi\n")
	b.WriteString("done\n\n")
	b.WriteString("echo \"installed $ok/${#PACKAGES[@]} packages\"\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		return fmt.Errorf("writing install script %s: %w", path, err)
	}
	return nil
}
