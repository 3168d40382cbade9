// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compile drives the external LaTeX toolchain: it runs the
// compiler, reads its log for actionable failures, repairs the source
// through the structure and resource validators, installs missing packages,
// and retries within a bounded attempt budget. A secondary bibliography
// pass runs when the auxiliary output shows citations.
package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/writeup-engine/internal/bibfix"
	"github.com/pdiddy/writeup-engine/internal/resources"
	"github.com/pdiddy/writeup-engine/internal/structure"
	"github.com/pdiddy/writeup-engine/internal/texlog"
	"github.com/pdiddy/writeup-engine/pkg/types"
)

// timeoutLog is returned in place of log text when the attempt budget is
// exhausted by compiler timeouts.
const timeoutLog = "compilation timeout"

// logTailBytes bounds how much log text is kept per attempt record.
const logTailBytes = 2000

// runner abstracts subprocess execution for testing. Run executes name
// under dir with a bounded timeout and returns the combined output, the
// exit code, and whether the timeout fired. err is reserved for failures
// to start the process at all.
type runner interface {
	Run(ctx context.Context, timeout time.Duration, dir, name string, args ...string) (output string, exitCode int, timedOut bool, err error)
}

// osRunner is the production runner backed by os/exec.
type osRunner struct{}

func (osRunner) Run(ctx context.Context, timeout time.Duration, dir, name string, args ...string) (string, int, bool, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()

	if cctx.Err() == context.DeadlineExceeded {
		return string(out), -1, true, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), exitErr.ExitCode(), false, nil
		}
		return string(out), 0, false, err
	}
	return string(out), 0, false, nil
}

// installer is the slice of the package installer the orchestrator needs.
type installer interface {
	Install(name string) bool
	SymlinkFallback(dir, missing string) bool
}

// Orchestrator owns one compile session: the retry loop, the repair passes,
// and the attempt records the session store persists afterwards.
type Orchestrator struct {
	cfg    types.CompileConfig
	resCfg types.ResourceConfig
	run    runner
	inst   installer
	log    *zap.SugaredLogger

	attempts []types.Attempt
	fixes    int
}

// New builds an Orchestrator with defaults applied to cfg.
func New(cfg types.CompileConfig, resCfg types.ResourceConfig, inst installer, log *zap.SugaredLogger) *Orchestrator {
	return newOrchestrator(cfg, resCfg, inst, log, osRunner{})
}

func newOrchestrator(cfg types.CompileConfig, resCfg types.ResourceConfig, inst installer, log *zap.SugaredLogger, run runner) *Orchestrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		cfg:    cfg.WithDefaults(),
		resCfg: resCfg.WithDefaults(),
		run:    run,
		inst:   inst,
		log:    log,
	}
}

// Attempts returns the attempt records of the most recent compile call.
func (o *Orchestrator) Attempts() []types.Attempt { return o.attempts }

// Fixes returns how many repairs the most recent validation pass applied.
func (o *Orchestrator) Fixes() int { return o.fixes }

// CompileWithAutoInstall compiles the file at texPath, installing missing
// packages between attempts. It returns success and the final log text;
// exhaustion and unextractable failures return the last log rather than an
// error so callers can inspect the compiler's own words.
func (o *Orchestrator) CompileWithAutoInstall(ctx context.Context, texPath string) (bool, string) {
	o.attempts = nil
	return o.compileLoop(ctx, texPath, o.cfg.MaxAttempts)
}

func (o *Orchestrator) compileLoop(ctx context.Context, texPath string, maxAttempts int) (bool, string) {
	if _, err := os.Stat(texPath); err != nil {
		return false, fmt.Sprintf("LaTeX file not found: %s", texPath)
	}

	abs, err := filepath.Abs(texPath)
	if err != nil {
		return false, fmt.Sprintf("resolving %s: %v", texPath, err)
	}
	dir := filepath.Dir(abs)
	base := filepath.Base(abs)
	stem := strings.TrimSuffix(base, ".tex")

	var lastLog string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		o.log.Infow("compilation attempt", "attempt", attempt, "max", maxAttempts, "file", base)

		out, code, timedOut, err := o.run.Run(ctx, o.cfg.Timeout, dir,
			o.cfg.Command, "-interaction=nonstopmode", "-halt-on-error", base)

		rec := types.Attempt{
			Number:   len(o.attempts) + 1,
			ExitCode: code,
			TimedOut: timedOut,
			LogTail:  tail(out, logTailBytes),
		}

		if err != nil {
			o.attempts = append(o.attempts, rec)
			return false, fmt.Sprintf("running %s: %v", o.cfg.Command, err)
		}

		if timedOut {
			o.log.Warnw("compiler timed out", "attempt", attempt, "timeout", o.cfg.Timeout)
			o.attempts = append(o.attempts, rec)
			if attempt == maxAttempts {
				return false, timeoutLog
			}
			continue
		}

		logText := out
		lastLog = out
		if code == 0 {
			if o.needsBibliography(dir, stem, logText) {
				logText = o.runBibliography(ctx, dir, base, stem, logText)
			}
			// A zero exit without the artifact is still a failure; the log
			// may yet name a missing package.
			if _, err := os.Stat(filepath.Join(dir, stem+".pdf")); err == nil {
				o.attempts = append(o.attempts, rec)
				o.log.Infow("compilation successful", "file", base, "attempts", attempt)
				return true, logText
			}
			o.log.Warnw("compiler exited clean but produced no PDF", "file", base)
		}

		missing := texlog.ExtractMissingPackages(logText)
		rec.Missing = missing
		if len(missing) == 0 {
			if label, ok := texlog.DetectFatalError(logText); ok {
				o.log.Warnw("fatal LaTeX error detected", "error", label)
			}
			o.attempts = append(o.attempts, rec)
			return false, logText
		}

		o.log.Infow("missing packages detected", "packages", missing)
		installedAny := false
		for _, pkg := range missing {
			switch {
			case o.inst.Install(pkg):
				installedAny = true
				rec.Installed = append(rec.Installed, pkg)
			case o.inst.SymlinkFallback(dir, pkg):
				installedAny = true
				rec.Installed = append(rec.Installed, pkg+" (symlink)")
			}
		}
		o.attempts = append(o.attempts, rec)

		if !installedAny {
			o.log.Warnw("could not install any missing packages", "packages", missing)
			return false, logText
		}
	}

	o.log.Warnw("max compilation attempts exceeded", "attempts", maxAttempts)
	return false, lastLog
}

// needsBibliography reports whether a bibliography pass is warranted: the
// auxiliary file records citations or bibliography data, or the log warns
// about undefined citations.
func (o *Orchestrator) needsBibliography(dir, stem, logText string) bool {
	if strings.Contains(logText, "There were undefined citations") {
		return true
	}
	aux, err := os.ReadFile(filepath.Join(dir, stem+".aux"))
	if err != nil {
		return false
	}
	return strings.Contains(string(aux), `\citation{`) ||
		strings.Contains(string(aux), `\bibdata{`)
}

// runBibliography runs the bibliography processor and, when it succeeds,
// two further compiler passes so citations and then page numbers
// stabilize. A bibliography failure is logged and swallowed: the primary
// pass already succeeded, and a paper without resolved citations still
// beats no paper. Returns the log of the last compiler invocation run.
func (o *Orchestrator) runBibliography(ctx context.Context, dir, base, stem, logText string) string {
	o.log.Infow("citations detected, running bibliography processor", "file", base)

	out, code, timedOut, err := o.run.Run(ctx, o.cfg.BibTimeout, dir, o.cfg.BibCommand, stem)
	if err != nil || timedOut || code != 0 {
		o.log.Warnw("bibliography processing failed, continuing without it",
			"exit_code", code, "timed_out", timedOut, "output", tail(out, 500))
		return logText
	}

	for pass := 1; pass <= 2; pass++ {
		out, code, timedOut, err := o.run.Run(ctx, o.cfg.Timeout, dir,
			o.cfg.Command, "-interaction=nonstopmode", "-halt-on-error", base)
		if err != nil || timedOut || code != 0 {
			o.log.Warnw("stabilization pass failed, continuing", "pass", pass)
			if err == nil && !timedOut {
				logText = out
			}
			break
		}
		logText = out
	}
	return logText
}

// CompileWithValidation composes the full repair pipeline ahead of the
// attempt loop: structural validation, resource checking, and bibliography
// syntax fixing, each persisting a backup before rewriting. On failure it
// scans the log for bibliography-specific errors and, with autoFix, spends
// one extra fix-and-recompile round before giving up.
func (o *Orchestrator) CompileWithValidation(ctx context.Context, texPath string, autoFix bool) (bool, string) {
	o.attempts = nil
	o.fixes = 0
	dir := filepath.Dir(texPath)

	sres := structure.ValidateFile(texPath, autoFix)
	if sres.Err != "" {
		o.log.Warnw("structure validation failed, proceeding", "error", sres.Err)
	} else if sres.NeedsFixing() {
		o.log.Infow("structural issues", "found", len(sres.Issues), "fixed", sres.FixesApplied)
		o.fixes += sres.FixesApplied
	}

	checker := resources.NewChecker(o.resCfg)
	issues, err := checker.FixFile(texPath, autoFix)
	if err != nil {
		o.log.Warnw("resource validation failed, proceeding", "error", err)
	} else if !issues.Empty() {
		o.log.Infow("resource issues",
			"missing_figures", len(issues.MissingFigures),
			"missing_styles", len(issues.MissingStyleFiles),
			"undefined_labels", len(issues.UndefinedLabels),
			"undefined_citations", len(issues.UndefinedCitations),
			"warnings", len(issues.Warnings))
		o.fixes += issues.Total()
	}

	bibIssues, err := bibfix.FixDir(dir, autoFix)
	if err != nil {
		o.log.Warnw("bibliography syntax validation failed, proceeding", "error", err)
	} else if len(bibIssues) > 0 {
		o.log.Infow("bibliography syntax issues", "issues", bibIssues)
		o.fixes += len(bibIssues)
	}

	success, logText := o.compileLoop(ctx, texPath, o.cfg.MaxAttempts)

	if !success && logText != "" {
		if bibErrors := texlog.DetectBibliographyErrors(logText); len(bibErrors) > 0 {
			o.log.Warnw("bibliography-related compilation errors", "errors", bibErrors)
			if autoFix {
				if fixed, err := bibfix.FixDir(dir, true); err == nil && len(fixed) > 0 {
					o.log.Infow("retrying once after bibliography fixes")
					success, logText = o.compileLoop(ctx, texPath, 1)
				}
			}
		}
	}

	return success, logText
}

// tail returns the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
