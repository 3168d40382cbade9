// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package texlog scans LaTeX compiler output for known error signatures:
// missing style and class files, fatal errors, and bibliography-specific
// diagnostics. Signatures are kept in declarative tables so adding a new
// compiler phrasing is a data change, not new control flow.
package texlog

import (
	"regexp"
	"sort"
	"strings"
)

// packagePattern is one compiler phrasing that names a missing package file.
// When styOnly is set, captured names are kept only if they end in .sty or
// .cls (the generic "File `X' not found" message also fires for figures).
type packagePattern struct {
	re      *regexp.Regexp
	styOnly bool
}

// packagePatterns are applied in order and their matches unioned. Each is
// tuned to one pdflatex error phrasing.
var packagePatterns = []packagePattern{
	// ! LaTeX Error: File `siunitx.sty' not found.
	{re: regexp.MustCompile("(?i)! LaTeX Error: File `([^'`]+)\\.sty' not found")},
	// ! I can't find file `fancyhdr.sty'.
	{re: regexp.MustCompile("(?i)! I can't find file `([^'`]+)\\.sty'")},
	// ! LaTeX Error: File `iclr2025.cls' not found.
	{re: regexp.MustCompile("(?i)! LaTeX Error: File `([^'`]+)\\.cls' not found")},
	// File `X' not found — generic, filtered to style/class extensions.
	{re: regexp.MustCompile("(?i)File `([^'`]+)' not found"), styOnly: true},
}

// emergencyUsepackageRe finds the \usepackage argument on the error-context
// line (l.<n> \usepackage{...}) that precedes an emergency stop.
var emergencyUsepackageRe = regexp.MustCompile(`(?i)l\.\d+\s+\\usepackage\s*\{([^}]+)\}`)

// ExtractMissingPackages returns the bare package names the compiler could
// not find, deduplicated and sorted. An empty slice means the failure is not
// package-related; it is not an error.
func ExtractMissingPackages(log string) []string {
	seen := make(map[string]bool)

	for _, p := range packagePatterns {
		for _, m := range p.re.FindAllStringSubmatch(log, -1) {
			name := m[1]
			if p.styOnly {
				if !strings.HasSuffix(name, ".sty") && !strings.HasSuffix(name, ".cls") {
					continue
				}
			}
			name = strings.TrimSuffix(strings.TrimSuffix(name, ".sty"), ".cls")
			if name != "" {
				seen[name] = true
			}
		}
	}

	// After an emergency stop the log often no longer names the file, only
	// the \usepackage line that triggered it.
	if strings.Contains(log, "Emergency stop") {
		for _, m := range emergencyUsepackageRe.FindAllStringSubmatch(log, -1) {
			for _, name := range strings.Split(m[1], ",") {
				name = strings.TrimSpace(name)
				if name != "" {
					seen[name] = true
				}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fatalErrors are generic pdflatex failure phrasings, scanned in order.
// Used for diagnostic reporting only, never for retry decisions.
var fatalErrors = []string{
	"Undefined control sequence",
	"Missing $ inserted",
	"Extra alignment tab",
	"Illegal parameter number",
	"File ended while scanning",
	"Emergency stop",
	"Fatal error occurred",
}

// DetectFatalError returns the first known fatal-error label present in the
// log, or false when none match.
func DetectFatalError(log string) (string, bool) {
	for _, label := range fatalErrors {
		if strings.Contains(log, label) {
			return label, true
		}
	}
	return "", false
}

// bibPattern maps a bibliography-related compiler diagnostic to a
// human-readable label.
type bibPattern struct {
	re    *regexp.Regexp
	label string
}

var bibPatterns = []bibPattern{
	{regexp.MustCompile(`(?i)! Misplaced alignment tab character &`), "unescaped ampersand in bibliography"},
	{regexp.MustCompile(`(?i)! Undefined control sequence.*\\&`), "malformed ampersand escape"},
	{regexp.MustCompile(`(?i)! LaTeX Error: Something's wrong--perhaps a missing \\item`), "bibliography formatting error"},
	{regexp.MustCompile(`(?i)Package natbib Warning: Citation .* undefined`), "undefined citations"},
	{regexp.MustCompile(`(?i)! Package natbib Error:`), "natbib package error"},
	{regexp.MustCompile(`(?i)! I can't find file.*\.bbl`), "missing processed bibliography file"},
}

// DetectBibliographyErrors returns labels for every bibliography-specific
// diagnostic present in the log, in table order.
func DetectBibliographyErrors(log string) []string {
	var labels []string
	for _, p := range bibPatterns {
		if p.re.MatchString(log) {
			labels = append(labels, p.label)
		}
	}
	return labels
}
