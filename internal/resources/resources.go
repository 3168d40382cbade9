// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resources cross-references a LaTeX buffer against the resources it
// needs on disk: figure files, style/class files, label definitions, and
// bibliography entries. It reports what is missing and can rewrite the
// buffer with visible placeholders for unresolvable references.
package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/writeup-engine/pkg/types"
)

// BackupSuffix is appended to the source path before a fixed buffer is
// persisted.
const BackupSuffix = ".backup"

var (
	includeGraphicsRe = regexp.MustCompile(`\\includegraphics\*?(?:\[[^\]]*\])?\{([^}]+)\}`)
	usepackageRe      = regexp.MustCompile(`\\usepackage(?:\[[^\]]*\])?\{([^}]+)\}`)
	documentclassRe   = regexp.MustCompile(`\\documentclass(?:\[[^\]]*\])?\{([^}]+)\}`)
	labelRe           = regexp.MustCompile(`\\label\{([^}]+)\}`)
	bibCommandRe      = regexp.MustCompile(`\\bibliography\{([^}]+)\}`)
	bibEntryKeyRe     = regexp.MustCompile(`@[^{]*\{([^,]+),`)
	filecontentsBibRe = regexp.MustCompile(`(?s)\\begin\{filecontents\}\{[^}]*\.bib\}(.*?)\\end\{filecontents\}`)
)

// refRes are the cross-reference commands whose targets need a \label.
var refRes = []*regexp.Regexp{
	regexp.MustCompile(`\\ref\{([^}]+)\}`),
	regexp.MustCompile(`\\eqref\{([^}]+)\}`),
	regexp.MustCompile(`\\pageref\{([^}]+)\}`),
}

// citeRes are the citation commands whose comma-separated keys need a
// bibliography entry.
var citeRes = []*regexp.Regexp{
	regexp.MustCompile(`\\cite\{([^}]+)\}`),
	regexp.MustCompile(`\\citep\{([^}]+)\}`),
	regexp.MustCompile(`\\citet\{([^}]+)\}`),
	regexp.MustCompile(`\\citealp\{([^}]+)\}`),
	regexp.MustCompile(`\\citealt\{([^}]+)\}`),
}

// imageExtensions are recognized figure file suffixes; anything else gets
// the default .pdf appended before existence checks.
var imageExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".eps"}

// standardPackages ship with every TeX distribution and are never reported
// as missing style files.
var standardPackages = map[string]bool{
	"amsmath": true, "amssymb": true, "amsfonts": true, "graphicx": true,
	"xcolor": true, "color": true, "booktabs": true, "array": true,
	"multirow": true, "natbib": true, "hyperref": true, "geometry": true,
	"fancyhdr": true, "titlesec": true, "caption": true, "subcaption": true,
	"float": true, "placeins": true, "afterpage": true, "times": true,
	"helvet": true, "courier": true, "palatino": true, "mathpazo": true,
	"txfonts": true, "pxfonts": true, "lmodern": true, "fourier": true,
	"kpfonts": true, "libertine": true,
}

// Checker cross-references buffers against the filesystem.
type Checker struct {
	cfg types.ResourceConfig
}

// NewChecker builds a Checker with defaults applied to cfg.
func NewChecker(cfg types.ResourceConfig) *Checker {
	return &Checker{cfg: cfg.WithDefaults()}
}

// Check scans the buffer and reports every resource it references that
// cannot be found under dir. The buffer is not modified.
func (c *Checker) Check(buffer, dir string) types.ResourceIssues {
	var issues types.ResourceIssues

	issues.MissingFigures = c.missingFigures(buffer, dir)
	issues.MissingStyleFiles = c.missingStyleFiles(buffer, dir)
	issues.UndefinedLabels = undefinedLabels(buffer)

	citeKeys := citationKeys(buffer)
	defined := c.bibliographyKeys(buffer, dir)
	if len(defined) == 0 {
		// Nothing to check against: report the situation, not the keys.
		if len(citeKeys) > 0 {
			issues.Warnings = append(issues.Warnings, fmt.Sprintf(
				"citations found but no bibliography files detected: %s",
				strings.Join(citeKeys, ", ")))
		}
		return issues
	}

	for _, key := range citeKeys {
		if !defined[key] {
			issues.UndefinedCitations = append(issues.UndefinedCitations, key)
		}
	}
	return issues
}

// missingFigures resolves every image inclusion against the three candidate
// locations: dir itself, a sibling figures directory, and a figures
// subdirectory.
func (c *Checker) missingFigures(buffer, dir string) []string {
	seen := make(map[string]bool)
	var missing []string

	for _, m := range includeGraphicsRe.FindAllStringSubmatch(buffer, -1) {
		fig := normalizeFigurePath(m[1])
		if seen[fig] {
			continue
		}
		seen[fig] = true

		candidates := []string{
			filepath.Join(dir, fig),
			filepath.Join(dir, "..", "figures", filepath.Base(fig)),
			filepath.Join(dir, "figures", filepath.Base(fig)),
		}
		found := false
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, fig)
		}
	}
	return missing
}

// normalizeFigurePath trims the argument and appends the default .pdf
// extension when no known image extension is present.
func normalizeFigurePath(arg string) string {
	fig := strings.TrimSpace(arg)
	lower := strings.ToLower(fig)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return fig
		}
	}
	return fig + ".pdf"
}

// missingStyleFiles reports non-standard packages and classes that have no
// local .sty or .cls file next to the source.
func (c *Checker) missingStyleFiles(buffer, dir string) []string {
	seen := make(map[string]bool)
	var missing []string

	for _, re := range []*regexp.Regexp{usepackageRe, documentclassRe} {
		for _, m := range re.FindAllStringSubmatch(buffer, -1) {
			for _, pkg := range strings.Split(m[1], ",") {
				pkg = strings.TrimSpace(pkg)
				if pkg == "" || seen[pkg] || standardPackages[strings.ToLower(pkg)] {
					continue
				}
				seen[pkg] = true

				_, styErr := os.Stat(filepath.Join(dir, pkg+".sty"))
				_, clsErr := os.Stat(filepath.Join(dir, pkg+".cls"))
				if styErr != nil && clsErr != nil {
					missing = append(missing, pkg)
				}
			}
		}
	}
	return missing
}

// undefinedLabels is the set of referenced targets minus declared labels,
// sorted for stable output.
func undefinedLabels(buffer string) []string {
	defined := make(map[string]bool)
	for _, m := range labelRe.FindAllStringSubmatch(buffer, -1) {
		defined[m[1]] = true
	}

	seen := make(map[string]bool)
	var undefined []string
	for _, re := range refRes {
		for _, m := range re.FindAllStringSubmatch(buffer, -1) {
			target := m[1]
			if !defined[target] && !seen[target] {
				seen[target] = true
				undefined = append(undefined, target)
			}
		}
	}
	sort.Strings(undefined)
	return undefined
}

// citationKeys is the union of all citation commands' comma-separated keys,
// sorted for stable output.
func citationKeys(buffer string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, re := range citeRes {
		for _, m := range re.FindAllStringSubmatch(buffer, -1) {
			for _, key := range strings.Split(m[1], ",") {
				key = strings.TrimSpace(key)
				if key != "" && !seen[key] {
					seen[key] = true
					keys = append(keys, key)
				}
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// bibliographyKeys gathers every citation key defined in discoverable
// bibliography sources, checked in order: files declared by \bibliography,
// any .bib in dir, any .bib up to BibSearchDepth parent levels, and finally
// an inline filecontents block. Later sources are consulted only while
// nothing has been found.
func (c *Checker) bibliographyKeys(buffer, dir string) map[string]bool {
	defined := make(map[string]bool)

	for _, m := range bibCommandRe.FindAllStringSubmatch(buffer, -1) {
		for _, name := range strings.Split(m[1], ",") {
			name = strings.TrimSuffix(strings.TrimSpace(name), ".bib")
			addBibFileKeys(filepath.Join(dir, name+".bib"), defined)
		}
	}

	if len(defined) == 0 {
		addDirBibKeys(dir, defined)
	}

	walk := dir
	for level := 0; level < c.cfg.BibSearchDepth && len(defined) == 0; level++ {
		walk = filepath.Dir(walk)
		addDirBibKeys(walk, defined)
	}

	if len(defined) == 0 {
		if m := filecontentsBibRe.FindStringSubmatch(buffer); m != nil {
			for _, km := range bibEntryKeyRe.FindAllStringSubmatch(m[1], -1) {
				defined[strings.TrimSpace(km[1])] = true
			}
		}
	}

	return defined
}

func addDirBibKeys(dir string, defined map[string]bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bib") {
			continue
		}
		addBibFileKeys(filepath.Join(dir, e.Name()), defined)
	}
}

func addBibFileKeys(path string, defined map[string]bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, m := range bibEntryKeyRe.FindAllStringSubmatch(string(data), -1) {
		defined[strings.TrimSpace(m[1])] = true
	}
}

// hasAnyBibliography reports whether any bibliography source exists at all:
// a .bib file within reach or an inline filecontents block. Controls the
// conservative citation-fix policy.
func (c *Checker) hasAnyBibliography(buffer, dir string) bool {
	walk := dir
	for level := 0; level <= c.cfg.BibSearchDepth; level++ {
		entries, err := os.ReadDir(walk)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".bib") {
					return true
				}
			}
		}
		walk = filepath.Dir(walk)
	}
	return strings.Contains(buffer, "filecontents") && strings.Contains(buffer, ".bib")
}

// Fix rewrites the buffer to neutralize the issues found by Check: missing
// figures become a visible placeholder box, undefined references become
// bracketed markers. Undefined citations are replaced only when no
// bibliography of any kind exists; when one does, citation commands are
// left for the bibliography pass to resolve. Returns the rewritten buffer
// and whether anything changed.
func (c *Checker) Fix(buffer string, issues types.ResourceIssues, dir string) (string, bool) {
	changed := false

	for _, fig := range issues.MissingFigures {
		bare := strings.TrimSuffix(fig, ".pdf")
		for _, target := range []string{fig, bare} {
			re := regexp.MustCompile(`\\includegraphics\*?(?:\[[^\]]*\])?\{` + regexp.QuoteMeta(target) + `\}`)
			if re.MatchString(buffer) {
				placeholder := fmt.Sprintf(
					`\fbox{\parbox{0.45\textwidth}{\centering Missing Figure: %s}}`,
					filepath.Base(fig))
				buffer = re.ReplaceAllLiteralString(buffer, placeholder)
				changed = true
			}
		}
	}

	for _, label := range issues.UndefinedLabels {
		for _, cmd := range []string{`ref`, `eqref`, `pageref`} {
			re := regexp.MustCompile(`\\` + cmd + `\{` + regexp.QuoteMeta(label) + `\}`)
			if re.MatchString(buffer) {
				buffer = re.ReplaceAllString(buffer, "[REF:"+label+"]")
				changed = true
			}
		}
	}

	if len(issues.UndefinedCitations) > 0 && !c.hasAnyBibliography(buffer, dir) {
		for _, key := range issues.UndefinedCitations {
			for _, cmd := range []string{`cite`, `citep`, `citet`} {
				re := regexp.MustCompile(`\\` + cmd + `\{` + regexp.QuoteMeta(key) + `\}`)
				if re.MatchString(buffer) {
					buffer = re.ReplaceAllString(buffer, "["+key+"]")
					changed = true
				}
			}
		}
	}

	return buffer, changed
}

// FixFile checks the file at path and, with autoFix set, persists any
// rewrite with a backup sidecar written first. The issue report is returned
// either way.
func (c *Checker) FixFile(path string, autoFix bool) (types.ResourceIssues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ResourceIssues{}, fmt.Errorf("reading %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	buffer := string(data)
	issues := c.Check(buffer, dir)

	if !autoFix {
		return issues, nil
	}

	fixed, changed := c.Fix(buffer, issues, dir)
	if !changed {
		return issues, nil
	}

	if err := os.WriteFile(path+BackupSuffix, data, 0o644); err != nil {
		return issues, fmt.Errorf("writing backup for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(fixed), 0o644); err != nil {
		return issues, fmt.Errorf("writing %s: %w", path, err)
	}
	return issues, nil
}
