// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package structure validates and repairs LaTeX document structure: the
// document envelope, preamble/body separation, title and abstract
// placement, bibliography declarations, and figure/section labels.
//
// The validator is a fixed pipeline of pure checks. Each check takes the
// whole buffer and returns a repaired buffer plus the issues it found, so
// later checks observe earlier repairs and each check stays independently
// testable.
package structure

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pdiddy/writeup-engine/pkg/types"
)

// BackupSuffix is appended to the source path when a repaired buffer is
// persisted over the original.
const BackupSuffix = ".structure_backup"

// defaultBibStyle is inserted when a document cites a bibliography but
// declares no style.
const defaultBibStyle = "iclr2025"

var (
	beginDocRe = regexp.MustCompile(`\\begin\{document\}`)
	endDocRe   = regexp.MustCompile(`\\end\{document\}`)
)

// envelopeAnchors are tried in order when \begin{document} is missing: the
// marker is inserted immediately before the first match.
var envelopeAnchors = []*regexp.Regexp{
	regexp.MustCompile(`\\maketitle`),
	regexp.MustCompile(`\\title\{[^}]*\}\s*\\author\{[^}]*\}`),
	regexp.MustCompile(`\\begin\{abstract\}`),
	regexp.MustCompile(`\\section\{`),
}

// checkFunc is one validation pass: buffer in, repaired buffer and issues out.
type checkFunc func(buffer string) (string, []types.Issue)

// checks run in this order; order matters because the envelope check
// establishes the preamble/body split the later checks rely on.
var checks = []checkFunc{
	checkEnvelope,
	checkPreambleSeparation,
	checkTitleAuthorPlacement,
	checkAbstractPlacement,
	checkBibliographySetup,
	checkFigureLabels,
	checkSectionStructure,
}

// Validate runs every structural check over the buffer and returns the
// repaired buffer together with all issues found. An issue with Fixed=false
// could not be repaired and is left for the caller to decide on.
func Validate(buffer string) (string, []types.Issue) {
	var issues []types.Issue
	for _, check := range checks {
		var found []types.Issue
		buffer, found = check(buffer)
		issues = append(issues, found...)
	}
	return buffer, issues
}

// ValidateFile validates the file at path. With autoFix set and a changed
// buffer, the original is first copied to path+BackupSuffix and the repaired
// buffer written in its place. Filesystem failures are reported through the
// result's Err field so batch callers can continue.
func ValidateFile(path string, autoFix bool) types.StructureResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.StructureResult{Err: fmt.Sprintf("reading %s: %v", path, err)}
	}

	original := string(data)
	repaired, issues := Validate(original)

	result := types.StructureResult{Issues: issues}
	for _, is := range issues {
		if is.Fixed {
			result.FixesApplied++
		}
	}

	if !autoFix || repaired == original {
		return result
	}

	if err := os.WriteFile(path+BackupSuffix, data, 0o644); err != nil {
		result.Err = fmt.Sprintf("writing backup for %s: %v", path, err)
		return result
	}
	if err := os.WriteFile(path, []byte(repaired), 0o644); err != nil {
		result.Err = fmt.Sprintf("writing %s: %v", path, err)
		return result
	}
	result.BackupCreated = true
	return result
}

// splitAtBody partitions the buffer at the first \begin{document}. ok is
// false when the marker is absent; preamble then holds the whole buffer.
func splitAtBody(buffer string) (preamble, body string, ok bool) {
	loc := beginDocRe.FindStringIndex(buffer)
	if loc == nil {
		return buffer, "", false
	}
	return buffer[:loc[0]], buffer[loc[0]:], true
}

// checkEnvelope restores the \begin{document}/\end{document} invariant.
// When no insertion anchor exists for a missing \begin{document} the buffer
// is left unchanged and the issue reported unresolved; guessing a position
// would produce a document the compiler rejects in stranger ways.
func checkEnvelope(buffer string) (string, []types.Issue) {
	var issues []types.Issue

	if !beginDocRe.MatchString(buffer) {
		inserted := false
		for _, anchor := range envelopeAnchors {
			if loc := anchor.FindStringIndex(buffer); loc != nil {
				buffer = buffer[:loc[0]] + "\\begin{document}\n\n" + buffer[loc[0]:]
				inserted = true
				break
			}
		}
		issue := types.Issue{Kind: types.IssueMissingBegin, Fixed: inserted}
		if !inserted {
			issue.Detail = "no insertion anchor found"
		}
		issues = append(issues, issue)
	}

	if !endDocRe.MatchString(buffer) {
		buffer += "\n\\end{document}\n"
		issues = append(issues, types.Issue{Kind: types.IssueMissingEnd, Fixed: true})
	}

	return buffer, issues
}

// preambleOnlyRes match commands that are valid only before \begin{document}.
var preambleOnlyRes = []*regexp.Regexp{
	regexp.MustCompile(`\\documentclass`),
	regexp.MustCompile(`\\usepackage`),
	regexp.MustCompile(`\\newcommand`),
	regexp.MustCompile(`\\renewcommand`),
	regexp.MustCompile(`\\input\{[^}]*\.sty\}`),
	regexp.MustCompile(`\\input\{[^}]*commands[^}]*\}`),
}

// checkPreambleSeparation excises preamble-only commands from the body and
// appends them to the preamble, preserving their relative order.
func checkPreambleSeparation(buffer string) (string, []types.Issue) {
	preamble, body, ok := splitAtBody(buffer)
	if !ok {
		return buffer, nil
	}

	var issues []types.Issue
	var moved []string
	var kept []string

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		// The first line carries the \begin{document} marker itself.
		if i == 0 {
			kept = append(kept, line)
			continue
		}
		misplaced := false
		for _, re := range preambleOnlyRes {
			if re.MatchString(line) {
				misplaced = true
				break
			}
		}
		if misplaced {
			moved = append(moved, line)
			issues = append(issues, types.Issue{
				Kind:   types.IssueMisplacedPreamble,
				Target: strings.TrimSpace(line),
				Fixed:  true,
			})
			continue
		}
		kept = append(kept, line)
	}

	if len(moved) == 0 {
		return buffer, nil
	}

	preamble += "\n" + strings.Join(moved, "\n") + "\n"
	return preamble + strings.Join(kept, "\n"), issues
}

var (
	titleCmdRe     = regexp.MustCompile(`\\title\{[^}]*\}`)
	authorCmdRe    = regexp.MustCompile(`\\author\{[^}]*\}`)
	maketitleRe    = regexp.MustCompile(`\\maketitle`)
	maketitleCutRe = regexp.MustCompile(`\\maketitle\s*`)
)

// checkTitleAuthorPlacement moves \title and \author declarations out of the
// body into the preamble, and \maketitle out of the preamble to just after
// \begin{document}.
func checkTitleAuthorPlacement(buffer string) (string, []types.Issue) {
	preamble, body, ok := splitAtBody(buffer)
	if !ok {
		return buffer, nil
	}

	var issues []types.Issue

	// Skip past the marker line when searching the body so the marker's own
	// text is never rewritten.
	markerEnd := beginDocRe.FindStringIndex(body)[1]
	inner := body[markerEnd:]

	titleCmd := titleCmdRe.FindString(inner)
	authorCmd := authorCmdRe.FindString(inner)
	if titleCmd != "" || authorCmd != "" {
		if titleCmd != "" {
			inner = strings.Replace(inner, titleCmd, "", 1)
		}
		if authorCmd != "" {
			inner = strings.Replace(inner, authorCmd, "", 1)
		}
		preamble += "\n" + titleCmd + "\n" + authorCmd + "\n"
		body = body[:markerEnd] + inner
		issues = append(issues, types.Issue{
			Kind:   types.IssueMisplacedTitleAuthor,
			Target: strings.TrimSpace(titleCmd + " " + authorCmd),
			Fixed:  true,
		})
	}

	if maketitleRe.MatchString(preamble) {
		preamble = maketitleCutRe.ReplaceAllString(preamble, "")
		markerEnd = beginDocRe.FindStringIndex(body)[1]
		body = body[:markerEnd] + "\n\n\\maketitle\n" + body[markerEnd:]
		issues = append(issues, types.Issue{
			Kind:  types.IssueMisplacedMaketitle,
			Fixed: true,
		})
	}

	return preamble + body, issues
}

var abstractBlockRe = regexp.MustCompile(`(?s)\\begin\{abstract\}.*?\\end\{abstract\}`)

// checkAbstractPlacement relocates an abstract found in the preamble into
// the body: after \maketitle when present, else right after \begin{document}.
func checkAbstractPlacement(buffer string) (string, []types.Issue) {
	preamble, body, ok := splitAtBody(buffer)
	if !ok {
		return buffer, nil
	}

	block := abstractBlockRe.FindString(preamble)
	if block == "" {
		return buffer, nil
	}

	preamble = strings.Replace(preamble, block, "", 1)

	insertAfter := beginDocRe.FindStringIndex(body)[1]
	if loc := maketitleRe.FindStringIndex(body); loc != nil {
		insertAfter = loc[1]
	}
	body = body[:insertAfter] + "\n\n" + block + "\n" + body[insertAfter:]

	return preamble + body, []types.Issue{{
		Kind:  types.IssueMisplacedAbstract,
		Fixed: true,
	}}
}

var (
	bibCmdRe   = regexp.MustCompile(`\\bibliography\{([^}]+)\}`)
	bibStyleRe = regexp.MustCompile(`\\bibliographystyle\{`)
)

// checkBibliographySetup strips a stray .bib suffix from the \bibliography
// argument and guarantees a \bibliographystyle declaration exists.
func checkBibliographySetup(buffer string) (string, []types.Issue) {
	var issues []types.Issue

	bibMatch := bibCmdRe.FindStringSubmatch(buffer)
	if bibMatch != nil && strings.HasSuffix(bibMatch[1], ".bib") {
		trimmed := strings.TrimSuffix(bibMatch[1], ".bib")
		buffer = strings.Replace(buffer,
			fmt.Sprintf(`\bibliography{%s}`, bibMatch[1]),
			fmt.Sprintf(`\bibliography{%s}`, trimmed), 1)
		issues = append(issues, types.Issue{
			Kind:   types.IssueBadBibExtension,
			Target: bibMatch[1],
			Fixed:  true,
		})
	}

	if !bibStyleRe.MatchString(buffer) {
		if loc := bibCmdRe.FindStringIndex(buffer); loc != nil {
			buffer = buffer[:loc[0]] +
				fmt.Sprintf("\\bibliographystyle{%s}\n", defaultBibStyle) +
				buffer[loc[0]:]
		} else {
			buffer += fmt.Sprintf("\n\\bibliographystyle{%s}\n\\bibliography{references}\n", defaultBibStyle)
		}
		issues = append(issues, types.Issue{
			Kind:  types.IssueMissingBibStyle,
			Fixed: true,
		})
	}

	return buffer, issues
}

var (
	figureBlockRe = regexp.MustCompile(`(?s)\\begin\{figure\}.*?\\end\{figure\}`)
	captionRe     = regexp.MustCompile(`\\caption\{([^}]+)\}`)
	labelCmdRe    = regexp.MustCompile(`\\label\{`)
)

// checkFigureLabels gives every unlabeled figure environment a label
// synthesized from its caption, or a positional one when it has no caption.
func checkFigureLabels(buffer string) (string, []types.Issue) {
	var issues []types.Issue

	blocks := figureBlockRe.FindAllString(buffer, -1)
	for i, block := range blocks {
		if labelCmdRe.MatchString(block) {
			continue
		}

		var label string
		capMatch := captionRe.FindStringSubmatch(block)
		if capMatch != nil {
			label = "fig:" + slugify(capMatch[1], 20)
		} else {
			label = fmt.Sprintf("fig:figure_%d", i+1)
		}

		var fixed string
		if capMatch != nil {
			full := captionRe.FindString(block)
			fixed = strings.Replace(block, full, full+fmt.Sprintf("\n\\label{%s}", label), 1)
		} else {
			fixed = strings.Replace(block, `\end{figure}`,
				fmt.Sprintf("\\label{%s}\n\\end{figure}", label), 1)
		}

		buffer = strings.Replace(buffer, block, fixed, 1)
		issues = append(issues, types.Issue{
			Kind:   types.IssueMissingFigureLabel,
			Target: label,
			Fixed:  true,
		})
	}

	return buffer, issues
}

var sectionCmdRe = regexp.MustCompile(`\\((?:sub)*section)\{([^}]+)\}`)

// sectionLevels orders the sectioning commands for hierarchy-skip detection.
var sectionLevels = map[string]int{
	"section":       1,
	"subsection":    2,
	"subsubsection": 3,
}

// labelLookahead is how far past a section command a \label may appear and
// still count as labeling that section.
const labelLookahead = 200

// checkSectionStructure reports hierarchy skips (a deeper section directly
// after a much shallower one) without fixing them, and synthesizes labels
// for sections that lack one within the lookahead window.
func checkSectionStructure(buffer string) (string, []types.Issue) {
	var issues []types.Issue

	matches := sectionCmdRe.FindAllStringSubmatchIndex(buffer, -1)
	prevLevel := 0
	type insertion struct {
		pos   int
		label string
	}
	var insertions []insertion

	for _, m := range matches {
		cmd := buffer[m[2]:m[3]]
		title := buffer[m[4]:m[5]]

		level := sectionLevels[cmd]
		if level == 0 {
			level = 1
		}
		if level > prevLevel+1 && prevLevel > 0 {
			issues = append(issues, types.Issue{
				Kind:   types.IssueSectionHierarchySkip,
				Target: title,
				Detail: fmt.Sprintf("%s after level %d", cmd, prevLevel),
			})
		}
		prevLevel = level

		end := m[1]
		window := buffer[end:min(end+labelLookahead, len(buffer))]
		if !labelCmdRe.MatchString(window) {
			label := "sec:" + slugify(title, 0)
			insertions = append(insertions, insertion{pos: end, label: label})
			issues = append(issues, types.Issue{
				Kind:   types.IssueMissingSectionLabel,
				Target: label,
				Detail: title,
				Fixed:  true,
			})
		}
	}

	// Apply in reverse so earlier positions stay valid.
	for i := len(insertions) - 1; i >= 0; i-- {
		ins := insertions[i]
		buffer = buffer[:ins.pos] + fmt.Sprintf("\n\\label{%s}", ins.label) + buffer[ins.pos:]
	}

	return buffer, issues
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9_]+`)

// slugify lowercases text, collapses non-alphanumeric runs to a single
// underscore, and truncates to maxLen when maxLen > 0.
func slugify(text string, maxLen int) string {
	slug := nonAlnumRe.ReplaceAllString(strings.ToLower(text), "_")
	slug = strings.Trim(slug, "_")
	if maxLen > 0 && len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	return strings.Trim(slug, "_")
}
