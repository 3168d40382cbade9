// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the records shared between the writeup-engine
// pipeline stages: validation issues, compile attempts, and stage
// configuration.
package types

// IssueKind identifies one class of document defect found during validation.
type IssueKind string

const (
	IssueMissingBegin         IssueKind = "missing-begin"
	IssueMissingEnd           IssueKind = "missing-end"
	IssueMisplacedPreamble    IssueKind = "misplaced-preamble-command"
	IssueMisplacedTitleAuthor IssueKind = "misplaced-title-author"
	IssueMisplacedMaketitle   IssueKind = "misplaced-maketitle"
	IssueMisplacedAbstract    IssueKind = "misplaced-abstract"
	IssueMissingBibStyle      IssueKind = "missing-bibliography-style"
	IssueBadBibExtension      IssueKind = "bad-bibliography-extension"
	IssueUndefinedReference   IssueKind = "undefined-reference"
	IssueMissingFigureLabel   IssueKind = "missing-figure-label"
	IssueMissingSectionLabel  IssueKind = "missing-section-label"
	IssueSectionHierarchySkip IssueKind = "section-hierarchy-skip"
	IssueUndefinedCitation    IssueKind = "undefined-citation"
	IssueMissingFigureFile    IssueKind = "missing-figure-file"
)

// Issue is one structural defect found in a LaTeX buffer. Target carries the
// identifier the issue concerns (a label, a file path, the offending line).
// Fixed reports whether the validation pass repaired it in place.
type Issue struct {
	Kind   IssueKind `json:"kind" yaml:"kind"`
	Target string    `json:"target" yaml:"target"`
	Detail string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	Fixed  bool      `json:"fixed" yaml:"fixed"`
}

// StructureResult is the outcome of a structural validation pass over one
// file. Err is set for filesystem failures (missing or unreadable input)
// instead of returning a Go error, so batch callers can keep going.
type StructureResult struct {
	Issues        []Issue `json:"issues" yaml:"issues"`
	FixesApplied  int     `json:"fixes_applied" yaml:"fixes_applied"`
	BackupCreated bool    `json:"backup_created" yaml:"backup_created"`
	Err           string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// NeedsFixing reports whether the pass found anything at all.
func (r StructureResult) NeedsFixing() bool { return len(r.Issues) > 0 }

// ResourceIssues groups the defects found by cross-referencing a buffer
// against the resources available on disk.
type ResourceIssues struct {
	MissingFigures     []string `json:"missing_figures" yaml:"missing_figures"`
	MissingStyleFiles  []string `json:"missing_style_files" yaml:"missing_style_files"`
	UndefinedLabels    []string `json:"undefined_labels" yaml:"undefined_labels"`
	UndefinedCitations []string `json:"undefined_citations" yaml:"undefined_citations"`
	Warnings           []string `json:"warnings" yaml:"warnings"`
}

// Total counts the actionable issues, excluding warnings.
func (i ResourceIssues) Total() int {
	return len(i.MissingFigures) + len(i.MissingStyleFiles) +
		len(i.UndefinedLabels) + len(i.UndefinedCitations)
}

// Empty reports whether nothing at all was found, warnings included.
func (i ResourceIssues) Empty() bool {
	return i.Total() == 0 && len(i.Warnings) == 0
}
