// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bibfix repairs the bibliography syntax defects that make BibTeX
// output unguessable to pdflatex: unescaped special characters (& _ # %)
// and HTML entities carried over from web-scraped metadata. It operates on
// .bib source files and .bbl processed-bibliography files, never on the
// main document.
package bibfix

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BackupSuffix is appended to a bibliography file's path before it is
// rewritten.
const BackupSuffix = ".syntax_backup"

// htmlEntities maps entities that must never reach BibTeX to their LaTeX or
// plain-text equivalents.
var htmlEntities = map[string]string{
	"&amp;":  `\&`,
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&#39;":  "'",
}

// specialLabels names each escapable character for issue reporting.
var specialLabels = map[byte]string{
	'&': "unescaped ampersands",
	'_': "unescaped underscores",
	'#': "unescaped hash symbols",
	'%': "unescaped percent symbols",
}

// FixBuffer normalizes HTML entities and escapes unescaped special
// characters in one bibliography buffer. It returns the repaired buffer and
// a label per defect class found. Entities are handled first so "&amp;"
// is rewritten as a unit rather than having its ampersand escaped.
func FixBuffer(content string) (string, []string) {
	var labels []string

	entityNames := make([]string, 0, len(htmlEntities))
	for entity := range htmlEntities {
		entityNames = append(entityNames, entity)
	}
	sort.Strings(entityNames)
	for _, entity := range entityNames {
		if strings.Contains(content, entity) {
			content = strings.ReplaceAll(content, entity, htmlEntities[entity])
			labels = append(labels, fmt.Sprintf("HTML entity %s", entity))
		}
	}

	fixed, found := escapeSpecials(content)
	for _, ch := range []byte{'&', '_', '#', '%'} {
		if found[ch] {
			labels = append(labels, specialLabels[ch])
		}
	}

	return fixed, labels
}

// escapeSpecials inserts the LaTeX escape prefix before unescaped & _ # %.
// An ampersand adjacent to another ampersand is left alone (alignment in
// tabular-like content), and _ # % followed by an opening brace are left
// alone (macro argument forms).
func escapeSpecials(content string) (string, map[byte]bool) {
	found := make(map[byte]bool)
	var b strings.Builder
	b.Grow(len(content))

	for i := 0; i < len(content); i++ {
		ch := content[i]
		if _, special := specialLabels[ch]; !special {
			b.WriteByte(ch)
			continue
		}

		escaped := i > 0 && content[i-1] == '\\'
		var prev, next byte
		if i > 0 {
			prev = content[i-1]
		}
		if i+1 < len(content) {
			next = content[i+1]
		}

		skip := escaped ||
			(ch == '&' && (next == '&' || prev == '&')) ||
			(ch != '&' && next == '{')

		if skip {
			b.WriteByte(ch)
			continue
		}

		found[ch] = true
		b.WriteByte('\\')
		b.WriteByte(ch)
	}

	return b.String(), found
}

// FixFile repairs one bibliography file. With autoFix set and a changed
// buffer, the original is preserved at path+BackupSuffix before the repaired
// buffer is written. Returns the defect labels found.
func FixFile(path string, autoFix bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	fixed, labels := FixBuffer(string(data))
	if !autoFix || fixed == string(data) {
		return labels, nil
	}

	if err := os.WriteFile(path+BackupSuffix, data, 0o644); err != nil {
		return labels, fmt.Errorf("writing backup for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(fixed), 0o644); err != nil {
		return labels, fmt.Errorf("writing %s: %w", path, err)
	}
	return labels, nil
}

// FixDir repairs every .bbl and .bib file directly under dir. Per-file
// failures become issue strings rather than aborting the sweep, so one
// unreadable file does not block the rest. The returned issues name both
// the defect classes fixed and any file-level errors.
func FixDir(dir string, autoFix bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var issues []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || (!strings.HasSuffix(name, ".bbl") && !strings.HasSuffix(name, ".bib")) {
			continue
		}

		labels, err := FixFile(filepath.Join(dir, name), autoFix)
		if err != nil {
			issues = append(issues, fmt.Sprintf("error processing %s: %v", name, err))
			continue
		}
		for _, label := range labels {
			issues = append(issues, fmt.Sprintf("%s found in %s", label, name))
		}
	}
	return issues, nil
}
