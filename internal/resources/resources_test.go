// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/writeup-engine/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestChecker() *Checker {
	return NewChecker(types.ResourceConfig{})
}

func TestMissingFigures(t *testing.T) {
	t.Run("default extension appended and candidates probed", func(t *testing.T) {
		dir := t.TempDir()
		// loss_curve has no extension; it exists as figures/loss_curve.pdf.
		writeFile(t, dir, "figures/loss_curve.pdf", "%PDF")

		buffer := `\includegraphics{loss_curve}` + "\n" + `\includegraphics[width=\linewidth]{accuracy}`
		issues := newTestChecker().Check(buffer, dir)

		assert.Equal(t, []string{"accuracy.pdf"}, issues.MissingFigures)
	})

	t.Run("sibling figures directory resolves", func(t *testing.T) {
		parent := t.TempDir()
		dir := filepath.Join(parent, "latex")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		writeFile(t, parent, "figures/plot.png", "png")

		issues := newTestChecker().Check(`\includegraphics{plot.png}`, dir)
		assert.Empty(t, issues.MissingFigures)
	})

	t.Run("starred form also checked", func(t *testing.T) {
		dir := t.TempDir()
		issues := newTestChecker().Check(`\includegraphics*{wide_plot}`, dir)
		assert.Equal(t, []string{"wide_plot.pdf"}, issues.MissingFigures)
	})
}

func TestMissingStyleFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "iclr2025.sty", "% style")

	buffer := `\documentclass{article}` + "\n" +
		`\usepackage{iclr2025}` + "\n" +
		`\usepackage{amsmath, customthing}` + "\n"
	issues := newTestChecker().Check(buffer, dir)

	// iclr2025 exists locally, amsmath is standard, article has no local
	// .cls but is reported (not on the allow list).
	assert.Contains(t, issues.MissingStyleFiles, "customthing")
	assert.NotContains(t, issues.MissingStyleFiles, "iclr2025")
	assert.NotContains(t, issues.MissingStyleFiles, "amsmath")
}

func TestUndefinedLabels(t *testing.T) {
	buffer := `\label{fig:a}` + "\n" +
		`\ref{fig:a} \ref{fig:b} \eqref{eq:1} \pageref{fig:a}`
	issues := newTestChecker().Check(buffer, t.TempDir())

	assert.Equal(t, []string{"eq:1", "fig:b"}, issues.UndefinedLabels)
}

func TestCitations(t *testing.T) {
	t.Run("no bibliography anywhere yields warning not undefined", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "latex")
		require.NoError(t, os.MkdirAll(sub, 0o755))

		issues := newTestChecker().Check(`\cite{smith2020} \citep{jones2019}`, sub)

		assert.Empty(t, issues.UndefinedCitations)
		require.Len(t, issues.Warnings, 1)
		assert.Contains(t, issues.Warnings[0], "no bibliography files detected")
		assert.Contains(t, issues.Warnings[0], "smith2020")
	})

	t.Run("declared bib file defines keys", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "references.bib", "@article{smith2020,\n title={X}\n}\n")

		buffer := `\cite{smith2020} \cite{ghost2021}` + "\n" + `\bibliography{references}`
		issues := newTestChecker().Check(buffer, dir)

		assert.Equal(t, []string{"ghost2021"}, issues.UndefinedCitations)
		assert.Empty(t, issues.Warnings)
	})

	t.Run("bib in parent directory found within walk depth", func(t *testing.T) {
		parent := t.TempDir()
		dir := filepath.Join(parent, "latex")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		writeFile(t, parent, "refs.bib", "@misc{key1,\n title={T}\n}\n")

		issues := newTestChecker().Check(`\cite{key1}`, dir)
		assert.Empty(t, issues.UndefinedCitations)
		assert.Empty(t, issues.Warnings)
	})

	t.Run("inline filecontents bibliography counts", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "latex")
		require.NoError(t, os.MkdirAll(sub, 0o755))

		buffer := `\begin{filecontents}{refs.bib}` + "\n" +
			"@article{inline2022,\n title={T}\n}\n" +
			`\end{filecontents}` + "\n" +
			`\cite{inline2022} \cite{nope}`
		issues := newTestChecker().Check(buffer, sub)

		assert.Equal(t, []string{"nope"}, issues.UndefinedCitations)
	})

	t.Run("comma separated keys split", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "refs.bib", "@misc{a,\n}\n@misc{b,\n}\n")

		issues := newTestChecker().Check(`\citet{a, b, c}`, dir)
		assert.Equal(t, []string{"c"}, issues.UndefinedCitations)
	})
}

func TestFix(t *testing.T) {
	t.Run("missing figure becomes placeholder box", func(t *testing.T) {
		dir := t.TempDir()
		c := newTestChecker()
		buffer := `\includegraphics[width=0.5\textwidth]{gone_plot}`
		issues := c.Check(buffer, dir)
		require.Equal(t, []string{"gone_plot.pdf"}, issues.MissingFigures)

		fixed, changed := c.Fix(buffer, issues, dir)
		assert.True(t, changed)
		assert.NotContains(t, fixed, `\includegraphics`)
		assert.Contains(t, fixed, `Missing Figure: gone_plot.pdf`)
		assert.Contains(t, fixed, `\fbox`)
	})

	t.Run("undefined reference becomes bracketed marker", func(t *testing.T) {
		dir := t.TempDir()
		c := newTestChecker()
		buffer := `See \ref{fig:ghost}.`
		issues := c.Check(buffer, dir)

		fixed, changed := c.Fix(buffer, issues, dir)
		assert.True(t, changed)
		assert.Equal(t, "See [REF:fig:ghost].", fixed)
	})

	t.Run("citations replaced only without any bibliography", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "latex")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		c := newTestChecker()

		// Force the undefined list: Check alone would only warn here.
		issues := types.ResourceIssues{UndefinedCitations: []string{"smith2020"}}

		fixed, changed := c.Fix(`\cite{smith2020}`, issues, sub)
		assert.True(t, changed)
		assert.Equal(t, "[smith2020]", fixed)
	})

	t.Run("citations preserved when a bibliography exists", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "refs.bib", "@misc{other,\n}\n")
		c := newTestChecker()

		issues := types.ResourceIssues{UndefinedCitations: []string{"smith2020"}}
		fixed, changed := c.Fix(`\cite{smith2020}`, issues, dir)

		assert.False(t, changed)
		assert.Equal(t, `\cite{smith2020}`, fixed)
	})
}

func TestFixFile(t *testing.T) {
	t.Run("backup written before rewrite", func(t *testing.T) {
		dir := t.TempDir()
		original := `See \ref{fig:ghost}.`
		path := writeFile(t, dir, "paper.tex", original)

		c := newTestChecker()
		issues, err := c.FixFile(path, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"fig:ghost"}, issues.UndefinedLabels)

		backup, err := os.ReadFile(path + BackupSuffix)
		require.NoError(t, err)
		assert.Equal(t, original, string(backup))

		fixed, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "See [REF:fig:ghost].", string(fixed))
	})

	t.Run("read-only mode leaves file alone", func(t *testing.T) {
		dir := t.TempDir()
		original := `See \ref{fig:ghost}.`
		path := writeFile(t, dir, "paper.tex", original)

		c := newTestChecker()
		issues, err := c.FixFile(path, false)
		require.NoError(t, err)
		assert.NotEmpty(t, issues.UndefinedLabels)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, original, string(data))
		assert.NoFileExists(t, path+BackupSuffix)
	})

	t.Run("missing file returns error", func(t *testing.T) {
		c := newTestChecker()
		_, err := c.FixFile(filepath.Join(t.TempDir(), "gone.tex"), true)
		assert.Error(t, err)
	})
}

func TestNormalizeFigurePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plot", "plot.pdf"},
		{"plot.png", "plot.png"},
		{"  plot.JPG ", "plot.JPG"},
		{"figures/deep/plot", "figures/deep/plot.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeFigurePath(tt.in), tt.in)
	}
}
