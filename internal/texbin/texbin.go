// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package texbin locates the external TeX toolchain binaries (pdflatex,
// bibtex, tlmgr). Installations frequently live outside PATH, so lookup
// falls back to a list of candidate install roots and extends PATH for the
// session when a binary is found there. Absence is reported as a
// capability, never an error, so callers can degrade gracefully.
package texbin

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// defaultRoots are probed, in order, when a binary is not already on PATH.
func defaultRoots() []string {
	roots := []string{
		"/usr/local/texlive/2023/bin/universal-darwin",
		"/usr/local/texlive/2024/bin/universal-darwin",
		"/usr/local/texlive/2025/bin/universal-darwin",
		"/usr/local/texlive/2023/bin/x86_64-linux",
		"/usr/local/texlive/2024/bin/x86_64-linux",
		"/usr/local/texlive/2025/bin/x86_64-linux",
		"/usr/local/bin",
		"/opt/homebrew/bin",
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots,
			filepath.Join(home, "Library", "TinyTeX", "bin", "universal-darwin"),
			filepath.Join(home, ".TinyTeX", "bin", "x86_64-linux"),
		)
	}
	return roots
}

// Finder resolves tool names to executable paths. The zero value is not
// usable; construct with NewFinder.
type Finder struct {
	roots    []string
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	setenv   func(string, string) error
	getenv   func(string) string
}

// NewFinder builds a Finder probing the default install roots.
func NewFinder() *Finder {
	return &Finder{
		roots:    defaultRoots(),
		lookPath: exec.LookPath,
		stat:     os.Stat,
		setenv:   os.Setenv,
		getenv:   os.Getenv,
	}
}

// Find resolves tool to an executable path. PATH is consulted first, then
// the candidate roots; a hit under a candidate root prepends that root to
// PATH so later subprocess invocations resolve the tool themselves.
func (f *Finder) Find(tool string) (string, bool) {
	if path, err := f.lookPath(tool); err == nil {
		return path, true
	}

	for _, root := range f.roots {
		candidate := filepath.Join(root, tool)
		if _, err := f.stat(candidate); err != nil {
			continue
		}
		f.extendPath(root)
		return candidate, true
	}
	return "", false
}

// extendPath prepends root to PATH unless it is already present.
func (f *Finder) extendPath(root string) {
	current := f.getenv("PATH")
	for _, p := range strings.Split(current, string(os.PathListSeparator)) {
		if p == root {
			return
		}
	}
	f.setenv("PATH", root+string(os.PathListSeparator)+current)
}

// Capability is the probe result for one tool.
type Capability struct {
	Tool      string `json:"tool" yaml:"tool"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Available bool   `json:"available" yaml:"available"`
}

// Probe resolves every named tool and reports each as a capability.
func (f *Finder) Probe(tools ...string) []Capability {
	caps := make([]Capability, 0, len(tools))
	for _, tool := range tools {
		path, ok := f.Find(tool)
		caps = append(caps, Capability{Tool: tool, Path: path, Available: ok})
	}
	return caps
}
