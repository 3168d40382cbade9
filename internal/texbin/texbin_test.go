// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package texbin

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

// fakeFS simulates PATH lookups and candidate-root contents.
type fakeFS struct {
	onPath   map[string]string // tool -> resolved path
	existing map[string]bool   // absolute candidate paths that exist
	env      map[string]string
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		onPath:   map[string]string{},
		existing: map[string]bool{},
		env:      map[string]string{"PATH": "/usr/bin"},
	}
}

func (f *fakeFS) lookPath(tool string) (string, error) {
	if p, ok := f.onPath[tool]; ok {
		return p, nil
	}
	return "", errNotFound
}

func (f *fakeFS) stat(path string) (os.FileInfo, error) {
	if f.existing[path] {
		return nil, nil
	}
	return nil, errNotFound
}

func (f *fakeFS) finder(roots ...string) *Finder {
	return &Finder{
		roots:    roots,
		lookPath: f.lookPath,
		stat:     f.stat,
		setenv: func(k, v string) error {
			f.env[k] = v
			return nil
		},
		getenv: func(k string) string { return f.env[k] },
	}
}

func TestFind(t *testing.T) {
	t.Run("path hit wins without probing roots", func(t *testing.T) {
		fs := newFakeFS()
		fs.onPath["pdflatex"] = "/usr/bin/pdflatex"

		path, ok := fs.finder("/texlive/bin").Find("pdflatex")
		require.True(t, ok)
		assert.Equal(t, "/usr/bin/pdflatex", path)
		assert.Equal(t, "/usr/bin", fs.env["PATH"]) // untouched
	})

	t.Run("candidate root hit extends PATH", func(t *testing.T) {
		fs := newFakeFS()
		fs.existing["/texlive/bin/tlmgr"] = true

		path, ok := fs.finder("/missing/root", "/texlive/bin").Find("tlmgr")
		require.True(t, ok)
		assert.Equal(t, "/texlive/bin/tlmgr", path)
		assert.Equal(t, "/texlive/bin:/usr/bin", fs.env["PATH"])
	})

	t.Run("root already on PATH not duplicated", func(t *testing.T) {
		fs := newFakeFS()
		fs.env["PATH"] = "/texlive/bin:/usr/bin"
		fs.existing["/texlive/bin/bibtex"] = true

		_, ok := fs.finder("/texlive/bin").Find("bibtex")
		require.True(t, ok)
		assert.Equal(t, "/texlive/bin:/usr/bin", fs.env["PATH"])
	})

	t.Run("nothing found reports unavailable", func(t *testing.T) {
		fs := newFakeFS()
		path, ok := fs.finder("/texlive/bin").Find("pdflatex")
		assert.False(t, ok)
		assert.Empty(t, path)
	})
}

func TestProbe(t *testing.T) {
	fs := newFakeFS()
	fs.onPath["pdflatex"] = "/usr/bin/pdflatex"

	caps := fs.finder().Probe("pdflatex", "tlmgr")
	require.Len(t, caps, 2)

	assert.Equal(t, Capability{Tool: "pdflatex", Path: "/usr/bin/pdflatex", Available: true}, caps[0])
	assert.Equal(t, Capability{Tool: "tlmgr", Available: false}, caps[1])
}
