// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package texpkg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/writeup-engine/pkg/types"
)

// fakeExecutor records install invocations and fails the packages listed
// in failing.
type fakeExecutor struct {
	lookPathErr error
	failing     map[string]bool
	calls       []string
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if f.lookPathErr != nil {
		return "", f.lookPathErr
	}
	return "/usr/bin/" + file, nil
}

func (f *fakeExecutor) RunTimed(_ time.Duration, name string, args ...string) error {
	target := args[len(args)-1]
	f.calls = append(f.calls, target)
	if f.failing[target] {
		return fmt.Errorf("tlmgr: package %s not found", target)
	}
	return nil
}

func newTestInstaller(exec executor) *Installer {
	return newInstaller(types.InstallerConfig{}, nil, exec)
}

func TestInstall(t *testing.T) {
	t.Run("success cached, no repeat invocation", func(t *testing.T) {
		fake := &fakeExecutor{}
		inst := newTestInstaller(fake)

		assert.True(t, inst.Install("siunitx"))
		assert.True(t, inst.Install("siunitx"))
		assert.Equal(t, []string{"siunitx"}, fake.calls)
	})

	t.Run("failure cached, no retry within session", func(t *testing.T) {
		fake := &fakeExecutor{failing: map[string]bool{"ghostpkg": true}}
		inst := newTestInstaller(fake)

		assert.False(t, inst.Install("ghostpkg"))
		assert.False(t, inst.Install("ghostpkg"))
		assert.Equal(t, []string{"ghostpkg"}, fake.calls)
	})

	t.Run("latex name mapped to distributable", func(t *testing.T) {
		fake := &fakeExecutor{}
		inst := newTestInstaller(fake)

		assert.True(t, inst.Install("tikz"))
		assert.True(t, inst.Install("algorithmic"))
		assert.Equal(t, []string{"pgf", "algorithms"}, fake.calls)

		// The cache is keyed by the LaTeX name, so the sibling package
		// sharing the bundle still triggers its own install.
		assert.True(t, inst.Install("pgfplots"))
		assert.Equal(t, []string{"pgf", "algorithms", "pgf"}, fake.calls)
	})
}

func TestAvailable(t *testing.T) {
	assert.True(t, newTestInstaller(&fakeExecutor{}).Available())
	assert.False(t, newTestInstaller(&fakeExecutor{lookPathErr: os.ErrNotExist}).Available())
}

func TestInstallEssentials(t *testing.T) {
	t.Run("all succeed", func(t *testing.T) {
		fake := &fakeExecutor{}
		inst := newTestInstaller(fake)
		assert.True(t, inst.InstallEssentials())
		assert.Len(t, fake.calls, len(essentialPackages))
	})

	t.Run("below threshold fails", func(t *testing.T) {
		// Fail everything: 0% is under the 80% bar.
		failing := make(map[string]bool)
		for _, pkg := range essentialPackages {
			target := pkg
			if mapped, ok := packageMappings[pkg]; ok {
				target = mapped
			}
			failing[target] = true
		}
		inst := newTestInstaller(&fakeExecutor{failing: failing})
		assert.False(t, inst.InstallEssentials())
	})

	t.Run("manager absent fails fast", func(t *testing.T) {
		fake := &fakeExecutor{lookPathErr: os.ErrNotExist}
		inst := newTestInstaller(fake)
		assert.False(t, inst.InstallEssentials())
		assert.Empty(t, fake.calls)
	})
}

func TestSymlinkFallback(t *testing.T) {
	t.Run("creates symlink when alias target exists", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "iclr2025.sty"), []byte("%"), 0o644))

		inst := newTestInstaller(&fakeExecutor{})
		assert.True(t, inst.SymlinkFallback(dir, "iclr2025_icbinb"))

		target, err := os.Readlink(filepath.Join(dir, "iclr2025_icbinb.sty"))
		require.NoError(t, err)
		assert.Equal(t, "iclr2025.sty", target)

		// Second call is a no-op success.
		assert.True(t, inst.SymlinkFallback(dir, "iclr2025_icbinb"))
	})

	t.Run("no alias known", func(t *testing.T) {
		inst := newTestInstaller(&fakeExecutor{})
		assert.False(t, inst.SymlinkFallback(t.TempDir(), "randompkg"))
	})

	t.Run("alias target missing locally", func(t *testing.T) {
		inst := newTestInstaller(&fakeExecutor{})
		assert.False(t, inst.SymlinkFallback(t.TempDir(), "iclr2025_icbinb"))
	})
}

func TestWriteInstallScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "install.sh")
	require.NoError(t, WriteInstallScript(path, ""))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	script := string(data)

	assert.True(t, strings.HasPrefix(script, "#!/bin/bash"))
	assert.Contains(t, script, "tlmgr install")
	assert.Contains(t, script, `"siunitx"`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}
