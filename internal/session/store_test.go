// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/writeup-engine/pkg/types"
)

func newTestStore(t *testing.T, maxResults int) *Store {
	t.Helper()
	s, err := NewStore(types.SessionConfig{
		DBPath:     filepath.Join(t.TempDir(), "history", "test.db"),
		MaxResults: maxResults,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 0)

	first := types.SessionRecord{
		TexPath:   "/papers/draft.tex",
		StartedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		Duration:  42 * time.Second,
		Success:   false,
		Fixes:     2,
		Attempts: []types.Attempt{
			{Number: 1, ExitCode: 1, LogTail: "! LaTeX Error", Missing: []string{"siunitx"}, Installed: []string{"siunitx"}},
			{Number: 2, ExitCode: 1, LogTail: "! LaTeX Error"},
		},
	}
	second := types.SessionRecord{
		TexPath:   "/papers/draft.tex",
		StartedAt: time.Date(2026, 1, 10, 9, 5, 0, 0, time.UTC),
		Duration:  10 * time.Second,
		Success:   true,
		Attempts:  []types.Attempt{{Number: 1, ExitCode: 0}},
	}

	id1, err := s.RecordSession(ctx, first)
	require.NoError(t, err)
	id2, err := s.RecordSession(ctx, second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	records, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, id2, records[0].ID)
	assert.True(t, records[0].Success)

	got := records[1]
	assert.Equal(t, first.TexPath, got.TexPath)
	assert.Equal(t, first.StartedAt, got.StartedAt)
	assert.Equal(t, first.Duration, got.Duration)
	assert.Equal(t, first.Fixes, got.Fixes)
	require.Len(t, got.Attempts, 2)
	assert.Equal(t, []string{"siunitx"}, got.Attempts[0].Missing)
	assert.Equal(t, []string{"siunitx"}, got.Attempts[0].Installed)
	assert.Empty(t, got.Attempts[1].Missing)
}

func TestListSessionsBounded(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 2)

	for i := 0; i < 5; i++ {
		_, err := s.RecordSession(ctx, types.SessionRecord{
			TexPath:   "/papers/draft.tex",
			StartedAt: time.Now().UTC(),
			Success:   true,
		})
		require.NoError(t, err)
	}

	records, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestListSessionsEmpty(t *testing.T) {
	s := newTestStore(t, 0)
	records, err := s.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
