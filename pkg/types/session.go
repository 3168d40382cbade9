// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Attempt records one compiler invocation inside the retry loop. Only the
// final attempt's log is returned to callers; earlier attempts survive in
// the session history for post-mortems.
type Attempt struct {
	Number    int      `json:"number" yaml:"number"`
	ExitCode  int      `json:"exit_code" yaml:"exit_code"`
	TimedOut  bool     `json:"timed_out" yaml:"timed_out"`
	LogTail   string   `json:"log_tail,omitempty" yaml:"log_tail,omitempty"`
	Missing   []string `json:"missing_packages,omitempty" yaml:"missing_packages,omitempty"`
	Installed []string `json:"installed_packages,omitempty" yaml:"installed_packages,omitempty"`
}

// SessionRecord is one compile session as persisted in the history store.
type SessionRecord struct {
	ID        int64         `json:"id" yaml:"id"`
	TexPath   string        `json:"tex_path" yaml:"tex_path"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Success   bool          `json:"success" yaml:"success"`
	Fixes     int           `json:"fixes" yaml:"fixes"`
	Attempts  []Attempt     `json:"attempts" yaml:"attempts"`
}
