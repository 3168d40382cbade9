// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package texlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMissingPackages(t *testing.T) {
	tests := []struct {
		name string
		log  string
		want []string
	}{
		{
			name: "style file not found",
			log:  "! LaTeX Error: File `siunitx.sty' not found.\n",
			want: []string{"siunitx"},
		},
		{
			name: "cant find file phrasing",
			log:  "! I can't find file `fancyhdr.sty'.\n",
			want: []string{"fancyhdr"},
		},
		{
			name: "class file not found",
			log:  "! LaTeX Error: File `iclr2025.cls' not found.\n",
			want: []string{"iclr2025"},
		},
		{
			name: "generic not found filtered to sty and cls",
			log:  "File `booktabs.sty' not found\nFile `figure1.pdf' not found\n",
			want: []string{"booktabs"},
		},
		{
			name: "emergency stop names usepackage line",
			log:  "! Emergency stop.\nl.12 \\usepackage{pgfplots}\n",
			want: []string{"pgfplots"},
		},
		{
			name: "emergency stop with comma list",
			log:  "Emergency stop\nl.4 \\usepackage{amsmath, amssymb}\n",
			want: []string{"amsmath", "amssymb"},
		},
		{
			name: "duplicates across patterns collapse",
			log: "! LaTeX Error: File `multirow.sty' not found.\n" +
				"! I can't find file `multirow.sty'.\n",
			want: []string{"multirow"},
		},
		{
			name: "unrelated failure yields empty slice",
			log:  "! Undefined control sequence.\nl.88 \\badmacro\n",
			want: []string{},
		},
		{
			name: "results are sorted",
			log: "! LaTeX Error: File `tikz.sty' not found.\n" +
				"! LaTeX Error: File `booktabs.sty' not found.\n",
			want: []string{"booktabs", "tikz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractMissingPackages(tt.log)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFatalError(t *testing.T) {
	tests := []struct {
		name    string
		log     string
		want    string
		wantHit bool
	}{
		{
			name:    "undefined control sequence",
			log:     "! Undefined control sequence.\nl.3 \\oops",
			want:    "Undefined control sequence",
			wantHit: true,
		},
		{
			name:    "first match wins in table order",
			log:     "Missing $ inserted\nEmergency stop",
			want:    "Missing $ inserted",
			wantHit: true,
		},
		{
			name: "clean log",
			log:  "Output written on paper.pdf (9 pages).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := DetectFatalError(tt.log)
			assert.Equal(t, tt.wantHit, hit)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectBibliographyErrors(t *testing.T) {
	tests := []struct {
		name string
		log  string
		want []string
	}{
		{
			name: "misplaced alignment tab",
			log:  "! Misplaced alignment tab character &.\nl.102 Fish & Chips",
			want: []string{"unescaped ampersand in bibliography"},
		},
		{
			name: "natbib undefined citation warning",
			log:  "Package natbib Warning: Citation `smith2020' on page 3 undefined.",
			want: []string{"undefined citations"},
		},
		{
			name: "missing bbl",
			log:  "! I can't find file `paper.bbl'.",
			want: []string{"missing processed bibliography file"},
		},
		{
			name: "multiple diagnostics keep table order",
			log: "! Misplaced alignment tab character &.\n" +
				"Package natbib Warning: Citation `a1' on page 1 undefined.",
			want: []string{
				"unescaped ampersand in bibliography",
				"undefined citations",
			},
		},
		{
			name: "clean log yields nil",
			log:  "This is BibTeX, Version 0.99d",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBibliographyErrors(tt.log))
		})
	}
}
