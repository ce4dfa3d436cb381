// Package trigger builds immutable trigger-index snapshots used by the
// matcher to answer "does the typed buffer end with a known trigger".
//
// A snapshot is built once from a full snippet set and never mutated;
// the engine swaps the active snapshot wholesale when configuration
// changes. Lookups cost time proportional to the longest configured
// trigger, not to the number of snippets.
package trigger

import (
	"errors"
	"fmt"
	"strings"
)

// Snippet is one keyword-to-template mapping. Snippets arrive from the
// snippet store fully formed; the index treats them as read-only.
type Snippet struct {
	Name     string `toml:"name" json:"name" yaml:"name"`
	Trigger  string `toml:"trigger" json:"trigger" yaml:"trigger"`
	Template string `toml:"template" json:"template" yaml:"template"`
	Category string `toml:"category" json:"category" yaml:"category"`
	Enabled  bool   `toml:"enabled" json:"enabled" yaml:"enabled"`

	// RequireDelimiter makes the trigger fire only when followed by a
	// word-boundary character (space, punctuation). Overrides the
	// snapshot-wide default when set.
	RequireDelimiter *bool `toml:"require_delimiter,omitempty" json:"require_delimiter,omitempty" yaml:"require_delimiter,omitempty"`
}

// requiresDelimiter resolves the per-snippet flag against the
// snapshot default.
func (s *Snippet) requiresDelimiter(globalDefault bool) bool {
	if s.RequireDelimiter != nil {
		return *s.RequireDelimiter
	}
	return globalDefault
}

// Validate checks the fields a snippet must carry before it can be
// indexed.
func (s *Snippet) Validate() error {
	if strings.TrimSpace(s.Trigger) == "" {
		return errors.New("snippet trigger must not be empty")
	}
	if strings.ContainsAny(s.Trigger, "\n\r\t") {
		return fmt.Errorf("snippet trigger %q must not contain whitespace control characters", s.Trigger)
	}
	if s.Template == "" {
		return fmt.Errorf("snippet %q has an empty template", s.Trigger)
	}
	return nil
}

// Options control how a snapshot is built and how its triggers match.
type Options struct {
	// CaseSensitive compares triggers byte-for-byte. When false,
	// triggers and buffer contents are lowercased before comparison.
	CaseSensitive bool

	// RequireDelimiter is the snapshot-wide default for the boundary
	// requirement; individual snippets may override it.
	RequireDelimiter bool

	// NormalizeSymbols retries a failed match after folding '=', ';'
	// and ',' to '_' in both buffer and trigger. Kept for users whose
	// keyboard layouts deliver different punctuation for the same
	// physical key.
	NormalizeSymbols bool
}

// DefaultOptions matches triggers case-sensitively, without a boundary
// requirement and without symbol folding.
func DefaultOptions() Options {
	return Options{CaseSensitive: true}
}

// IsDelimiter reports whether r terminates a word for the boundary
// requirement. Space, tab, newline and common punctuation qualify.
func IsDelimiter(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '.', ',', ';', ':', '!', '?', ')', ']', '}', '"', '\'':
		return true
	}
	return false
}

var symbolFolder = strings.NewReplacer("=", "_", ";", "_", ",", "_")

// foldSymbols applies the '=' ';' ',' → '_' normalization.
func foldSymbols(s string) string {
	return symbolFolder.Replace(s)
}
