// Package snippets loads snippet libraries from disk and feeds the
// engine's snapshot publisher. Libraries are TOML, YAML, or JSON files
// holding a list of snippets; JSON files are checked against a schema
// before use so a malformed library is reported file by file instead
// of failing the whole load.
package snippets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"expandd/internal/logging"
	"expandd/internal/trigger"
)

// Problem reports a library file that could not be used. The rest of
// the load continues; expansion should never go dark because one file
// has a typo.
type Problem struct {
	Path string
	Err  error
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %v", p.Path, p.Err)
}

// Store loads snippet libraries from a set of paths.
type Store struct {
	paths           []string
	includeDefaults bool
	log             *logging.Logger
}

// New creates a store reading the given files or directories.
// Directories are scanned non-recursively for library files.
func New(paths []string, includeDefaults bool, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		paths:           paths,
		includeDefaults: includeDefaults,
		log:             logger.WithComponent("snippets"),
	}
}

// libraryFile is the on-disk document shape shared by all formats.
type libraryFile struct {
	Snippets []fileSnippet `toml:"snippets" json:"snippets" yaml:"snippets"`
}

// fileSnippet mirrors trigger.Snippet but leaves Enabled optional so
// an omitted field means enabled rather than silently off.
type fileSnippet struct {
	Name             string `toml:"name" json:"name" yaml:"name"`
	Trigger          string `toml:"trigger" json:"trigger" yaml:"trigger"`
	Template         string `toml:"template" json:"template" yaml:"template"`
	Category         string `toml:"category,omitempty" json:"category,omitempty" yaml:"category,omitempty"`
	Enabled          *bool  `toml:"enabled,omitempty" json:"enabled,omitempty" yaml:"enabled,omitempty"`
	RequireDelimiter *bool  `toml:"require_delimiter,omitempty" json:"require_delimiter,omitempty" yaml:"require_delimiter,omitempty"`
}

func (f fileSnippet) toSnippet() trigger.Snippet {
	sn := trigger.Snippet{
		Name:             f.Name,
		Trigger:          f.Trigger,
		Template:         f.Template,
		Category:         f.Category,
		Enabled:          true,
		RequireDelimiter: f.RequireDelimiter,
	}
	if f.Enabled != nil {
		sn.Enabled = *f.Enabled
	}
	return sn
}

// Load reads every library and returns the merged snippet set.
// Defaults come first; a user snippet with the same trigger replaces
// the default. Files that fail to parse are reported as problems and
// skipped.
func (s *Store) Load() ([]trigger.Snippet, []Problem) {
	var merged []trigger.Snippet
	var problems []Problem

	byTrigger := make(map[string]int)
	add := func(sn trigger.Snippet, source string) {
		if idx, ok := byTrigger[sn.Trigger]; ok {
			s.log.Debug("snippet overridden",
				"trigger", sn.Trigger,
				"source", source)
			merged[idx] = sn
			return
		}
		byTrigger[sn.Trigger] = len(merged)
		merged = append(merged, sn)
	}

	if s.includeDefaults {
		for _, sn := range Defaults() {
			add(sn, "builtin")
		}
	}

	for _, path := range s.paths {
		files, err := expandPath(path)
		if err != nil {
			problems = append(problems, Problem{Path: path, Err: err})
			continue
		}
		for _, file := range files {
			loaded, err := LoadFile(file)
			if err != nil {
				problems = append(problems, Problem{Path: file, Err: err})
				s.log.Warn("snippet library skipped",
					"path", file,
					"error", err)
				continue
			}
			for _, sn := range loaded {
				add(sn, file)
			}
		}
	}

	s.log.Info("snippet libraries loaded",
		"snippets", len(merged),
		"problems", len(problems))
	return merged, problems
}

// expandPath resolves a configured path to the library files it names.
// A missing path is not an error: the daemon may start before the user
// has written any library.
func expandPath(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isLibraryFile(entry.Name()) {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isLibraryFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml", ".yaml", ".yml", ".json":
		return !strings.HasPrefix(name, ".")
	default:
		return false
	}
}

// LoadFile parses a single library file by extension.
func LoadFile(path string) ([]trigger.Snippet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}

	var lib libraryFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &lib); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &lib); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	case ".json":
		if err := ValidateJSON(data); err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
		if err := json.Unmarshal(data, &lib); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported library format %q", filepath.Ext(path))
	}

	snippets := make([]trigger.Snippet, 0, len(lib.Snippets))
	for i, f := range lib.Snippets {
		sn := f.toSnippet()
		if err := sn.Validate(); err != nil {
			return nil, fmt.Errorf("snippet %d (%q): %w", i, f.Name, err)
		}
		snippets = append(snippets, sn)
	}
	return snippets, nil
}
