package snippets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expandd/internal/trigger"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func triggersOf(snippets []trigger.Snippet) map[string]trigger.Snippet {
	m := make(map[string]trigger.Snippet, len(snippets))
	for _, sn := range snippets {
		m[sn.Trigger] = sn
	}
	return m
}

func TestLoadTOMLLibrary(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "work.toml", `
[[snippets]]
name = "by the way"
trigger = "btw"
template = "by the way"

[[snippets]]
name = "address"
trigger = "addr"
template = "1 Main St"
require_delimiter = true
`)

	store := New([]string{path}, false, nil)
	loaded, problems := store.Load()
	require.Empty(t, problems)
	require.Len(t, loaded, 2)

	byTrigger := triggersOf(loaded)
	assert.Equal(t, "by the way", byTrigger["btw"].Template)
	assert.True(t, byTrigger["btw"].Enabled, "omitted enabled means enabled")
	require.NotNil(t, byTrigger["addr"].RequireDelimiter)
	assert.True(t, *byTrigger["addr"].RequireDelimiter)
}

func TestLoadYAMLLibrary(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "personal.yaml", `
snippets:
  - name: shrug
    trigger: shrug
    template: "¯\\_(ツ)_/¯"
  - name: retired
    trigger: old
    template: gone
    enabled: false
`)

	store := New([]string{path}, false, nil)
	loaded, problems := store.Load()
	require.Empty(t, problems)
	require.Len(t, loaded, 2)

	byTrigger := triggersOf(loaded)
	assert.True(t, byTrigger["shrug"].Enabled)
	assert.False(t, byTrigger["old"].Enabled, "explicit enabled=false survives the load")
}

func TestLoadJSONLibrary(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "team.json", `{
  "snippets": [
    {"name": "oncall", "trigger": "ooc", "template": "out of office"}
  ]
}`)

	store := New([]string{path}, false, nil)
	loaded, problems := store.Load()
	require.Empty(t, problems)
	require.Len(t, loaded, 1)
	assert.Equal(t, "out of office", loaded[0].Template)
}

func TestJSONSchemaRejection(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"missing trigger":      `{"snippets": [{"name": "x", "template": "y"}]}`,
		"unknown field":        `{"snippets": [{"trigger": "t", "template": "y", "colour": "red"}]}`,
		"snippets not a list":  `{"snippets": {"trigger": "t"}}`,
		"missing snippets key": `{"libraries": []}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.json", body)
			_, err := LoadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultsMergeAndOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mine.toml", `
[[snippets]]
name = "my signature"
trigger = "sig"
template = "Cheers, Ada"
`)

	store := New([]string{dir}, true, nil)
	loaded, problems := store.Load()
	require.Empty(t, problems)

	byTrigger := triggersOf(loaded)

	// Built-ins are present when no user file shadows them.
	assert.Contains(t, byTrigger, "ddate")
	assert.Contains(t, byTrigger, "ttime")

	// A user snippet with the same trigger replaces the built-in.
	assert.Equal(t, "Cheers, Ada", byTrigger["sig"].Template)

	// The override keeps the default's position, not a duplicate slot.
	count := 0
	for _, sn := range loaded {
		if sn.Trigger == "sig" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMissingPathTolerated(t *testing.T) {
	store := New([]string{filepath.Join(t.TempDir(), "nope")}, true, nil)
	loaded, problems := store.Load()
	assert.Empty(t, problems)
	assert.Len(t, loaded, len(Defaults()))
}

func TestParseFailureIsProblemNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.toml", `
[[snippets]]
trigger = "ok"
template = "fine"
`)
	bad := writeFile(t, dir, "broken.toml", `[[snippets]\ntrigger = `)

	store := New([]string{dir}, false, nil)
	loaded, problems := store.Load()

	require.Len(t, problems, 1)
	assert.Equal(t, bad, problems[0].Path)

	byTrigger := triggersOf(loaded)
	assert.Contains(t, byTrigger, "ok", "a broken file must not block the rest")
}

func TestInvalidSnippetRejectsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.toml", `
[[snippets]]
trigger = "x"
template = ""
`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template")
}

func TestDirectoryScanSkipsDotfilesAndUnknownExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "real.toml", `
[[snippets]]
trigger = "a"
template = "b"
`)
	writeFile(t, dir, ".hidden.toml", `garbage that would not parse`)
	writeFile(t, dir, "notes.txt", `not a library`)

	store := New([]string{dir}, false, nil)
	loaded, problems := store.Load()
	require.Empty(t, problems)
	require.Len(t, loaded, 1)
	assert.Equal(t, "a", loaded[0].Trigger)
}

func TestDefaultsAreValid(t *testing.T) {
	for _, sn := range Defaults() {
		assert.NoError(t, sn.Validate(), "default %q", sn.Trigger)
	}
}
