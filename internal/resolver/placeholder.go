package resolver

import (
	"fmt"
	"strings"
)

// ClipboardReader supplies the current text clipboard content for the
// {{clipboard}} placeholder. The platform implementation lives in the
// inject package; tests supply a fake.
type ClipboardReader interface {
	GetText() (string, error)
}

// Env is the environment a placeholder function may read. Resolvers
// are otherwise pure: same Env, same output.
type Env struct {
	Clock     Clock
	Clipboard ClipboardReader
}

// Func produces the replacement text for one placeholder occurrence.
// arg is the text after the first ':' inside the token, empty when
// absent.
type Func func(arg string, env Env) (string, error)

// Registry maps placeholder names to resolver functions.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns a registry with the built-in placeholders
// registered: date, time, datetime, clipboard.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.Register("date", resolveDate)
	r.Register("time", resolveTime)
	r.Register("datetime", resolveDateTime)
	r.Register("clipboard", resolveClipboard)
	return r
}

// Register adds or replaces a placeholder function.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Lookup returns the function for name.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// datePattern converts the snippet-facing date format (yyyy/MM/dd
// style, carried over from the desktop expanders users migrate from)
// to a Go reference layout. Longer tokens are listed first so yyyy is
// not consumed as two yy.
var datePattern = strings.NewReplacer(
	"yyyy", "2006",
	"yy", "06",
	"MM", "01",
	"dd", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
)

func resolveDate(arg string, env Env) (string, error) {
	layout := "2006-01-02"
	if arg != "" {
		layout = datePattern.Replace(arg)
	}
	return env.Clock.Now().Format(layout), nil
}

func resolveTime(arg string, env Env) (string, error) {
	layout := "15:04:05"
	if arg != "" {
		layout = datePattern.Replace(arg)
	}
	return env.Clock.Now().Format(layout), nil
}

func resolveDateTime(arg string, env Env) (string, error) {
	layout := "2006-01-02 15:04:05"
	if arg != "" {
		layout = datePattern.Replace(arg)
	}
	return env.Clock.Now().Format(layout), nil
}

func resolveClipboard(_ string, env Env) (string, error) {
	if env.Clipboard == nil {
		return "", fmt.Errorf("no clipboard access configured")
	}
	return env.Clipboard.GetText()
}
