// Package resolver turns a matched snippet's template into the final
// expansion text. Templates interleave literal runs with {{name}} or
// {{name:arg}} placeholder tokens; unknown placeholders stay in the
// output verbatim so a typo never swallows the rest of the expansion.
//
// Resolution runs on the processing worker between match and output
// synthesis, so placeholder functions must not touch the network or
// disk. Reading the system clock and the clipboard is the only
// permitted impurity.
package resolver

import (
	"strings"

	"expandd/internal/trigger"
)

// Request is the fully resolved output handed to the synthesizer:
// delete this many already-typed characters, then emit Text. It
// carries no reference back to the snippet.
type Request struct {
	DeleteCount int
	Text        string
}

// Warning records a non-fatal resolution problem, currently only
// unknown placeholder names.
type Warning struct {
	Placeholder string
	Trigger     string
}

// Resolver substitutes placeholders using a registry and environment.
type Resolver struct {
	registry *Registry
	env      Env
}

// New creates a resolver. A nil registry gets the built-ins; a nil
// clock gets the system clock.
func New(registry *Registry, env Env) *Resolver {
	if registry == nil {
		registry = NewRegistry()
	}
	if env.Clock == nil {
		env.Clock = SystemClock()
	}
	return &Resolver{registry: registry, env: env}
}

// Resolve expands the snippet's template. deleteCount comes from the
// match result and is unrelated to the expansion's own length.
// Warnings report unknown placeholders that were kept literal.
func (r *Resolver) Resolve(sn *trigger.Snippet, deleteCount int) (Request, []Warning) {
	text, warnings := r.expand(sn)
	return Request{DeleteCount: deleteCount, Text: text}, warnings
}

func (r *Resolver) expand(sn *trigger.Snippet) (string, []Warning) {
	tmpl := sn.Template
	var b strings.Builder
	b.Grow(len(tmpl))
	var warnings []Warning

	for {
		open := strings.Index(tmpl, "{{")
		if open < 0 {
			b.WriteString(tmpl)
			break
		}
		b.WriteString(tmpl[:open])
		rest := tmpl[open+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			// Unterminated token, keep the tail literal.
			b.WriteString(tmpl[open:])
			break
		}
		token := rest[:end]
		tmpl = rest[end+2:]

		name, arg := token, ""
		if i := strings.IndexByte(token, ':'); i >= 0 {
			name, arg = token[:i], token[i+1:]
		}

		fn, ok := r.registry.Lookup(name)
		if !ok {
			warnings = append(warnings, Warning{Placeholder: name, Trigger: sn.Trigger})
			b.WriteString("{{")
			b.WriteString(token)
			b.WriteString("}}")
			continue
		}
		out, err := fn(arg, r.env)
		if err != nil {
			// Failed dynamic content degrades to the literal token,
			// same as an unknown name; the expansion still fires.
			warnings = append(warnings, Warning{Placeholder: name, Trigger: sn.Trigger})
			b.WriteString("{{")
			b.WriteString(token)
			b.WriteString("}}")
			continue
		}
		b.WriteString(out)
	}

	return b.String(), warnings
}
