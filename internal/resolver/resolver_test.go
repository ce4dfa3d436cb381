package resolver

import (
	"errors"
	"testing"
	"time"

	"expandd/internal/trigger"
)

var testInstant = time.Date(2024, 3, 1, 14, 30, 45, 0, time.UTC)

func testResolver(clip ClipboardReader) *Resolver {
	return New(nil, Env{Clock: FixedClock{Instant: testInstant}, Clipboard: clip})
}

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) GetText() (string, error) { return f.text, f.err }

func TestResolveStatic(t *testing.T) {
	r := testResolver(nil)
	req, warnings := r.Resolve(&trigger.Snippet{Trigger: "btw", Template: "by the way"}, 3)

	if req.Text != "by the way" {
		t.Errorf("got %q", req.Text)
	}
	if req.DeleteCount != 3 {
		t.Errorf("delete count should pass through, got %d", req.DeleteCount)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestResolveDate(t *testing.T) {
	r := testResolver(nil)
	req, _ := r.Resolve(&trigger.Snippet{Trigger: "dt!", Template: "{{date}}"}, 3)
	if req.Text != "2024-03-01" {
		t.Errorf("got %q", req.Text)
	}
}

func TestResolveDateCustomFormat(t *testing.T) {
	cases := []struct {
		template string
		want     string
	}{
		{"{{date:yyyy/MM/dd}}", "2024/03/01"},
		{"{{date:yyyyMMdd}}", "20240301"},
		{"{{date:yy-MM-dd}}", "24-03-01"},
		{"{{time}}", "14:30:45"},
		{"{{time:HH:mm}}", "14:30"},
		{"{{datetime}}", "2024-03-01 14:30:45"},
		{"{{datetime:yyyy-MM-dd HH:mm:ss}}", "2024-03-01 14:30:45"},
	}

	r := testResolver(nil)
	for _, tc := range cases {
		req, warnings := r.Resolve(&trigger.Snippet{Trigger: "x", Template: tc.template}, 1)
		if req.Text != tc.want {
			t.Errorf("%s: got %q, want %q", tc.template, req.Text, tc.want)
		}
		if len(warnings) != 0 {
			t.Errorf("%s: unexpected warnings %v", tc.template, warnings)
		}
	}
}

func TestResolveMixedLiteralsAndPlaceholders(t *testing.T) {
	r := testResolver(nil)
	req, _ := r.Resolve(&trigger.Snippet{
		Trigger:  "stamp",
		Template: "Signed on {{date}} at {{time:HH:mm}}.",
	}, 5)
	want := "Signed on 2024-03-01 at 14:30."
	if req.Text != want {
		t.Errorf("got %q, want %q", req.Text, want)
	}
}

func TestResolveUnknownPlaceholderStaysLiteral(t *testing.T) {
	r := testResolver(nil)
	req, warnings := r.Resolve(&trigger.Snippet{
		Trigger:  "x",
		Template: "a {{nope}} b",
	}, 1)

	if req.Text != "a {{nope}} b" {
		t.Errorf("unknown placeholder must stay literal, got %q", req.Text)
	}
	if len(warnings) != 1 || warnings[0].Placeholder != "nope" {
		t.Errorf("expected one warning for nope, got %v", warnings)
	}
}

func TestResolveUnterminatedToken(t *testing.T) {
	r := testResolver(nil)
	req, warnings := r.Resolve(&trigger.Snippet{Trigger: "x", Template: "a {{date"}, 1)
	if req.Text != "a {{date" {
		t.Errorf("got %q", req.Text)
	}
	if len(warnings) != 0 {
		t.Errorf("unterminated token is literal, not a warning: %v", warnings)
	}
}

func TestResolveClipboard(t *testing.T) {
	r := testResolver(&fakeClipboard{text: "copied"})
	req, warnings := r.Resolve(&trigger.Snippet{Trigger: "x", Template: "[{{clipboard}}]"}, 1)
	if req.Text != "[copied]" {
		t.Errorf("got %q", req.Text)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestResolveClipboardFailureDegradesToLiteral(t *testing.T) {
	r := testResolver(&fakeClipboard{err: errors.New("denied")})
	req, warnings := r.Resolve(&trigger.Snippet{Trigger: "x", Template: "[{{clipboard}}]"}, 1)
	if req.Text != "[{{clipboard}}]" {
		t.Errorf("got %q", req.Text)
	}
	if len(warnings) != 1 {
		t.Errorf("expected a warning, got %v", warnings)
	}
}

func TestResolveIdempotentUnderFixedClock(t *testing.T) {
	r := testResolver(nil)
	sn := &trigger.Snippet{Trigger: "tstamp", Template: "{{datetime}}"}

	first, _ := r.Resolve(sn, 6)
	second, _ := r.Resolve(sn, 6)
	if first != second {
		t.Errorf("resolution must be idempotent under a fixed clock: %+v vs %+v", first, second)
	}
}

func TestRegisterCustomPlaceholder(t *testing.T) {
	reg := NewRegistry()
	reg.Register("shrug", func(_ string, _ Env) (string, error) {
		return `¯\_(ツ)_/¯`, nil
	})
	r := New(reg, Env{Clock: FixedClock{Instant: testInstant}})

	req, _ := r.Resolve(&trigger.Snippet{Trigger: "x", Template: "{{shrug}}"}, 1)
	if req.Text != `¯\_(ツ)_/¯` {
		t.Errorf("got %q", req.Text)
	}
}
