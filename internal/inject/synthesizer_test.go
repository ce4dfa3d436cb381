package inject

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expandd/internal/resolver"
)

func fastPolicy() Policy {
	p := DefaultPolicy()
	p.InterKeyDelay = 0
	p.PasteSettle = 0
	return p
}

func newTestSynthesizer(sender Sender, clip Clipboard) *Synthesizer {
	return NewSynthesizer(sender, clip, fastPolicy())
}

func TestApplyDirect(t *testing.T) {
	sender := NewRecordingSender()
	clip := &MemClipboard{}
	s := newTestSynthesizer(sender, clip)

	pasted, err := s.Apply(context.Background(), resolver.Request{DeleteCount: 3, Text: "by the way"})
	require.NoError(t, err)
	assert.False(t, pasted)

	ops := sender.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, Op{Kind: "backspace", N: 3}, ops[0])
	assert.Equal(t, Op{Kind: "type", Text: "by the way"}, ops[1])
	assert.Empty(t, clip.History(), "short text must not touch the clipboard")
}

func TestApplyDeleteOnly(t *testing.T) {
	sender := NewRecordingSender()
	s := newTestSynthesizer(sender, &MemClipboard{})

	pasted, err := s.Apply(context.Background(), resolver.Request{DeleteCount: 2})
	require.NoError(t, err)
	assert.False(t, pasted)
	require.Len(t, sender.Ops(), 1)
}

func TestApplyPasteFallbackForLongText(t *testing.T) {
	sender := NewRecordingSender()
	clip := &MemClipboard{}
	clip.text = "previous content"
	s := newTestSynthesizer(sender, clip)

	long := ""
	for i := 0; i < 60; i++ {
		long += "x"
	}
	pasted, err := s.Apply(context.Background(), resolver.Request{DeleteCount: 4, Text: long})
	require.NoError(t, err)
	assert.True(t, pasted)

	ops := sender.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, "backspace", ops[0].Kind)
	assert.Equal(t, "paste", ops[1].Kind)

	// Text went through the clipboard and the previous content came back.
	history := clip.History()
	require.Len(t, history, 2)
	assert.Equal(t, long, history[0])
	assert.Equal(t, "previous content", history[1])
	assert.Equal(t, "previous content", clip.Text())
}

func TestApplyPasteForNonBMPText(t *testing.T) {
	sender := NewRecordingSender()
	clip := &MemClipboard{}
	s := newTestSynthesizer(sender, clip)

	pasted, err := s.Apply(context.Background(), resolver.Request{DeleteCount: 1, Text: "ok 🎉"})
	require.NoError(t, err)
	assert.True(t, pasted)

	ops := sender.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, "paste", ops[1].Kind, "astral characters must take the clipboard path")
}

func TestApplyDirectFailureFallsBackToPaste(t *testing.T) {
	sender := NewRecordingSender()
	sender.FailType = errors.New("unicode input refused")
	clip := &MemClipboard{}
	s := newTestSynthesizer(sender, clip)

	pasted, err := s.Apply(context.Background(), resolver.Request{DeleteCount: 2, Text: "short"})
	require.NoError(t, err)
	assert.True(t, pasted, "fallback delivery must be reported as pasted")

	ops := sender.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, "paste", ops[1].Kind)
	assert.Equal(t, "short", clip.History()[0])
}

func TestApplyDeleteRejected(t *testing.T) {
	sender := NewRecordingSender()
	sender.FailBackspaceAfter = 0
	s := newTestSynthesizer(sender, &MemClipboard{})

	_, err := s.Apply(context.Background(), resolver.Request{DeleteCount: 5, Text: "x"})
	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, StageDelete, derr.Stage)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestApplyPasteRejectedAfterDelete(t *testing.T) {
	sender := NewRecordingSender()
	sender.FailType = errors.New("refused")
	sender.FailPaste = ErrRejected
	clip := &MemClipboard{}
	clip.text = "keep me"
	s := newTestSynthesizer(sender, clip)

	pasted, err := s.Apply(context.Background(), resolver.Request{DeleteCount: 5, Text: "hello"})
	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)

	// Deletion already happened; the error says so and nothing retries.
	assert.Equal(t, StagePaste, derr.Stage)
	assert.Equal(t, 5, derr.Deleted)
	assert.False(t, pasted)

	// The previous clipboard content is restored even though the
	// paste chord failed.
	assert.Equal(t, "keep me", clip.Text())
}

func TestApplyClipboardSetFailure(t *testing.T) {
	sender := NewRecordingSender()
	clip := &MemClipboard{FailSet: errors.New("clipboard locked")}
	s := NewSynthesizer(sender, clip, Policy{MaxDirectRunes: 1, InterKeyDelay: 0})

	_, err := s.Apply(context.Background(), resolver.Request{DeleteCount: 1, Text: "too long"})
	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, StagePaste, derr.Stage)
}

func TestPolicyNeedsPaste(t *testing.T) {
	p := DefaultPolicy()
	assert.False(t, p.NeedsPaste("short"))
	assert.True(t, p.NeedsPaste(string(make([]rune, 51))))
	assert.True(t, p.NeedsPaste("emoji 🎉"))

	p.PasteNonBMP = false
	assert.False(t, p.NeedsPaste("emoji 🎉"))
}

func TestSettleRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	settle(ctx, Policy{PasteSettle: 5 * time.Second})
	assert.Less(t, time.Since(start), time.Second)
}
