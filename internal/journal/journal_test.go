package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"expandd/internal/engine"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), 5*time.Second)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "journal.db")
	j, err := Open(path, time.Second)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer j.Close()
}

func TestCloseNilDB(t *testing.T) {
	j := &Journal{db: nil}
	if err := j.Close(); err != nil {
		t.Errorf("Close on nil db should not error: %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := engine.Record{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			SnippetName: "by the way",
			Trigger:     "btw",
			DeleteCount: 3,
			TextLen:     10,
			Pasted:      false,
		}
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(entries))
	}
	if !entries[0].Timestamp.After(entries[1].Timestamp) {
		t.Errorf("Recent not ordered newest first: %v then %v",
			entries[0].Timestamp, entries[1].Timestamp)
	}
	if entries[0].Trigger != "btw" || entries[0].DeleteCount != 3 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestRecordFailureKeepsError(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	rec := engine.Record{
		Timestamp:   time.Now(),
		SnippetName: "address",
		Trigger:     "addr",
		DeleteCount: 4,
		TextLen:     0,
		Err:         "delivery rejected at delete stage",
	}
	if err := j.Record(ctx, rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := j.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if entries[0].Err != rec.Err {
		t.Errorf("Err = %q, want %q", entries[0].Err, rec.Err)
	}
}

func TestRange(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := engine.Record{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Trigger:   "t",
			TextLen:   1,
		}
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := j.Range(ctx, base.Add(time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Range returned %d entries, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Errorf("Range not ordered oldest first")
		}
	}
}

func TestByTrigger(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	for _, trig := range []string{"btw", "sig", "btw"} {
		rec := engine.Record{Timestamp: time.Now(), Trigger: trig, TextLen: 1}
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := j.ByTrigger(ctx, "btw", 10)
	if err != nil {
		t.Fatalf("ByTrigger failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("ByTrigger returned %d entries, want 2", len(entries))
	}
}

func TestStats(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	records := []engine.Record{
		{Timestamp: time.Now(), Trigger: "a", TextLen: 5},
		{Timestamp: time.Now(), Trigger: "b", TextLen: 80, Pasted: true},
		{Timestamp: time.Now(), Trigger: "c", Err: "boom"},
	}
	for _, rec := range records {
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	s, err := j.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if s.Total != 3 || s.Failed != 1 || s.Pasted != 1 {
		t.Errorf("Stats = %+v, want Total 3, Failed 1, Pasted 1", s)
	}
}

func TestPurge(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	old := engine.Record{Timestamp: time.Now().Add(-48 * time.Hour), Trigger: "old", TextLen: 1}
	fresh := engine.Record{Timestamp: time.Now(), Trigger: "fresh", TextLen: 1}
	for _, rec := range []engine.Record{old, fresh} {
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	removed, err := j.Purge(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Purge removed %d rows, want 1", removed)
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Trigger != "fresh" {
		t.Errorf("surviving entries = %+v, want only the fresh record", entries)
	}
}

func TestPurgeZeroRetentionIsNoop(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	rec := engine.Record{Timestamp: time.Now().Add(-time.Hour), Trigger: "t", TextLen: 1}
	if err := j.Record(ctx, rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	removed, err := j.Purge(ctx, 0)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("Purge with zero retention removed %d rows", removed)
	}
}
