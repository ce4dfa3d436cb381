//go:build !windows

package ipc

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"expandd/internal/engine"
	"expandd/internal/journal"
	"expandd/internal/trigger"
)

type fakeEngine struct {
	enabled bool
}

func (f *fakeEngine) Stats() engine.Stats {
	return engine.Stats{
		Enabled:        f.enabled,
		ActiveSnippets: 5,
		Expansions:     12,
		Failures:       1,
	}
}

func (f *fakeEngine) SetEnabled(enabled bool) { f.enabled = enabled }

type fakeJournal struct{}

func (fakeJournal) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	return []journal.Entry{
		{Trigger: "btw", SnippetName: "by the way", TextLen: 10},
		{Trigger: "sig", SnippetName: "signature", TextLen: 60, Pasted: true},
	}, nil
}

func (fakeJournal) ByTrigger(ctx context.Context, trigger string, limit int) ([]journal.Entry, error) {
	return []journal.Entry{{Trigger: trigger, TextLen: 10}}, nil
}

func (fakeJournal) Stats(ctx context.Context) (*journal.Stats, error) {
	return &journal.Stats{Total: 3, Failed: 1, Pasted: 1}, nil
}

func startTestServer(t *testing.T, eng *fakeEngine) *Client {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "expandd.sock")
	handler := NewDaemonHandler(DaemonHandlerConfig{
		Version: "test",
		Engine:  eng,
		Journal: fakeJournal{},
		Reload: func(ctx context.Context) (*ReloadResponse, error) {
			return &ReloadResponse{Snippets: 7}, nil
		},
		Snippets: func() []trigger.Snippet {
			return []trigger.Snippet{
				{Name: "by the way", Trigger: "btw", Template: "by the way", Enabled: true},
			}
		},
	})

	srv := NewServer(DefaultServerConfig(socket), handler, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	client := NewClient(DefaultClientConfig(socket))
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestHeaderRoundTrip(t *testing.T) {
	msg := NewMessage(MsgStatusRequest, 42, []byte(`{"a":1}`))

	var buf bytes.Buffer
	if err := msg.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if got.Header.Type != MsgStatusRequest || got.Header.RequestID != 42 {
		t.Errorf("header = %+v", got.Header)
	}
	if string(got.Payload) != `{"a":1}` {
		t.Errorf("payload = %q", got.Payload)
	}
}

func TestReadMessageRejectsBadMagic(t *testing.T) {
	buf := bytes.Repeat([]byte{0xff}, HeaderSize)
	if _, err := ReadMessage(bytes.NewReader(buf)); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestPing(t *testing.T) {
	client := startTestServer(t, &fakeEngine{})
	if err := client.Ping(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestStatus(t *testing.T) {
	client := startTestServer(t, &fakeEngine{enabled: true})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Enabled || status.ActiveSnippets != 5 || status.Expansions != 12 {
		t.Errorf("status = %+v", status)
	}
	if status.Journal.Total != 3 {
		t.Errorf("journal stats = %+v", status.Journal)
	}
}

func TestSetEnabled(t *testing.T) {
	eng := &fakeEngine{enabled: true}
	client := startTestServer(t, eng)

	resp, err := client.SetEnabled(false)
	if err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	if resp.Enabled {
		t.Error("response still reports enabled")
	}
	if eng.enabled {
		t.Error("engine was not disabled")
	}
}

func TestReload(t *testing.T) {
	client := startTestServer(t, &fakeEngine{})

	resp, err := client.Reload()
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if resp.Snippets != 7 {
		t.Errorf("Snippets = %d, want 7", resp.Snippets)
	}
}

func TestListSnippets(t *testing.T) {
	client := startTestServer(t, &fakeEngine{})

	resp, err := client.ListSnippets()
	if err != nil {
		t.Fatalf("ListSnippets failed: %v", err)
	}
	if len(resp.Snippets) != 1 {
		t.Fatalf("got %d snippets, want 1", len(resp.Snippets))
	}
	sn := resp.Snippets[0]
	if sn.Trigger != "btw" || sn.TemplateLen != len("by the way") {
		t.Errorf("snippet = %+v", sn)
	}
}

func TestHistory(t *testing.T) {
	client := startTestServer(t, &fakeEngine{})

	resp, err := client.History(HistoryRequest{Limit: 10})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(resp.Entries))
	}

	byTrigger, err := client.History(HistoryRequest{Trigger: "sig"})
	if err != nil {
		t.Fatalf("History by trigger failed: %v", err)
	}
	if len(byTrigger.Entries) != 1 || byTrigger.Entries[0].Trigger != "sig" {
		t.Errorf("entries = %+v", byTrigger.Entries)
	}
}

func TestUnknownMessageType(t *testing.T) {
	client := startTestServer(t, &fakeEngine{})

	_, err := client.roundTrip(MessageType(0x7fff), nil)
	if err == nil {
		t.Fatal("expected error for unknown message type")
	}
}

func TestConnectToMissingSocket(t *testing.T) {
	client := NewClient(ClientConfig{
		SocketPath:     filepath.Join(t.TempDir(), "absent.sock"),
		ConnectTimeout: 200 * time.Millisecond,
		RequestTimeout: time.Second,
	})
	if err := client.Connect(); err == nil {
		t.Fatal("expected connect error")
	}
}
