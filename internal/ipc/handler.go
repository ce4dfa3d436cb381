package ipc

import (
	"context"
	"time"

	"expandd/internal/engine"
	"expandd/internal/journal"
	"expandd/internal/trigger"
)

// EngineControl is the slice of the engine the handler needs.
type EngineControl interface {
	Stats() engine.Stats
	SetEnabled(enabled bool)
}

// JournalReader answers history queries. Nil when journalling is
// disabled.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	ByTrigger(ctx context.Context, trigger string, limit int) ([]journal.Entry, error)
	Stats(ctx context.Context) (*journal.Stats, error)
}

// DaemonHandlerConfig wires the handler to the running daemon.
type DaemonHandlerConfig struct {
	Version string
	Engine  EngineControl
	Journal JournalReader

	// Reload reloads snippet libraries and republishes them.
	Reload func(ctx context.Context) (*ReloadResponse, error)

	// Snippets returns the currently loaded snippet set.
	Snippets func() []trigger.Snippet

	// Problems returns load problems from the last snippet reload.
	Problems func() []string

	// Shutdown asks the daemon to exit.
	Shutdown func()
}

// DaemonHandler dispatches IPC requests against the running daemon.
type DaemonHandler struct {
	cfg       DaemonHandlerConfig
	startedAt time.Time
}

// NewDaemonHandler creates a handler for the daemon's IPC server.
func NewDaemonHandler(cfg DaemonHandlerConfig) *DaemonHandler {
	return &DaemonHandler{
		cfg:       cfg,
		startedAt: time.Now(),
	}
}

// HandleMessage processes one IPC request.
func (h *DaemonHandler) HandleMessage(ctx context.Context, msg *Message) (*Message, error) {
	switch msg.Header.Type {
	case MsgStatusRequest:
		return h.handleStatus(ctx, msg)
	case MsgSetEnabled:
		return h.handleSetEnabled(msg)
	case MsgReload:
		return h.handleReload(ctx, msg)
	case MsgListSnippets:
		return h.handleListSnippets(msg)
	case MsgHistory:
		return h.handleHistory(ctx, msg)
	case MsgShutdown:
		return h.handleShutdown(msg)
	default:
		return NewErrorMessage(msg.Header.RequestID, ErrInvalidRequest, "unknown message type"), nil
	}
}

func (h *DaemonHandler) handleStatus(ctx context.Context, msg *Message) (*Message, error) {
	stats := h.cfg.Engine.Stats()

	resp := &StatusResponse{
		Version:        h.cfg.Version,
		StartedAt:      h.startedAt,
		Uptime:         time.Since(h.startedAt).Round(time.Second).String(),
		Enabled:        stats.Enabled,
		ActiveSnippets: stats.ActiveSnippets,
		Expansions:     stats.Expansions,
		Failures:       stats.Failures,
		EventsDropped:  stats.EventsDropped,
	}
	if h.cfg.Problems != nil {
		resp.Problems = h.cfg.Problems()
	}
	if h.cfg.Journal != nil {
		if js, err := h.cfg.Journal.Stats(ctx); err == nil {
			resp.Journal = JournalStats{Total: js.Total, Failed: js.Failed, Pasted: js.Pasted}
		}
	}

	return NewResponse(MsgStatusResponse, msg.Header.RequestID, resp)
}

func (h *DaemonHandler) handleSetEnabled(msg *Message) (*Message, error) {
	var req SetEnabledRequest
	if err := Decode(msg.Payload, &req); err != nil {
		return NewErrorMessage(msg.Header.RequestID, ErrInvalidRequest, "invalid enable request"), nil
	}

	h.cfg.Engine.SetEnabled(req.Enabled)
	return NewResponse(MsgSetEnabledResp, msg.Header.RequestID, &SetEnabledResponse{Enabled: req.Enabled})
}

func (h *DaemonHandler) handleReload(ctx context.Context, msg *Message) (*Message, error) {
	if h.cfg.Reload == nil {
		return NewErrorMessage(msg.Header.RequestID, ErrUnavailable, "reload not available"), nil
	}

	resp, err := h.cfg.Reload(ctx)
	if err != nil {
		return NewErrorMessage(msg.Header.RequestID, ErrInternalError, err.Error()), nil
	}
	return NewResponse(MsgReloadResp, msg.Header.RequestID, resp)
}

func (h *DaemonHandler) handleListSnippets(msg *Message) (*Message, error) {
	var infos []SnippetInfo
	if h.cfg.Snippets != nil {
		for _, sn := range h.cfg.Snippets() {
			infos = append(infos, SnippetInfo{
				Name:             sn.Name,
				Trigger:          sn.Trigger,
				Category:         sn.Category,
				Enabled:          sn.Enabled,
				RequireDelimiter: sn.RequireDelimiter,
				TemplateLen:      len(sn.Template),
			})
		}
	}
	return NewResponse(MsgListSnippetsResp, msg.Header.RequestID, &ListSnippetsResponse{Snippets: infos})
}

func (h *DaemonHandler) handleHistory(ctx context.Context, msg *Message) (*Message, error) {
	if h.cfg.Journal == nil {
		return NewErrorMessage(msg.Header.RequestID, ErrUnavailable, "journal disabled"), nil
	}

	var req HistoryRequest
	if err := Decode(msg.Payload, &req); err != nil {
		return NewErrorMessage(msg.Header.RequestID, ErrInvalidRequest, "invalid history request"), nil
	}

	var (
		entries []journal.Entry
		err     error
	)
	if req.Trigger != "" {
		entries, err = h.cfg.Journal.ByTrigger(ctx, req.Trigger, req.Limit)
	} else {
		entries, err = h.cfg.Journal.Recent(ctx, req.Limit)
	}
	if err != nil {
		return NewErrorMessage(msg.Header.RequestID, ErrInternalError, err.Error()), nil
	}

	resp := &HistoryResponse{Entries: make([]HistoryEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, HistoryEntry{
			Timestamp:   e.Timestamp,
			SnippetName: e.SnippetName,
			Trigger:     e.Trigger,
			DeleteCount: e.DeleteCount,
			TextLen:     e.TextLen,
			Pasted:      e.Pasted,
			Err:         e.Err,
		})
	}
	return NewResponse(MsgHistoryResp, msg.Header.RequestID, resp)
}

func (h *DaemonHandler) handleShutdown(msg *Message) (*Message, error) {
	if h.cfg.Shutdown != nil {
		// Ack first; the daemon tears the socket down on exit.
		defer h.cfg.Shutdown()
	}
	return NewMessage(MsgShutdown, msg.Header.RequestID, nil), nil
}
