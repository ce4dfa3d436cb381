// Package ipc provides local control of the expandd daemon over a
// Unix domain socket (a named pipe on Windows). The CLI uses it for
// status, enable/disable, snippet reload, and journal queries.
//
// Messages are a fixed 16-byte header followed by a JSON payload. The
// header carries a request ID so a client can correlate responses on a
// shared connection.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const (
	ProtocolVersion = 1
	ProtocolMagic   = 0x45585043 // "EXPC"
)

// MessageType identifies the type of IPC message.
type MessageType uint16

const (
	// Control messages (0x00xx)
	MsgPing     MessageType = 0x0001
	MsgPong     MessageType = 0x0002
	MsgError    MessageType = 0x0003
	MsgShutdown MessageType = 0x0004

	// Status (0x01xx)
	MsgStatusRequest  MessageType = 0x0100
	MsgStatusResponse MessageType = 0x0101

	// Engine control (0x02xx)
	MsgSetEnabled     MessageType = 0x0200
	MsgSetEnabledResp MessageType = 0x0201
	MsgReload         MessageType = 0x0202
	MsgReloadResp     MessageType = 0x0203

	// Snippet inspection (0x03xx)
	MsgListSnippets     MessageType = 0x0300
	MsgListSnippetsResp MessageType = 0x0301

	// Journal queries (0x04xx)
	MsgHistory     MessageType = 0x0400
	MsgHistoryResp MessageType = 0x0401
)

// Header is the fixed-size message header.
type Header struct {
	Magic     uint32
	Version   uint8
	Flags     uint8
	Type      MessageType
	RequestID uint32
	Length    uint32 // Payload length, not including the header
}

// HeaderSize is the size of the header in bytes.
const HeaderSize = 16

// MaxPayload bounds a single message payload.
const MaxPayload = 16 * 1024 * 1024

// Message wraps a header and payload.
type Message struct {
	Header  Header
	Payload []byte
}

// NewMessage creates a message with the given type and payload.
func NewMessage(msgType MessageType, requestID uint32, payload []byte) *Message {
	return &Message{
		Header: Header{
			Magic:     ProtocolMagic,
			Version:   ProtocolVersion,
			Type:      msgType,
			RequestID: requestID,
			Length:    uint32(len(payload)),
		},
		Payload: payload,
	}
}

// Write writes the header to a writer.
func (h *Header) Write(w io.Writer) error {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.Flags
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Type))
	binary.BigEndian.PutUint32(buf[8:12], h.RequestID)
	binary.BigEndian.PutUint32(buf[12:16], h.Length)
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads and validates a header from a reader.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h := &Header{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		Version:   buf[4],
		Flags:     buf[5],
		Type:      MessageType(binary.BigEndian.Uint16(buf[6:8])),
		RequestID: binary.BigEndian.Uint32(buf[8:12]),
		Length:    binary.BigEndian.Uint32(buf[12:16]),
	}

	if h.Magic != ProtocolMagic {
		return nil, fmt.Errorf("invalid magic number: %x", h.Magic)
	}
	if h.Version > ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", h.Version)
	}
	return h, nil
}

// Write writes the message to a writer.
func (m *Message) Write(w io.Writer) error {
	if err := m.Header.Write(w); err != nil {
		return err
	}
	if len(m.Payload) > 0 {
		_, err := w.Write(m.Payload)
		return err
	}
	return nil
}

// ReadMessage reads a complete message from a reader.
func ReadMessage(r io.Reader) (*Message, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	m := &Message{Header: *h}
	if h.Length > 0 {
		if h.Length > MaxPayload {
			return nil, fmt.Errorf("payload too large: %d bytes", h.Length)
		}
		m.Payload = make([]byte, h.Length)
		if _, err := io.ReadFull(r, m.Payload); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Request/response payloads.

// ErrorResponse is sent when an operation fails.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrUnknown        = 1
	ErrInvalidRequest = 2
	ErrNotFound       = 3
	ErrInternalError  = 4
	ErrUnavailable    = 5
)

// StatusResponse describes the running daemon.
type StatusResponse struct {
	Version        string       `json:"version"`
	StartedAt      time.Time    `json:"started_at"`
	Uptime         string       `json:"uptime"`
	Enabled        bool         `json:"enabled"`
	ActiveSnippets int          `json:"active_snippets"`
	Expansions     uint64       `json:"expansions"`
	Failures       uint64       `json:"failures"`
	EventsDropped  uint64       `json:"events_dropped"`
	Journal        JournalStats `json:"journal"`
	Problems       []string     `json:"problems,omitempty"`
}

// JournalStats summarizes the expansion journal.
type JournalStats struct {
	Total  int64 `json:"total"`
	Failed int64 `json:"failed"`
	Pasted int64 `json:"pasted"`
}

// SetEnabledRequest toggles the expansion engine.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SetEnabledResponse acknowledges the toggle.
type SetEnabledResponse struct {
	Enabled bool `json:"enabled"`
}

// ReloadResponse reports the result of a snippet library reload.
type ReloadResponse struct {
	Snippets  int      `json:"snippets"`
	Ambiguous int      `json:"ambiguous"`
	Problems  []string `json:"problems,omitempty"`
}

// SnippetInfo describes one active snippet. The template itself is not
// exposed over IPC; clients see the trigger and metadata only.
type SnippetInfo struct {
	Name             string `json:"name"`
	Trigger          string `json:"trigger"`
	Category         string `json:"category,omitempty"`
	Enabled          bool   `json:"enabled"`
	RequireDelimiter *bool  `json:"require_delimiter,omitempty"`
	TemplateLen      int    `json:"template_len"`
}

// ListSnippetsResponse contains the active snippet set.
type ListSnippetsResponse struct {
	Snippets []SnippetInfo `json:"snippets"`
}

// HistoryRequest queries the expansion journal.
type HistoryRequest struct {
	Limit   int    `json:"limit,omitempty"`
	Trigger string `json:"trigger,omitempty"`
}

// HistoryEntry is one journalled expansion.
type HistoryEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	SnippetName string    `json:"snippet_name"`
	Trigger     string    `json:"trigger"`
	DeleteCount int       `json:"delete_count"`
	TextLen     int       `json:"text_len"`
	Pasted      bool      `json:"pasted"`
	Err         string    `json:"error,omitempty"`
}

// HistoryResponse contains journal entries, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// Encode encodes a payload to JSON bytes.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode decodes JSON bytes into a payload.
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewErrorMessage creates an error response message.
func NewErrorMessage(requestID uint32, code int, message string) *Message {
	payload, _ := Encode(&ErrorResponse{Code: code, Message: message})
	return NewMessage(MsgError, requestID, payload)
}

// NewResponse creates a response message with an encoded payload.
func NewResponse(msgType MessageType, requestID uint32, v any) (*Message, error) {
	payload, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return NewMessage(msgType, requestID, payload), nil
}
