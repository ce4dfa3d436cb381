package ipc

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Common client errors.
var (
	ErrNotConnected     = errors.New("not connected to daemon")
	ErrDaemonNotRunning = errors.New("daemon is not running")
)

// ClientConfig configures the IPC client.
type ClientConfig struct {
	SocketPath     string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// DefaultClientConfig returns sensible defaults for the given socket
// path.
func DefaultClientConfig(socketPath string) ClientConfig {
	return ClientConfig{
		SocketPath:     socketPath,
		ConnectTimeout: 3 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// Client is a synchronous IPC client. Requests are serialized on one
// connection; the CLI issues one command at a time.
type Client struct {
	cfg       ClientConfig
	mu        sync.Mutex
	conn      net.Conn
	nextReqID atomic.Uint32
}

// NewClient creates a client for the given configuration.
func NewClient(cfg ClientConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the connection to the daemon.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := dial(c.cfg.SocketPath, c.cfg.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}
	c.conn = conn
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// roundTrip sends a request and waits for its response.
func (c *Client) roundTrip(msgType MessageType, req any) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	var payload []byte
	if req != nil {
		var err error
		payload, err = Encode(req)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	id := c.nextReqID.Add(1)
	msg := NewMessage(msgType, id, payload)

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.RequestTimeout))
	if err := msg.Write(c.conn); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.cfg.RequestTimeout))
	resp, err := ReadMessage(c.conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.Header.RequestID != id {
		return nil, fmt.Errorf("response id %d does not match request %d", resp.Header.RequestID, id)
	}

	if resp.Header.Type == MsgError {
		var e ErrorResponse
		if err := Decode(resp.Payload, &e); err != nil {
			return nil, fmt.Errorf("daemon error (undecodable): %w", err)
		}
		return nil, fmt.Errorf("daemon error %d: %s", e.Code, e.Message)
	}
	return resp, nil
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	resp, err := c.roundTrip(MsgPing, nil)
	if err != nil {
		return err
	}
	if resp.Header.Type != MsgPong {
		return fmt.Errorf("unexpected response type %#x", resp.Header.Type)
	}
	return nil
}

// Status fetches daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	resp, err := c.roundTrip(MsgStatusRequest, nil)
	if err != nil {
		return nil, err
	}
	var status StatusResponse
	if err := Decode(resp.Payload, &status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// SetEnabled toggles the expansion engine.
func (c *Client) SetEnabled(enabled bool) (*SetEnabledResponse, error) {
	resp, err := c.roundTrip(MsgSetEnabled, &SetEnabledRequest{Enabled: enabled})
	if err != nil {
		return nil, err
	}
	var out SetEnabledResponse
	if err := Decode(resp.Payload, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Reload asks the daemon to reload its snippet libraries.
func (c *Client) Reload() (*ReloadResponse, error) {
	resp, err := c.roundTrip(MsgReload, nil)
	if err != nil {
		return nil, err
	}
	var out ReloadResponse
	if err := Decode(resp.Payload, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// ListSnippets fetches the active snippet set.
func (c *Client) ListSnippets() (*ListSnippetsResponse, error) {
	resp, err := c.roundTrip(MsgListSnippets, nil)
	if err != nil {
		return nil, err
	}
	var out ListSnippetsResponse
	if err := Decode(resp.Payload, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// History queries the expansion journal.
func (c *Client) History(req HistoryRequest) (*HistoryResponse, error) {
	resp, err := c.roundTrip(MsgHistory, &req)
	if err != nil {
		return nil, err
	}
	var out HistoryResponse
	if err := Decode(resp.Payload, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown() error {
	_, err := c.roundTrip(MsgShutdown, nil)
	return err
}
