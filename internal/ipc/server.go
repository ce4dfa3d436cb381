package ipc

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"expandd/internal/logging"
)

// Handler processes IPC messages.
type Handler interface {
	HandleMessage(ctx context.Context, msg *Message) (*Message, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg *Message) (*Message, error)

func (f HandlerFunc) HandleMessage(ctx context.Context, msg *Message) (*Message, error) {
	return f(ctx, msg)
}

// ServerConfig configures the IPC server.
type ServerConfig struct {
	SocketPath     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxConnections int
}

// DefaultServerConfig returns sensible defaults for the given socket
// path.
func DefaultServerConfig(socketPath string) ServerConfig {
	return ServerConfig{
		SocketPath:     socketPath,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxConnections: 16,
	}
}

// Server accepts local control connections and dispatches messages to
// a handler. Access control is the socket itself: it is created with
// owner-only permissions, so any connected peer already runs as the
// daemon's user.
type Server struct {
	cfg      ServerConfig
	handler  Handler
	log      *logging.Logger
	listener net.Listener

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewServer creates an IPC server.
func NewServer(cfg ServerConfig, handler Handler, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default().WithComponent("ipc")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		handler: handler,
		log:     log,
		conns:   make(map[net.Conn]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins listening on the configured socket.
func (s *Server) Start() error {
	listener, err := listen(s.cfg.SocketPath)
	if err != nil {
		return err
	}
	s.listener = listener
	s.running.Store(true)

	s.log.Info("ipc server listening", "socket", s.cfg.SocketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop shuts the server down and closes all connections.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.log.Warn("ipc server shutdown timed out")
	}

	cleanupSocket(s.cfg.SocketPath)
	return nil
}

// SocketPath returns the socket path the server listens on.
func (s *Server) SocketPath() string {
	return s.cfg.SocketPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("ipc accept failed", "error", err)
			continue
		}

		s.mu.Lock()
		if len(s.conns) >= s.cfg.MaxConnections {
			s.mu.Unlock()
			conn.Close()
			continue
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		msg, err := ReadMessage(conn)
		if err != nil {
			if err == io.EOF || errors.Is(err, net.ErrClosed) {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return
			}
			s.log.Debug("ipc read failed", "error", err)
			return
		}

		resp := s.dispatch(msg)
		if resp == nil {
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := resp.Write(conn); err != nil {
			s.log.Debug("ipc write failed", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(msg *Message) *Message {
	if msg.Header.Type == MsgPing {
		return NewMessage(MsgPong, msg.Header.RequestID, nil)
	}

	if s.handler == nil {
		return NewErrorMessage(msg.Header.RequestID, ErrUnavailable, "no handler")
	}

	resp, err := s.handler.HandleMessage(s.ctx, msg)
	if err != nil {
		return NewErrorMessage(msg.Header.RequestID, ErrInternalError, err.Error())
	}
	return resp
}
