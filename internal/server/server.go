// Package server implements the connection front end: it accepts TCP
// connections, optionally negotiates TLS, frames inbound bytes into RESP2
// commands, and drives each one through the command dispatcher.
package server

import (
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/leengari/toonstored/internal/auth"
	"github.com/leengari/toonstored/internal/dispatch"
	"github.com/leengari/toonstored/internal/resp"
	"github.com/leengari/toonstored/internal/tlsconfig"
)

// maxConcurrentConnections bounds how many connections are served at
// once; accepts past the cap are refused and logged rather than queued.
const maxConcurrentConnections = 10000

const initialReadBufferSize = 4 * 1024

// Server accepts and serves connections speaking the RESP2 protocol.
type Server struct {
	listener   net.Listener
	dispatcher *dispatch.Dispatcher
	tls        *tlsconfig.Config
	logger     *slog.Logger
	sem        chan struct{}
}

// New wraps an already-bound listener. tlsConf may be nil, equivalent to
// tlsconfig.DisabledConfig().
func New(listener net.Listener, dispatcher *dispatch.Dispatcher, tlsConf *tlsconfig.Config, logger *slog.Logger) *Server {
	if tlsConf == nil {
		tlsConf = tlsconfig.DisabledConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		listener:   listener,
		dispatcher: dispatcher,
		tls:        tlsConf,
		logger:     logger,
		sem:        make(chan struct{}, maxConcurrentConnections),
	}
}

// Serve accepts connections until the listener is closed, serving each on
// its own goroutine. It returns nil on a clean listener close.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		select {
		case s.sem <- struct{}{}:
			go func() {
				defer func() { <-s.sem }()
				s.handleConn(conn)
			}()
		default:
			s.logger.Warn("connection limit reached, refusing connection",
				"remote", conn.RemoteAddr().String(), "limit", maxConcurrentConnections)
			conn.Close()
		}
	}
}

func (s *Server) handleConn(conn net.Conn) {
	connID := uuid.NewString()
	logger := s.logger.With("conn_id", connID, "remote", conn.RemoteAddr().String())

	wrapped, err := s.tls.WrapConn(conn)
	if err != nil {
		logger.Warn("tls negotiation failed", "error", err)
		conn.Close()
		return
	}
	defer wrapped.Close()

	logger.Info("connection accepted")
	session := auth.NewSession(s.dispatcher.AuthConfigRequired())

	buf := make([]byte, 0, initialReadBufferSize)
	chunk := make([]byte, initialReadBufferSize)

	for {
		for {
			msg, consumed, perr := resp.Parse(buf)
			if perr != nil {
				if errors.Is(perr, resp.ErrNotReady) {
					break
				}
				logger.Warn("protocol error", "error", perr)
				writeReply(wrapped, resp.NewError("ERR Protocol error: "+perr.Error()))
				buf = buf[:0]
				break
			}

			buf = buf[consumed:]
			reply, quit := s.dispatcher.Dispatch(connID, *msg, session)
			if err := writeReply(wrapped, reply); err != nil {
				logger.Info("connection closed", "error", err)
				return
			}
			if quit {
				logger.Info("connection closed by QUIT")
				return
			}
		}

		n, err := wrapped.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			if err != io.EOF {
				logger.Info("connection read error", "error", err)
			} else {
				logger.Info("connection closed by peer")
			}
			return
		}
	}
}

func writeReply(w io.Writer, msg resp.Message) error {
	_, err := w.Write(resp.Serialize(msg))
	return err
}
