package tlsconfig

import (
	"bufio"
	"crypto/tls"
	"net"
)

// tlsHandshakeByte is the first byte of a TLS record carrying a
// ClientHello (record type 0x16, "handshake").
const tlsHandshakeByte = 0x16

// peekConn replays a single already-read byte ahead of further reads from
// the underlying connection, letting Prefer mode inspect the first byte
// without consuming it from whichever protocol actually owns the stream.
type peekConn struct {
	net.Conn
	r *bufio.Reader
}

func (p *peekConn) Read(b []byte) (int, error) { return p.r.Read(b) }

// WrapConn inspects conn per c's mode and returns the connection the
// per-connection session loop should read from: the raw conn for
// plaintext, or a *tls.Conn whose handshake has already completed for
// TLS. The handshake runs here, before the per-connection read loop
// begins; a failed handshake is returned as an error.
func (c *Config) WrapConn(conn net.Conn) (net.Conn, error) {
	if c == nil || c.Mode == Disabled {
		return conn, nil
	}

	if c.Mode == Require {
		tc := tls.Server(conn, c.ServerConf)
		if err := tc.Handshake(); err != nil {
			return nil, err
		}
		return tc, nil
	}

	// Prefer: peek the first byte to distinguish a TLS ClientHello from
	// plaintext before deciding whether to wrap.
	br := bufio.NewReader(conn)
	first, err := br.Peek(1)
	if err != nil {
		return nil, err
	}

	wrapped := &peekConn{Conn: conn, r: br}
	if first[0] == tlsHandshakeByte {
		tc := tls.Server(wrapped, c.ServerConf)
		if err := tc.Handshake(); err != nil {
			return nil, err
		}
		return tc, nil
	}
	return wrapped, nil
}
