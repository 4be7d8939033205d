// Package tlsconfig wraps each connection the server accepts according
// to one of three TLS modes; the handshake completes before the
// per-connection read loop begins.
package tlsconfig

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// Mode selects how the server treats TLS on inbound connections.
type Mode int

const (
	// Disabled serves plain TCP only.
	Disabled Mode = iota
	// Prefer accepts either a TLS handshake or plaintext on the same port.
	Prefer
	// Require rejects any connection that does not begin a TLS handshake.
	Require
)

// ParseMode parses the CLI's --tls-mode value.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "disable", "disabled":
		return Disabled, nil
	case "prefer", "optional":
		return Prefer, nil
	case "require", "required":
		return Require, nil
	default:
		return Disabled, fmt.Errorf("invalid TLS mode %q: use disable, prefer, or require", s)
	}
}

// Config carries the resolved TLS mode and, when TLS is enabled, the
// server certificate configuration built from the loaded cert/key pair.
type Config struct {
	Mode       Mode
	ServerConf *tls.Config
}

// DisabledConfig returns a Config with TLS turned off.
func DisabledConfig() *Config {
	return &Config{Mode: Disabled}
}

// Load reads a PEM certificate chain and PKCS#8 private key and builds a
// server TLS configuration for the given mode. It returns a disabled
// Config unmodified if mode is Disabled.
func Load(certPath, keyPath string, mode Mode) (*Config, error) {
	if mode == Disabled {
		return DisabledConfig(), nil
	}

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load TLS certificate/key: %w", err)
	}

	return &Config{
		Mode: mode,
		ServerConf: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
	}, nil
}

// Enabled reports whether c serves any TLS traffic.
func (c *Config) Enabled() bool {
	return c != nil && c.Mode != Disabled
}

// Required reports whether c rejects plaintext connections.
func (c *Config) Required() bool {
	return c != nil && c.Mode == Require
}
