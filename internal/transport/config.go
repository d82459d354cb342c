package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

var (
	ErrURLRequired         = errors.New("transport: url required")
	ErrUnsupportedScheme   = errors.New("transport: unsupported url scheme")
	ErrTLSCAFileRequired   = errors.New("transport: tls ca file required")
	ErrTLSInsecureConflict = errors.New("transport: insecure skip verify conflicts with ca file")
)

const DefaultURL = "wss://localhost:6868"

// TLSConfig controls server certificate verification. The Cortex service
// presents a self-signed certificate, so verification is off by default.
type TLSConfig struct {
	InsecureSkipVerify bool
	CAFile             string
	ServerName         string
}

// Config defines the channel dial settings.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	TLS              TLSConfig
}

func DefaultConfig() Config {
	return Config{
		URL:              DefaultURL,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		TLS:              TLSConfig{InsecureSkipVerify: true},
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.URL) == "" {
		c.URL = def.URL
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}

// Validate checks the URL and TLS settings before dialing.
func (c Config) Validate() error {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return ErrURLRequired
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("transport: parse url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "ws":
		return nil
	case "wss":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	ca := strings.TrimSpace(c.TLS.CAFile)
	if c.TLS.InsecureSkipVerify && ca != "" {
		return ErrTLSInsecureConflict
	}
	if !c.TLS.InsecureSkipVerify && ca == "" {
		return ErrTLSCAFileRequired
	}
	return nil
}

func (c Config) clientTLSConfig() (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.TLS.InsecureSkipVerify,
		ServerName:         strings.TrimSpace(c.TLS.ServerName),
	}
	if caPath := strings.TrimSpace(c.TLS.CAFile); caPath != "" {
		caPEM, err := os.ReadFile(caPath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(caPEM); !ok {
			return nil, fmt.Errorf("transport: parse tls ca bundle: %s", caPath)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
