package engine

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ConnConfig holds connection settings shared by all backends.
type ConnConfig struct {
	Hosts    []string
	Username string
	Password string
	// RequestTimeout bounds every engine call. Zero disables the bound.
	RequestTimeout time.Duration
	CAFile         string
	// InsecureSkipVerify disables certificate verification (reject_unauthorized: false).
	InsecureSkipVerify bool
	// Refresh is passed to write calls: "", "true", "false" or "wait_for".
	Refresh string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// HTTPTransport builds the transport for cfg: the override if set, otherwise a
// clone of the default transport with the configured TLS settings.
func (cfg ConnConfig) HTTPTransport() (http.RoundTripper, error) {
	if cfg.Transport != nil {
		return cfg.Transport, nil
	}
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport, nil
	}
	t := base.Clone()
	if cfg.CAFile == "" && !cfg.InsecureSkipVerify {
		return t, nil
	}

	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in via reject_unauthorized: false
	}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(filepath.Clean(cfg.CAFile))
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca file %s: no certificates found", cfg.CAFile)
		}
		tlsCfg.RootCAs = pool
	}
	t.TLSClientConfig = tlsCfg
	return t, nil
}

// WithTimeout applies the request timeout to ctx.
func (cfg ConnConfig) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if cfg.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, cfg.RequestTimeout)
}
