package gateway

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"
)

// ErrNoCertificate is returned when the pinned certificate file holds no
// PEM certificate.
var ErrNoCertificate = errors.New("no PEM certificate found")

// LoadRootCertificate reads the pinned root certificate at path into a pool
// containing only that certificate.
func LoadRootCertificate(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, fmt.Errorf("root certificate path required")
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read root certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse root certificate %s: %w", path, ErrNoCertificate)
	}
	return pool, nil
}

// NewTLSConfig returns the client TLS configuration trusting only pool.
// The socket dialer and the HTTP client share it.
func NewTLSConfig(pool *x509.CertPool) *tls.Config {
	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
}

// NewPinnedClient builds the HTTP client used for every gateway call. It
// speaks HTTP/2 when the server offers it and HTTP/1.1 otherwise.
func NewPinnedClient(tlsConfig *tls.Config) (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       tlsConfig.Clone(),
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to enable HTTP/2: %w", err)
	}
	return &http.Client{Transport: transport}, nil
}
