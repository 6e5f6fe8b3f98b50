package native

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"speedrun-api/internal/infra/config"
)

// buildTLSConfig creates the TLS context owned by a Transport. It is built
// once per Transport and shared by every request and upgrade it performs.
func buildTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	tc := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for local test servers
	}

	switch cfg.MinVersion {
	case "", "1.2":
	case "1.3":
		tc.MinVersion = tls.VersionTLS13
	default:
		return nil, fmt.Errorf("unsupported tls min version %q", cfg.MinVersion)
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca file %s contains no certificates", cfg.CAFile)
		}
		tc.RootCAs = pool
	}

	return tc, nil
}
