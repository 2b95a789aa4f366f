package tls

import (
	"crypto/tls"
	"fmt"

	"admin-service/internal/util"
)

type TLSConfig struct {
	EnableTLS   bool
	CertFile    string
	KeyFile     string
	CertDir     string
	Environment string
}

// TLSManager resolves the server certificate: configured files when present,
// otherwise a generated self-signed certificate for development.
type TLSManager struct {
	config *TLSConfig
}

func NewTLSManager(config *TLSConfig) *TLSManager {
	return &TLSManager{config: config}
}

// GetTLSConfig builds the tls.Config for the HTTP server.
func (m *TLSManager) GetTLSConfig() (*tls.Config, error) {
	if !m.config.EnableTLS {
		return nil, nil
	}

	var cert tls.Certificate
	var err error

	if m.config.CertFile != "" && m.config.KeyFile != "" {
		cert, err = tls.LoadX509KeyPair(m.config.CertFile, m.config.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate: %w", err)
		}
		util.Info("Loaded TLS certificate",
			util.String("cert_file", m.config.CertFile))
	} else {
		if m.config.Environment == "production" {
			return nil, fmt.Errorf("TLS enabled in production without certificate files")
		}
		cert, err = NewDevCertGenerator(m.config.CertDir).GenerateCert([]string{"localhost", "127.0.0.1"})
		if err != nil {
			return nil, fmt.Errorf("failed to generate dev certificate: %w", err)
		}
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
