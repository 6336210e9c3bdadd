package tlsutil

import (
	"crypto/tls"
	"net"
)

// DefaultTLSConfig returns a hardened TLS configuration.
// MinVersion TLS 1.2, AEAD-only cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// ForAddr returns the hardened configuration with ServerName set from a
// host:port address. Addresses without a port are used as-is.
func ForAddr(addr string) *tls.Config {
	cfg := DefaultTLSConfig()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	cfg.ServerName = host
	return cfg
}

// Harden applies the minimum version and cipher suites to an existing
// configuration, e.g. one produced by redis.ParseURL for rediss:// URLs.
// A nil input yields DefaultTLSConfig.
func Harden(cfg *tls.Config) *tls.Config {
	if cfg == nil {
		return DefaultTLSConfig()
	}
	out := cfg.Clone()
	def := DefaultTLSConfig()
	if out.MinVersion < def.MinVersion {
		out.MinVersion = def.MinVersion
	}
	out.CipherSuites = def.CipherSuites
	return out
}
