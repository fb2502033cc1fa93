package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"slices"
	"strings"

	goerrors "github.com/kbukum/crudkit/errors"
)

// TLS versions accepted by TLSConfig.MinVersion.
var tlsVersions = map[string]uint16{
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// TLSConfig is the client side of an HTTPS connection to a CRUD endpoint.
type TLSConfig struct {
	// SkipVerify disables server certificate verification. Test setups only.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// CAFile is a PEM bundle that replaces the system roots.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// CertFile and KeyFile hold the client certificate for mutual TLS.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// ServerName overrides the name checked against the server certificate.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// MinVersion is "1.2" or "1.3". Empty means 1.2.
	MinVersion string `yaml:"min_version" mapstructure:"min_version"`
}

// Build turns the settings into a *tls.Config. A nil or empty TLSConfig
// yields nil so callers keep the transport default.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // opt-in for test endpoints
		ServerName:         c.ServerName,
		MinVersion:         c.minVersion(),
	}
	if c.CAFile != "" {
		pool, err := readCertPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, goerrors.InvalidInput("tls.cert_file", "cannot load client certificate").WithCause(err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// Validate reports settings that can never produce a working connection.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return goerrors.Validation("tls: cert_file and key_file must be set together")
	}
	if c.MinVersion != "" {
		if _, ok := tlsVersions[c.MinVersion]; !ok {
			return goerrors.InvalidInput("tls.min_version",
				fmt.Sprintf("unsupported TLS version %q, expected one of %s", c.MinVersion, strings.Join(supportedVersions(), ", ")))
		}
	}
	return nil
}

// IsEnabled reports whether any setting differs from the zero value.
func (c *TLSConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return *c != TLSConfig{}
}

func (c *TLSConfig) minVersion() uint16 {
	if v, ok := tlsVersions[c.MinVersion]; ok {
		return v
	}
	return tls.VersionTLS12
}

func readCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, goerrors.InvalidInput("tls.ca_file", "cannot read CA bundle").WithCause(err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, goerrors.InvalidFormat("tls.ca_file", "PEM encoded certificates")
	}
	return pool, nil
}

func supportedVersions() []string {
	out := make([]string, 0, len(tlsVersions))
	for v := range tlsVersions {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
