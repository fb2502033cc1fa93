package security

import (
	"crypto/tls"
	"testing"

	goerrors "github.com/kbukum/crudkit/errors"
	"github.com/kbukum/crudkit/security/tlstest"
)

func TestTLSConfig_BuildDisabled(t *testing.T) {
	for name, cfg := range map[string]*TLSConfig{"nil": nil, "zero": {}} {
		t.Run(name, func(t *testing.T) {
			got, err := cfg.Build()
			if err != nil || got != nil {
				t.Fatalf("Build() = %v, %v; want nil, nil", got, err)
			}
		})
	}
}

func TestTLSConfig_Build(t *testing.T) {
	certs := tlstest.Generate(t)

	tests := []struct {
		name  string
		cfg   TLSConfig
		check func(t *testing.T, c *tls.Config)
	}{
		{
			name: "skip verify defaults to TLS 1.2",
			cfg:  TLSConfig{SkipVerify: true},
			check: func(t *testing.T, c *tls.Config) {
				if !c.InsecureSkipVerify || c.MinVersion != tls.VersionTLS12 {
					t.Errorf("got skip=%v min=%x", c.InsecureSkipVerify, c.MinVersion)
				}
			},
		},
		{
			name: "min version only",
			cfg:  TLSConfig{MinVersion: "1.3"},
			check: func(t *testing.T, c *tls.Config) {
				if c.MinVersion != tls.VersionTLS13 {
					t.Errorf("expected TLS 1.3, got %x", c.MinVersion)
				}
			},
		},
		{
			name: "CA bundle",
			cfg:  TLSConfig{CAFile: certs.CAFile, ServerName: "localhost"},
			check: func(t *testing.T, c *tls.Config) {
				if c.RootCAs == nil || c.ServerName != "localhost" {
					t.Errorf("expected roots and server name, got %+v", c)
				}
			},
		},
		{
			name: "client certificate",
			cfg:  TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile},
			check: func(t *testing.T, c *tls.Config) {
				if len(c.Certificates) != 1 {
					t.Errorf("expected one client certificate, got %d", len(c.Certificates))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Build()
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestTLSConfig_BuildErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  TLSConfig
		code goerrors.ErrorCode
	}{
		{"missing CA file", TLSConfig{CAFile: "/nonexistent/ca.pem"}, goerrors.ErrCodeInvalidInput},
		{"garbage CA file", TLSConfig{CAFile: tlstest.InvalidPEM(t)}, goerrors.ErrCodeInvalidFormat},
		{"missing key pair", TLSConfig{CertFile: "/nonexistent/c.pem", KeyFile: "/nonexistent/k.pem"}, goerrors.ErrCodeInvalidInput},
		{"unpaired cert", TLSConfig{CertFile: "c.pem"}, goerrors.ErrCodeInvalidInput},
		{"unknown version", TLSConfig{MinVersion: "1.0"}, goerrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Build()
			appErr, ok := goerrors.AsAppError(err)
			if !ok {
				t.Fatalf("expected an AppError, got %v", err)
			}
			if appErr.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, appErr.Code)
			}
		})
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	var nilCfg *TLSConfig
	if err := nilCfg.Validate(); err != nil {
		t.Errorf("nil config: %v", err)
	}
	if err := (&TLSConfig{CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.2"}).Validate(); err != nil {
		t.Errorf("paired config: %v", err)
	}
	if err := (&TLSConfig{KeyFile: "k.pem"}).Validate(); err == nil {
		t.Error("expected an error for a key without a certificate")
	}
}

func TestTLSConfig_IsEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  *TLSConfig
		want bool
	}{
		{"nil", nil, false},
		{"zero", &TLSConfig{}, false},
		{"skip_verify", &TLSConfig{SkipVerify: true}, true},
		{"ca_file", &TLSConfig{CAFile: "ca.pem"}, true},
		{"server_name", &TLSConfig{ServerName: "example.com"}, true},
		{"min_version", &TLSConfig{MinVersion: "1.3"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsEnabled(); got != tt.want {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
