package httpclient

import (
	"net/http"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// AuthType names an authentication scheme. The empty type sends nothing.
type AuthType string

const (
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	// AuthAPIKey sends Key in a header, or in a query parameter when In is
	// "query".
	AuthAPIKey AuthType = "api_key"
	// AuthJWT signs a short-lived HS256 token for every request.
	AuthJWT AuthType = "jwt"
	// AuthCustom calls Apply. It cannot be configured from a file.
	AuthCustom AuthType = "custom"
)

const defaultAPIKeyName = "X-API-Key"

// AuthConfig is the client.auth section:
//
//	auth:
//	  type: api_key
//	  key: k-123
//	  in: query
//	  name: api_key
type AuthConfig struct {
	Type     AuthType `yaml:"type" mapstructure:"type" validate:"omitempty,oneof=bearer basic api_key jwt custom"`
	Token    string   `yaml:"token" mapstructure:"token" validate:"required_if=Type bearer"`
	Username string   `yaml:"username" mapstructure:"username" validate:"required_if=Type basic"`
	Password string   `yaml:"password" mapstructure:"password"`
	Key      string   `yaml:"key" mapstructure:"key" validate:"required_if=Type api_key"`
	// In is header (default) or query.
	In string `yaml:"in" mapstructure:"in" validate:"omitempty,oneof=header query"`
	// Name is the header or query parameter carrying Key. Defaults to X-API-Key.
	Name  string                `yaml:"name" mapstructure:"name"`
	JWT   *JWTConfig            `yaml:"jwt" mapstructure:"jwt" validate:"required_if=Type jwt"`
	Apply func(r *http.Request) `yaml:"-" mapstructure:"-"`
}

// JWTConfig signs request tokens with a shared secret.
type JWTConfig struct {
	Secret   string   `yaml:"secret" mapstructure:"secret" validate:"required"`
	Issuer   string   `yaml:"issuer" mapstructure:"issuer"`
	Subject  string   `yaml:"subject" mapstructure:"subject"`
	Audience []string `yaml:"audience" mapstructure:"audience"`
	// TTL is the token lifetime. Defaults to one minute.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
	// Now replaces the clock used for iat and exp.
	Now func() time.Time `yaml:"-" mapstructure:"-"`
}

func (c *JWTConfig) sign() (string, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	issued := now()
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
		Issuer:    c.Issuer,
		Subject:   c.Subject,
		Audience:  c.Audience,
		IssuedAt:  gojwt.NewNumericDate(issued),
		ExpiresAt: gojwt.NewNumericDate(issued.Add(ttl)),
	}).SignedString([]byte(c.Secret))
}

func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth sends key in the header name, or X-API-Key when name is empty.
func APIKeyAuth(key, name string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, Name: name}
}

// JWTAuth signs a fresh token for every request.
func JWTAuth(cfg JWTConfig) *AuthConfig {
	return &AuthConfig{Type: AuthJWT, JWT: &cfg}
}

func CustomAuth(fn func(*http.Request)) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

func (a *AuthConfig) apply(req *http.Request) error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		req.SetBasicAuth(a.Username, a.Password)
	case AuthAPIKey:
		name := a.Name
		if name == "" {
			name = defaultAPIKeyName
		}
		if a.In != "query" {
			req.Header.Set(name, a.Key)
			break
		}
		q := req.URL.Query()
		q.Set(name, a.Key)
		req.URL.RawQuery = q.Encode()
	case AuthJWT:
		if a.JWT == nil {
			return NewRequestError("jwt auth without signing config", nil)
		}
		token, err := a.JWT.sign()
		if err != nil {
			return NewRequestError("sign jwt", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case AuthCustom:
		if a.Apply != nil {
			a.Apply(req)
		}
	}
	return nil
}
