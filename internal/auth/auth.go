// Package auth provides vendor credentials for the Alpaca and Polygon APIs.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Alpaca header names.
const (
	HeaderKeyID     = "APCA-API-KEY-ID"
	HeaderSecretKey = "APCA-API-SECRET-KEY"
)

// Environment variables read by FromEnv.
const (
	EnvKeyID     = "APCA_API_KEY_ID"
	EnvSecretKey = "APCA_API_SECRET_KEY"
	EnvPolygon   = "POLYGON_API_KEY"
)

// ErrMissingCredentials is returned when a required key is empty.
var ErrMissingCredentials = errors.New("missing credentials")

// Credentials holds an Alpaca key pair.
type Credentials struct {
	KeyID     string // API key ID from the Alpaca dashboard
	SecretKey string // API secret key
}

// LoadCredentials builds Credentials from a key ID and a secret file path.
// The file content is trimmed of surrounding whitespace.
func LoadCredentials(keyID, secretPath string) (*Credentials, error) {
	if keyID == "" {
		return nil, fmt.Errorf("%w: API key ID is required", ErrMissingCredentials)
	}
	if secretPath == "" {
		return nil, fmt.Errorf("%w: secret key path is required", ErrMissingCredentials)
	}

	secret, err := LoadSecret(secretPath)
	if err != nil {
		return nil, fmt.Errorf("load secret key: %w", err)
	}

	return &Credentials{
		KeyID:     keyID,
		SecretKey: secret,
	}, nil
}

// NewCredentials validates and returns an Alpaca key pair.
func NewCredentials(keyID, secretKey string) (*Credentials, error) {
	c := &Credentials{KeyID: keyID, SecretKey: secretKey}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromEnv reads the key pair from APCA_API_KEY_ID and APCA_API_SECRET_KEY.
func FromEnv() (*Credentials, error) {
	return NewCredentials(os.Getenv(EnvKeyID), os.Getenv(EnvSecretKey))
}

// LoadSecret reads a secret from a file, such as a mounted container secret.
func LoadSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("%w: secret file %s is empty", ErrMissingCredentials, path)
	}
	return secret, nil
}

// Validate checks both keys are set.
func (c *Credentials) Validate() error {
	if c.KeyID == "" {
		return fmt.Errorf("%w: API key ID is required", ErrMissingCredentials)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("%w: secret key is required", ErrMissingCredentials)
	}
	return nil
}

// Headers returns the REST authentication headers.
func (c *Credentials) Headers() map[string]string {
	return map[string]string{
		HeaderKeyID:     c.KeyID,
		HeaderSecretKey: c.SecretKey,
	}
}

// Apply sets the authentication headers on h.
func (c *Credentials) Apply(h http.Header) {
	for k, v := range c.Headers() {
		h.Set(k, v)
	}
}

// String masks the secret so credentials are safe to log.
func (c *Credentials) String() string {
	return fmt.Sprintf("Credentials{KeyID: %s, SecretKey: %s}", c.KeyID, Redact(c.SecretKey))
}

// APIKey is a Polygon API key.
type APIKey string

// PolygonKeyFromEnv reads POLYGON_API_KEY.
func PolygonKeyFromEnv() (APIKey, error) {
	k := APIKey(os.Getenv(EnvPolygon))
	if k == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingCredentials, EnvPolygon)
	}
	return k, nil
}

// String masks the key.
func (k APIKey) String() string {
	return Redact(string(k))
}

// Redact keeps the last four characters of a secret.
func Redact(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
