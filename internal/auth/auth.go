// Package auth handles the opaque credential passed to the server at
// connect time and its encoding into the connection target.
package auth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Client types accepted by the server's /ws/{client_type}/{client_id} route.
const (
	ClientAdmin   = "admin"
	ClientStudent = "student"
	ClientProctor = "proctor"
)

// TokenParam is the query parameter that carries the credential.
const TokenParam = "token"

// ErrNoToken is returned when neither a token nor a token file is set.
var ErrNoToken = errors.New("no token configured")

// Credentials identify this client to the server.
type Credentials struct {
	ClientType string // "admin", "student" or "proctor"
	ClientID   string // unique per connected client
	Token      string // opaque bearer token, never inspected here
}

// LoadToken returns token if set, otherwise the trimmed contents of tokenFile.
func LoadToken(token, tokenFile string) (string, error) {
	if token != "" {
		return token, nil
	}
	if tokenFile == "" {
		return "", ErrNoToken
	}

	data, err := os.ReadFile(tokenFile)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}

	token = strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", tokenFile)
	}
	return token, nil
}

// ValidClientType reports whether t is one of the known client types.
func ValidClientType(t string) bool {
	switch t {
	case ClientAdmin, ClientStudent, ClientProctor:
		return true
	}
	return false
}

// BuildTarget encodes the credentials into the connection URL:
//
//	{baseURL}/{client_type}/{client_id}?token=<token>
//
// Empty client type or id leave the path untouched; an empty token adds no
// query parameter. Existing query parameters on baseURL are kept.
func BuildTarget(baseURL string, creds Credentials) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("base url scheme must be ws or wss, got %q", u.Scheme)
	}

	if creds.ClientType != "" && creds.ClientID != "" {
		u = u.JoinPath(creds.ClientType, creds.ClientID)
	}

	if creds.Token != "" {
		q := u.Query()
		q.Set(TokenParam, creds.Token)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Redact returns target with the token value masked, for logging.
func Redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	if q.Has(TokenParam) {
		q.Set(TokenParam, "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
