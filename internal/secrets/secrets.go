// Package secrets resolves database credentials at process start.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
)

// Credentials are the database connection details stored in the secret.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"dbname"`
}

// Provider fetches credentials once at startup.
type Provider interface {
	Fetch(ctx context.Context) (*Credentials, error)
}

// WithDefaultPort fills in the port when the secret did not carry one.
func (c Credentials) WithDefaultPort(port int) Credentials {
	if c.Port == 0 {
		c.Port = port
	}
	return c
}

func decode(raw string) (*Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("failed to decode secret: %w", err)
	}
	if creds.Host == "" || creds.Username == "" {
		return nil, fmt.Errorf("secret is missing host or username")
	}
	return &creds, nil
}

// StaticProvider returns fixed credentials, typically read from the
// environment for local development.
type StaticProvider struct {
	Credentials Credentials
}

func (p StaticProvider) Fetch(context.Context) (*Credentials, error) {
	creds := p.Credentials
	return &creds, nil
}
