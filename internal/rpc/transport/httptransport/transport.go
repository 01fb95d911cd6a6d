// Package httptransport delivers invocation envelopes to the backend as JSON
// over HTTP/2 (HTTP/1.1 for plain-text endpoints).
package httptransport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/net/http2"

	"attendance/internal/rpc/models"
	dErrors "attendance/pkg/domain-errors"
)

const (
	correlationHeader = "X-Correlation-ID"
	maxReplyBytes     = 1 << 20
	tokenTTL          = time.Minute
)

// Transport posts envelopes to a single endpoint.
type Transport struct {
	endpoint   string
	client     *http.Client
	signingKey []byte
	issuer     string
	now        func() time.Time
}

type Option func(*Transport)

// WithHTTPClient overrides the default HTTP/2 capable client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		t.client = client
	}
}

// WithSigningKey attaches a short-lived HS256 bearer token to every request.
func WithSigningKey(key []byte, issuer string) Option {
	return func(t *Transport) {
		t.signingKey = key
		t.issuer = issuer
	}
}

func WithNow(now func() time.Time) Option {
	return func(t *Transport) {
		t.now = now
	}
}

// New creates a transport. An empty endpoint is accepted here and reported as
// ConfigurationMissing on the first delivery, so the process still starts.
func New(endpoint string, opts ...Option) (*Transport, error) {
	t := &Transport{
		endpoint: endpoint,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		client, err := BuildHTTP2Client()
		if err != nil {
			return nil, err
		}
		t.client = client
	}
	return t, nil
}

// BuildHTTP2Client returns a client that negotiates h2 over TLS 1.2+.
func BuildHTTP2Client() (*http.Client, error) {
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if _, err := http2.ConfigureTransports(base); err != nil {
		return nil, fmt.Errorf("configure http2 transport: %w", err)
	}
	return &http.Client{Transport: base}, nil
}

// Deliver posts env and decodes the reply. Non-2xx statuses and undecodable
// bodies are transport failures; the client classifies them as transient.
func (t *Transport) Deliver(ctx context.Context, env models.Envelope) (*models.Result, error) {
	if t.endpoint == "" {
		return nil, dErrors.New(dErrors.CodeConfigMissing, "remote endpoint is not configured")
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfigMissing, "invalid remote endpoint")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(correlationHeader, env.CorrelationID)

	if len(t.signingKey) > 0 {
		token, err := t.sign(env)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", env.FunctionName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxReplyBytes))
		return nil, fmt.Errorf("post %s: unexpected status %d", env.FunctionName, resp.StatusCode)
	}

	var result models.Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode %s reply: %w", env.FunctionName, err)
	}
	return &result, nil
}

func (t *Transport) sign(env models.Envelope) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   env.FunctionName,
		ID:        env.CorrelationID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	return token, nil
}
