package fingerprint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultIPLookupURL     = "https://api.ipify.org?format=json"
	defaultIPLookupTimeout = 3 * time.Second
)

// IPSource returns the device's public IP address, or "unknown".
type IPSource interface {
	LookupIP(ctx context.Context) string
}

// IPLookup queries an ipify-compatible endpoint.
type IPLookup struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
	Logger  *slog.Logger
}

func (l IPLookup) LookupIP(ctx context.Context) string {
	ip, err := l.lookup(ctx)
	if err != nil {
		logger := l.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.DebugContext(ctx, "ip lookup failed", "error", err)
		return unknownIP
	}
	return ip
}

func (l IPLookup) lookup(ctx context.Context) (string, error) {
	url := l.URL
	if url == "" {
		url = DefaultIPLookupURL
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = defaultIPLookupTimeout
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup: status %d", resp.StatusCode)
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("ip lookup: %w", err)
	}
	if body.IP == "" {
		return "", fmt.Errorf("ip lookup: empty address")
	}
	return body.IP, nil
}

// StaticIP always reports the same address.
type StaticIP string

func (s StaticIP) LookupIP(context.Context) string {
	if s == "" {
		return unknownIP
	}
	return string(s)
}
