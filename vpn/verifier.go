package vpn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trustgateway/logger"
)

// DefaultTimeout bounds the remote status query.
const DefaultTimeout = 2 * time.Second

// PortHeader carries the client's local VPN port, when the client knows it.
const PortHeader = "X-VPN-Port"

// Config configures a Verifier.
type Config struct {
	Range string
	// APIURL is the base URL of the status service (GET /api/vpn/check-status).
	// Empty disables the remote check.
	APIURL      string
	Timeout     time.Duration
	Development bool
	HTTPClient  *http.Client
}

// Verifier classifies a client IP as on or off the private network.
type Verifier struct {
	rng         Range
	apiURL      string
	timeout     time.Duration
	development bool
	client      *http.Client
}

// NewVerifier validates cfg and builds a Verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Range == "" {
		cfg.Range = DefaultRange
	}
	rng, err := ParseRange(cfg.Range)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Verifier{
		rng:         rng,
		apiURL:      strings.TrimRight(cfg.APIURL, "/"),
		timeout:     cfg.Timeout,
		development: cfg.Development,
		client:      client,
	}, nil
}

// Range returns the configured tunnel subnet.
func (v *Verifier) Range() Range { return v.rng }

// InRange is the fast path: CIDR containment, plus the loopback escape in development.
func (v *Verifier) InRange(ip string) bool {
	if isLoopbackOrUnknown(ip) {
		return v.development
	}
	return v.rng.Contains(ip)
}

// IsConnected reports whether the request's client is on the VPN. Any
// failure of the remote check counts as not connected.
func (v *Verifier) IsConnected(ctx context.Context, r *http.Request, strict bool) bool {
	ip := ClientIP(r)
	if v.InRange(ip) {
		return true
	}
	active, err := v.CheckRemote(ctx, ip, strings.TrimSpace(r.Header.Get(PortHeader)), strict)
	if err != nil {
		level := logger.ERROR
		if errors.Is(err, context.DeadlineExceeded) {
			level = logger.WARN
		}
		logger.WithFields(map[string]interface{}{
			"ip":     ip,
			"strict": strict,
			"error":  err.Error(),
		}).Log(level, "VPN status check failed")
		return false
	}
	return active
}

type remoteStatus struct {
	IsActive bool `json:"isActive"`
}

// CheckRemote queries the status service. The call is bounded by the
// configured timeout even when ctx has no deadline.
func (v *Verifier) CheckRemote(ctx context.Context, ip, port string, strict bool) (bool, error) {
	if v.apiURL == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("realIp", ip)
	if port != "" {
		q.Set("vpnPort", port)
	}
	if strict {
		q.Set("strict", "true")
	}
	endpoint := v.apiURL + "/api/vpn/check-status?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build vpn status request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")
	if port != "" {
		req.Header.Set(PortHeader, port)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("vpn status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("vpn status request: unexpected status %d", resp.StatusCode)
	}

	var status remoteStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&status); err != nil {
		return false, fmt.Errorf("decode vpn status: %w", err)
	}
	return status.IsActive, nil
}
