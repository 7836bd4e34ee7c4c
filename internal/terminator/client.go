// Package terminator notifies the TLS terminator about domains whose
// certificates should be discarded.
package terminator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the terminator's management endpoint. All calls are
// best-effort: certificate cleanup is advisory, an unreachable terminator
// simply keeps its certificate until natural expiry.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a terminator client. baseURL may be empty, in which
// case every call is a no-op.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

// Enabled reports whether a terminator endpoint is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// DropCertificate asks the terminator to discard its certificate for the
// given hostname. Failures are logged and swallowed.
func (c *Client) DropCertificate(ctx context.Context, host string) {
	if !c.Enabled() {
		return
	}

	endpoint := fmt.Sprintf("%s/certs?domain=%s", c.baseURL, url.QueryEscape(host))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		c.logger.Warn("building terminator request failed", "host", host, "error", err)
		return
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("terminator notification failed", "host", host, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.logger.Warn("terminator rejected certificate drop",
			"host", host,
			"status", resp.StatusCode,
		)
		return
	}

	c.logger.Info("certificate drop requested", "host", host)
}
