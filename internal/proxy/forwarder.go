// Package proxy forwards resolved tenant requests to their backend targets.
package proxy

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"
)

// Forwarding headers carrying the customer-facing hostname to the backend.
// A backend doing its own host-based tenant detection recovers the original
// host from either of these even though the TCP connection targets a
// different authority.
const (
	ForwardedHostHeader = "X-Forwarded-Host"
	OriginalHostHeader  = "X-Original-Host"
)

// HostPolicy controls the outbound Host header.
type HostPolicy string

const (
	// HostRewrite sets the outbound Host to the target's own authority.
	// Needed when the target enforces its own host allow-list. Default.
	HostRewrite HostPolicy = "rewrite"
	// HostPreserve keeps the original inbound Host. Needed when the
	// target's tenant-detection logic depends on seeing the original host.
	HostPreserve HostPolicy = "preserve"
)

// ParseHostPolicy validates a configured policy string, defaulting to
// rewrite.
func ParseHostPolicy(s string) HostPolicy {
	if HostPolicy(strings.ToLower(s)) == HostPreserve {
		return HostPreserve
	}
	return HostRewrite
}

// Forwarder relays an inbound request to a target URL and streams the
// response back.
type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, targetURL string)
}

// ReverseForwarder is the single concrete Forwarder: a streaming
// byte-for-byte relay with header injection, built on httputil.ReverseProxy.
type ReverseForwarder struct {
	policy    HostPolicy
	transport http.RoundTripper
	logger    *slog.Logger
}

// NewReverseForwarder creates a forwarder with the given Host header policy.
func NewReverseForwarder(policy HostPolicy, logger *slog.Logger) *ReverseForwarder {
	if logger == nil {
		logger = slog.Default()
	}

	// Certificate validation stays on for https targets; http targets are
	// never upgraded to TLS.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	return &ReverseForwarder{
		policy:    policy,
		transport: transport,
		logger:    logger,
	}
}

// Forward relays r to targetURL. The target's scheme and authority replace
// the connection target; its path, if any, prefixes the inbound path. The
// response is streamed without full buffering. Network failures answer the
// original caller with 502 and are never retried here; retry policy belongs
// to the caller.
func (f *ReverseForwarder) Forward(w http.ResponseWriter, r *http.Request, targetURL string) {
	target, err := url.Parse(targetURL)
	if err != nil || target.Host == "" {
		f.logger.Error("invalid forwarding target", "target", targetURL, "error", err)
		http.Error(w, "bad gateway: invalid upstream target", http.StatusBadGateway)
		return
	}

	originalHost := r.Host

	rp := httputil.NewSingleHostReverseProxy(target)
	rp.Transport = f.transport
	rp.FlushInterval = -1 // stream chunked and long-lived responses

	director := rp.Director
	rp.Director = func(req *http.Request) {
		director(req)

		req.Header.Set(ForwardedHostHeader, originalHost)
		req.Header.Set(OriginalHostHeader, originalHost)

		switch f.policy {
		case HostPreserve:
			req.Host = originalHost
		default:
			req.Host = target.Host
		}
	}

	rp.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		f.logger.Error("upstream request failed",
			"host", originalHost,
			"target", target.Host,
			"error", err,
		)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway: upstream unreachable\n"))
	}

	rp.ServeHTTP(w, r)
}
