// Package edge is the single HTTP entry point: it classifies every inbound
// request by host and routes it to the control plane, a tenant backend, or
// the fallback surface.
package edge

import (
	"log/slog"
	"net/http"

	"github.com/magnusfroste/domainproxy/internal/events"
	"github.com/magnusfroste/domainproxy/internal/proxy"
	"github.com/magnusfroste/domainproxy/internal/resolver"
)

// Handler routes requests by host header. Exactly one of three paths
// handles each request:
//
//   - control: hosts with no subdomain component or a reserved label
//   - dispatch: hosts whose (label, base domain) pair is registered
//   - fallback: tenant-shaped hosts with no registration, and hosts whose
//     registry lookup failed
type Handler struct {
	resolver  *resolver.Resolver
	forwarder proxy.Forwarder
	control   http.Handler
	fallback  http.Handler
	events    *events.Broker
	logger    *slog.Logger
}

// New creates the edge handler. control receives non-tenant traffic (the
// management API lives there); fallback answers unmatched tenant-shaped
// hosts and may be nil, in which case a built-in informational page is
// served.
func New(res *resolver.Resolver, fwd proxy.Forwarder, control, fallback http.Handler, broker *events.Broker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if fallback == nil {
		fallback = http.HandlerFunc(defaultFallback)
	}
	return &Handler{
		resolver:  res,
		forwarder: fwd,
		control:   control,
		fallback:  fallback,
		events:    broker,
		logger:    logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolver.Resolve(r.Context(), r.Host)

	switch {
	case err != nil:
		// The registry is unreachable. The host may well be registered,
		// but without a target there is nothing to forward to; degrade to
		// the fallback surface instead of surfacing a 5xx.
		h.publish(events.KindResolve, r.Host, "error", err.Error())
		h.fallback.ServeHTTP(w, r)

	case res.Matched():
		h.publish(events.KindDispatch, r.Host, "forward", res.Mapping.TargetURL)
		h.logger.Debug("dispatching tenant request",
			"host", r.Host,
			"target", res.Mapping.TargetURL,
		)
		h.forwarder.Forward(w, r, res.Mapping.TargetURL)

	case res.TenantShaped:
		h.publish(events.KindResolve, r.Host, "miss", "")
		h.fallback.ServeHTTP(w, r)

	default:
		h.control.ServeHTTP(w, r)
	}
}

func (h *Handler) publish(kind, host, outcome, detail string) {
	if h.events == nil {
		return
	}
	h.events.Publish(&events.Event{
		Kind:    kind,
		Host:    host,
		Outcome: outcome,
		Detail:  detail,
	})
}

// defaultFallback answers unmatched tenant-shaped hosts with a successful
// informational page rather than an error status, since the visitor's DNS
// genuinely points here.
func defaultFallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("This domain points at the platform but is not configured yet.\n"))
}
