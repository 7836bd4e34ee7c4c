package handlers

import (
	"log/slog"
	"net/http"

	"github.com/magnusfroste/domainproxy/internal/events"
	"github.com/magnusfroste/domainproxy/internal/models"
	"github.com/magnusfroste/domainproxy/internal/resolver"
)

// AskHandler answers the TLS terminator's certificate authorization checks.
// The terminator calls GET /ask?domain=H before requesting a certificate
// for H; 200 authorizes issuance, any other status denies it.
type AskHandler struct {
	resolver *resolver.Resolver
	events   *events.Broker
	logger   *slog.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(res *resolver.Resolver, broker *events.Broker, logger *slog.Logger) *AskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskHandler{
		resolver: res,
		events:   broker,
		logger:   logger,
	}
}

// Ask handles GET /ask. The endpoint fails closed: a registry failure
// denies issuance rather than erroring, since a 5xx could be interpreted
// as transient and retried into a rate limit at the CA.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		h.deny(w, domain, "missing domain parameter")
		return
	}

	// Lookup rather than Resolve: reserved labels are a routing concern,
	// and a mapping registered before its label became reserved still
	// needs its certificate renewed.
	mapping, err := h.resolver.Lookup(r.Context(), domain)
	if err != nil {
		// Fail closed: unknown registry state never authorizes a
		// certificate.
		h.deny(w, domain, "registry unavailable")
		return
	}
	if mapping == nil {
		h.deny(w, domain, "no mapping")
		return
	}

	// First successful ask means DNS and routing are verifiably working;
	// record that on the mapping. Advisory only, so failures are logged
	// and ignored.
	if mapping.Status == models.StatusPending {
		if err := h.resolver.MarkVerified(r.Context(), mapping.ID); err != nil {
			h.logger.Warn("failed to record mapping verification",
				"domain", domain,
				"mapping_id", mapping.ID,
				"error", err,
			)
		}
	}

	h.publish(domain, "allow", "")
	h.logger.Info("certificate issuance authorized", "domain", domain)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("domain authorized"))
}

func (h *AskHandler) deny(w http.ResponseWriter, domain, reason string) {
	h.publish(domain, "deny", reason)
	h.logger.Info("certificate issuance denied", "domain", domain, "reason", reason)
	http.Error(w, "domain not authorized", http.StatusNotFound)
}

func (h *AskHandler) publish(domain, outcome, detail string) {
	if h.events == nil {
		return
	}
	h.events.Publish(&events.Event{
		Kind:    events.KindAsk,
		Host:    domain,
		Outcome: outcome,
		Detail:  detail,
	})
}
