package terminator

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDropCertificate(t *testing.T) {
	var gotMethod, gotDomain string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotDomain = r.URL.Query().Get("domain")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, slog.Default())
	c.DropCertificate(context.Background(), "app.acme.com")

	if gotMethod != http.MethodDelete {
		t.Errorf("method = %q, want DELETE", gotMethod)
	}
	if gotDomain != "app.acme.com" {
		t.Errorf("domain = %q, want app.acme.com", gotDomain)
	}
}

func TestDropCertificateSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Server error, then unreachable endpoint; neither may panic or error.
	c := NewClient(srv.URL, slog.Default())
	c.DropCertificate(context.Background(), "app.acme.com")

	c = NewClient("http://127.0.0.1:1", slog.Default())
	c.DropCertificate(context.Background(), "app.acme.com")
}

func TestDisabledClientIsNoOp(t *testing.T) {
	c := NewClient("", slog.Default())
	if c.Enabled() {
		t.Error("empty base URL should disable the client")
	}
	c.DropCertificate(context.Background(), "app.acme.com")
}
