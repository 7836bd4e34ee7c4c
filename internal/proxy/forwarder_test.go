package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestForwardRewritesAuthorityAndInjectsHeaders(t *testing.T) {
	var gotHost, gotForwardedHost, gotOriginalHost, gotPath string

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		gotForwardedHost = r.Header.Get(ForwardedHostHeader)
		gotOriginalHost = r.Header.Get(OriginalHostHeader)
		gotPath = r.URL.Path
		w.Write([]byte("from backend"))
	}))
	defer backend.Close()

	f := NewReverseForwarder(HostRewrite, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "http://app.acme.com/y?q=1", nil)
	req.Host = "app.acme.com"
	rec := httptest.NewRecorder()

	f.Forward(rec, req, backend.URL)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body, _ := io.ReadAll(rec.Body); string(body) != "from backend" {
		t.Errorf("body = %q", body)
	}
	if gotPath != "/y" {
		t.Errorf("backend path = %q, want /y", gotPath)
	}
	if gotForwardedHost != "app.acme.com" || gotOriginalHost != "app.acme.com" {
		t.Errorf("forwarding headers = (%q, %q), want app.acme.com", gotForwardedHost, gotOriginalHost)
	}
	// Rewrite policy: outbound Host is the target authority.
	if gotHost == "app.acme.com" {
		t.Errorf("Host header not rewritten, got %q", gotHost)
	}
}

func TestForwardPreservePolicyKeepsInboundHost(t *testing.T) {
	var gotHost string

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
	}))
	defer backend.Close()

	f := NewReverseForwarder(HostPreserve, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "http://app.acme.com/", nil)
	req.Host = "app.acme.com"
	f.Forward(httptest.NewRecorder(), req, backend.URL)

	if gotHost != "app.acme.com" {
		t.Errorf("Host = %q, want app.acme.com", gotHost)
	}
}

func TestForwardJoinsTargetPathPrefix(t *testing.T) {
	var gotPath string

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer backend.Close()

	f := NewReverseForwarder(HostRewrite, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "http://app.acme.com/y", nil)
	req.Host = "app.acme.com"
	f.Forward(httptest.NewRecorder(), req, backend.URL+"/x")

	if gotPath != "/x/y" {
		t.Errorf("backend path = %q, want /x/y", gotPath)
	}
}

func TestForwardRelaysMethodAndBody(t *testing.T) {
	var gotMethod, gotBody string

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer backend.Close()

	f := NewReverseForwarder(HostRewrite, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "http://app.acme.com/submit", strings.NewReader(`{"k":"v"}`))
	req.Host = "app.acme.com"
	rec := httptest.NewRecorder()

	f.Forward(rec, req, backend.URL)

	if gotMethod != http.MethodPost || gotBody != `{"k":"v"}` {
		t.Errorf("backend saw (%s, %q)", gotMethod, gotBody)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

func TestForwardGatewayFailure(t *testing.T) {
	f := NewReverseForwarder(HostRewrite, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "http://app.acme.com/", nil)
	req.Host = "app.acme.com"
	rec := httptest.NewRecorder()

	// Unroutable port on loopback: connection refused.
	f.Forward(rec, req, "http://127.0.0.1:1")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if body, _ := io.ReadAll(rec.Body); !strings.Contains(string(body), "bad gateway") {
		t.Errorf("body = %q, want diagnostic", body)
	}
}

func TestForwardInvalidTarget(t *testing.T) {
	f := NewReverseForwarder(HostRewrite, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "http://app.acme.com/", nil)
	req.Host = "app.acme.com"
	rec := httptest.NewRecorder()

	f.Forward(rec, req, "://not-a-url")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestParseHostPolicy(t *testing.T) {
	if ParseHostPolicy("preserve") != HostPreserve {
		t.Error("preserve not recognized")
	}
	if ParseHostPolicy("PRESERVE") != HostPreserve {
		t.Error("policy should be case-insensitive")
	}
	for _, s := range []string{"", "rewrite", "bogus"} {
		if ParseHostPolicy(s) != HostRewrite {
			t.Errorf("ParseHostPolicy(%q) should default to rewrite", s)
		}
	}
}
