package edge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/magnusfroste/domainproxy/internal/events"
	"github.com/magnusfroste/domainproxy/internal/models"
	"github.com/magnusfroste/domainproxy/internal/resolver"
)

// mockMappingStore implements store.MappingStore for edge routing tests.
type mockMappingStore struct {
	mappings map[string]*models.ResolvedMapping
	findErr  error
}

func newMockMappingStore() *mockMappingStore {
	return &mockMappingStore{mappings: make(map[string]*models.ResolvedMapping)}
}

func (m *mockMappingStore) add(baseDomain, label, targetURL string) {
	m.mappings[baseDomain+"|"+label] = &models.ResolvedMapping{
		Mapping: models.Mapping{
			ID:        baseDomain + "|" + label,
			Label:     label,
			TargetURL: targetURL,
		},
		BaseDomain: baseDomain,
	}
}

func (m *mockMappingStore) FindMapping(ctx context.Context, baseDomain, label string) (*models.ResolvedMapping, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.mappings[baseDomain+"|"+label], nil
}

func (m *mockMappingStore) Upsert(ctx context.Context, ownerID, baseDomain, label, targetURL string) (*models.Mapping, error) {
	m.add(baseDomain, label, targetURL)
	return &m.mappings[baseDomain+"|"+label].Mapping, nil
}

func (m *mockMappingStore) Delete(ctx context.Context, ownerID, baseDomain, label string) (bool, error) {
	delete(m.mappings, baseDomain+"|"+label)
	return true, nil
}

func (m *mockMappingStore) List(ctx context.Context, ownerID, baseDomain string) ([]*models.Mapping, error) {
	return nil, nil
}

func (m *mockMappingStore) UpdateStatus(ctx context.Context, id string, status models.ProvisioningStatus, message string) error {
	return nil
}

// mockForwarder records the target it was asked to forward to.
type mockForwarder struct {
	target string
}

func (f *mockForwarder) Forward(w http.ResponseWriter, r *http.Request, targetURL string) {
	f.target = targetURL
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("forwarded"))
}

func tag(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
}

func serve(h *Handler, host string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "http://"+host+"/", nil)
	req.Host = host
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestControlPlaneHosts(t *testing.T) {
	st := newMockMappingStore()
	r := resolver.New(st, nil, slog.Default())
	fwd := &mockForwarder{}
	h := New(r, fwd, tag("control"), tag("fallback"), nil, slog.Default())

	for _, host := range []string{"acme.com", "localhost:8080", "www.acme.com"} {
		rec := serve(h, host)
		if rec.Body.String() != "control" {
			t.Errorf("host %q routed to %q, want control", host, rec.Body.String())
		}
	}
	if fwd.target != "" {
		t.Errorf("forwarder called for control-plane host, target %q", fwd.target)
	}
}

func TestRegisteredHostDispatches(t *testing.T) {
	st := newMockMappingStore()
	st.add("acme.com", "app", "https://backend.example")
	r := resolver.New(st, nil, slog.Default())
	fwd := &mockForwarder{}
	h := New(r, fwd, tag("control"), tag("fallback"), nil, slog.Default())

	rec := serve(h, "app.acme.com")
	if rec.Body.String() != "forwarded" {
		t.Errorf("body = %q, want forwarded", rec.Body.String())
	}
	if fwd.target != "https://backend.example" {
		t.Errorf("forward target = %q", fwd.target)
	}
}

func TestUnregisteredTenantHostFallsBack(t *testing.T) {
	st := newMockMappingStore()
	r := resolver.New(st, nil, slog.Default())
	fwd := &mockForwarder{}
	h := New(r, fwd, tag("control"), tag("fallback"), nil, slog.Default())

	rec := serve(h, "ghost.acme.com")
	if rec.Body.String() != "fallback" {
		t.Errorf("body = %q, want fallback", rec.Body.String())
	}
	if fwd.target != "" {
		t.Error("forwarder must not be called on a miss")
	}
}

func TestRegistryFailureFallsBack(t *testing.T) {
	st := newMockMappingStore()
	st.add("acme.com", "app", "https://backend.example")
	st.findErr = errors.New("connection refused")
	r := resolver.New(st, nil, slog.Default())
	fwd := &mockForwarder{}
	broker := events.NewBroker(slog.Default())
	sub := broker.Subscribe("")
	defer broker.Unsubscribe(sub)

	h := New(r, fwd, tag("control"), tag("fallback"), broker, slog.Default())

	rec := serve(h, "app.acme.com")
	if rec.Code != http.StatusOK || rec.Body.String() != "fallback" {
		t.Errorf("got (%d, %q), want fallback with 200", rec.Code, rec.Body.String())
	}
	if fwd.target != "" {
		t.Error("forwarder must not be called when the registry is down")
	}

	select {
	case ev := <-sub.Ch:
		if ev.Kind != events.KindResolve || ev.Outcome != "error" {
			t.Errorf("unexpected event %+v", ev)
		}
	default:
		t.Error("registry failure should publish an event")
	}
}

func TestNilFallbackServesBuiltinPage(t *testing.T) {
	st := newMockMappingStore()
	r := resolver.New(st, nil, slog.Default())
	h := New(r, &mockForwarder{}, tag("control"), nil, nil, slog.Default())

	rec := serve(h, "ghost.acme.com")
	if rec.Code != http.StatusOK {
		t.Errorf("builtin fallback status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("builtin fallback should explain the unconfigured domain")
	}
}
