package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/magnusfroste/domainproxy/internal/models"
	"github.com/magnusfroste/domainproxy/internal/store"
)

// mockStore is an in-memory store.Store for handler tests.
type mockStore struct {
	owners   *mockOwnerStore
	domains  *mockDomainStore
	mappings *mockMappingStore
}

func newMockStore() *mockStore {
	domains := &mockDomainStore{byKey: make(map[string]*models.BaseDomain)}
	return &mockStore{
		owners:   &mockOwnerStore{byID: make(map[string]*models.Owner)},
		domains:  domains,
		mappings: newMockMappingStoreWithDomains(domains),
	}
}

func (s *mockStore) Owners() store.OwnerStore     { return s.owners }
func (s *mockStore) Domains() store.DomainStore   { return s.domains }
func (s *mockStore) Mappings() store.MappingStore { return s.mappings }

func (s *mockStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(s)
}

func (s *mockStore) Close() error { return nil }

type mockOwnerStore struct {
	mu   sync.Mutex
	byID map[string]*models.Owner
}

func (m *mockOwnerStore) Create(ctx context.Context, owner *models.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner.ID == "" {
		owner.ID = fmt.Sprintf("owner-%d", len(m.byID)+1)
	}
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = time.Now()
	}
	m.byID[owner.ID] = owner
	return nil
}

func (m *mockOwnerStore) Get(ctx context.Context, id string) (*models.Owner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id], nil
}

func (m *mockOwnerStore) GetByTokenHash(ctx context.Context, hash string) (*models.Owner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.TokenHash == hash {
			return o, nil
		}
	}
	return nil, nil
}

func (m *mockOwnerStore) List(ctx context.Context) ([]*models.Owner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Owner, 0, len(m.byID))
	for _, o := range m.byID {
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOwnerStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return fmt.Errorf("owner not found")
	}
	delete(m.byID, id)
	return nil
}

type mockDomainStore struct {
	mu    sync.Mutex
	byKey map[string]*models.BaseDomain // "ownerID|domain"
}

func (m *mockDomainStore) Upsert(ctx context.Context, ownerID, domain string) (*models.BaseDomain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ownerID + "|" + domain
	if d, ok := m.byKey[key]; ok {
		return d, nil
	}
	d := &models.BaseDomain{
		ID:        key,
		OwnerID:   ownerID,
		Domain:    domain,
		CreatedAt: time.Now(),
	}
	m.byKey[key] = d
	return d, nil
}

func (m *mockDomainStore) Get(ctx context.Context, ownerID, domain string) (*models.BaseDomain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byKey[ownerID+"|"+domain], nil
}

func (m *mockDomainStore) List(ctx context.Context, ownerID string) ([]*models.BaseDomain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.BaseDomain
	for _, d := range m.byKey {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDomainStore) DeleteIfEmpty(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byKey, id)
	return nil
}

type mockMapping struct {
	*models.Mapping
	ownerID    string
	baseDomain string
}

type mockMappingStore struct {
	mu      sync.Mutex
	byKey   map[string]*mockMapping // "baseDomain|label"
	domains *mockDomainStore
	findErr error
}

func newMockMappingStore() *mockMappingStore {
	return newMockMappingStoreWithDomains(nil)
}

func newMockMappingStoreWithDomains(domains *mockDomainStore) *mockMappingStore {
	return &mockMappingStore{byKey: make(map[string]*mockMapping), domains: domains}
}

func (m *mockMappingStore) add(baseDomain, label, targetURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := baseDomain + "|" + label
	m.byKey[key] = &mockMapping{
		Mapping: &models.Mapping{
			ID:        key,
			Label:     label,
			TargetURL: targetURL,
			Status:    models.StatusPending,
			CreatedAt: time.Now(),
		},
		baseDomain: baseDomain,
	}
}

func (m *mockMappingStore) FindMapping(ctx context.Context, baseDomain, label string) (*models.ResolvedMapping, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, ok := m.byKey[baseDomain+"|"+label]
	if !ok {
		return nil, nil
	}
	return &models.ResolvedMapping{
		Mapping:    *mm.Mapping,
		BaseDomain: mm.baseDomain,
		OwnerID:    mm.ownerID,
	}, nil
}

func (m *mockMappingStore) Upsert(ctx context.Context, ownerID, baseDomain, label, targetURL string) (*models.Mapping, error) {
	if m.domains != nil {
		if _, err := m.domains.Upsert(ctx, ownerID, baseDomain); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := baseDomain + "|" + label
	if mm, ok := m.byKey[key]; ok {
		if mm.ownerID != "" && mm.ownerID != ownerID {
			return nil, fmt.Errorf("mapping owned by another owner")
		}
		mm.TargetURL = targetURL
		mm.Status = models.StatusPending
		mm.StatusMessage = ""
		return mm.Mapping, nil
	}
	mm := &mockMapping{
		Mapping: &models.Mapping{
			ID:        key,
			Label:     label,
			TargetURL: targetURL,
			Status:    models.StatusPending,
			CreatedAt: time.Now(),
		},
		ownerID:    ownerID,
		baseDomain: baseDomain,
	}
	m.byKey[key] = mm
	return mm.Mapping, nil
}

func (m *mockMappingStore) Delete(ctx context.Context, ownerID, baseDomain, label string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := baseDomain + "|" + label
	mm, ok := m.byKey[key]
	if !ok {
		return false, nil
	}
	if mm.ownerID != "" && ownerID != "" && mm.ownerID != ownerID {
		return false, nil
	}
	delete(m.byKey, key)
	return true, nil
}

func (m *mockMappingStore) List(ctx context.Context, ownerID, baseDomain string) ([]*models.Mapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Mapping
	for _, mm := range m.byKey {
		if mm.baseDomain == baseDomain && (ownerID == "" || mm.ownerID == "" || mm.ownerID == ownerID) {
			out = append(out, mm.Mapping)
		}
	}
	return out, nil
}

func (m *mockMappingStore) UpdateStatus(ctx context.Context, id string, status models.ProvisioningStatus, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mm := range m.byKey {
		if mm.ID == id {
			mm.Status = status
			mm.StatusMessage = message
			mm.StatusUpdatedAt = time.Now()
		}
	}
	return nil
}
