package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"resolveit/pkg/apperror"
	"resolveit/services/case-service/models"
)

// MemoryIdentityStore is an in-process IdentityStore for tests and local runs.
type MemoryIdentityStore struct {
	mu      sync.RWMutex
	byID    map[string]models.Identity
	byEmail map[string]string
}

func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{
		byID:    make(map[string]models.Identity),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryIdentityStore) Create(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[identity.Email]; ok {
		return fmt.Errorf("insert identity: %w", apperror.ErrDuplicate)
	}
	now := time.Now().UTC()
	identity.ID = primitive.NewObjectID().Hex()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	s.byID[identity.ID] = *identity
	s.byEmail[identity.Email] = identity.ID
	return nil
}

func (s *MemoryIdentityStore) FindByID(_ context.Context, id string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.byID[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return &identity, nil
}

func (s *MemoryIdentityStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *MemoryIdentityStore) FindByIDs(_ context.Context, ids []string) (map[string]*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Identity, len(ids))
	for _, id := range ids {
		if identity, ok := s.byID[id]; ok {
			out[id] = &identity
		}
	}
	return out, nil
}

// MemoryCaseStore is an in-process CaseStore for tests and local runs.
type MemoryCaseStore struct {
	mu    sync.RWMutex
	cases map[string]models.Case
	seq   int64
	now   func() time.Time
}

func NewMemoryCaseStore() *MemoryCaseStore {
	return &MemoryCaseStore{cases: make(map[string]models.Case), now: time.Now}
}

func (s *MemoryCaseStore) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// strictly increasing timestamps keep newest-first ordering deterministic
	s.seq++
	now := s.now().UTC().Add(time.Duration(s.seq) * time.Microsecond)
	c.ID = primitive.NewObjectID().Hex()
	c.VerifiedByAdmin = false
	c.OppositeStatus = models.OppositeNotStarted
	c.CaseStatus = models.StatusNotStarted
	c.CreatedAt = now
	c.UpdatedAt = now
	s.cases[c.ID] = *c
	return nil
}

func (s *MemoryCaseStore) FindByID(_ context.Context, id string) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("case %q: %w", id, apperror.ErrNotFound)
	}
	return &c, nil
}

func (s *MemoryCaseStore) update(id string, apply func(*models.Case)) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("case %q: %w", id, apperror.ErrNotFound)
	}
	apply(&c)
	c.UpdatedAt = s.now().UTC()
	s.cases[id] = c
	return &c, nil
}

func (s *MemoryCaseStore) SetVerified(_ context.Context, id string, verified bool) (*models.Case, error) {
	return s.update(id, func(c *models.Case) { c.VerifiedByAdmin = verified })
}

func (s *MemoryCaseStore) SetOppositeStatus(_ context.Context, id string, status models.OppositeStatus) (*models.Case, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("opposite status %d out of range", int(status))
	}
	return s.update(id, func(c *models.Case) { c.OppositeStatus = status })
}

func (s *MemoryCaseStore) SetCaseStatus(_ context.Context, id string, status models.Status) (*models.Case, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("case status %d out of range", int(status))
	}
	return s.update(id, func(c *models.Case) { c.CaseStatus = status })
}

func (s *MemoryCaseStore) ListAll(_ context.Context) ([]models.Case, error) {
	return s.list(func(models.Case) bool { return true }), nil
}

func (s *MemoryCaseStore) ListByOwner(_ context.Context, ownerID string) ([]models.Case, error) {
	return s.list(func(c models.Case) bool { return c.OwnerID == ownerID }), nil
}

func (s *MemoryCaseStore) list(keep func(models.Case) bool) []models.Case {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Case, 0, len(s.cases))
	for _, c := range s.cases {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
