package identities

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]models.IdentityWithCredential
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]models.IdentityWithCredential),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, in models.NewIdentity) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[in.Email]; ok {
		return nil, common.ErrDuplicateEmail
	}

	id := models.Identity{
		ID:        uuid.NewString(),
		Role:      in.Role,
		TenantID:  in.TenantID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		CreatedAt: time.Now().UTC(),
	}
	r.byID[id.ID] = models.IdentityWithCredential{Identity: id, PasswordHash: in.PasswordHash}
	r.byEmail[in.Email] = id.ID

	return &id, nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.IdentityWithCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := r.byID[id]
	return &out, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := rec.Identity
	return &out, nil
}

// Delete removes an identity. Only tests and tooling use it.
func (r *MemoryRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.byID[id]; ok {
		delete(r.byEmail, rec.Identity.Email)
		delete(r.byID, id)
	}
}
