package refreshtokens

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
)

// MemoryRepository keeps records in process memory. Used for development
// and tests; nothing survives a restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	records  map[string]models.RefreshTokenRecord
	validity time.Duration
	now      func() time.Time
}

func NewMemoryRepository(validity time.Duration) *MemoryRepository {
	return &MemoryRepository{
		records:  make(map[string]models.RefreshTokenRecord),
		validity: validityOrDefault(validity),
		now:      time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, ownerID string) (*models.RefreshTokenRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("memory", err)
	}

	rec := newRecord(ownerID, r.now(), r.validity)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = *rec

	out := *rec
	return &out, nil
}

func (r *MemoryRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable("memory", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return false, nil
	}
	delete(r.records, id)
	return true, nil
}

func (r *MemoryRepository) Find(ctx context.Context, id string) (*models.RefreshTokenRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rec, nil
}

func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.RefreshTokenRecord, error) {
	now := r.now()

	r.mu.RLock()
	var out []models.RefreshTokenRecord
	for _, rec := range r.records {
		if rec.OwnerID == ownerID && !rec.Expired(now) {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, rec := range r.records {
		if rec.Expired(now) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}
