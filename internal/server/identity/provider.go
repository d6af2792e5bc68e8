// Package identity owns account creation, lookup and password checks.
package identity

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/dbx"
	"github.com/dmitrijs2005/gophsession/internal/logging"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/dmitrijs2005/gophsession/internal/server/passwords"
	"github.com/dmitrijs2005/gophsession/internal/server/repositories/repomanager"
	"golang.org/x/sync/semaphore"
)

// Provider is backed by the identities repository of the configured store.
//
// Hashing and comparison are CPU-heavy, so at most GOMAXPROCS of them run at
// once; waiters give up when their context ends.
type Provider struct {
	repomanager repomanager.RepositoryManager
	hasher      *passwords.Hasher
	sem         *semaphore.Weighted
	logger      logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewProvider(m repomanager.RepositoryManager, hasher *passwords.Hasher, logger logging.Logger) *Provider {
	return &Provider{
		repomanager: m,
		hasher:      hasher,
		sem:         semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		logger:      logger.With("module", "identity"),
	}
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateIdentity hashes the password and stores a new identity with role.
func (p *Provider) CreateIdentity(ctx context.Context, fields models.IdentityFields, role models.Role) (*models.Identity, error) {
	hash, err := p.hash(ctx, fields.Password)
	if err != nil {
		return nil, err
	}

	id, err := p.repomanager.Identities(p.repomanager.DB()).Create(ctx, newIdentity(fields, role, hash))
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	p.logger.Info(ctx, "identity created", "identity_id", id.ID, "role", id.Role)
	return id, nil
}

// FindByEmailWithCredential returns the identity and its stored hash, or
// common.ErrorNotFound.
func (p *Provider) FindByEmailWithCredential(ctx context.Context, email string) (*models.IdentityWithCredential, error) {
	out, err := p.repomanager.Identities(p.repomanager.DB()).FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("find identity by email: %w", err)
	}
	return out, nil
}

// FindByID returns the identity or common.ErrorNotFound.
func (p *Provider) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	out, err := p.repomanager.Identities(p.repomanager.DB()).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("find identity by id: %w", err)
	}
	return out, nil
}

// ComparePassword reports whether plain matches hash. An empty hash is
// checked against a fixed dummy hash and always reports false, so a caller
// with no account at hand spends the same time as one with a wrong password.
func (p *Provider) ComparePassword(ctx context.Context, plain, hash string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)

	if hash == "" {
		_, _ = p.hasher.Compare(plain, p.dummy())
		return false, nil
	}

	ok, err := p.hasher.Compare(plain, hash)
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return ok, nil
}

// EnsureIdentity creates the identity unless one with the same email exists.
// The check and insert share one transaction on SQL stores.
func (p *Provider) EnsureIdentity(ctx context.Context, fields models.IdentityFields, role models.Role) (*models.Identity, bool, error) {
	hash, err := p.hash(ctx, fields.Password)
	if err != nil {
		return nil, false, err
	}
	in := newIdentity(fields, role, hash)

	var (
		out     *models.Identity
		created bool
	)
	ensure := func(ctx context.Context, tx dbx.DBTX) error {
		repo := p.repomanager.Identities(tx)

		existing, err := repo.FindByEmail(ctx, in.Email)
		switch {
		case err == nil:
			out = &existing.Identity
			return nil
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		out, err = repo.Create(ctx, in)
		if err != nil {
			return err
		}
		created = true
		return nil
	}

	if db := p.repomanager.DB(); db != nil {
		err = dbx.WithTx(ctx, db, nil, ensure)
	} else {
		err = ensure(ctx, nil)
	}
	if err != nil {
		return nil, false, fmt.Errorf("ensure identity: %w", err)
	}

	if created {
		p.logger.Info(ctx, "identity seeded", "identity_id", out.ID, "role", out.Role)
	}
	return out, created, nil
}

func (p *Provider) hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)

	return p.hasher.Hash(password)
}

func (p *Provider) dummy() string {
	p.dummyOnce.Do(func() {
		pw, err := common.MakeRandHexString(16)
		if err == nil {
			p.dummyHash, err = p.hasher.Hash(pw)
		}
		if err != nil {
			p.logger.Error(context.Background(), "dummy hash", "error", err)
		}
	})
	return p.dummyHash
}

func newIdentity(fields models.IdentityFields, role models.Role, hash string) models.NewIdentity {
	return models.NewIdentity{
		Email:        NormalizeEmail(fields.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(fields.FirstName),
		LastName:     strings.TrimSpace(fields.LastName),
		Role:         role,
		TenantID:     fields.TenantID,
	}
}
