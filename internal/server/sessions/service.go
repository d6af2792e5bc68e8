// Package sessions implements the register, login, refresh and logout flows.
// It sequences identity lookups with token issuance and owns the rotation
// rules for refresh-token records.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/logging"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/dmitrijs2005/gophsession/internal/server/passwords"
)

// IdentityProvider is the account store the flows consult.
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, fields models.IdentityFields, role models.Role) (*models.Identity, error)
	FindByEmailWithCredential(ctx context.Context, email string) (*models.IdentityWithCredential, error)
	FindByID(ctx context.Context, id string) (*models.Identity, error)
	ComparePassword(ctx context.Context, plain, hash string) (bool, error)
}

// TokenIssuer signs tokens and manages refresh-token records.
type TokenIssuer interface {
	IssueAccessToken(claims models.Claims) (string, error)
	IssueRefreshToken(claims models.Claims, recordID string) (string, error)
	PersistRefreshToken(ctx context.Context, ownerID string) (*models.RefreshTokenRecord, error)
	RevokeRefreshToken(ctx context.Context, recordID string) (bool, error)
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Result is what a successful Register, Login or Refresh hands to the
// transport for delivery.
type Result struct {
	Identity models.Identity
	Tokens   TokenPair
	RecordID string
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type LoginInput struct {
	Email    string
	Password string
}

// Service holds no per-session state; all of it lives in the identity
// provider and the refresh token store.
type Service struct {
	identities IdentityProvider
	issuer     TokenIssuer
	logger     logging.Logger
}

func NewService(identities IdentityProvider, issuer TokenIssuer, logger logging.Logger) *Service {
	return &Service{
		identities: identities,
		issuer:     issuer,
		logger:     logger.With("module", "sessions"),
	}
}

// Register creates a customer identity and opens a session for it. Identity
// errors such as common.ErrDuplicateEmail are returned unchanged and no
// tokens are issued.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}

	id, err := s.identities.CreateIdentity(ctx, models.IdentityFields{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}, models.RoleCustomer)
	if err != nil {
		return nil, err
	}

	res, err := s.open(ctx, *id)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "identity registered", "identity_id", id.ID, "record_id", res.RecordID)
	return res, nil
}

// Login checks the credentials and opens a session. An unknown email and a
// wrong password both yield common.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Result, error) {
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}

	found, err := s.identities.FindByEmailWithCredential(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		if _, err := s.identities.ComparePassword(ctx, in.Password, ""); err != nil {
			return nil, err
		}
		s.logger.Warn(ctx, "login failed")
		return nil, common.ErrInvalidCredentials
	}

	ok, err := s.identities.ComparePassword(ctx, in.Password, found.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Warn(ctx, "login failed", "identity_id", found.Identity.ID)
		return nil, common.ErrInvalidCredentials
	}

	res, err := s.open(ctx, found.Identity)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "identity logged in", "identity_id", found.Identity.ID, "record_id", res.RecordID)
	return res, nil
}

// Refresh rotates the session of identityID whose current refresh-token
// record is recordID. The new record is created and signed before the old
// one is deleted. If the old record turns out to be gone already, another caller
// rotated or logged out this session first: the new record is deleted as
// well and common.ErrSessionRevoked is returned.
func (s *Service) Refresh(ctx context.Context, identityID, recordID string) (*Result, error) {
	id, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrIdentityNotFound
		}
		return nil, err
	}

	claims := models.ClaimsFromIdentity(*id)

	access, err := s.issuer.IssueAccessToken(claims)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	rec, err := s.issuer.PersistRefreshToken(ctx, id.ID)
	if err != nil {
		return nil, err
	}

	refresh, err := s.issuer.IssueRefreshToken(claims, rec.ID)
	if err != nil {
		s.rollback(ctx, rec.ID)
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	deleted, err := s.issuer.RevokeRefreshToken(ctx, recordID)
	if err != nil {
		s.rollback(ctx, rec.ID)
		return nil, err
	}
	if !deleted {
		s.rollback(ctx, rec.ID)
		s.logger.Warn(ctx, "refresh of revoked session", "identity_id", id.ID, "record_id", recordID)
		return nil, common.ErrSessionRevoked
	}

	s.logger.Info(ctx, "session refreshed", "identity_id", id.ID, "old_record_id", recordID, "record_id", rec.ID)
	return &Result{
		Identity: *id,
		Tokens:   TokenPair{AccessToken: access, RefreshToken: refresh},
		RecordID: rec.ID,
	}, nil
}

// Logout revokes the record. Logging out an already revoked session is not
// an error.
func (s *Service) Logout(ctx context.Context, recordID string) error {
	deleted, err := s.issuer.RevokeRefreshToken(ctx, recordID)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "session closed", "record_id", recordID, "deleted", deleted)
	return nil
}

// open persists a record, then signs the refresh and access tokens.
func (s *Service) open(ctx context.Context, id models.Identity) (*Result, error) {
	claims := models.ClaimsFromIdentity(id)

	rec, err := s.issuer.PersistRefreshToken(ctx, id.ID)
	if err != nil {
		return nil, err
	}

	refresh, err := s.issuer.IssueRefreshToken(claims, rec.ID)
	if err != nil {
		s.rollback(ctx, rec.ID)
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	access, err := s.issuer.IssueAccessToken(claims)
	if err != nil {
		s.rollback(ctx, rec.ID)
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &Result{
		Identity: id,
		Tokens:   TokenPair{AccessToken: access, RefreshToken: refresh},
		RecordID: rec.ID,
	}, nil
}

func (s *Service) rollback(ctx context.Context, recordID string) {
	if _, err := s.issuer.RevokeRefreshToken(context.WithoutCancel(ctx), recordID); err != nil {
		s.logger.Error(ctx, "rollback of new refresh record failed", "record_id", recordID, "error", err)
	}
}

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return common.NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return common.NewValidationError("email", "is not a valid address")
	}
	if password == "" {
		return common.NewValidationError("password", "is required")
	}
	if len(password) > passwords.MaxPasswordBytes {
		return common.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", passwords.MaxPasswordBytes))
	}
	return nil
}
