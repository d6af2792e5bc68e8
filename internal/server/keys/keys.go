// Package keys holds the signing and verification material for each token
// class. Material is loaded once at startup and never changes afterwards.
package keys

import (
	"crypto"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// MinAccessSecretLength is the shortest accepted HMAC secret, in bytes.
const MinAccessSecretLength = 32

// TokenClass selects which key pair a caller needs.
type TokenClass int

const (
	AccessToken TokenClass = iota
	RefreshToken
)

func (c TokenClass) String() string {
	switch c {
	case AccessToken:
		return "access"
	case RefreshToken:
		return "refresh"
	}
	return fmt.Sprintf("TokenClass(%d)", int(c))
}

// Provider hands out key material per token class.
type Provider interface {
	SigningKey(class TokenClass) (any, error)
	VerificationKey(class TokenClass) (any, error)
}

// Material is the immutable Provider used by the server.
//
// Access tokens use one HMAC secret for both directions. Refresh tokens are
// signed with an Ed25519 private key and verified with its public key.
type Material struct {
	accessSecret   []byte
	refreshPrivate ed25519.PrivateKey
	refreshPublic  ed25519.PublicKey
	keyID          string
}

// New validates and wraps key material. The inputs are copied.
func New(accessSecret []byte, refreshPrivate ed25519.PrivateKey) (*Material, error) {
	if len(accessSecret) < MinAccessSecretLength {
		return nil, fmt.Errorf("%w: access secret must be at least %d bytes", common.ErrSigningKeyUnavailable, MinAccessSecretLength)
	}
	if len(refreshPrivate) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: refresh private key is not an ed25519 key", common.ErrSigningKeyUnavailable)
	}

	m := &Material{
		accessSecret:   append([]byte(nil), accessSecret...),
		refreshPrivate: append(ed25519.PrivateKey(nil), refreshPrivate...),
	}
	m.refreshPublic = m.refreshPrivate.Public().(ed25519.PublicKey)

	kid, err := thumbprint(m.refreshPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSigningKeyUnavailable, err)
	}
	m.keyID = kid

	return m, nil
}

func (m *Material) SigningKey(class TokenClass) (any, error) {
	switch class {
	case AccessToken:
		return m.accessSecret, nil
	case RefreshToken:
		return m.refreshPrivate, nil
	}
	return nil, fmt.Errorf("%w: unknown token class %s", common.ErrSigningKeyUnavailable, class)
}

func (m *Material) VerificationKey(class TokenClass) (any, error) {
	switch class {
	case AccessToken:
		return m.accessSecret, nil
	case RefreshToken:
		return m.refreshPublic, nil
	}
	return nil, fmt.Errorf("%w: unknown token class %s", common.ErrSigningKeyUnavailable, class)
}

// KeyID is the RFC 7638 thumbprint of the refresh public key.
func (m *Material) KeyID() string {
	return m.keyID
}

// PublicJWKS returns the refresh verification key as a JWK set.
func (m *Material) PublicJWKS() (jwk.Set, error) {
	key, err := jwk.FromRaw(m.refreshPublic)
	if err != nil {
		return nil, fmt.Errorf("jwk from public key: %w", err)
	}
	for k, v := range map[string]any{
		jwk.KeyIDKey:     m.keyID,
		jwk.AlgorithmKey: jwa.EdDSA,
		jwk.KeyUsageKey:  jwk.ForSignature,
	} {
		if err := key.Set(k, v); err != nil {
			return nil, fmt.Errorf("set %s: %w", k, err)
		}
	}

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, fmt.Errorf("add key: %w", err)
	}
	return set, nil
}

func thumbprint(pub ed25519.PublicKey) (string, error) {
	key, err := jwk.FromRaw(pub)
	if err != nil {
		return "", err
	}
	tp, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}
