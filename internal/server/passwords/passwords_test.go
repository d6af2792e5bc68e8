package passwords

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var cheap = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashAndCompare(t *testing.T) {
	h := NewHasher(cheap)

	hash, err := h.Hash("p1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"), hash)

	ok, err := h.Compare("p1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare("p2", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_SaltedPerCall(t *testing.T) {
	h := NewHasher(cheap)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHash_TooLong(t *testing.T) {
	h := NewHasher(cheap)
	_, err := h.Hash(strings.Repeat("x", MaxPasswordBytes+1))
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = h.Hash(strings.Repeat("x", MaxPasswordBytes))
	require.NoError(t, err)
}

func TestCompare_VerifiesWithStoredParams(t *testing.T) {
	hash, err := NewHasher(cheap).Hash("secret")
	require.NoError(t, err)

	ok, err := NewHasher(DefaultParams).Compare("secret", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompare_Bcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy"), bcrypt.MinCost)
	require.NoError(t, err)

	h := NewHasher(cheap)

	ok, err := h.Compare("legacy", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare("other", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Compare("x", "$2a$broken")
	assert.ErrorIs(t, err, ErrMalformedHash)
}

func TestCompare_Malformed(t *testing.T) {
	h := NewHasher(cheap)

	cases := []string{
		"",
		"plain",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=0,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$",
	}
	for _, c := range cases {
		_, err := h.Compare("pw", c)
		assert.ErrorIs(t, err, ErrMalformedHash, c)
	}
}
