package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "pw", hash)

	assert.True(t, CheckPassword(hash, "pw"))
	assert.False(t, CheckPassword(hash, "pW"))
	assert.False(t, CheckPassword(hash, "pw "))
	assert.False(t, CheckPassword("not-a-hash", "pw"))
}

func TestHashPassword_SaltsEachCall(t *testing.T) {
	a, err := HashPassword("pw", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := HashPassword("pw", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashPassword_OutOfRangeCostFallsBack(t *testing.T) {
	hash, err := HashPassword("pw", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestHashPassword_RejectsOverBcryptLimit(t *testing.T) {
	_, err := HashPassword(strings.Repeat("p", MaxPasswordBytes), bcrypt.MinCost)
	require.NoError(t, err)

	_, err = HashPassword(strings.Repeat("p", MaxPasswordBytes+1), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = HashPassword(strings.Repeat("é", 37), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooLong, "limit is in bytes")
}

func TestBurnCompare_UsesConfiguredCost(t *testing.T) {
	assert.NotPanics(t, func() { BurnCompare("anything", bcrypt.MinCost) })

	for _, tt := range []struct{ in, want int }{
		{in: bcrypt.MinCost, want: bcrypt.MinCost},
		{in: bcrypt.MinCost + 1, want: bcrypt.MinCost + 1},
		{in: 0, want: bcrypt.DefaultCost},
	} {
		cost, err := bcrypt.Cost(dummyHash(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, cost)
	}
}
