package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnhub/auth-service/internal/utils"
)

func TestHashPasswordVerifies(t *testing.T) {
	hash, err := utils.HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", hash)
	assert.True(t, utils.VerifyPassword(hash, "secret1"))
	assert.False(t, utils.VerifyPassword(hash, "secret2"))
}

func TestHashPasswordSaltsPerCall(t *testing.T) {
	h1, err := utils.HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := utils.HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	assert.False(t, utils.VerifyPassword("", "secret1"))
	assert.False(t, utils.VerifyPassword("not-a-bcrypt-hash", "secret1"))
}
