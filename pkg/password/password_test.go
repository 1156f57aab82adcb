package password_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/pkg/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("secret123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, password.Verify("secret123", hash))
	assert.False(t, password.Verify("wrong", hash))
	assert.False(t, password.Verify("secret123", "not-a-hash"))
}

func TestHashRejectsShortPassword(t *testing.T) {
	_, err := password.Hash("123")
	assert.Error(t, err)
}
