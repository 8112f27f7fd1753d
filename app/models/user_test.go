package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	user, err := CreateUser("Maria Gomez", "maria@example.com", "secret123", ROLE_PROVIDER)
	require.NoError(t, err)

	assert.Equal(t, "Maria Gomez", user.Name)
	assert.Equal(t, STATUS_ACTIVE, user.Status)
	assert.True(t, user.IsProvider())
	assert.False(t, user.IsSuspended())
	assert.NotEqual(t, "secret123", user.Password, "password must be stored hashed")
	assert.True(t, user.CheckPassword("secret123"))
	assert.False(t, user.CheckPassword("wrong"))
}

func TestCreateUserValidation(t *testing.T) {
	_, err := CreateUser("Al", "not-an-email", "secret123", ROLE_CLIENT)
	assert.Error(t, err)
}

func TestHashAPIKey(t *testing.T) {
	h := HashAPIKey("my-key")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashAPIKey("  my-key  "), "surrounding whitespace is ignored")
	assert.NotEqual(t, h, HashAPIKey("other-key"))
}

func TestUserStatusHelpers(t *testing.T) {
	u := &User{Status: STATUS_SUSPENDED, Role: ROLE_CLIENT}
	assert.True(t, u.IsSuspended())
	assert.False(t, u.IsActive())
	assert.False(t, u.IsProvider())
}
