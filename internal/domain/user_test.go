package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_JSONNeverCarriesPasswordHash(t *testing.T) {
	raw, err := json.Marshal(User{
		Name:         "Ada",
		Email:        "ada@pressdesk.local",
		PasswordHash: "$2a$10$examplehash",
		Role:         RoleEditor,
		IsActive:     true,
	})
	require.NoError(t, err)

	body := string(raw)
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "examplehash")
	assert.Contains(t, body, `"role":"editor"`)
	assert.Contains(t, body, `"is_active":true`)

	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Ada","PasswordHash":"injected"}`), &u))
	assert.Equal(t, "Ada", u.Name)
	assert.Empty(t, u.PasswordHash)
}

func TestRole_Valid(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid(), r)
	}
	assert.Equal(t, RoleSuperAdmin, Roles[0])
	assert.False(t, Role("root").Valid())
	assert.False(t, Role("").Valid())
}
