package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"superadmin", "admin", "kasir"} {
		r, ok := ParseRole(s)
		assert.True(t, ok)
		assert.Equal(t, Role(s), r)
	}

	_, ok := ParseRole("Admin")
	assert.False(t, ok)
	_, ok = ParseRole("")
	assert.False(t, ok)
}

func TestRole_IsTenantScoped(t *testing.T) {
	assert.True(t, RoleAdmin.IsTenantScoped())
	assert.True(t, RoleKasir.IsTenantScoped())
	assert.False(t, RoleSuperadmin.IsTenantScoped())
}

func TestPrincipalContext(t *testing.T) {
	assert.Nil(t, GetPrincipal(context.Background()))

	p := &Principal{UserID: "u-1", Role: RoleKasir, CompanyID: uuid.New()}
	ctx := SetPrincipal(context.Background(), p)
	assert.Same(t, p, GetPrincipal(ctx))
}
