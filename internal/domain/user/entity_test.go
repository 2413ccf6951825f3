//go:build unit

package user_test

import (
	"testing"

	"academy-booking/internal/domain/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole(t *testing.T) {
	tests := []struct {
		name  string
		input string
		errIs error
	}{
		{name: "user", input: "user"},
		{name: "academy", input: "academy"},
		{name: "admin", input: "admin"},
		{name: "system is never accepted from input", input: "system", errIs: user.ErrInvalidRole},
		{name: "unknown role", input: "viewer", errIs: user.ErrInvalidRole},
		{name: "empty role", input: "", errIs: user.ErrInvalidRole},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			role, err := user.NewRole(tc.input)
			if tc.errIs != nil {
				require.ErrorIs(t, err, tc.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.input, role.String())
		})
	}
}

func TestActor(t *testing.T) {
	t.Run("admin and system are privileged", func(t *testing.T) {
		assert.True(t, user.NewActor(uuid.New(), user.RoleAdmin).IsPrivileged())
		assert.True(t, user.SystemActor().IsPrivileged())
	})

	t.Run("regular roles are not privileged", func(t *testing.T) {
		assert.False(t, user.NewActor(uuid.New(), user.RoleUser).IsPrivileged())
		assert.False(t, user.NewActor(uuid.New(), user.RoleAcademy).IsPrivileged())
	})
}
