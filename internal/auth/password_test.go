package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/isdelr/recipehub-be/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordPolicy(t *testing.T) {
	p := PasswordPolicy{MinLength: 8}

	tests := []struct {
		name     string
		password string
		wantMsgs int
	}{
		{"strong", "Tomato-Basil-42", 0},
		{"too short", "aB3$x", 1},
		{"numeric", "9876543210", 1},
		{"short and numeric", "4321", 2},
		{"same as username", "chefjulia", 1},
		{"contains username", "xxchefjuliaxx", 1},
		{"same as email local part", "julia.cook", 1},
		{"common", "password123", 1},
		{"longest accepted", strings.Repeat("Ab3-", 18), 0},
		{"too long", strings.Repeat("Ab3-", 20), 1},
		{"too long in bytes", strings.Repeat("é", 37), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Validate(tt.password, "chefjulia", "julia.cook@example.com")
			if tt.wantMsgs == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *apperrors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Len(t, verr.Fields["password"], tt.wantMsgs)
		})
	}
}

func TestPasswordPolicyRespectsConfiguredLength(t *testing.T) {
	assert.NoError(t, PasswordPolicy{MinLength: 4}.Validate("Zq!x", "bob", "bob@example.com"))
	assert.Error(t, PasswordPolicy{MinLength: 12}.Validate("Zq!x-Lemon", "bob", "bob@example.com"))
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("Tomato-Basil-42")
	require.NoError(t, err)
	assert.NotEqual(t, "Tomato-Basil-42", hash)
	assert.True(t, CheckPassword(hash, "Tomato-Basil-42"))
	assert.False(t, CheckPassword(hash, "tomato-basil-42"))
}
