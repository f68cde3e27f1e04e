package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/coursehub/internal/apperror"
)

func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(bcrypt.MinCost)
}

func TestPasswordService_HashIsSaltedBcrypt(t *testing.T) {
	ps := newTestPasswordService()

	first, err := ps.Hash("same-password")
	require.NoError(t, err)
	second, err := ps.Hash("same-password")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "$2"), "not a bcrypt hash: %q", first)
	assert.NotEqual(t, first, second)

	cost, err := bcrypt.Cost([]byte(first))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestCheckPassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"seven characters", "abcdefg", "password must be at least 8 characters"},
		{"minimum length", strings.Repeat("a", MinPasswordLength), ""},
		{"bcrypt limit", strings.Repeat("a", MaxPasswordBytes), ""},
		{"past bcrypt limit", strings.Repeat("a", MaxPasswordBytes+1), "password must be 72 bytes or fewer"},
		// Eight runes, sixteen bytes: the minimum counts characters.
		{"cyrillic", "пароль12", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPassword(tc.password)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperror.ErrValidation)
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}

func TestPasswordService_HashRejectsInvalid(t *testing.T) {
	_, err := newTestPasswordService().Hash("short")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestPasswordService_Verify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("correct horse")
	require.NoError(t, err)

	assert.NoError(t, ps.Verify(hash, "correct horse"))
	assert.ErrorIs(t, ps.Verify(hash, "correct horsE"), ErrPasswordMismatch)

	err = ps.Verify("not-a-bcrypt-hash", "correct horse")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}

func TestPasswordService_RoundTripUnusualInput(t *testing.T) {
	ps := newTestPasswordService()

	for _, pw := range []string{"p@$$w0rd!#%", "пароль-密码-123", "  padded  "} {
		t.Run(pw, func(t *testing.T) {
			hash, err := ps.Hash(pw)
			require.NoError(t, err)
			assert.NoError(t, ps.Verify(hash, pw))
		})
	}
}
