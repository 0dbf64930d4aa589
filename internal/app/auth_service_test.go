package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymate/internal/model"
	"studymate/internal/pkg/jwtutil"
)

const testSecret = "test-secret"

func TestRegisterAndLogin(t *testing.T) {
	svc := NewAuthService(newTestStore(t), testSecret, time.Hour)

	reg, err := svc.Register(RegisterInput{Username: "dana", Email: "Dana@Example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NotEmpty(t, reg.User.ID)
	assert.Equal(t, "dana@example.com", reg.User.Email)
	assert.NotEqual(t, "correct horse", reg.User.PasswordHash)

	claims, err := jwtutil.ParseToken(testSecret, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "dana", claims.Username)

	login, err := svc.Login(LoginInput{Username: "dana", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	user, err := svc.GetUserByID(reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "dana", user.Username)
}

func TestRegisterRejections(t *testing.T) {
	svc := NewAuthService(newTestStore(t), testSecret, time.Hour)
	_, err := svc.Register(RegisterInput{Username: "dana", Email: "dana@example.com", Password: "correct horse"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"short password", RegisterInput{Username: "noa", Email: "noa@example.com", Password: "short"}, ErrInvalidInput},
		{"missing email", RegisterInput{Username: "noa", Password: "long enough"}, ErrInvalidInput},
		{"duplicate username", RegisterInput{Username: "dana", Email: "other@example.com", Password: "long enough"}, ErrUsernameExists},
		{"duplicate email", RegisterInput{Username: "noa", Email: "DANA@example.com", Password: "long enough"}, ErrEmailExists},
		{"reserved guest", RegisterInput{Username: model.GuestOwnerID, Email: "g@example.com", Password: "long enough"}, ErrUsernameExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoginFailures(t *testing.T) {
	svc := NewAuthService(newTestStore(t), testSecret, time.Hour)
	_, err := svc.Register(RegisterInput{Username: "dana", Email: "dana@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = svc.Login(LoginInput{Username: "dana", Password: "wrong horse"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	_, err = svc.Login(LoginInput{Username: "nobody", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	_, err = svc.Login(LoginInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.GetUserByID("")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
