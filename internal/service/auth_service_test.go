package service

import (
	"context"
	"testing"

	"ai-chat-be/internal/dto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJwtSecret = "test-secret"

func TestRegisterAndLogin(t *testing.T) {
	factory := newFakeFactory()
	svc := NewAuthService(factory, testJwtSecret)

	registered, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "dev@example.com",
		Password: "supersecret",
		FullName: "Dev User",
	})
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", registered.Email)

	// Password is stored hashed, never verbatim.
	stored := factory.uow.users.users[registered.Id]
	require.NotNil(t, stored.PasswordHash)
	assert.NotEqual(t, "supersecret", *stored.PasswordHash)

	login, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "dev@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.Id, login.UserId)
	assert.Equal(t, "Dev User", login.FullName)

	// The token carries the user id claim the middleware expects.
	token, err := jwt.Parse(login.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte(testJwtSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, registered.Id.String(), claims["user_id"])
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	factory := newFakeFactory()
	svc := NewAuthService(factory, testJwtSecret)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email: "dev@example.com", Password: "supersecret", FullName: "A",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), &dto.RegisterRequest{
		Email: "dev@example.com", Password: "othersecret", FullName: "B",
	})
	assert.Error(t, err)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	factory := newFakeFactory()
	svc := NewAuthService(factory, testJwtSecret)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email: "dev@example.com", Password: "supersecret", FullName: "A",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), &dto.LoginRequest{
		Email: "dev@example.com", Password: "wrong",
	})
	assert.EqualError(t, err, "invalid credentials")

	_, err = svc.Login(context.Background(), &dto.LoginRequest{
		Email: "unknown@example.com", Password: "supersecret",
	})
	assert.EqualError(t, err, "invalid credentials")
}
