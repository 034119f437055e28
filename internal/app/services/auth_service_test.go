package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yigit/diplomaregistry/internal/app/models/dto"
	"github.com/yigit/diplomaregistry/internal/pkg/apperrors"
	"github.com/yigit/diplomaregistry/internal/pkg/auth"
)

func TestAuthService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	jwtSvc := auth.NewJWTService(auth.JWTConfig{SecretKey: "k", AccessTokenExp: time.Hour, TokenIssuer: "test"})
	svc := NewAuthService("registrar", string(hash), jwtSvc, zerolog.Nop())

	token, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "registrar", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, int64(3600), token.ExpiresIn)

	claims, err := jwtSvc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "registrar", claims.Username)

	_, err = svc.Login(context.Background(), &dto.LoginRequest{Username: "registrar", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &dto.LoginRequest{Username: "admin", Password: "correct horse"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
