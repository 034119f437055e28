package services

import (
	"context"
	"crypto/subtle"

	"github.com/rs/zerolog"

	"github.com/yigit/diplomaregistry/internal/app/models/dto"
	"github.com/yigit/diplomaregistry/internal/pkg/apperrors"
	"github.com/yigit/diplomaregistry/internal/pkg/auth"
)

// AuthService authenticates the registrar account configured for this deployment
type AuthService struct {
	username     string
	passwordHash string
	jwtService   *auth.JWTService
	logger       zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(username, passwordHash string, jwtService *auth.JWTService, logger zerolog.Logger) *AuthService {
	return &AuthService{
		username:     username,
		passwordHash: passwordHash,
		jwtService:   jwtService,
		logger:       logger,
	}
}

// Login checks the registrar credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	userMatches := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.username)) == 1
	passwordMatches := auth.CheckPassword(s.passwordHash, req.Password)
	if !userMatches || !passwordMatches {
		s.logger.Warn().Str("username", req.Username).Msg("Failed registrar login")
		return nil, apperrors.ErrInvalidCredentials
	}

	token, expiresIn, err := s.jwtService.GenerateToken(s.username)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", s.username).Msg("Registrar logged in")
	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(expiresIn),
	}, nil
}
