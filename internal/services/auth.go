package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/entities"
	"marketplace-system/internal/repositories"
	apperrors "marketplace-system/pkg/errors"
	jwtservice "marketplace-system/pkg/service"
	"marketplace-system/pkg/utils"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, payload dto.LoginDTO) (*dto.TokenPairDTO, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenPairDTO, error)
	Profile(ctx context.Context, userID uint64) (*entities.User, error)
}

type authService struct {
	userRepo repositories.UserRepositoryInterface
	jwt      jwtservice.JWTService
	logger   *zap.Logger
}

func NewAuthService(userRepo repositories.UserRepositoryInterface, jwt jwtservice.JWTService, logger *zap.Logger) AuthServiceInterface {
	return &authService{
		userRepo: userRepo,
		jwt:      jwt,
		logger:   logger.Named("auth_service"),
	}
}

func (s *authService) Login(ctx context.Context, payload dto.LoginDTO) (*dto.TokenPairDTO, error) {
	user, err := s.userRepo.FindByEmail(ctx, payload.Email)
	if err != nil {
		// Не раскрываем, существует ли адрес.
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if err := utils.ComparePasswords(user.PasswordHash, payload.Password); err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	access, refresh, err := s.jwt.GenerateTokens(user.ID, utils.SplitRoles(user.Roles))
	if err != nil {
		return nil, err
	}
	return &dto.TokenPairDTO{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenPairDTO, error) {
	claims, err := s.jwt.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefreshToken {
		return nil, apperrors.ErrInvalidToken
	}

	// Роли перечитываются из профиля: за время жизни refresh-токена
	// они могли измениться.
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}

	access, refresh, err := s.jwt.GenerateTokens(user.ID, utils.SplitRoles(user.Roles))
	if err != nil {
		return nil, err
	}
	return &dto.TokenPairDTO{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) Profile(ctx context.Context, userID uint64) (*entities.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
