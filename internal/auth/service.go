package auth

import (
	"context"
	"errors"
	"time"

	"go-gin-event-registration/internal/cache"
	"go-gin-event-registration/internal/model"
	"go-gin-event-registration/internal/repository"
	apperrors "go-gin-event-registration/pkg/app_errors"
	"go-gin-event-registration/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req model.SignUpRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error)
	Logout(ctx context.Context, session *model.Session) error
	CurrentUser(ctx context.Context, session *model.Session) (*model.User, error)
	// Authenticate 驗證 token 並檢查是否已登出
	Authenticate(ctx context.Context, token string) (*model.Session, error)
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	blacklist cache.TokenBlacklist
	tokens    *TokenManager
	hasher    *PasswordHasher
	now       func() time.Time
	log       *zap.Logger
}

func NewAuthService(users repository.UserRepository, blacklist cache.TokenBlacklist, tokens *TokenManager, hasher *PasswordHasher) AuthService {
	return &AuthServiceImpl{
		users:     users,
		blacklist: blacklist,
		tokens:    tokens,
		hasher:    hasher,
		now:       time.Now,
		log:       logger.WithComponent("service"),
	}
}

// Register 建立主辦方帳號並直接登入
func (s *AuthServiceImpl) Register(ctx context.Context, req model.SignUpRequest) (*model.AuthResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, &model.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.UserRoleOrganizer,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

func (s *AuthServiceImpl) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Logout 撤銷目前 token，直到原本的到期時間
func (s *AuthServiceImpl) Logout(ctx context.Context, session *model.Session) error {
	if session == nil {
		return apperrors.ErrUnauthorized
	}
	return s.blacklist.Revoke(ctx, session.TokenID, session.ExpiresAt.Sub(s.now()))
}

func (s *AuthServiceImpl) CurrentUser(ctx context.Context, session *model.Session) (*model.User, error) {
	if session == nil {
		return nil, apperrors.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthServiceImpl) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	session, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, session.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperrors.ErrUnauthorized
	}
	return session, nil
}

func (s *AuthServiceImpl) issue(user *model.User) (*model.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}
