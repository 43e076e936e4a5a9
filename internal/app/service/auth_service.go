package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	apperrors "github.com/jwkim/storefront-backend/internal/errors"
	"github.com/jwkim/storefront-backend/pkg/logger"
	"github.com/jwkim/storefront-backend/pkg/redis"
	"github.com/jwkim/storefront-backend/pkg/util"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)

type AuthService interface {
	Register(email, password, name, phone string) (*model.User, *util.TokenPair, error)
	Login(identifier, password, guestID string) (*model.User, *util.TokenPair, error)
	Refresh(refreshToken string) (*util.TokenPair, error)
	Logout(ctx context.Context, userID uint, accessToken string) error
	GetUserByID(id uint) (*model.User, error)
	UpdateProfile(userID uint, name, phone, address string) (*model.User, error)
	EnsureAdminUser(email, password string) error
}

type authService struct {
	userRepo      repository.UserRepository
	cartService   CartService
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	cartService CartService,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		cartService:   cartService,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *authService) Register(email, password, name, phone string) (*model.User, *util.TokenPair, error) {
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": email,
	})

	existingUser, err := s.userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}
	if existingUser != nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		logger.Error("Failed to hash password", err)
		return nil, nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Phone:        phone,
		Role:         model.RoleUser,
	}

	if err := s.userRepo.Create(user); err != nil {
		// The existence pre-check races with concurrent registrations;
		// the unique index has the final word.
		if apperrors.IsDuplicateKey(err) {
			return nil, nil, ErrEmailAlreadyExists
		}
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User registered", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return user, tokens, nil
}

// Login authenticates by email or phone number. A non-empty guestID
// merges that guest's cart into the user's cart on success.
func (s *authService) Login(identifier, password, guestID string) (*model.User, *util.TokenPair, error) {
	logger.Info("Attempting login", map[string]interface{}{
		"identifier": identifier,
	})

	user, err := s.findByIdentifier(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"identifier": identifier,
			})
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: wrong password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	if guestID != "" && s.cartService != nil {
		if err := s.cartService.MergeGuestCart(guestID, user.ID); err != nil {
			// Merge failures must not block login.
			logger.Error("Failed to merge guest cart at login", err, map[string]interface{}{
				"user_id": user.ID,
			})
		}
	}

	logger.Info("Login succeeded", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, tokens, nil
}

func (s *authService) findByIdentifier(identifier string) (*model.User, error) {
	if strings.Contains(identifier, "@") {
		return s.userRepo.FindByEmail(identifier)
	}
	return s.userRepo.FindByPhone(identifier)
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate token pair", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}

	user.RefreshTokenHash = util.HashToken(tokens.RefreshToken)
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Refresh validates a refresh token, rotates it, and returns a new pair.
// The previous refresh token is unusable afterwards.
func (s *authService) Refresh(refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		logger.Warn("Refresh failed: invalid token")
		return nil, ErrInvalidRefresh
	}
	if claims.TokenType != util.TokenTypeRefresh {
		return nil, ErrInvalidRefresh
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if user.RefreshTokenHash == "" ||
		user.RefreshTokenHash != util.HashToken(refreshToken) {
		logger.Warn("Refresh failed: token superseded or revoked", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, ErrInvalidRefresh
	}

	return s.issueTokens(user)
}

// Logout revokes the stored refresh token and blacklists the current
// access token for its remaining lifetime.
func (s *authService) Logout(ctx context.Context, userID uint, accessToken string) error {
	logger.Info("Logging out user", map[string]interface{}{
		"user_id": userID,
	})

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	user.RefreshTokenHash = ""
	if err := s.userRepo.Update(user); err != nil {
		return err
	}

	if accessToken != "" {
		if err := redis.BlacklistToken(ctx, accessToken, s.accessExpiry); err != nil {
			logger.Error("Failed to blacklist access token", err, map[string]interface{}{
				"user_id": userID,
			})
		}
	}
	return nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) UpdateProfile(userID uint, name, phone, address string) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if name != "" {
		user.Name = name
	}
	if phone != "" {
		user.Phone = phone
	}
	if address != "" {
		user.Address = address
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	logger.Info("User profile updated", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}

// EnsureAdminUser provisions the configured admin account on startup if
// it does not already exist.
func (s *authService) EnsureAdminUser(email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := s.userRepo.FindByEmail(email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &model.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
	}
	if err := s.userRepo.Create(admin); err != nil {
		return err
	}

	logger.Info("Admin user provisioned", map[string]interface{}{
		"email": email,
	})
	return nil
}
