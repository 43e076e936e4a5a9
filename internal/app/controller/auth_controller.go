package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwkim/storefront-backend/internal/app/service"
	apperrors "github.com/jwkim/storefront-backend/internal/errors"
	"github.com/jwkim/storefront-backend/internal/middleware"
)

type AuthController struct {
	authService     service.AuthService
	guestCookieName string
}

func NewAuthController(authService service.AuthService, guestCookieName string) *AuthController {
	return &AuthController{
		authService:     authService,
		guestCookieName: guestCookieName,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	// Identifier accepts an email address or a phone number.
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type UpdateProfileRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Register creates a new account
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	user, tokens, err := ctrl.authService.Register(req.Email, req.Password, req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "email already registered")
			return
		}
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":   user,
		"tokens": tokens,
	})
}

// Login authenticates by email or phone. A guest cookie on the request
// merges that guest's cart into the user's cart.
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	guestID := middleware.GetGuestID(c, ctrl.guestCookieName)

	user, tokens, err := ctrl.authService.Login(req.Identifier, req.Password, guestID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			apperrors.Unauthorized(c, apperrors.AuthInvalidCredentials, "invalid credentials")
			return
		}
		apperrors.InternalError(c, err)
		return
	}

	// The guest session is consumed by the merge.
	if guestID != "" {
		c.SetCookie(ctrl.guestCookieName, "", -1, "/", "", false, true)
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   user,
		"tokens": tokens,
	})
}

// Refresh rotates a refresh token
// POST /api/v1/auth/refresh
func (ctrl *AuthController) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	tokens, err := ctrl.authService.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			apperrors.Unauthorized(c, apperrors.AuthTokenInvalid, "invalid refresh token")
			return
		}
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tokens": tokens,
	})
}

// Logout revokes the session
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, apperrors.AuthUnauthorized, "authentication required")
		return
	}

	accessToken, _ := middleware.GetAccessToken(c)
	if err := ctrl.authService.Logout(c.Request.Context(), userID, accessToken); err != nil {
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "logged out",
	})
}

// Me returns the authenticated user's profile
// GET /api/v1/auth/me
func (ctrl *AuthController) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, apperrors.AuthUnauthorized, "authentication required")
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "user not found")
			return
		}
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}

// UpdateMe updates the authenticated user's profile
// PUT /api/v1/auth/me
func (ctrl *AuthController) UpdateMe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, apperrors.AuthUnauthorized, "authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	user, err := ctrl.authService.UpdateProfile(userID, req.Name, req.Phone, req.Address)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "user not found")
			return
		}
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}
