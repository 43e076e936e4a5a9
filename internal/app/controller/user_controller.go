package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/service"
	apperrors "github.com/jwkim/storefront-backend/internal/errors"
	"github.com/jwkim/storefront-backend/internal/middleware"
)

// UserController exposes the admin user management endpoints.
type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{
		userService: userService,
	}
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ListUsers returns users with pagination (admin)
// GET /api/v1/admin/users
func (ctrl *UserController) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	users, total, err := ctrl.userService.ListUsers(page, limit)
	if err != nil {
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUser returns one user (admin)
// GET /api/v1/admin/users/:id
func (ctrl *UserController) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid user id")
		return
	}

	user, err := ctrl.userService.GetUserByID(uint(id))
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

// UpdateUserRole changes a user's role (admin)
// PUT /api/v1/admin/users/:id/role
func (ctrl *UserController) UpdateUserRole(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid user id")
		return
	}

	var req UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	user, err := ctrl.userService.UpdateUserRole(uint(id), model.UserRole(req.Role))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "user not found")
			return
		}
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		return
	}

	log.Info("User role updated", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}

// DeleteUser removes a user (admin)
// DELETE /api/v1/admin/users/:id
func (ctrl *UserController) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid user id")
		return
	}

	if err := ctrl.userService.DeleteUser(uint(id)); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "user not found")
			return
		}
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "user deleted",
	})
}
