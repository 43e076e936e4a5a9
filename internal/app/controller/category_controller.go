package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwkim/storefront-backend/internal/app/service"
	apperrors "github.com/jwkim/storefront-backend/internal/errors"
)

type CategoryController struct {
	categoryService service.CategoryService
}

func NewCategoryController(categoryService service.CategoryService) *CategoryController {
	return &CategoryController{
		categoryService: categoryService,
	}
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ListCategories returns all categories
// GET /api/v1/categories
func (ctrl *CategoryController) ListCategories(c *gin.Context) {
	categories, err := ctrl.categoryService.GetCategories()
	if err != nil {
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"count":      len(categories),
	})
}

// GetCategory returns one category
// GET /api/v1/categories/:id
func (ctrl *CategoryController) GetCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid category id")
		return
	}

	category, err := ctrl.categoryService.GetCategoryByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			apperrors.NotFound(c, apperrors.CategoryNotFound, "category not found")
			return
		}
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
	})
}

// CreateCategory creates a category (admin)
// POST /api/v1/admin/categories
func (ctrl *CategoryController) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	category, err := ctrl.categoryService.CreateCategory(req.Name, req.Description)
	if err != nil {
		if errors.Is(err, service.ErrCategoryExists) {
			apperrors.Conflict(c, apperrors.ResourceAlreadyExists, "category already exists")
			return
		}
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"category": category,
	})
}

// UpdateCategory updates a category (admin)
// PUT /api/v1/admin/categories/:id
func (ctrl *CategoryController) UpdateCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid category id")
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	category, err := ctrl.categoryService.UpdateCategory(uint(id), req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound):
			apperrors.NotFound(c, apperrors.CategoryNotFound, "category not found")
		case errors.Is(err, service.ErrCategoryExists):
			apperrors.Conflict(c, apperrors.ResourceAlreadyExists, "category already exists")
		default:
			apperrors.InternalError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
	})
}

// DeleteCategory deletes a category (admin)
// DELETE /api/v1/admin/categories/:id
func (ctrl *CategoryController) DeleteCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid category id")
		return
	}

	if err := ctrl.categoryService.DeleteCategory(uint(id)); err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			apperrors.NotFound(c, apperrors.CategoryNotFound, "category not found")
			return
		}
		if errors.Is(err, service.ErrCategoryInUse) {
			apperrors.Conflict(c, apperrors.ResourceConflict, "category is referenced by products")
			return
		}
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "category deleted",
	})
}
