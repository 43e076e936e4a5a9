package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/internal/app/service"
	apperrors "github.com/jwkim/storefront-backend/internal/errors"
	"github.com/jwkim/storefront-backend/internal/middleware"
	"github.com/jwkim/storefront-backend/internal/storage"
)

const (
	minProductImages = 3
	maxProductImages = 5
	maxImageSize     = 10 * 1024 * 1024 // 10MB per file
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

type ProductController struct {
	productService service.ProductService
	storage        *storage.S3Storage
}

func NewProductController(productService service.ProductService, s3 *storage.S3Storage) *ProductController {
	return &ProductController{
		productService: productService,
		storage:        s3,
	}
}

type CreateProductRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" binding:"gte=0"`
	Stock       int      `json:"stock" binding:"gte=0"`
	CategoryID  *uint    `json:"category_id"`
	ImageURLs   []string `json:"image_urls"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
	CategoryID  *uint    `json:"category_id"`
}

// ListProducts returns the catalog with filtering and pagination
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	filter := repository.ProductFilter{
		Search:        c.Query("search"),
		SortBy:        repository.ProductSort(c.DefaultQuery("sort_by", "created_at")),
		SortAscending: c.DefaultQuery("order", "desc") == "asc",
	}

	if categoryID := c.Query("category_id"); categoryID != "" {
		id, err := strconv.ParseUint(categoryID, 10, 32)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid category id")
			return
		}
		cid := uint(id)
		filter.CategoryID = &cid
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	products, total, err := ctrl.productService.GetProducts(filter)
	if err != nil {
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// GetProduct returns one product
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid product id")
		return
	}

	product, err := ctrl.productService.GetProductByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "product not found")
			return
		}
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// CreateProduct creates a product (admin)
// POST /api/v1/admin/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create product request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	product, err := ctrl.productService.CreateProduct(service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"product": product,
	})
}

// UpdateProduct updates a product (admin)
// PUT /api/v1/admin/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid product id")
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	product, err := ctrl.productService.UpdateProduct(uint(id), service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// DeleteProduct deletes a product (admin)
// DELETE /api/v1/admin/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid product id")
		return
	}

	if err := ctrl.productService.DeleteProduct(uint(id)); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "product not found")
			return
		}
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "product deleted",
	})
}

// UploadProductImages uploads 3-5 product images to S3 and replaces the
// product's image set (admin)
// POST /api/v1/admin/products/:id/images
func (ctrl *ProductController) UploadProductImages(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid product id")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid multipart form")
		return
	}

	files := form.File["images"]
	if len(files) < minProductImages || len(files) > maxProductImages {
		apperrors.BadRequest(c, apperrors.UploadInvalidCount, "between 3 and 5 images are required")
		return
	}

	urls := make([]string, 0, len(files))
	for _, fileHeader := range files {
		contentType := fileHeader.Header.Get("Content-Type")
		if err := ctrl.storage.ValidateContentType(contentType, allowedImageTypes); err != nil {
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "unsupported image type")
			return
		}
		if err := ctrl.storage.ValidateFileSize(fileHeader.Size, maxImageSize); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "image too large")
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			apperrors.InternalError(c, err)
			return
		}

		url, err := ctrl.storage.Upload(c.Request.Context(), file, fileHeader.Filename, contentType, "products")
		file.Close()
		if err != nil {
			log.Error("Failed to upload product image", err, map[string]interface{}{
				"product_id": id,
				"filename":   fileHeader.Filename,
			})
			apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.UploadFailed, "image upload failed")
			return
		}
		urls = append(urls, url)
	}

	product, err := ctrl.productService.SetProductImages(uint(id), urls)
	if err != nil {
		ctrl.respondProductError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

func (ctrl *ProductController) respondProductError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "product not found")
	case errors.Is(err, service.ErrCategoryNotFound):
		apperrors.NotFound(c, apperrors.CategoryNotFound, "category not found")
	case errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidStock):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
	default:
		apperrors.InternalError(c, err)
	}
}
