package errors

// Error code constants, format: CATEGORY_SPECIFIC_DETAIL.
// Frontends map these codes to their own display messages.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Catalog (PRODUCT_ / CATEGORY_) ====================
	ProductNotFound  = "PRODUCT_NOT_FOUND"
	CategoryNotFound = "CATEGORY_NOT_FOUND"

	// ==================== Cart (CART_) ====================
	CartNotFound          = "CART_NOT_FOUND"
	CartItemNotFound      = "CART_ITEM_NOT_FOUND"
	CartInsufficientStock = "CART_INSUFFICIENT_STOCK"
	CartEmpty             = "CART_EMPTY"

	// ==================== Orders (ORDER_) ====================
	OrderNotFound      = "ORDER_NOT_FOUND"
	OrderInvalidStatus = "ORDER_INVALID_STATUS"

	// ==================== Uploads (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadInvalidCount    = "UPLOAD_INVALID_COUNT"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
)
