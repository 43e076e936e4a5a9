package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/config"
	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/internal/app/service"
	"github.com/jwkim/storefront-backend/internal/db"
	apperrors "github.com/jwkim/storefront-backend/internal/errors"
	"github.com/jwkim/storefront-backend/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type cartAPITest struct {
	router  *gin.Engine
	db      *gorm.DB
	product *model.Product
}

func setupCartAPITest(t *testing.T) *cartAPITest {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartService := service.NewCartService(cartRepo, productRepo)
	cartController := NewCartController(cartService)

	identityMW := middleware.NewIdentityMiddleware(&config.GuestConfig{
		CookieName: "guest_id",
		CookieTTL:  15 * time.Minute,
	})

	r := gin.New()
	cart := r.Group("/cart", identityMW.ResolveActor())
	{
		cart.GET("", cartController.GetCart)
		cart.POST("/items", cartController.AddToCart)
		cart.DELETE("", cartController.ClearCart)
		cart.PUT("/items/:id", cartController.UpdateCartItem)
		cart.DELETE("/items/:id", cartController.RemoveCartItem)
	}

	product := &model.Product{Name: "Test Product", Price: 10.00, Stock: 10}
	testDB.Create(product)

	return &cartAPITest{router: r, db: testDB, product: product}
}

func (ts *cartAPITest) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "guest_id" {
			return cookie
		}
	}
	return nil
}

type cartBody struct {
	CartItems []model.CartItem `json:"cart_items"`
	Count     int              `json:"count"`
	Total     float64          `json:"total"`
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) cartBody {
	t.Helper()
	var body cartBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestCartAPI_GuestFlow(t *testing.T) {
	ts := setupCartAPITest(t)

	// First contact mints a guest cookie and an empty cart.
	w := ts.do(t, http.MethodGet, "/cart", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeCart(t, w).Count)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)

	// Adding with the same cookie lands in the same cart.
	w = ts.do(t, http.MethodPost, "/cart/items", AddToCartRequest{ProductID: ts.product.ID, Quantity: 2}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeCart(t, w)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, 2, body.CartItems[0].Quantity)
	assert.Equal(t, 20.00, body.Total)

	// A different browser session gets its own empty cart.
	w = ts.do(t, http.MethodGet, "/cart", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeCart(t, w).Count)

	// The original session still sees its item.
	w = ts.do(t, http.MethodGet, "/cart", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeCart(t, w).Count)
}

func TestCartAPI_AddValidation(t *testing.T) {
	ts := setupCartAPITest(t)

	w := ts.do(t, http.MethodPost, "/cart/items", gin.H{"product_id": ts.product.ID}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationInvalidInput, decodeErrorCode(t, w))

	w = ts.do(t, http.MethodPost, "/cart/items", AddToCartRequest{ProductID: ts.product.ID + 999, Quantity: 1}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ProductNotFound, decodeErrorCode(t, w))

	w = ts.do(t, http.MethodPost, "/cart/items", AddToCartRequest{ProductID: ts.product.ID, Quantity: 11}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CartInsufficientStock, decodeErrorCode(t, w))
}

func TestCartAPI_UpdateAndRemoveItem(t *testing.T) {
	ts := setupCartAPITest(t)

	w := ts.do(t, http.MethodPost, "/cart/items", AddToCartRequest{ProductID: ts.product.ID, Quantity: 2}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(w)
	itemID := decodeCart(t, w).CartItems[0].ID

	itemPath := fmt.Sprintf("/cart/items/%d", itemID)

	w = ts.do(t, http.MethodPut, itemPath, gin.H{"quantity": 5}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decodeCart(t, w).CartItems[0].Quantity)

	// Quantity zero removes the item; the pointer binding keeps the
	// explicit zero from being rejected as a missing field.
	w = ts.do(t, http.MethodPut, itemPath, gin.H{"quantity": 0}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeCart(t, w).Count)

	w = ts.do(t, http.MethodDelete, itemPath, nil, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CartItemNotFound, decodeErrorCode(t, w))

	w = ts.do(t, http.MethodPut, "/cart/items/banana", gin.H{"quantity": 1}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationInvalidID, decodeErrorCode(t, w))
}

func TestCartAPI_ForeignItemInvisible(t *testing.T) {
	ts := setupCartAPITest(t)

	w := ts.do(t, http.MethodPost, "/cart/items", AddToCartRequest{ProductID: ts.product.ID, Quantity: 1}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	itemID := decodeCart(t, w).CartItems[0].ID

	// Another session addressing the item gets 404, never 403.
	w = ts.do(t, http.MethodPut, fmt.Sprintf("/cart/items/%d", itemID), gin.H{"quantity": 3}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CartItemNotFound, decodeErrorCode(t, w))
}

func TestCartAPI_ClearCart(t *testing.T) {
	ts := setupCartAPITest(t)

	w := ts.do(t, http.MethodPost, "/cart/items", AddToCartRequest{ProductID: ts.product.ID, Quantity: 3}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(w)

	w = ts.do(t, http.MethodDelete, "/cart", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/cart", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeCart(t, w).Count)
}
