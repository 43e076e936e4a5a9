package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/internal/db"
	"github.com/jwkim/storefront-backend/pkg/util"
)

const authTestSecret = "auth-test-secret"

func setupAuthServiceTest(t *testing.T) (AuthService, CartService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	userRepo := repository.NewUserRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartService := NewCartService(cartRepo, productRepo)
	authService := NewAuthService(userRepo, cartService, authTestSecret, 15*time.Minute, 24*time.Hour)

	return authService, cartService, testDB
}

func TestAuthService_Register(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	user, tokens, err := authService.Register("new@example.com", "password123", "New User", "010-1111-2222")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)
	require.NotNil(t, tokens)

	claims, err := util.ValidateToken(tokens.AccessToken, authTestSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, util.TokenTypeAccess, claims.TokenType)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	_, _, err := authService.Register("dup@example.com", "password123", "First", "")
	require.NoError(t, err)

	_, _, err = authService.Register("dup@example.com", "different456", "Second", "")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	registered, _, err := authService.Register("login@example.com", "password123", "Login User", "010-3333-4444")
	require.NoError(t, err)

	// By email.
	user, tokens, err := authService.Login("login@example.com", "password123", "")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotNil(t, tokens)

	// By phone number.
	user, _, err = authService.Login("010-3333-4444", "password123", "")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	// Wrong password and unknown identifier give the same error.
	_, _, err = authService.Login("login@example.com", "wrong-pass", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = authService.Login("nobody@example.com", "password123", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_MergesGuestCart(t *testing.T) {
	authService, cartService, testDB := setupAuthServiceTest(t)

	product := &model.Product{Name: "Merged", Price: 5.00, Stock: 10}
	testDB.Create(product)

	user, _, err := authService.Register("merge@example.com", "password123", "Merge User", "")
	require.NoError(t, err)

	_, err = cartService.AddItem(model.GuestActor("guest-token"), product.ID, 3)
	require.NoError(t, err)

	_, _, err = authService.Login("merge@example.com", "password123", "guest-token")
	require.NoError(t, err)

	cart, err := cartService.GetCart(model.UserActor(user.ID))
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	var count int64
	testDB.Model(&model.Cart{}).Where("guest_id = ?", "guest-token").Count(&count)
	assert.Zero(t, count)
}

func TestAuthService_Refresh_Rotation(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	_, tokens, err := authService.Register("rotate@example.com", "password123", "Rotate", "")
	require.NoError(t, err)

	rotated, err := authService.Refresh(tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The consumed token is dead, the rotated one works.
	_, err = authService.Refresh(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = authService.Refresh(rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	_, tokens, err := authService.Register("type@example.com", "password123", "Type", "")
	require.NoError(t, err)

	_, err = authService.Refresh(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = authService.Refresh("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestAuthService_Logout_RevokesRefresh(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	user, tokens, err := authService.Register("logout@example.com", "password123", "Logout", "")
	require.NoError(t, err)

	require.NoError(t, authService.Logout(context.Background(), user.ID, tokens.AccessToken))

	_, err = authService.Refresh(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	err = authService.Logout(context.Background(), user.ID+999, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	user, _, err := authService.Register("profile@example.com", "password123", "Before", "010-0000-0000")
	require.NoError(t, err)

	updated, err := authService.UpdateProfile(user.ID, "After", "", "42 New Road")
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, "010-0000-0000", updated.Phone)
	assert.Equal(t, "42 New Road", updated.Address)

	_, err = authService.UpdateProfile(user.ID+999, "Ghost", "", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_EnsureAdminUser(t *testing.T) {
	authService, _, testDB := setupAuthServiceTest(t)

	require.NoError(t, authService.EnsureAdminUser("admin@example.com", "admin-secret"))
	require.NoError(t, authService.EnsureAdminUser("admin@example.com", "admin-secret"))

	var admins []model.User
	testDB.Where("email = ?", "admin@example.com").Find(&admins)
	require.Len(t, admins, 1)
	assert.Equal(t, model.RoleAdmin, admins[0].Role)

	// Missing credentials skip provisioning entirely.
	require.NoError(t, authService.EnsureAdminUser("", ""))
}
