package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwkim/storefront-backend/config"
	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/pkg/util"
)

func newIdentityTestRouter(t *testing.T) (*gin.Engine, *IdentityMiddleware) {
	t.Helper()
	identityMW := NewIdentityMiddleware(&config.GuestConfig{
		CookieName: "guest_id",
		CookieTTL:  15 * time.Minute,
	})
	authMW := NewAuthMiddleware(testSecret)

	r := gin.New()
	r.GET("/whoami", authMW.OptionalAuthenticate(), identityMW.ResolveActor(), func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"kind":     actor.Kind,
			"user_id":  actor.UserID,
			"guest_id": actor.GuestID,
		})
	})
	return r, identityMW
}

func guestCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "guest_id" {
			return cookie
		}
	}
	return nil
}

func TestResolveActor_MintsGuestCookie(t *testing.T) {
	router, _ := newIdentityTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookie := guestCookie(w)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 15*60, cookie.MaxAge)
	assert.Contains(t, w.Body.String(), string(model.ActorGuest))
}

func TestResolveActor_ReusesAndRenewsCookie(t *testing.T) {
	router, _ := newIdentityTestRouter(t)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	minted := guestCookie(first)
	require.NotNil(t, minted)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(minted)
	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)

	// The same identity comes back, with a fresh expiry.
	renewed := guestCookie(second)
	require.NotNil(t, renewed)
	assert.Equal(t, minted.Value, renewed.Value)
	assert.Contains(t, second.Body.String(), minted.Value)
}

func TestResolveActor_PrefersAuthenticatedUser(t *testing.T) {
	router, _ := newIdentityTestRouter(t)

	tokens, err := util.GenerateTokenPair(7, "user@example.com", "user", testSecret, time.Hour, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	// A stale guest cookie must not demote the user to a guest.
	req.AddCookie(&http.Cookie{Name: "guest_id", Value: "stale-guest"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(model.ActorUser))
	assert.Contains(t, w.Body.String(), `"user_id":7`)
	// No guest cookie is written for authenticated requests.
	assert.Nil(t, guestCookie(w))
}

func TestGetGuestID(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetGuestID(c, "guest_id"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "guest_id", Value: "cookie-value"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "cookie-value", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, w.Body.String())
}
