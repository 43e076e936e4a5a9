package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwkim/storefront-backend/config"
	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/pkg/util"
)

// ActorKey is the gin context key holding the resolved actor.
const ActorKey = "actor"

// IdentityMiddleware resolves every request to a single actor: the
// authenticated user when a valid token was presented, otherwise a
// guest identified by an opaque cookie.
type IdentityMiddleware struct {
	cookieName string
	cookieTTL  int // seconds
}

func NewIdentityMiddleware(cfg *config.GuestConfig) *IdentityMiddleware {
	return &IdentityMiddleware{
		cookieName: cfg.CookieName,
		cookieTTL:  int(cfg.CookieTTL.Seconds()),
	}
}

// ResolveActor must run after OptionalAuthenticate. Guests get their
// cookie minted on first contact and renewed on every request, so an
// active guest session never expires mid-browse.
func (m *IdentityMiddleware) ResolveActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		if userID, ok := GetUserID(c); ok {
			c.Set(ActorKey, model.UserActor(userID))
			c.Next()
			return
		}

		guestID, err := c.Cookie(m.cookieName)
		if err != nil || guestID == "" {
			guestID = util.GenerateGuestToken()
			log.Debug("Minted new guest identity", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
		}

		// Renew on every request; the cookie is httpOnly so scripts
		// cannot read the guest identity.
		c.SetCookie(m.cookieName, guestID, m.cookieTTL, "/", "", false, true)

		c.Set(ActorKey, model.GuestActor(guestID))
		c.Next()
	}
}

// GetActor extracts the resolved actor from context.
func GetActor(c *gin.Context) (model.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}

// GetGuestID returns the guest cookie value if the request carries one,
// even for authenticated users. Login uses it to merge the guest cart.
func GetGuestID(c *gin.Context, cookieName string) string {
	guestID, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return guestID
}
