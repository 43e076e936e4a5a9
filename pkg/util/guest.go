package util

import (
	"github.com/google/uuid"
)

// GenerateGuestToken creates an opaque identifier for an anonymous visitor.
// The token is only meaningful as a cart key; it carries no claims.
func GenerateGuestToken() string {
	return uuid.NewString()
}
