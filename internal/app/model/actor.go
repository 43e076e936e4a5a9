package model

// ActorKind distinguishes authenticated users from anonymous guests.
type ActorKind string

const (
	ActorUser  ActorKind = "user"
	ActorGuest ActorKind = "guest"
)

// Actor is the resolved identity behind every cart and order operation.
// It is a tagged union: exactly one of UserID/GuestID is meaningful,
// selected by Kind. Construct values through UserActor or GuestActor so
// the invalid states (both set, neither set) cannot be expressed.
type Actor struct {
	Kind    ActorKind
	UserID  uint
	GuestID string
}

// UserActor returns the actor for an authenticated user.
func UserActor(userID uint) Actor {
	return Actor{Kind: ActorUser, UserID: userID}
}

// GuestActor returns the actor for an anonymous visitor token.
func GuestActor(token string) Actor {
	return Actor{Kind: ActorGuest, GuestID: token}
}

// IsUser reports whether the actor is an authenticated user.
func (a Actor) IsUser() bool {
	return a.Kind == ActorUser
}
