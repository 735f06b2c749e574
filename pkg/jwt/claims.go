package jwt

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents JWT custom claims. Project memberships and the admin flag
// travel inside the token; the identity provider is the source of truth.
type Claims struct {
	UserID   uuid.UUID   `json:"user_id"`
	Email    string      `json:"email"`
	Admin    bool        `json:"admin"`
	Projects []uuid.UUID `json:"projects"`
	jwt.RegisteredClaims
}
