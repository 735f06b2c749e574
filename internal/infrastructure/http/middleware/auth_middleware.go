package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/recapcrew/recap-engine/internal/usecase/authz"
	"github.com/recapcrew/recap-engine/pkg/jwt"
)

// ContextKey is the type for echo context keys set by this middleware.
const (
	// UserIDKey holds the authenticated user's uuid.UUID.
	UserIDKey = "user_id"
	// ClaimsKey holds the full *jwt.Claims.
	ClaimsKey = "claims"
)

// EchoAuth returns an Echo middleware that validates the bearer token, sets
// "user_id" and "claims" into the Echo context and copies the membership and
// admin claims into the request context for the authorizer.
func EchoAuth(manager *jwt.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization token")
			}

			claims, err := manager.ValidateToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(UserIDKey, claims.UserID)
			c.Set(ClaimsKey, claims)

			ctx := authz.WithProjects(c.Request().Context(), claims.Projects)
			ctx = authz.WithAdmin(ctx, claims.Admin)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// Try cookie as fallback
	if cookie, err := c.Cookie("access_token"); err == nil {
		return cookie.Value
	}

	return ""
}
