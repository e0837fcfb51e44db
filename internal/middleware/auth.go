package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/marketbay/audit-api/internal/utils"
)

// JWTProtected returns a middleware that validates admin bearer tokens and
// binds the actor identity to the request. The identity service issues the
// tokens; this service only verifies them and reads the admin id plus the
// privileged claim.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		adminID := extractAdminIDFromClaims(claims)
		if adminID == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}
		c.Locals("admin_id", *adminID)
		c.Locals("privileged", extractPrivilegedFromClaims(claims))

		return c.Next()
	}
}

// RequirePrivileged gates endpoints reserved for super admins. The privileged
// flag is established by JWTProtected from the token claims.
func RequirePrivileged() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !PrivilegedFromContext(c) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// AdminIDFromContext returns the authenticated admin id, or zero when absent.
func AdminIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("admin_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// PrivilegedFromContext reports whether the authenticated admin carries the
// privileged claim.
func PrivilegedFromContext(c *fiber.Ctx) bool {
	if v := c.Locals("privileged"); v != nil {
		if privileged, ok := v.(bool); ok {
			return privileged
		}
	}
	return false
}

func extractAdminIDFromClaims(claims jwt.MapClaims) *uint {
	keys := []string{"sub", "admin_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeAdminID(value); err == nil {
				return &normalized
			}
		}
	}

	return nil
}

func normalizeAdminID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

func extractPrivilegedFromClaims(claims jwt.MapClaims) bool {
	candidates := []string{"privileged", "is_super"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if privileged, ok := value.(bool); ok {
				return privileged
			}
		}
	}
	return false
}
