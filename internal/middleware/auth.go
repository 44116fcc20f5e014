package middleware

import (
	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentUser(c); !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetUser returns the raw session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// CurrentUser decodes the session user. ok is false when nobody is logged in.
func CurrentUser(c *fiber.Ctx) (SessionUser, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return SessionUser{}, false
	}
	var u SessionUser
	u.UserID, _ = m["user_id"].(string)
	u.Fullname, _ = m["fullname"].(string)
	u.Email, _ = m["email"].(string)
	u.Role, _ = m["role"].(string)
	if u.UserID == "" {
		return SessionUser{}, false
	}
	return u, true
}

// ActorFrom builds the acting user for service calls from the session and request IP.
func ActorFrom(c *fiber.Ctx) (domain.Actor, bool) {
	u, ok := CurrentUser(c)
	if !ok {
		return domain.Actor{}, false
	}
	id, err := uuid.Parse(u.UserID)
	if err != nil {
		return domain.Actor{}, false
	}
	return domain.Actor{UserID: id, Role: u.Role, IP: c.IP()}, true
}
