package auth

import (
	"context"
	"errors"

	authsvc "taxqual-backend/internal/application/auth"
	"taxqual-backend/internal/middleware"
	"taxqual-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// LogoutRecorder audits a logout; optional.
type LogoutRecorder interface {
	RecordLogout(ctx context.Context, userID, ip string)
}

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	UserFinder authsvc.UserFinder
	Logouts    LogoutRecorder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// LoginRequest body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /api/v1/auth/login: authenticate, start a new session, index it under
// user_sessions:<id>, set the cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, authsvc.ErrEmailPasswordRequired.Error(), nil)
	}
	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, authsvc.ErrEmailPasswordRequired.Error(), nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(c.UserContext(), authsvc.LoginInput{
		Email: req.Email, Password: req.Password, IP: c.IP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailPasswordRequired):
			return response.BadRequest(c, err.Error(), nil)
		case errors.Is(err, authsvc.ErrInvalidEmail), errors.Is(err, authsvc.ErrIncorrectPassword):
			return response.Unauthorized(c, err.Error())
		case errors.Is(err, authsvc.ErrAccountLocked):
			return response.Error(c, err.Error(), fiber.StatusLocked, nil)
		case errors.Is(err, authsvc.ErrAccountInactive):
			return response.Forbidden(c, err.Error())
		default:
			log.Ctx(c.UserContext()).Error().Err(err).Msg("auth/login failed")
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   user.UserID.String(),
		Fullname: user.Fullname,
		Email:    user.Email,
		Role:     user.Role,
	})

	if err := h.Rdb.SAdd(c.UserContext(), middleware.UserSessionsPrefix+user.UserID.String(), sessionID).Err(); err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{
		"user": fiber.Map{
			"user_id":  user.UserID.String(),
			"fullname": user.Fullname,
			"email":    user.Email,
			"role":     user.Role,
		},
	}, nil)
}

// Me GET /api/v1/auth/me returns the session user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	sessionUser := middleware.GetUser(c)
	user, err := authsvc.VerifyUser(sessionUser)
	if err != nil {
		if middleware.GetSessionID(c) != "" {
			log.Ctx(c.UserContext()).Debug().Msg("auth/me: session id present but no user in session data")
		}
		return response.Unauthorized(c, authsvc.ErrNotAuthenticated.Error())
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// Logout DELETE /api/v1/auth/logout drops the session from Redis and clears the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := c.UserContext()

	if u, ok := middleware.CurrentUser(c); ok {
		if sessionID != "" {
			_ = h.Rdb.SRem(ctx, middleware.UserSessionsPrefix+u.UserID, sessionID).Err()
		}
		if h.Logouts != nil {
			h.Logouts.RecordLogout(ctx, u.UserID, c.IP())
		}
	}
	if sessionID != "" {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}

	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}
