package users

import (
	"errors"

	policies "taxqual-backend/internal/application/policies/users"
	usersvc "taxqual-backend/internal/application/users"
	"taxqual-backend/internal/middleware"
	"taxqual-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handlers serves admin user management.
type Handlers struct {
	Service *usersvc.Service
	Rdb     *redis.Client
}

// Create POST /api/v1/users
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req usersvc.CreateUserInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Missing required fields", nil)
	}
	if req.Email == "" || req.Password == "" || req.Fullname == "" {
		return response.BadRequest(c, "Missing required fields", nil)
	}
	u, err := h.Service.CreateUser(c.UserContext(), req)
	if err != nil {
		return respond(c, err)
	}
	return response.SuccessCreated(c, "User created successfully", fiber.Map{"user": u}, nil)
}

// Update PUT /api/v1/users/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.NotFound(c, usersvc.ErrUserNotFound.Error())
	}
	var fields map[string]interface{}
	if err := c.BodyParser(&fields); err != nil {
		return response.BadRequest(c, usersvc.ErrMissingFields.Error(), nil)
	}
	u, err := h.Service.UpdateUser(c.UserContext(), actor.UserID, id, fields)
	if err != nil {
		return respond(c, err)
	}
	if !u.Active {
		policies.DestroyUserSessions(c.UserContext(), h.Rdb, id.String())
	}
	return response.Success(c, "User updated successfully", fiber.Map{"user": u}, nil)
}

// Delete DELETE /api/v1/users/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.NotFound(c, usersvc.ErrUserNotFound.Error())
	}
	if err := h.Service.RemoveUser(c.UserContext(), actor.UserID, id); err != nil {
		return respond(c, err)
	}
	policies.DestroyUserSessions(c.UserContext(), h.Rdb, id.String())
	return response.Success(c, "User removed successfully", nil, nil)
}

// List GET /api/v1/users
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.ListUsers(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return response.Success(c, "Users retrieved", list, nil)
}

func respond(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usersvc.ErrUserNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, usersvc.ErrEmailRegistered):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, usersvc.ErrInvalidEmail), errors.Is(err, usersvc.ErrInvalidPassword),
		errors.Is(err, usersvc.ErrInvalidFullname), errors.Is(err, usersvc.ErrInvalidRole),
		errors.Is(err, usersvc.ErrMissingFields):
		return response.BadRequest(c, err.Error(), nil)
	case errors.Is(err, policies.ErrYouCannotRemoveYourself), errors.Is(err, policies.ErrUsersCannotModifyTheirOwnRole),
		errors.Is(err, policies.ErrUsersCannotDeactivateThemselves):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, policies.ErrMustKeepOneActiveAdmin):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	log.Ctx(c.UserContext()).Error().Err(err).Str("path", c.Path()).Msg("User request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
