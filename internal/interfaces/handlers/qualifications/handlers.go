package qualifications

import (
	"errors"
	"strconv"

	qualsvc "taxqual-backend/internal/application/qualifications"
	"taxqual-backend/internal/middleware"
	"taxqual-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers serves the qualification list, dashboard, detail and delete endpoints.
type Handlers struct {
	Service *qualsvc.Service
}

// List GET /api/v1/qualifications?anio=&mercado=&origen=&instrumento=&limit=&offset=
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	f := qualsvc.Filter{
		Market:     c.Query("mercado"),
		Origin:     c.Query("origen"),
		Instrument: c.Query("instrumento"),
		Limit:      c.QueryInt("limit", 0),
		Offset:     c.QueryInt("offset", 0),
	}
	if y := c.Query("anio"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			return response.BadRequest(c, "Ejercicio no válido", nil)
		}
		f.FiscalYear = n
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	page, err := h.Service.List(c.UserContext(), actor, f)
	if err != nil {
		return RespondError(c, err)
	}
	return response.Success(c, "Qualifications retrieved", page.Items, response.Page{
		Total: page.Total, Limit: f.Limit, Offset: f.Offset,
	})
}

// Dashboard GET /api/v1/qualifications/dashboard
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	d, err := h.Service.Dashboard(c.UserContext(), actor)
	if err != nil {
		return RespondError(c, err)
	}
	return response.Success(c, "Dashboard retrieved", d, nil)
}

// Get GET /api/v1/qualifications/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.NotFound(c, qualsvc.ErrNotFound.Error())
	}
	d, err := h.Service.Get(c.UserContext(), actor, id)
	if err != nil {
		return RespondError(c, err)
	}
	return response.Success(c, "Qualification retrieved", d, nil)
}

// Delete DELETE /api/v1/qualifications/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.NotFound(c, qualsvc.ErrNotFound.Error())
	}
	if err := h.Service.Delete(c.UserContext(), actor, id); err != nil {
		return RespondError(c, err)
	}
	return response.Success(c, "Calificación eliminada", fiber.Map{"id": id}, nil)
}

// RespondError maps qualification service errors to responses. Shared with the wizard endpoints.
func RespondError(c *fiber.Ctx, err error) error {
	var verr *qualsvc.ValidationError
	switch {
	case errors.As(err, &verr):
		return response.BadRequest(c, verr.Error(), verr.Fields)
	case errors.Is(err, qualsvc.ErrNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, qualsvc.ErrForbidden):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, qualsvc.ErrDuplicateQualification):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	log.Ctx(c.UserContext()).Error().Err(err).Str("path", c.Path()).Msg("Qualification request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
