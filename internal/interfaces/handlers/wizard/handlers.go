package wizard

import (
	"errors"

	qualsvc "taxqual-backend/internal/application/qualifications"
	wizsvc "taxqual-backend/internal/application/wizard"
	qualhandlers "taxqual-backend/internal/interfaces/handlers/qualifications"
	"taxqual-backend/internal/middleware"
	"taxqual-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers serves the three-step entry wizard. Drafts are keyed by session id and ?modo=.
type Handlers struct {
	Service *wizsvc.Service
}

// AmountsRequest is the body of the amounts step, keyed by factor slot (8..12).
type AmountsRequest struct {
	Amounts map[int]string `json:"amounts"`
}

// CommitRequest carries the reviewed factors; omit factors to commit the draft as is.
type CommitRequest struct {
	Factors map[int]string `json:"factors"`
}

func (h *Handlers) context(c *fiber.Ctx) (string, wizsvc.Mode, error) {
	sid := middleware.GetSessionID(c)
	if sid == "" {
		return "", "", errNoSession
	}
	mode, err := wizsvc.ParseMode(c.Query("modo"))
	return sid, mode, err
}

var errNoSession = errors.New("Unauthorized")

// Get GET /api/v1/wizard
func (h *Handlers) Get(c *fiber.Ctx) error {
	sid, mode, err := h.context(c)
	if err != nil {
		return respond(c, err)
	}
	d, err := h.Service.Get(c.UserContext(), sid, mode)
	if err != nil {
		return respond(c, err)
	}
	return response.Success(c, "Draft retrieved", d, nil)
}

// Discard DELETE /api/v1/wizard
func (h *Handlers) Discard(c *fiber.Ctx) error {
	sid, mode, err := h.context(c)
	if err != nil {
		return respond(c, err)
	}
	if err := h.Service.Discard(c.UserContext(), sid, mode); err != nil {
		return respond(c, err)
	}
	return response.Success(c, "Draft discarded", nil, nil)
}

// Basics POST /api/v1/wizard/basics
func (h *Handlers) Basics(c *fiber.Ctx) error {
	sid, mode, err := h.context(c)
	if err != nil {
		return respond(c, err)
	}
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var b qualsvc.Basics
	if err := c.BodyParser(&b); err != nil {
		return response.BadRequest(c, "Datos no válidos", nil)
	}
	d, err := h.Service.SaveBasics(c.UserContext(), sid, mode, actor, b)
	if err != nil {
		return respond(c, err)
	}
	return response.Success(c, "Datos básicos guardados", d, nil)
}

// Amounts POST /api/v1/wizard/amounts
func (h *Handlers) Amounts(c *fiber.Ctx) error {
	sid, mode, err := h.context(c)
	if err != nil {
		return respond(c, err)
	}
	var req AmountsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Datos no válidos", nil)
	}
	d, err := h.Service.SaveAmounts(c.UserContext(), sid, mode, req.Amounts)
	if err != nil {
		return respond(c, err)
	}
	return response.Success(c, "Factores calculados", d, nil)
}

// Commit POST /api/v1/wizard/commit
func (h *Handlers) Commit(c *fiber.Ctx) error {
	sid, mode, err := h.context(c)
	if err != nil {
		return respond(c, err)
	}
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req CommitRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Datos no válidos", nil)
		}
	}
	q, err := h.Service.Commit(c.UserContext(), sid, mode, actor, req.Factors)
	if err != nil {
		return respond(c, err)
	}
	if mode == wizsvc.ModeEdit {
		return response.Success(c, "Calificación actualizada", q, nil)
	}
	return response.SuccessCreated(c, "Calificación creada", q, nil)
}

// StartEdit POST /api/v1/wizard/edit/:id
func (h *Handlers) StartEdit(c *fiber.Ctx) error {
	sid := middleware.GetSessionID(c)
	actor, ok := middleware.ActorFrom(c)
	if sid == "" || !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.NotFound(c, qualsvc.ErrNotFound.Error())
	}
	d, err := h.Service.StartEdit(c.UserContext(), sid, actor, id)
	if err != nil {
		return respond(c, err)
	}
	return response.Success(c, "Edición iniciada", d, nil)
}

func respond(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errNoSession):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, wizsvc.ErrUnknownMode):
		return response.BadRequest(c, err.Error(), nil)
	case errors.Is(err, wizsvc.ErrNoDraft):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	return qualhandlers.RespondError(c, err)
}
