package audit

import (
	"context"
	"strings"

	auditsvc "taxqual-backend/internal/application/audit"
	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Trail reads audit entries.
type Trail interface {
	List(ctx context.Context, f auditsvc.ListFilter) ([]domain.AuditLog, error)
}

type Handlers struct {
	Service Trail
}

// List GET /api/v1/audit?accion=&actor=&limit=
func (h *Handlers) List(c *fiber.Ctx) error {
	f := auditsvc.ListFilter{
		Action: strings.ToUpper(strings.TrimSpace(c.Query("accion"))),
		Limit:  c.QueryInt("limit", 0),
	}
	if raw := c.Query("actor"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.BadRequest(c, "actor inválido", nil)
		}
		f.ActorID = id
	}
	entries, err := h.Service.List(c.UserContext(), f)
	if err != nil {
		log.Ctx(c.UserContext()).Error().Err(err).Msg("List audit entries failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Audit entries retrieved", entries, nil)
}
