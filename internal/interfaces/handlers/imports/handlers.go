package imports

import (
	"context"
	"errors"
	"strconv"
	"strings"

	importsvc "taxqual-backend/internal/application/imports"
	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/middleware"
	"taxqual-backend/internal/pkg/constants"
	"taxqual-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Importer is what the handlers need from the imports service.
type Importer interface {
	Import(ctx context.Context, up importsvc.Upload) (*importsvc.Result, error)
	ListBatches(ctx context.Context, f importsvc.BatchFilter) ([]domain.ImportBatch, error)
}

// Handlers serves bulk uploads and the batch history.
type Handlers struct {
	Service Importer
}

// Upload POST /api/v1/imports (multipart: file, mode=factores|montos, overwrite=true|false).
func (h *Handlers) Upload(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "Debe adjuntar un archivo", nil)
	}
	mode, err := importsvc.ParseMode(c.FormValue("mode"))
	if err != nil {
		return response.BadRequest(c, err.Error(), nil)
	}
	overwrite := parseBool(c.FormValue("overwrite"))

	f, err := fh.Open()
	if err != nil {
		return response.BadRequest(c, "No se pudo leer el archivo", nil)
	}
	defer f.Close()

	res, err := h.Service.Import(c.UserContext(), importsvc.Upload{
		FileName:  fh.Filename,
		Data:      f,
		Mode:      mode,
		Overwrite: overwrite,
		ActorID:   actor.UserID,
		IP:        actor.IP,
	})
	switch {
	case err == nil:
		return response.SuccessCreated(c, "Carga procesada", res, nil)
	case errors.Is(err, importsvc.ErrFileTooLarge):
		return response.Error(c, err.Error(), fiber.StatusRequestEntityTooLarge, nil)
	case errors.Is(err, importsvc.ErrUnknownMode):
		return response.BadRequest(c, err.Error(), nil)
	case importsvc.IsFileError(err):
		var details interface{}
		if res != nil {
			details = fiber.Map{"batch": res.Batch}
		}
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, details)
	}
	log.Ctx(c.UserContext()).Error().Err(err).Str("file", fh.Filename).Msg("Import failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// List GET /api/v1/imports?limit=. Admins and auditors see every batch, others their own.
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	f := importsvc.BatchFilter{Limit: c.QueryInt("limit", 0)}
	if actor.Role != constants.Admin && actor.Role != constants.Auditor {
		f.UploadedBy = actor.UserID
	}
	batches, err := h.Service.ListBatches(c.UserContext(), f)
	if err != nil {
		log.Ctx(c.UserContext()).Error().Err(err).Msg("List import batches failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Import batches retrieved", batches, nil)
}

func parseBool(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "on" || s == "si" || s == "sí" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}
