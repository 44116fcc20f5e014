package factors

import (
	"sort"

	"taxqual-backend/internal/factors"
	"taxqual-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handlers exposes the stateless factor engine.
type Handlers struct{}

// DeriveRequest holds amounts keyed by slot 8..12.
type DeriveRequest struct {
	Amounts map[int]string `json:"amounts"`
}

// ValidateRequest holds factor text keyed by slot 8..37.
type ValidateRequest struct {
	Factors map[int]string `json:"factors"`
}

// Derive POST /api/v1/factors/derive returns the factors proportional to the amounts.
func (h *Handlers) Derive(c *fiber.Ctx) error {
	var req DeriveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Datos no válidos", nil)
	}
	amounts := make(map[int]decimal.Decimal, len(req.Amounts))
	fields := map[string]string{}
	for i, raw := range req.Amounts {
		if i < factors.AmountFirstIndex || i > factors.AmountLastIndex {
			fields[factors.FieldName(i)] = "Monto fuera de rango (8 a 12)"
			continue
		}
		a, err := factors.ParseDecimal(raw)
		if err != nil {
			fields[factors.FieldName(i)] = factors.ErrInvalidDecimal.Error()
			continue
		}
		amounts[i] = a
	}
	if len(fields) > 0 {
		return response.BadRequest(c, "Montos no válidos", fields)
	}
	derived, err := factors.DeriveFromAmounts(amounts)
	if err != nil {
		return response.BadRequest(c, err.Error(), nil)
	}
	out := make(map[int]string, len(derived))
	for i, f := range derived {
		out[i] = factors.FormatFixed(f)
	}
	return response.Success(c, "Factores calculados", fiber.Map{"factors": out}, nil)
}

// Validate POST /api/v1/factors/validate checks a factor set without storing it.
// An invalid set is a 200 with valid=false, so the form can show field errors.
func (h *Handlers) Validate(c *fiber.Ctx) error {
	var req ValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Datos no válidos", nil)
	}
	values := make(map[int]*decimal.Decimal, len(req.Factors))
	normalized := make(map[int]string, len(req.Factors))
	fields := map[string]string{}
	for i, raw := range req.Factors {
		if !factors.InRange(i) {
			fields[factors.FieldName(i)] = factors.ErrUnknownFactor.Error()
			continue
		}
		norm, err := factors.NormalizeInput(raw)
		if err != nil {
			fields[factors.FieldName(i)] = factors.ErrInvalidDecimal.Error()
			continue
		}
		d := decimal.RequireFromString(norm)
		values[i] = &d
		normalized[i] = norm
	}
	if len(fields) > 0 {
		return response.BadRequest(c, "Factores no válidos", fields)
	}

	sum := factors.SumRange(values, factors.SumFirstIndex, factors.SumLastIndex)
	result := fiber.Map{
		"valid":    true,
		"factors":  normalized,
		"sum_8_16": factors.FormatFixed(sum),
		"errors":   map[string]string{},
	}
	if err := factors.ValidateSet(values); err != nil {
		result["valid"] = false
		result["errors"] = factors.FieldErrors(err)
		neg := factors.NegativeIndices(err)
		sort.Ints(neg)
		result["negative"] = neg
	}
	return response.Success(c, "Validación completada", result, nil)
}
