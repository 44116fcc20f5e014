package audit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	auditsvc "taxqual-backend/internal/application/audit"
	"taxqual-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrail struct {
	got auditsvc.ListFilter
	err error
}

func (f *fakeTrail) List(ctx context.Context, lf auditsvc.ListFilter) ([]domain.AuditLog, error) {
	f.got = lf
	return []domain.AuditLog{}, f.err
}

func appFor(h *Handlers) *fiber.App {
	app := fiber.New()
	app.Get("/audit", h.List)
	return app
}

func TestList_ParsesFilters(t *testing.T) {
	fake := &fakeTrail{}
	actor := uuid.New()
	resp, err := appFor(&Handlers{Service: fake}).Test(httptest.NewRequest("GET", "/audit?accion=login&actor="+actor.String()+"&limit=5", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, auditsvc.ListFilter{Action: "LOGIN", ActorID: actor, Limit: 5}, fake.got)
}

func TestList_BadActor(t *testing.T) {
	resp, err := appFor(&Handlers{Service: &fakeTrail{}}).Test(httptest.NewRequest("GET", "/audit?actor=nope", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestList_StoreFailure(t *testing.T) {
	resp, err := appFor(&Handlers{Service: &fakeTrail{err: errors.New("down")}}).Test(httptest.NewRequest("GET", "/audit", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}
