package wizard

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	qualsvc "taxqual-backend/internal/application/qualifications"
	wizsvc "taxqual-backend/internal/application/wizard"
	"taxqual-backend/internal/infrastructure/database"
	"taxqual-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	app   *fiber.App
	quals *qualsvc.Service
}

func setup(t *testing.T, role string) *env {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	db, err := database.Open("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	quals := &qualsvc.Service{DB: db}
	h := &Handlers{Service: &wizsvc.Service{Store: &wizsvc.RedisStore{Rdb: rdb}, Qualifications: quals}}
	uid := uuid.New().String()

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if c.Get("X-No-Session") == "" {
			c.Locals("session_id", "sess-1")
			c.Locals("user", map[string]interface{}{"user_id": uid, "role": role})
		}
		return c.Next()
	})
	app.Get("/wizard", h.Get)
	app.Delete("/wizard", h.Discard)
	app.Post("/wizard/basics", h.Basics)
	app.Post("/wizard/amounts", h.Amounts)
	app.Post("/wizard/commit", h.Commit)
	app.Post("/wizard/edit/:id", h.StartEdit)
	return &env{app: app, quals: quals}
}

func (e *env) call(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

var basicsBody = map[string]interface{}{
	"fiscal_year":    2024,
	"market":         "acn",
	"instrument":     "abc",
	"payment_date":   "2024-06-30",
	"event_sequence": 10001,
}

func TestWizard_CreateFlow(t *testing.T) {
	e := setup(t, constants.Analyst)

	code, out := e.call(t, "POST", "/wizard/amounts", map[string]interface{}{"amounts": map[string]string{"8": "1"}})
	assert.Equal(t, 409, code, "amounts before basics")
	assert.Equal(t, wizsvc.ErrNoDraft.Error(), out["error"].(map[string]interface{})["message"])

	code, _ = e.call(t, "POST", "/wizard/basics", basicsBody)
	require.Equal(t, 200, code)

	code, out = e.call(t, "POST", "/wizard/amounts", map[string]interface{}{"amounts": map[string]string{"8": "300", "9": "100"}})
	require.Equal(t, 200, code)
	factors := out["data"].(map[string]interface{})["factors"].(map[string]interface{})
	assert.Equal(t, "0.75000000", factors["8"])
	assert.Equal(t, "0.25000000", factors["9"])

	code, out = e.call(t, "POST", "/wizard/commit", nil)
	require.Equal(t, 201, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "ACN", data["market"])
	assert.Equal(t, "ABC", data["instrument"])

	code, _ = e.call(t, "GET", "/wizard", nil)
	assert.Equal(t, 409, code, "draft cleared after commit")

	code, _ = e.call(t, "POST", "/wizard/basics", basicsBody)
	require.Equal(t, 200, code)
	code, out = e.call(t, "POST", "/wizard/commit", map[string]interface{}{"factors": map[string]string{"8": "0,1"}})
	assert.Equal(t, 409, code, "same key")
	assert.Equal(t, qualsvc.ErrDuplicateQualification.Error(), out["error"].(map[string]interface{})["message"])
}

func TestWizard_ValidationErrors(t *testing.T) {
	e := setup(t, constants.Analyst)

	bad := map[string]interface{}{"fiscal_year": 1999, "market": "XX", "instrument": "", "payment_date": "2024-01-01", "event_sequence": 5}
	code, out := e.call(t, "POST", "/wizard/basics", bad)
	assert.Equal(t, 400, code)
	assert.NotEmpty(t, out["error"].(map[string]interface{})["details"])

	code, _ = e.call(t, "POST", "/wizard/basics", basicsBody)
	require.Equal(t, 200, code)
	code, out = e.call(t, "POST", "/wizard/amounts", map[string]interface{}{"amounts": map[string]string{"8": "-1"}})
	assert.Equal(t, 400, code)
	assert.Contains(t, out["error"].(map[string]interface{})["details"], "monto_8")

	code, out = e.call(t, "POST", "/wizard/commit", map[string]interface{}{"factors": map[string]string{"8": "0.6", "9": "0.6"}})
	assert.Equal(t, 400, code)
	assert.Contains(t, out["error"].(map[string]interface{})["details"], "__all__")

	code, _ = e.call(t, "GET", "/wizard?modo=otro", nil)
	assert.Equal(t, 400, code)
}

func TestWizard_EditFlow(t *testing.T) {
	e := setup(t, constants.Admin)
	code, _ := e.call(t, "POST", "/wizard/basics", basicsBody)
	require.Equal(t, 200, code)
	code, out := e.call(t, "POST", "/wizard/commit", map[string]interface{}{"factors": map[string]string{"10": "0.5"}})
	require.Equal(t, 201, code)
	id := out["data"].(map[string]interface{})["id"].(string)

	code, out = e.call(t, "POST", "/wizard/edit/"+id, nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "0.50000000", out["data"].(map[string]interface{})["factors"].(map[string]interface{})["10"])

	edited := map[string]interface{}{}
	for k, v := range basicsBody {
		edited[k] = v
	}
	edited["description"] = "ajustado"
	code, _ = e.call(t, "POST", "/wizard/basics?modo=editar", edited)
	require.Equal(t, 200, code)
	code, out = e.call(t, "POST", "/wizard/commit?modo=editar", nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "ajustado", out["data"].(map[string]interface{})["description"])
	assert.Equal(t, id, out["data"].(map[string]interface{})["id"])

	code, _ = e.call(t, "DELETE", "/wizard?modo=editar", nil)
	assert.Equal(t, 200, code)
}

func TestWizard_RequiresSession(t *testing.T) {
	e := setup(t, constants.Analyst)
	req := httptest.NewRequest("GET", "/wizard", nil)
	req.Header.Set("X-No-Session", "1")
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}
