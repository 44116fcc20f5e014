package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"taxqual-backend/internal/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb
}

func sessionApp(rdb *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(NewSession(rdb))
	app.Post("/login", func(c *fiber.Ctx) error {
		sid := RegenerateSessionID(c)
		SetSessionUser(c, SessionUser{UserID: "6f1d9a86-1c3f-4c58-9e49-0c1f3b0f8a11", Email: "ana@example.cl", Role: c.Query("role")})
		c.Cookie(&fiber.Cookie{Name: SessionCookieName, Value: "s:" + sid})
		return c.SendString(sid)
	})
	app.Get("/me", RequireAuth(), func(c *fiber.Ctx) error {
		a, ok := ActorFrom(c)
		if !ok {
			return c.SendStatus(500)
		}
		return c.SendString(a.UserID.String() + "|" + a.Role)
	})
	app.Delete("/items", RequireAuth(), AuthorizePermission(constants.DeleteQualifications), func(c *fiber.Ctx) error {
		return c.SendString("deleted")
	})
	app.Get("/misconfigured", AuthorizePermission("nope"), func(c *fiber.Ctx) error { return nil })
	return app
}

func login(t *testing.T, app *fiber.App, role string) string {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("POST", "/login?role="+role, nil))
	require.NoError(t, err)
	sid, _ := io.ReadAll(resp.Body)
	return string(sid)
}

func TestSession_RoundTrip(t *testing.T) {
	rdb := newRedis(t)
	app := sessionApp(rdb)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	sid := login(t, app, "analyst")
	require.NotEmpty(t, sid)
	stored, err := rdb.Get(context.Background(), SessionRedisPrefix+sid).Result()
	require.NoError(t, err)
	assert.Contains(t, stored, "ana@example.cl")

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:"+sid+".sig")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "6f1d9a86-1c3f-4c58-9e49-0c1f3b0f8a11|analyst", string(body))
}

func TestAuthorizePermission(t *testing.T) {
	rdb := newRedis(t)
	app := sessionApp(rdb)

	for role, want := range map[string]int{"admin": 200, "analyst": 403, "broker": 403} {
		sid := login(t, app, role)
		req := httptest.NewRequest("DELETE", "/items", nil)
		req.Header.Set("Cookie", SessionCookieName+"="+sid)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, role)
		if want == 403 {
			var out map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, "User is Forbidden from performing this action", out["error"].(map[string]interface{})["message"])
		}
	}

	sid := login(t, app, "admin")
	req := httptest.NewRequest("GET", "/misconfigured", nil)
	req.Header.Set("Cookie", SessionCookieName+"="+sid)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestTracing_ReusesValidIncomingID(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetTraceID(c)) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(traceIDHeader, "0b4f3c5e-8d0e-4f0a-9d4b-1c2e3f4a5b6c")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "0b4f3c5e-8d0e-4f0a-9d4b-1c2e3f4a5b6c", resp.Header.Get(traceIDHeader))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(traceIDHeader, "not a uuid")
	resp, err = app.Test(req)
	require.NoError(t, err)
	got := resp.Header.Get(traceIDHeader)
	assert.NotEqual(t, "not a uuid", got)
	assert.Len(t, got, 36)
}

func TestHealthMarker_CountsAndLogsErrors(t *testing.T) {
	rdb := newRedis(t)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(HealthMarker(rdb))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })
	app.Get("/health/json", func(c *fiber.Ctx) error { return c.SendString("{}") })

	for _, p := range []string{"/ok", "/boom", "/health/json"} {
		_, err := app.Test(httptest.NewRequest("GET", p, nil))
		require.NoError(t, err)
	}
	ctx := context.Background()
	total, _ := rdb.Get(ctx, KeyReqTotal).Int()
	failed, _ := rdb.Get(ctx, KeyReqErrors).Int()
	assert.Equal(t, 2, total, "/health is not counted")
	assert.Equal(t, 1, failed)

	entries, err := rdb.LRange(ctx, KeyErrorLog, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], `"message":"boom"`)
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".example.cl", DevPassword: "dev"}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://app.example.cl")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "https://app.example.cl", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	req.Header.Set("dev-password", "dev")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
