package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"notice/internal/apperr"
	"notice/internal/config"
)

func testConfig(authEnabled bool) *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{Enabled: authEnabled, Token: "secret-token"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authedApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/protected", requireAuthMiddleware(cfg), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/optional", optionalAuthMiddleware(cfg), func(c *fiber.Ctx) error {
		auth, _ := c.Locals("authenticated").(bool)
		return c.JSON(fiber.Map{"authenticated": auth})
	})
	return app
}

func TestRequireAuth_MissingToken(t *testing.T) {
	app := authedApp(testConfig(true))

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}

	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != fiber.StatusUnauthorized || body.Error == "" {
		t.Errorf("unexpected error body: %+v", body)
	}
}

func TestRequireAuth_WrongToken(t *testing.T) {
	app := authedApp(testConfig(true))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	app := authedApp(testConfig(true))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRequireAuth_DisabledPassesThrough(t *testing.T) {
	app := authedApp(testConfig(false))

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200 with auth disabled, got %d", resp.StatusCode)
	}
}

func TestOptionalAuth_AnonymousAllowed(t *testing.T) {
	app := authedApp(testConfig(true))

	req := httptest.NewRequest("GET", "/optional", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Authenticated {
		t.Error("anonymous request must not be authenticated")
	}
}

func TestOptionalAuth_ValidTokenMarksAuthenticated(t *testing.T) {
	app := authedApp(testConfig(true))

	req := httptest.NewRequest("GET", "/optional", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var body struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Authenticated {
		t.Error("valid token must mark the request authenticated")
	}
}

func TestFail_ErrorShape(t *testing.T) {
	s := &Server{logger: testLogger()}
	app := fiber.New()
	app.Get("/missing", func(c *fiber.Ctx) error {
		return s.fail(c, apperr.New(apperr.KindNotFound, "document not found"))
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return s.fail(c, apperr.New(apperr.KindDatabase, "connection refused"))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "document not found" || body.Status != 404 {
		t.Errorf("unexpected body: %+v", body)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "internal server error" {
		t.Errorf("internal detail leaked: %+v", body)
	}
}
