// Package appstest runs plugins behind the real router against a throwaway
// sqlite database, for handler tests.
package appstest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/ratelimit"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/storage"
)

const (
	secret     = "appstest-secret"
	AdminToken = "appstest-admin"
)

type Harness struct {
	App  *fiber.App
	Deps *apps.Deps
	now  time.Time
}

// New mounts plugins under /api/p. The session clock starts at a fixed
// instant and only moves through Advance.
func New(t *testing.T, plugins ...apps.Plugin) *Harness {
	t.Helper()
	cfg := &config.Config{
		DBDriver:         "sqlite",
		SQLitePath:       filepath.Join(t.TempDir(), "appstest.db"),
		JWTSecret:        secret,
		JWTAccessExpiry:  time.Hour,
		JWTRefreshExpiry: time.Hour,
		AdminToken:       AdminToken,
		CORSOrigins:      "*",
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	sessions := session.NewManager(storage.NewGormRepository(db), session.DefaultOptions())
	h := &Harness{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	sessions.SetClock(func() time.Time { return h.now })

	moderation := services.NewModerationService(db, sessions)
	subscriptions := services.NewSubscriptionService(db, sessions)
	h.Deps = &apps.Deps{
		DB:            db,
		Config:        cfg,
		Sessions:      sessions,
		Moderation:    moderation,
		Subscriptions: subscriptions,
		Limiter:       ratelimit.New(nil),
	}

	h.App = fiber.New()
	routes.Setup(h.App, h.Deps,
		handlers.NewAuthHandler(services.NewAuthService(db, cfg, sessions)),
		handlers.NewHealthHandler(sessions),
		handlers.NewWebhookHandler(subscriptions, "webhook-secret"),
		handlers.NewModerationHandler(moderation),
		handlers.NewAdminHandler(sessions),
		plugins,
	)
	return h
}

// Advance moves the session clock forward.
func (h *Harness) Advance(d time.Duration) {
	h.now = h.now.Add(d)
}

// Token signs an access token for userID the way the auth service does.
func Token(t *testing.T, userID, name string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  userID,
		"name": name,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// Do sends a JSON request as userID (anonymous when empty) and returns the
// status and raw body.
func (h *Harness) Do(t *testing.T, method, path, userID string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+Token(t, userID, displayName(userID)))
	}
	return h.send(t, req)
}

func displayName(userID string) string {
	if len(userID) > 8 {
		userID = userID[:8]
	}
	return "user " + userID
}

// DoAdmin sends a request carrying the admin token.
func (h *Harness) DoAdmin(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", AdminToken)
	return h.send(t, req)
}

func (h *Harness) send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := h.App.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

// Data decodes the "data" member of a response body into T.
func Data[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return env.Data
}
