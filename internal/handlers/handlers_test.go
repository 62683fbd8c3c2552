package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps/appstest"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/quota"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
)

func register(t *testing.T, h *appstest.Harness, email string) dto.AuthResponse {
	t.Helper()
	status, raw := h.Do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":        email,
		"password":     "correct horse battery",
		"display_name": "Jo",
	})
	if status != http.StatusCreated {
		t.Fatalf("register: %d %s", status, raw)
	}
	var resp dto.AuthResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAuthRoutes(t *testing.T) {
	h := appstest.New(t)
	resp := register(t, h, "jo@example.com")
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("tokens missing: %+v", resp)
	}

	if status, _ := h.Do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "jo@example.com", "password": "another password", "display_name": "Jo",
	}); status != http.StatusConflict {
		t.Errorf("duplicate register: status %d", status)
	}
	if status, _ := h.Do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "short", "display_name": "",
	}); status != http.StatusBadRequest {
		t.Errorf("invalid register: status %d", status)
	}

	status, raw := h.Do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "jo@example.com", "password": "correct horse battery",
	})
	if status != http.StatusOK {
		t.Fatalf("login: %d %s", status, raw)
	}
	if status, _ := h.Do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "jo@example.com", "password": "wrong",
	}); status != http.StatusUnauthorized {
		t.Errorf("bad login: status %d", status)
	}

	status, raw = h.Do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": resp.RefreshToken})
	if status != http.StatusOK {
		t.Fatalf("refresh: %d %s", status, raw)
	}
	if status, _ := h.Do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": resp.RefreshToken}); status != http.StatusUnauthorized {
		t.Errorf("reused refresh token: status %d", status)
	}

	userID := resp.User.ID.String()
	if status, _ := h.Do(t, http.MethodDelete, "/api/auth/account", userID, map[string]string{"password": "wrong"}); status != http.StatusUnauthorized {
		t.Errorf("delete with wrong password: status %d", status)
	}
	if status, raw := h.Do(t, http.MethodDelete, "/api/auth/account", userID, map[string]string{"password": "correct horse battery"}); status != http.StatusOK {
		t.Errorf("delete: %d %s", status, raw)
	}
}

func TestBlockRoutes_UpdateSessionState(t *testing.T) {
	h := appstest.New(t)
	me, other := uuid.NewString(), uuid.NewString()

	if status, raw := h.Do(t, http.MethodPost, "/api/blocks", me, map[string]string{"blocked_id": other}); status != http.StatusOK {
		t.Fatalf("block: %d %s", status, raw)
	}
	if status, _ := h.Do(t, http.MethodPost, "/api/blocks", me, map[string]string{"blocked_id": other}); status != http.StatusConflict {
		t.Errorf("repeat block: status %d", status)
	}
	if status, _ := h.Do(t, http.MethodPost, "/api/blocks", me, map[string]string{"blocked_id": me}); status != http.StatusConflict {
		t.Errorf("self block: status %d", status)
	}

	_, raw := h.Do(t, http.MethodGet, "/api/blocks", me, nil)
	if ids := appstest.Data[[]uuid.UUID](t, raw); len(ids) != 1 || ids[0].String() != other {
		t.Errorf("blocks = %v", ids)
	}
	ctx := context.Background()
	_ = h.Deps.Sessions.View(ctx, me, func(s *session.State) error {
		if !s.IsBlocked(other) {
			t.Error("session does not know about the block")
		}
		return nil
	})

	if status, _ := h.Do(t, http.MethodDelete, "/api/blocks/"+other, me, nil); status != http.StatusOK {
		t.Errorf("unblock: status %d", status)
	}
	_ = h.Deps.Sessions.View(ctx, me, func(s *session.State) error {
		if s.IsBlocked(other) {
			t.Error("unblock did not reach the session")
		}
		return nil
	})

	if status, _ := h.Do(t, http.MethodGet, "/api/blocks", "", nil); status != http.StatusUnauthorized {
		t.Errorf("anonymous: status %d", status)
	}
}

func TestAdminSweep(t *testing.T) {
	h := appstest.New(t)
	ctx := context.Background()
	author := uuid.NewString()
	if _, err := h.Deps.Sessions.CreateConfession(ctx, session.ComposeInput{
		AuthorID: author,
		Text:     "this one will not survive the night",
	}); err != nil {
		t.Fatal(err)
	}

	h.Advance(25 * time.Hour)
	status, raw := h.DoAdmin(t, http.MethodPost, "/api/admin/sweep", nil)
	if status != http.StatusOK {
		t.Fatalf("sweep: %d %s", status, raw)
	}
	if report := appstest.Data[session.PruneReport](t, raw); report.Confessions == 0 {
		t.Errorf("report = %+v", report)
	}
	_ = h.Deps.Sessions.View(ctx, author, func(s *session.State) error {
		if len(s.Confessions) != 0 {
			t.Errorf("confessions left: %d", len(s.Confessions))
		}
		return nil
	})

	if status, _ := h.Do(t, http.MethodPost, "/api/admin/sweep", author, nil); status != http.StatusForbidden {
		t.Errorf("non-admin sweep: status %d", status)
	}
	if status, _ := h.Do(t, http.MethodPost, "/api/admin/sweep", "", nil); status != http.StatusUnauthorized {
		t.Errorf("anonymous sweep: status %d", status)
	}
}

func webhook(t *testing.T, h *appstest.Harness, auth string, event map[string]any) int {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"api_version": "1.0", "event": event})
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/revenuecat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	resp, err := h.App.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestRevenueCatWebhook(t *testing.T) {
	h := appstest.New(t)
	user := register(t, h, "sub@example.com").User.ID.String()
	event := map[string]any{
		"type":             "INITIAL_PURCHASE",
		"app_user_id":      user,
		"product_id":       "mira_premium_monthly",
		"purchased_at_ms":  time.Now().UnixMilli(),
		"expiration_at_ms": time.Now().Add(30 * 24 * time.Hour).UnixMilli(),
	}

	if status := webhook(t, h, "wrong", event); status != http.StatusUnauthorized {
		t.Errorf("bad secret: status %d", status)
	}
	if status := webhook(t, h, "webhook-secret", event); status != http.StatusOK {
		t.Fatalf("purchase: status %d", status)
	}
	_ = h.Deps.Sessions.View(context.Background(), user, func(s *session.State) error {
		if s.Limits.Tier != quota.TierPremium {
			t.Errorf("tier = %s", s.Limits.Tier)
		}
		return nil
	})

	event["type"] = "EXPIRATION"
	if status := webhook(t, h, "webhook-secret", event); status != http.StatusOK {
		t.Fatalf("expiration: status %d", status)
	}
	_ = h.Deps.Sessions.View(context.Background(), user, func(s *session.State) error {
		if s.Limits.Tier != quota.TierFree {
			t.Errorf("tier after expiration = %s", s.Limits.Tier)
		}
		return nil
	})

	event["app_user_id"] = "$RCAnonymousID:abc"
	if status := webhook(t, h, "webhook-secret", event); status != http.StatusOK {
		t.Errorf("unknown subscriber: status %d", status)
	}
}

func TestHealth(t *testing.T) {
	h := appstest.New(t)
	status, raw := h.Do(t, http.MethodGet, "/api/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("health: %d", status)
	}
	var resp dto.HealthResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Status != "ok" {
		t.Errorf("health = %s", raw)
	}
}
