package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newMemoryApp(t *testing.T) (*App, *http.ServeMux) {
	t.Helper()

	// In-memory mode with cheap argon2 parameters.
	t.Setenv("GATEKEY_DATABASE_URL", "")
	t.Setenv("GATEKEY_SMTP_HOST", "")
	t.Setenv("GATEKEY_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("GATEKEY_ARGON2_ITERATIONS", "1")

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(LoadConfig(), log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth)
	return a, mux
}

func TestRegisterHTTP_HealthAndReadiness(t *testing.T) {
	_, mux := newMemoryApp(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rec.Code)
	}
}

func TestRegisterHTTP_ReadinessRequiresDB(t *testing.T) {
	t.Setenv("GATEKEY_DATABASE_URL", "")
	t.Setenv("GATEKEY_SMTP_HOST", "")
	t.Setenv("GATEKEY_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("GATEKEY_ARGON2_ITERATIONS", "1")
	t.Setenv("GATEKEY_READINESS_REQUIRE_DB", "true")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(LoadConfig(), log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db status=%d want 503", rec.Code)
	}
}

func TestMemoryApp_LoginFlowEndToEnd(t *testing.T) {
	t.Setenv("GATEKEY_MAIL_ALLOW_CODE_FALLBACK", "true")
	_, mux := newMemoryApp(t)

	post := func(path string, body map[string]string) *httptest.ResponseRecorder {
		b, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := post("/api/auth/signup", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = post("/api/auth/signin", map[string]string{
		"email": "ada@example.com", "password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status=%d body=%s", rec.Code, rec.Body.String())
	}

	// No SMTP host configured, so the fallback flag exposes the code.
	var ch struct {
		ChallengeID string `json:"challengeId"`
		EmailSent   bool   `json:"emailSent"`
		ShowCode    bool   `json:"showCode"`
		Code        string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ch); err != nil {
		t.Fatalf("decode signin response: %v", err)
	}
	if ch.EmailSent || !ch.ShowCode || len(ch.Code) != 6 {
		t.Fatalf("unexpected challenge response: %+v", ch)
	}

	rec = post("/api/auth/verify", map[string]string{
		"challengeId": ch.ChallengeID, "code": ch.Code,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GATEKEY_HTTP_ADDR", "")
	t.Setenv("GATEKEY_CODE_TTL", "")
	t.Setenv("GATEKEY_CODE_DIGITS", "")

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.CodeTTL != 10*time.Minute {
		t.Fatalf("CodeTTL=%v", cfg.CodeTTL)
	}
	if cfg.CodeDigits != 6 {
		t.Fatalf("CodeDigits=%d", cfg.CodeDigits)
	}
}

func TestLoadConfig_CORSList(t *testing.T) {
	t.Setenv("GATEKEY_CORS_ALLOWED_ORIGINS", "https://app.example.com, http://127.0.0.1:*")

	cfg := LoadConfig()
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("origins=%v", cfg.CORSAllowedOrigins)
	}
	if cfg.CORSAllowedOrigins[1] != "http://127.0.0.1:*" {
		t.Fatalf("origins=%v", cfg.CORSAllowedOrigins)
	}
}
