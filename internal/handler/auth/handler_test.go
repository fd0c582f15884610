package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dreamtumulus/andun/internal/model/subject"
	authService "github.com/dreamtumulus/andun/internal/service/auth"
)

func setupRouter() *chi.Mux {
	authSvc := authService.NewService(subject.Seed(), "test-secret", time.Hour)
	handler := New(authSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func postLogin(r *chi.Mux, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestLoginKnownUser(t *testing.T) {
	r := setupRouter()
	payload, _ := json.Marshal(map[string]string{"username": "9527"})

	resp := postLogin(r, payload)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Token string       `json:"token"`
		User  subject.User `json:"user"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Token == "" {
		t.Fatal("token missing from response")
	}
	if body.User.ID != "u1" || body.User.Name != "周星星" {
		t.Fatalf("unexpected user: %+v", body.User)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	r := setupRouter()
	payload, _ := json.Marshal(map[string]string{"username": "nobody"})

	if resp := postLogin(r, payload); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestLoginMissingUsername(t *testing.T) {
	r := setupRouter()

	if resp := postLogin(r, []byte(`{}`)); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestLoginMalformedBody(t *testing.T) {
	r := setupRouter()

	if resp := postLogin(r, []byte(`not json`)); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
