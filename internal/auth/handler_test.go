package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"labbook/internal/authz"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/logger"
	"labbook/pkg/middleware"
	"labbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockService struct {
	loginFunc    func(ctx context.Context, req *model.LoginRequest) (*AuthResult, error)
	registerFunc func(ctx context.Context, req *model.RegisterRequest) (*AuthResult, error)
	meFunc       func(ctx context.Context, actor *authz.Actor) (*model.User, error)
}

func (m *mockService) Login(ctx context.Context, req *model.LoginRequest) (*AuthResult, error) {
	return m.loginFunc(ctx, req)
}

func (m *mockService) Register(ctx context.Context, req *model.RegisterRequest) (*AuthResult, error) {
	return m.registerFunc(ctx, req)
}

func (m *mockService) Me(ctx context.Context, actor *authz.Actor) (*model.User, error) {
	return m.meFunc(ctx, actor)
}

func serveAuth(svc Service, method, path, body string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewHandler(svc, false, logger.Discard()).RegisterRoutes(router)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func tokenCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.TokenCookieName {
			return c
		}
	}
	return nil
}

func TestHandler_Login(t *testing.T) {
	result := &AuthResult{
		User:      &model.User{ID: "65f0000000000000000000a3", Email: "alice@lab.test", PasswordHash: "hash"},
		Token:     "signed.jwt.value",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	svc := &mockService{
		loginFunc: func(ctx context.Context, req *model.LoginRequest) (*AuthResult, error) {
			if req.Email != "alice@lab.test" {
				return nil, apperrors.InvalidCredentials()
			}
			return result, nil
		},
	}

	w := serveAuth(svc, http.MethodPost, "/api/v1/auth/login", `{"email":"alice@lab.test","password":"pw-123456"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if c := tokenCookie(w); c == nil || c.Value != result.Token || !c.HttpOnly {
		t.Errorf("token cookie = %+v", c)
	}
	if strings.Contains(w.Body.String(), `"hash"`) {
		t.Error("password hash leaked into the response")
	}

	w = serveAuth(svc, http.MethodPost, "/api/v1/auth/login", `{"email":"bob@lab.test","password":"pw-123456"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestHandler_LoginRateLimited(t *testing.T) {
	svc := &mockService{
		loginFunc: func(ctx context.Context, req *model.LoginRequest) (*AuthResult, error) {
			return nil, apperrors.RateLimited("Too many login attempts", 90*time.Second+time.Millisecond)
		},
	}

	w := serveAuth(svc, http.MethodPost, "/api/v1/auth/login", `{"email":"alice@lab.test","password":"x"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "91" {
		t.Errorf("Retry-After = %q, want 91", got)
	}
}

func TestHandler_Register(t *testing.T) {
	svc := &mockService{
		registerFunc: func(ctx context.Context, req *model.RegisterRequest) (*AuthResult, error) {
			return &AuthResult{User: &model.User{Email: req.Email, Role: model.RoleStudent}, Token: "t"}, nil
		},
	}

	body := `{"student_id":"s1","email":"bob@lab.test","password":"long-enough","first_name":"Bob","last_name":"B"}`
	w := serveAuth(svc, http.MethodPost, "/api/v1/auth/register", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = serveAuth(svc, http.MethodPost, "/api/v1/auth/register", `{"email":"bob@lab.test","role":"ADMIN"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown role field: status = %d, want 400", w.Code)
	}
}

func TestHandler_Logout(t *testing.T) {
	w := serveAuth(&mockService{}, http.MethodPost, "/api/v1/auth/logout", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	c := tokenCookie(w)
	if c == nil || c.MaxAge >= 0 || c.Value != "" {
		t.Errorf("cookie not cleared: %+v", c)
	}
}

func TestHandler_Me(t *testing.T) {
	svc := &mockService{
		meFunc: func(ctx context.Context, actor *authz.Actor) (*model.User, error) {
			return nil, apperrors.Unauthorized("Authentication required")
		},
	}
	w := serveAuth(svc, http.MethodGet, "/api/v1/auth/me", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
