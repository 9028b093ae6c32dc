package auth

import (
	"net/http"
	"time"

	"labbook/internal/authz"
	httputil "labbook/pkg/http"
	"labbook/pkg/logger"
	"labbook/pkg/middleware"
	"labbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	service      Service
	secureCookie bool
	log          *logger.Logger
}

func NewHandler(service Service, secureCookie bool, log *logger.Logger) *Handler {
	return &Handler{
		service:      service,
		secureCookie: secureCookie,
		log:          log,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Login", err)
		return
	}

	result, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}

	h.setTokenCookie(w, result.Token, result.ExpiresAt)
	if err := httputil.WriteMessage(w, result, "Login successful"); err != nil {
		h.log.Error("failed to write success response", "handler", "Login", "operation", "WriteMessage", "error", err)
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Register", err)
		return
	}

	result, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Register", err)
		return
	}

	h.setTokenCookie(w, result.Token, result.ExpiresAt)
	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "Register", "operation", "WriteCreated", "error", err)
	}
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := authz.ActorFromContext(r.Context())
	user, err := h.service.Me(r.Context(), actor)
	if err != nil {
		h.writeError(w, "Me", err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "Me", "operation", "WriteSuccess", "error", err)
	}
}

// Logout clears the token cookie. Tokens are stateless, so a bearer token stays
// valid until it expires.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteNoContent(w)
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/auth/login", h.Login)
	router.POST("/api/v1/auth/register", h.Register)
	router.GET("/api/v1/auth/me", h.Me)
	router.POST("/api/v1/auth/logout", h.Logout)
}
