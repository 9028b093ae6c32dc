package motor

import (
	"context"
	"fmt"
	"net/http"

	"labbook/internal/authz"
	apperrors "labbook/pkg/errors"
	httputil "labbook/pkg/http"
	"labbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// CodeCommandFailed is returned when the controller answers but reports failure.
const CodeCommandFailed = "MOTOR_COMMAND_FAILED"

type Sender interface {
	Send(ctx context.Context, cmd Command) (*Result, error)
}

type Handler struct {
	sender Sender
	log    *logger.Logger
}

func NewHandler(sender Sender, log *logger.Logger) *Handler {
	return &Handler{
		sender: sender,
		log:    log,
	}
}

type amountRequest struct {
	Amount *int `json:"amount"`
}

type commandRequest struct {
	Command CommandName `json:"command"`
	Amount  *int        `json:"amount"`
}

// fixed serves one of the single-command routes. format receives the step count.
func (h *Handler) fixed(name CommandName, format string) httprouter.Handle {
	describe := func(cmd Command) string {
		return fmt.Sprintf(format, cmd.Amount)
	}
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req amountRequest
		if err := decodeOptional(r, &req); err != nil {
			h.writeError(w, string(name), err)
			return
		}
		h.send(w, r, name, req.Amount, describe)
	}
}

func (h *Handler) Command(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req commandRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Command", err)
		return
	}
	h.send(w, r, req.Command, req.Amount, func(cmd Command) string {
		return fmt.Sprintf("Command %s executed with amount %d", cmd.Command, cmd.Amount)
	})
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, name CommandName, amount *int, describe func(Command) string) {
	if _, ok := authz.ActorFromContext(r.Context()); !ok {
		h.writeError(w, string(name), apperrors.Unauthorized("Authentication required"))
		return
	}

	cmd, err := NewCommand(name, amount)
	if err != nil {
		h.writeError(w, string(name), apperrors.InvalidInput(err.Error()))
		return
	}

	result, err := h.sender.Send(r.Context(), cmd)
	if err != nil {
		h.writeError(w, string(name), err)
		return
	}

	if !result.Success {
		h.writeError(w, string(name), apperrors.New(CodeCommandFailed, result.Message, http.StatusBadGateway).
			WithDetails(map[string]any{"result": result}))
		return
	}

	if err := httputil.WriteMessage(w, result, describe(cmd)); err != nil {
		h.log.Error("failed to write success response", "handler", string(name), "operation", "WriteMessage", "error", err)
	}
}

// decodeOptional accepts an empty body as "all defaults".
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return httputil.DecodeJSON(r, v)
}

func (h *Handler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/motor/move-x", h.fixed(MoveX, "X motor moved %d steps"))
	router.POST("/api/v1/motor/move-y", h.fixed(MoveY, "Y motor moved %d steps"))
	router.POST("/api/v1/motor/zoom-in", h.fixed(ZoomInFine, "Zoomed in %d steps"))
	router.POST("/api/v1/motor/zoom-out", h.fixed(ZoomOutFine, "Zoomed out %d steps"))
	router.POST("/api/v1/motor/command", h.Command)
}
