package handler

import (
	"net/http"

	"labbook/internal/authz"
	"labbook/internal/devices/service"
	httputil "labbook/pkg/http"
	"labbook/pkg/logger"
	"labbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type DeviceHandler struct {
	service service.DeviceService
	log     *logger.Logger
}

func NewDeviceHandler(service service.DeviceService, log *logger.Logger) *DeviceHandler {
	return &DeviceHandler{
		service: service,
		log:     log,
	}
}

func (h *DeviceHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var device model.Device
	if err := httputil.DecodeJSON(r, &device); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.Create(r.Context(), actor, &device); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, device); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *DeviceHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	device, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, device); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *DeviceHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	devices, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, devices, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *DeviceHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.DeviceUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	actor, _ := authz.ActorFromContext(r.Context())
	device, err := h.service.Update(r.Context(), actor, ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, device); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *DeviceHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *DeviceHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/devices", h.GetAll)
	router.GET("/api/v1/devices/id/:id", h.GetByID)
	router.POST("/api/v1/devices", h.Create)
	router.PATCH("/api/v1/devices/id/:id", h.Update)
	router.DELETE("/api/v1/devices/id/:id", h.Delete)
}
