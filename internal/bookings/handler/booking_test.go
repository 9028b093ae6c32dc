package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"labbook/internal/authz"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/logger"
	"labbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockBookingService struct {
	createFunc    func(ctx context.Context, actor *authz.Actor, req *model.BookingRequest) (*model.Booking, error)
	getByIDFunc   func(ctx context.Context, actor *authz.Actor, id string) (*model.Booking, error)
	listFunc      func(ctx context.Context, actor *authz.Actor) ([]*model.Booking, error)
	setStatusFunc func(ctx context.Context, actor *authz.Actor, id string, status string) (*model.Booking, error)
	deleteFunc    func(ctx context.Context, actor *authz.Actor, id string) error
}

func (m *mockBookingService) Create(ctx context.Context, actor *authz.Actor, req *model.BookingRequest) (*model.Booking, error) {
	return m.createFunc(ctx, actor, req)
}

func (m *mockBookingService) GetByID(ctx context.Context, actor *authz.Actor, id string) (*model.Booking, error) {
	return m.getByIDFunc(ctx, actor, id)
}

func (m *mockBookingService) List(ctx context.Context, actor *authz.Actor) ([]*model.Booking, error) {
	return m.listFunc(ctx, actor)
}

func (m *mockBookingService) SetStatus(ctx context.Context, actor *authz.Actor, id string, status string) (*model.Booking, error) {
	return m.setStatusFunc(ctx, actor, id, status)
}

func (m *mockBookingService) Delete(ctx context.Context, actor *authz.Actor, id string) error {
	return m.deleteFunc(ctx, actor, id)
}

var student = &authz.Actor{ID: "65f0000000000000000000a3", Email: "alice@lab.test", Role: model.RoleStudent}

func newTestRouter(svc *mockBookingService) *httprouter.Router {
	log := logger.New(logger.Config{
		Level:   "info",
		Format:  logger.JSON,
		Service: "test",
	})
	router := httprouter.New()
	NewBookingHandler(svc, log).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string, actor *authz.Actor) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if actor != nil {
		req = req.WithContext(authz.WithActor(req.Context(), actor))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreate(t *testing.T) {
	var gotActor *authz.Actor
	var gotReq *model.BookingRequest
	svc := &mockBookingService{
		createFunc: func(ctx context.Context, actor *authz.Actor, req *model.BookingRequest) (*model.Booking, error) {
			gotActor, gotReq = actor, req
			return &model.Booking{ID: "b1", OwnerID: actor.ID, DeviceID: req.DeviceID, Start: req.Start, End: req.End, Status: model.StatusPending}, nil
		},
	}
	router := newTestRouter(svc)

	body := `{"device_id":"65f0000000000000000000dd","start_time":"2026-06-02T10:00:00Z","end_time":"2026-06-02T11:00:00Z"}`
	w := serve(router, http.MethodPost, "/api/v1/bookings", body, student)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if gotActor != student {
		t.Errorf("actor was not taken from the request context")
	}
	if !gotReq.Start.Equal(time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", gotReq.Start)
	}

	var resp struct {
		Data model.Booking `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.ID != "b1" || resp.Data.Status != model.StatusPending {
		t.Errorf("unexpected body: %+v", resp.Data)
	}
}

func TestCreate_BadBody(t *testing.T) {
	svc := &mockBookingService{
		createFunc: func(ctx context.Context, actor *authz.Actor, req *model.BookingRequest) (*model.Booking, error) {
			t.Error("service should not be called")
			return nil, nil
		},
	}
	router := newTestRouter(svc)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"device_id":`},
		{name: "unknown field", body: `{"device_id":"x","room":"12"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodPost, "/api/v1/bookings", tt.body, student)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestCreate_ConflictDetails(t *testing.T) {
	start := time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)
	svc := &mockBookingService{
		createFunc: func(ctx context.Context, actor *authz.Actor, req *model.BookingRequest) (*model.Booking, error) {
			return nil, apperrors.Conflict("Device is already booked for an overlapping time").WithDetails(map[string]any{
				"conflicting_booking_id": "b0",
				"start":                  start,
				"end":                    start.Add(time.Hour),
			})
		},
	}
	router := newTestRouter(svc)

	body := `{"device_id":"65f0000000000000000000dd","start_time":"2026-06-02T10:30:00Z","end_time":"2026-06-02T11:30:00Z"}`
	w := serve(router, http.MethodPost, "/api/v1/bookings", body, student)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	var resp apperrors.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != apperrors.CodeConflict || resp.Details["conflicting_booking_id"] != "b0" {
		t.Errorf("unexpected error body: %+v", resp)
	}
	if resp.Details["start"] != "2026-06-02T10:00:00Z" {
		t.Errorf("start detail = %v", resp.Details["start"])
	}
}

func TestSetStatus(t *testing.T) {
	var gotID, gotStatus string
	svc := &mockBookingService{
		setStatusFunc: func(ctx context.Context, actor *authz.Actor, id string, status string) (*model.Booking, error) {
			gotID, gotStatus = id, status
			if status == "PENDING" {
				return nil, apperrors.InvalidTransition("APPROVED", "PENDING")
			}
			return &model.Booking{ID: id, Status: model.StatusCancelled}, nil
		},
	}
	router := newTestRouter(svc)

	w := serve(router, http.MethodPut, "/api/v1/bookings/id/b1/status", `{"status":"CANCELLED"}`, student)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotID != "b1" || gotStatus != "CANCELLED" {
		t.Errorf("service got id=%q status=%q", gotID, gotStatus)
	}

	w = serve(router, http.MethodPut, "/api/v1/bookings/id/b1/status", `{"status":"PENDING"}`, student)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestDelete(t *testing.T) {
	svc := &mockBookingService{
		deleteFunc: func(ctx context.Context, actor *authz.Actor, id string) error {
			if actor == nil {
				return apperrors.Unauthorized("Authentication required")
			}
			if id != "b1" {
				return apperrors.NotFoundWithID("Booking", id)
			}
			return nil
		},
	}
	router := newTestRouter(svc)

	tests := []struct {
		name       string
		path       string
		actor      *authz.Actor
		wantStatus int
	}{
		{name: "deleted", path: "/api/v1/bookings/id/b1", actor: student, wantStatus: http.StatusNoContent},
		{name: "missing", path: "/api/v1/bookings/id/b2", actor: student, wantStatus: http.StatusNotFound},
		{name: "anonymous", path: "/api/v1/bookings/id/b1", actor: nil, wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodDelete, tt.path, "", tt.actor)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestListAndGet(t *testing.T) {
	svc := &mockBookingService{
		listFunc: func(ctx context.Context, actor *authz.Actor) ([]*model.Booking, error) {
			return []*model.Booking{{ID: "b1"}, {ID: "b2"}}, nil
		},
		getByIDFunc: func(ctx context.Context, actor *authz.Actor, id string) (*model.Booking, error) {
			return nil, apperrors.Forbidden("You do not have permission to view this booking")
		},
	}
	router := newTestRouter(svc)

	w := serve(router, http.MethodGet, "/api/v1/bookings", "", student)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp struct {
		Data []model.Booking `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || len(resp.Data) != 2 {
		t.Errorf("list body = %+v, err = %v", resp, err)
	}

	w = serve(router, http.MethodGet, "/api/v1/bookings/id/b9", "", student)
	if w.Code != http.StatusForbidden {
		t.Errorf("get status = %d, want %d", w.Code, http.StatusForbidden)
	}
}
