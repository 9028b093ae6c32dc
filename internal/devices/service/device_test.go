package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"labbook/internal/authz"
	deviceserrors "labbook/internal/devices/errors"
	"labbook/internal/devices/validator"
	"labbook/pkg/config"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/logger"
	"labbook/pkg/model"
)

type mockDeviceRepository struct {
	createFunc   func(ctx context.Context, device *model.Device) error
	findByIDFunc func(ctx context.Context, id string) (*model.Device, error)
	findAllFunc  func(ctx context.Context, limit int, offset int64) ([]*model.Device, error)
	updateFunc   func(ctx context.Context, id string, device *model.Device) error
	deleteFunc   func(ctx context.Context, id string) error
	countFunc    func(ctx context.Context) (int64, error)
}

func (m *mockDeviceRepository) Create(ctx context.Context, device *model.Device) error {
	return m.createFunc(ctx, device)
}

func (m *mockDeviceRepository) FindByID(ctx context.Context, id string) (*model.Device, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockDeviceRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Device, error) {
	return m.findAllFunc(ctx, limit, offset)
}

func (m *mockDeviceRepository) Update(ctx context.Context, id string, device *model.Device) error {
	return m.updateFunc(ctx, id, device)
}

func (m *mockDeviceRepository) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockDeviceRepository) Count(ctx context.Context) (int64, error) {
	return m.countFunc(ctx)
}

const deviceOID = "65f0000000000000000000d1"

var (
	admin   = &authz.Actor{ID: "65f0000000000000000000a1", Email: "admin@lab.test", Role: model.RoleAdmin}
	teacher = &authz.Actor{ID: "65f0000000000000000000a2", Email: "teacher@lab.test", Role: model.RoleTeacher}
)

func newTestService(repo *mockDeviceRepository) DeviceService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   "info",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
	return NewDeviceService(repo, validator.NewDeviceValidator(), cfg)
}

func assertCode(t *testing.T, err error, code string, status int) {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want AppError %s", err, code)
	}
	if appErr.Code != code || appErr.StatusCode() != status {
		t.Fatalf("error = %s/%d, want %s/%d", appErr.Code, appErr.StatusCode(), code, status)
	}
}

func TestCreate(t *testing.T) {
	var stored *model.Device
	repo := &mockDeviceRepository{
		createFunc: func(ctx context.Context, device *model.Device) error {
			stored = device
			device.ID = deviceOID
			return nil
		},
	}
	svc := newTestService(repo)

	device := &model.Device{
		DeviceID:  "  SEM-01 ",
		Lab:       "  microscopy   lab ",
		IPAddress: "SEM-01.Lab.Internal.",
		Port:      5050,
	}
	if err := svc.Create(context.Background(), admin, device); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if stored.IPAddress != "sem-01.lab.internal" {
		t.Errorf("ip_address = %q, want normalized host", stored.IPAddress)
	}
	if device.ID != deviceOID {
		t.Errorf("id = %q", device.ID)
	}
}

func TestCreate_Errors(t *testing.T) {
	valid := func() *model.Device {
		return &model.Device{DeviceID: "sem-01", Lab: "Microscopy", IPAddress: "10.0.0.1", Port: 80}
	}

	tests := []struct {
		name    string
		actor   *authz.Actor
		device  *model.Device
		repoErr error
		code    string
		status  int
	}{
		{"anonymous", nil, valid(), nil, apperrors.CodeUnauthorized, http.StatusUnauthorized},
		{"teacher", teacher, valid(), nil, apperrors.CodeForbidden, http.StatusForbidden},
		{"invalid port", admin, &model.Device{DeviceID: "x", Lab: "y", IPAddress: "10.0.0.1"}, nil, apperrors.CodeValidation, http.StatusUnprocessableEntity},
		{"duplicate", admin, valid(), fmt.Errorf("%w: sem-01", deviceserrors.ErrDuplicate), apperrors.CodeConflict, http.StatusConflict},
		{"store failure", admin, valid(), errors.New("socket closed"), apperrors.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockDeviceRepository{
				createFunc: func(ctx context.Context, device *model.Device) error { return tt.repoErr },
			})
			err := svc.Create(context.Background(), tt.actor, tt.device)
			assertCode(t, err, tt.code, tt.status)
		})
	}
}

func TestGetByID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		repoErr error
		code    string
		status  int
	}{
		{name: "found", id: deviceOID},
		{name: "empty", id: "", code: apperrors.CodeInvalidInput, status: http.StatusBadRequest},
		{name: "missing", id: deviceOID, repoErr: deviceserrors.ErrNotFound, code: apperrors.CodeNotFound, status: http.StatusNotFound},
		{name: "malformed", id: "xyz", repoErr: deviceserrors.ErrInvalidID, code: apperrors.CodeInvalidInput, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockDeviceRepository{
				findByIDFunc: func(ctx context.Context, id string) (*model.Device, error) {
					if tt.repoErr != nil {
						return nil, tt.repoErr
					}
					return &model.Device{ID: id}, nil
				},
			})
			device, err := svc.GetByID(context.Background(), tt.id)
			if tt.code == "" {
				if err != nil || device.ID != tt.id {
					t.Fatalf("GetByID() = %v, %v", device, err)
				}
				return
			}
			assertCode(t, err, tt.code, tt.status)
		})
	}
}

func TestGetAll(t *testing.T) {
	svc := newTestService(&mockDeviceRepository{
		findAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Device, error) {
			return []*model.Device{{ID: deviceOID}}, nil
		},
		countFunc: func(ctx context.Context) (int64, error) { return 1, nil },
	})

	devices, total, err := svc.GetAll(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(devices) != 1 || total != 1 {
		t.Errorf("got %d devices, total %d", len(devices), total)
	}
}

func TestUpdate_MergesPartialFields(t *testing.T) {
	existing := &model.Device{ID: deviceOID, DeviceID: "sem-01", Lab: "Microscopy", IPAddress: "10.0.0.1", Port: 5050}
	var written *model.Device
	svc := newTestService(&mockDeviceRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Device, error) {
			copied := *existing
			return &copied, nil
		},
		updateFunc: func(ctx context.Context, id string, device *model.Device) error {
			written = device
			return nil
		},
	})

	port := 6060
	updated, err := svc.Update(context.Background(), admin, deviceOID, &model.DeviceUpdate{Port: &port})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if written.Port != 6060 || written.DeviceID != "sem-01" || written.IPAddress != "10.0.0.1" {
		t.Errorf("written = %+v", written)
	}
	if updated.Port != 6060 {
		t.Errorf("returned port = %d", updated.Port)
	}
}

func TestUpdate_Errors(t *testing.T) {
	found := func(ctx context.Context, id string) (*model.Device, error) {
		return &model.Device{ID: id, DeviceID: "sem-01", Lab: "Microscopy", IPAddress: "10.0.0.1", Port: 5050}, nil
	}
	badPort := 0

	tests := []struct {
		name    string
		actor   *authz.Actor
		updates *model.DeviceUpdate
		find    func(ctx context.Context, id string) (*model.Device, error)
		update  error
		code    string
		status  int
	}{
		{"forbidden", teacher, &model.DeviceUpdate{Lab: "x"}, found, nil, apperrors.CodeForbidden, http.StatusForbidden},
		{"missing", admin, &model.DeviceUpdate{Lab: "x"}, func(ctx context.Context, id string) (*model.Device, error) {
			return nil, deviceserrors.ErrNotFound
		}, nil, apperrors.CodeNotFound, http.StatusNotFound},
		{"invalid merge", admin, &model.DeviceUpdate{Port: &badPort}, found, nil, apperrors.CodeValidation, http.StatusUnprocessableEntity},
		{"duplicate", admin, &model.DeviceUpdate{DeviceID: "sem-02"}, found, deviceserrors.ErrDuplicate, apperrors.CodeConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockDeviceRepository{
				findByIDFunc: tt.find,
				updateFunc:   func(ctx context.Context, id string, device *model.Device) error { return tt.update },
			})
			_, err := svc.Update(context.Background(), tt.actor, deviceOID, tt.updates)
			assertCode(t, err, tt.code, tt.status)
		})
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name    string
		actor   *authz.Actor
		repoErr error
		code    string
		status  int
	}{
		{name: "admin", actor: admin},
		{name: "teacher", actor: teacher, code: apperrors.CodeForbidden, status: http.StatusForbidden},
		{name: "missing", actor: admin, repoErr: deviceserrors.ErrNotFound, code: apperrors.CodeNotFound, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockDeviceRepository{
				deleteFunc: func(ctx context.Context, id string) error { return tt.repoErr },
			})
			err := svc.Delete(context.Background(), tt.actor, deviceOID)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Delete() error = %v", err)
				}
				return
			}
			assertCode(t, err, tt.code, tt.status)
		})
	}
}
