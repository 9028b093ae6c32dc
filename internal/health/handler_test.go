package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"labbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("ping without deadline")
	}
	return m.err
}

func serve(pinger Pinger, path string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewHealthHandler(pinger, "labbook", "test", logger.Discard()).RegisterRoutes(router)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		ping   error
		status int
		want   string
	}{
		{"banner", "/", nil, http.StatusOK, "running"},
		{"health ignores database", "/health", errors.New("down"), http.StatusOK, "ok"},
		{"ready", "/ready", nil, http.StatusOK, "ready"},
		{"not ready", "/ready", errors.New("server selection timeout"), http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(&mockPinger{err: tt.ping}, tt.path)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var body struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.want {
				t.Errorf("status field = %q, want %q", body.Status, tt.want)
			}
		})
	}
}
