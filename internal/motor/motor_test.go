package motor

import (
	"context"
	"encoding/json"
	"net"
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

// fakeController accepts connections and answers each received command with
// reply(cmd). A nil reply means the controller never answers.
func fakeController(t *testing.T, reply func(cmd Command) []byte) (string, <-chan Command) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	received := make(chan Command, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				var cmd Command
				if err := json.NewDecoder(conn).Decode(&cmd); err != nil {
					return
				}
				received <- cmd
				if reply == nil {
					time.Sleep(time.Second)
					return
				}
				_, _ = conn.Write(reply(cmd))
			}(conn)
		}
	}()
	return ln.Addr().String(), received
}

func TestNewCommand(t *testing.T) {
	zero, two := 0, 2
	tests := []struct {
		name    string
		cmd     CommandName
		amount  *int
		want    int
		wantErr bool
	}{
		{name: "default amount", cmd: MoveX, want: 1},
		{name: "explicit amount", cmd: ZoomOutFine, amount: &two, want: 2},
		{name: "zero amount", cmd: MoveY, amount: &zero, wantErr: true},
		{name: "unknown command", cmd: "spin", wantErr: true},
		{name: "empty command", cmd: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NewCommand(tt.cmd, tt.amount)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cmd.Amount != tt.want {
				t.Errorf("amount = %d, want %d", cmd.Amount, tt.want)
			}
		})
	}
}

func TestClient_JSONReplyMerged(t *testing.T) {
	addr, received := fakeController(t, func(cmd Command) []byte {
		return []byte(`{"position":42,"message":"moved"}`)
	})
	client := NewClient(addr, time.Second, logger.Discard())

	result, err := client.Send(context.Background(), Command{Command: MoveX, Amount: 3})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := <-received; got.Command != MoveX || got.Amount != 3 {
		t.Errorf("controller received %+v", got)
	}
	if !result.Success || result.Message != "moved" {
		t.Errorf("result = %+v", result)
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if flat["position"] != float64(42) || flat["success"] != true {
		t.Errorf("flattened = %v", flat)
	}
}

func TestClient_PlainTextReply(t *testing.T) {
	addr, _ := fakeController(t, func(cmd Command) []byte { return []byte("OK zoom") })
	client := NewClient(addr, time.Second, logger.Discard())

	result, err := client.Send(context.Background(), Command{Command: ZoomInFine, Amount: 1})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if result.Message != "OK zoom" || !result.Success {
		t.Errorf("result = %+v", result)
	}
}

func TestClient_Timeout(t *testing.T) {
	addr, _ := fakeController(t, nil)
	client := NewClient(addr, 100*time.Millisecond, logger.Discard())

	_, err := client.Send(context.Background(), Command{Command: MoveY, Amount: 1})
	if !apperrors.HasCode(err, apperrors.CodeTimeout) {
		t.Fatalf("Send() error = %v, want TIMEOUT", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := NewClient(addr, time.Second, logger.Discard())
	_, err = client.Send(context.Background(), Command{Command: MoveX, Amount: 1})
	if !apperrors.HasCode(err, apperrors.CodeUnavailable) {
		t.Fatalf("Send() error = %v, want SERVICE_UNAVAILABLE", err)
	}
}

func TestClient_RejectsInvalidCommand(t *testing.T) {
	client := NewClient("127.0.0.1:1", time.Second, logger.Discard())
	_, err := client.Send(context.Background(), Command{Command: "spin", Amount: 1})
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("Send() error = %v, want INVALID_INPUT", err)
	}
}

type mockSender struct {
	sendFunc func(ctx context.Context, cmd Command) (*Result, error)
}

func (m *mockSender) Send(ctx context.Context, cmd Command) (*Result, error) {
	return m.sendFunc(ctx, cmd)
}

func TestHandler(t *testing.T) {
	student := &authz.Actor{ID: "65f0000000000000000000a3", Role: model.RoleStudent}

	tests := []struct {
		name       string
		path       string
		body       string
		actor      *authz.Actor
		sendErr    error
		failed     bool
		wantStatus int
		wantCmd    Command
	}{
		{name: "move x default", path: "/api/v1/motor/move-x", actor: student, wantStatus: http.StatusOK, wantCmd: Command{MoveX, 1}},
		{name: "move y amount", path: "/api/v1/motor/move-y", body: `{"amount":4}`, actor: student, wantStatus: http.StatusOK, wantCmd: Command{MoveY, 4}},
		{name: "zoom in", path: "/api/v1/motor/zoom-in", body: `{}`, actor: student, wantStatus: http.StatusOK, wantCmd: Command{ZoomInFine, 1}},
		{name: "zoom out", path: "/api/v1/motor/zoom-out", body: `{"amount":2}`, actor: student, wantStatus: http.StatusOK, wantCmd: Command{ZoomOutFine, 2}},
		{name: "generic", path: "/api/v1/motor/command", body: `{"command":"move_x","amount":7}`, actor: student, wantStatus: http.StatusOK, wantCmd: Command{MoveX, 7}},
		{name: "generic unknown", path: "/api/v1/motor/command", body: `{"command":"spin"}`, actor: student, wantStatus: http.StatusBadRequest},
		{name: "zero amount", path: "/api/v1/motor/move-x", body: `{"amount":0}`, actor: student, wantStatus: http.StatusBadRequest},
		{name: "fractional amount", path: "/api/v1/motor/move-x", body: `{"amount":1.5}`, actor: student, wantStatus: http.StatusBadRequest},
		{name: "anonymous", path: "/api/v1/motor/move-x", wantStatus: http.StatusUnauthorized},
		{name: "controller timeout", path: "/api/v1/motor/move-x", actor: student, sendErr: apperrors.Timeout("no reply"), wantStatus: http.StatusGatewayTimeout},
		{name: "controller reports failure", path: "/api/v1/motor/move-x", actor: student, failed: true, wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Command
			sender := &mockSender{
				sendFunc: func(ctx context.Context, cmd Command) (*Result, error) {
					got = cmd
					if tt.sendErr != nil {
						return nil, tt.sendErr
					}
					return &Result{Success: !tt.failed, Message: "done", Command: cmd}, nil
				},
			}
			router := httprouter.New()
			NewHandler(sender, logger.Discard()).RegisterRoutes(router)

			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(http.MethodPost, tt.path, nil)
			}
			if tt.actor != nil {
				req = req.WithContext(authz.WithActor(req.Context(), tt.actor))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && got != tt.wantCmd {
				t.Errorf("sent %+v, want %+v", got, tt.wantCmd)
			}
		})
	}
}

func TestResultMarshal_ReplyCannotOverrideCore(t *testing.T) {
	r := parseReply(Command{MoveX, 1}, []byte(`{"success":false,"command":"bogus","extra":true}`))
	if r.Success {
		t.Error("controller-reported failure was ignored")
	}
	if _, ok := r.Reply["command"]; ok {
		t.Error("reply overrode the command field")
	}
}
