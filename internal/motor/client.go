package motor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	apperrors "labbook/pkg/errors"
	"labbook/pkg/logger"
)

const (
	DefaultTimeout  = 5 * time.Second
	maxResponseSize = 64 * 1024
)

// Result is the merged outcome returned to API callers. Fields from a JSON reply
// land in Reply and are flattened into the encoded object.
type Result struct {
	Success bool
	Message string
	Command Command
	Reply   map[string]any
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Reply)+3)
	out["success"] = r.Success
	out["message"] = r.Message
	out["command"] = r.Command
	for k, v := range r.Reply {
		out[k] = v
	}
	return json.Marshal(out)
}

type Client struct {
	addr    string
	timeout time.Duration
	log     *logger.Logger
}

func NewClient(addr string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		addr:    addr,
		timeout: timeout,
		log:     log,
	}
}

// Send opens one connection per command, writes it as JSON and reads a single
// reply. The timeout covers dialing and the whole exchange.
func (c *Client) Send(ctx context.Context, cmd Command) (*Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, c.transportError("dial", cmd, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, apperrors.Internal("Failed to encode motor command", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, c.transportError("write", cmd, err)
	}

	buf := make([]byte, maxResponseSize)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return nil, c.transportError("read", cmd, err)
	}

	c.log.Info("Motor command executed",
		"addr", c.addr,
		"command", cmd.Command,
		"amount", cmd.Amount,
	)
	return parseReply(cmd, buf[:n]), nil
}

func parseReply(cmd Command, data []byte) *Result {
	result := &Result{
		Success: true,
		Message: "Command executed successfully",
		Command: cmd,
	}

	var reply map[string]any
	if err := json.Unmarshal(data, &reply); err != nil {
		result.Message = string(data)
		return result
	}
	if msg, ok := reply["message"].(string); ok {
		result.Message = msg
		delete(reply, "message")
	}
	if success, ok := reply["success"].(bool); ok {
		result.Success = success
		delete(reply, "success")
	}
	delete(reply, "command")
	result.Reply = reply
	return result
}

func (c *Client) transportError(op string, cmd Command, err error) error {
	c.log.Error("Motor controller request failed",
		"addr", c.addr,
		"operation", op,
		"command", cmd.Command,
		"error", err,
	)

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.Timeout(fmt.Sprintf("Motor controller at %s did not respond", c.addr))
	}
	return apperrors.Unavailable("Motor controller").WithDetails(map[string]any{
		"addr":  c.addr,
		"error": err.Error(),
	})
}
