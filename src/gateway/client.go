package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gateway-dashboard/src/interfaces"
	"gateway-dashboard/src/models"

	"github.com/google/uuid"
)

// Gateway methods consumed by the dashboard.
const (
	MethodHealth       = "health"
	MethodSessionsList = "sessions.list"
	MethodCronList     = "cron.list"
	MethodCronUpdate   = "cron.update"
	MethodCronRun      = "cron.run"
	MethodCronRuns     = "cron.runs"
	MethodAgent        = "agent"
)

// Client maps the gateway methods onto typed calls. Every call goes through
// its own bridge connection.
type Client struct {
	Caller       interfaces.IGatewayCaller
	Timeout      time.Duration
	AgentTimeout time.Duration
}

// -----------------------------------------------------------------------------

func NewClient(caller interfaces.IGatewayCaller, cfg *models.MGatewayConfig) *Client {
	return &Client{
		Caller:       caller,
		Timeout:      time.Duration(cfg.TimeoutMs) * time.Millisecond,
		AgentTimeout: time.Duration(cfg.AgentTimeoutMs) * time.Millisecond,
	}
}

// -----------------------------------------------------------------------------

func (c *Client) Health(ctx context.Context) (json.RawMessage, error) {
	return c.Caller.Call(ctx, MethodHealth, map[string]interface{}{}, c.Timeout)
}

// -----------------------------------------------------------------------------

// ListSessions returns sessions active within lookback, in gateway order.
func (c *Client) ListSessions(ctx context.Context, lookback time.Duration) ([]models.MSession, error) {
	params := map[string]interface{}{
		"activeMinutes": int(lookback / time.Minute),
	}
	raw, err := c.Caller.Call(ctx, MethodSessionsList, params, c.Timeout)
	if err != nil {
		return nil, err
	}

	var list models.MSessionList
	if err := decode(raw, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", MethodSessionsList, err)
	}
	return list.Sessions, nil
}

// -----------------------------------------------------------------------------

func (c *Client) ListCronJobs(ctx context.Context, includeDisabled bool) ([]models.MCronJob, error) {
	params := map[string]interface{}{
		"includeDisabled": includeDisabled,
	}
	raw, err := c.Caller.Call(ctx, MethodCronList, params, c.Timeout)
	if err != nil {
		return nil, err
	}

	var list models.MCronList
	if err := decode(raw, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", MethodCronList, err)
	}
	return list.Jobs, nil
}

// -----------------------------------------------------------------------------

func (c *Client) UpdateCronEnabled(ctx context.Context, jobID string, enabled bool) (json.RawMessage, error) {
	params := map[string]interface{}{
		"jobId": jobID,
		"patch": map[string]interface{}{"enabled": enabled},
	}
	return c.Caller.Call(ctx, MethodCronUpdate, params, c.Timeout)
}

// -----------------------------------------------------------------------------

func (c *Client) RunCron(ctx context.Context, jobID string) (json.RawMessage, error) {
	params := map[string]interface{}{
		"jobId": jobID,
		"mode":  "force",
	}
	return c.Caller.Call(ctx, MethodCronRun, params, c.Timeout)
}

// -----------------------------------------------------------------------------

func (c *Client) CronRuns(ctx context.Context, jobID string, limit int) (json.RawMessage, error) {
	params := map[string]interface{}{
		"jobId": jobID,
	}
	if limit > 0 {
		params["limit"] = limit
	}
	return c.Caller.Call(ctx, MethodCronRuns, params, c.Timeout)
}

// -----------------------------------------------------------------------------

// SendAgentMessage hands a message to the agent. An empty sessionKey lets the
// gateway route to the main session.
func (c *Client) SendAgentMessage(ctx context.Context, message, sessionKey string) (json.RawMessage, error) {
	params := map[string]interface{}{
		"message":        message,
		"idempotencyKey": uuid.NewString(),
	}
	if sessionKey != "" {
		params["sessionKey"] = sessionKey
	}
	return c.Caller.Call(ctx, MethodAgent, params, c.AgentTimeout)
}

// -----------------------------------------------------------------------------

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
