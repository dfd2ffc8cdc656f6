package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"gateway-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IGatewayCaller performs exactly one authenticated request/response exchange.
// -----------------------------------------------------------------------------

type IGatewayCaller interface {
	Call(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error)
}

// -----------------------------------------------------------------------------
// IGatewayClient is the typed set of gateway methods the dashboard consumes.
// -----------------------------------------------------------------------------

type IGatewayClient interface {
	Health(ctx context.Context) (json.RawMessage, error)
	ListSessions(ctx context.Context, lookback time.Duration) ([]models.MSession, error)
	ListCronJobs(ctx context.Context, includeDisabled bool) ([]models.MCronJob, error)
	UpdateCronEnabled(ctx context.Context, jobID string, enabled bool) (json.RawMessage, error)
	RunCron(ctx context.Context, jobID string) (json.RawMessage, error)
	CronRuns(ctx context.Context, jobID string, limit int) (json.RawMessage, error)
	SendAgentMessage(ctx context.Context, message, sessionKey string) (json.RawMessage, error)
}
