package interfaces

import (
	"context"

	"gateway-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// ILogSource tails a container's demultiplexed logs.
// -----------------------------------------------------------------------------

type ILogSource interface {
	FetchLogs(ctx context.Context, container string, opts models.MLogOptions) ([]models.MLogLine, error)
}
