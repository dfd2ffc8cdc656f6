package interfaces

import "gateway-dashboard/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for pushing activity to external listeners (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes new activity entries to connected dashboards
	Broadcast(entries []models.MActivityEntry)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
