package interfaces

import "gateway-dashboard/src/models"

// -----------------------------------------------------------------------------
// IActivityFeed is the read side of the activity log plus the single
// write path for control actions. Only the poller implements it.
// -----------------------------------------------------------------------------

type IActivityFeed interface {

	// Latest returns up to limit entries, newest first, optionally filtered by category.
	Latest(limit int, category models.MActivityCategory) []models.MActivityEntry

	// Record appends an entry produced by a control action.
	Record(category models.MActivityCategory, subject, message string) models.MActivityEntry

	// Status reports poller health.
	Status() models.MPollerStatus
}
