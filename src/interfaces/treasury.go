package interfaces

import "gateway-dashboard/src/models"

// -----------------------------------------------------------------------------
// ITreasury serves cached wallet balances and transfer history.
// -----------------------------------------------------------------------------

type ITreasury interface {
	GetAggregate() (*models.MTreasuryAggregate, error)
	GetTransactions(address string) ([]models.MTransfer, error)
}
