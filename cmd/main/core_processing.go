package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gateway-dashboard/src/interfaces"
	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"
)

// -----------------------------------------------------------------------------

// runActivityLoop forwards each batch of new activity from the poller to the
// connected dashboards until a signal arrives or ctx ends.
func runActivityLoop(
	ctx context.Context,
	updatesChan <-chan []models.MActivityEntry,
	srv interfaces.IDataExchanger,
	appLogger *logger.Logger,
) {

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	appLogger.Info("Starting activity loop (Push Model)...")

	for {
		select {
		case entries, ok := <-updatesChan:
			if !ok {
				appLogger.Info("Poller closed channel.")
				return
			}

			appLogger.Debug("Broadcasting %d activity entries", len(entries))
			srv.Broadcast(entries)

		case <-quit:
			appLogger.Info("Shutting down...")
			return

		case <-ctx.Done():
			return
		}
	}
}
