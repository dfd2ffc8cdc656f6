package main

import (
	"gateway-dashboard/src/activity"
	"gateway-dashboard/src/dockerlogs"
	"gateway-dashboard/src/gateway"
	"gateway-dashboard/src/interfaces"
	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"
	"gateway-dashboard/src/network"
	"gateway-dashboard/src/treasury"
	"gateway-dashboard/src/utils"
)

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager used for upstream HTTP APIs
func setupNetwork(config *models.MConfig) interfaces.INetworkManager {
	networkLogger := logger.NewLogger(config.LogLevel, "NetworkManager")
	return network.NewAsyncNetworkManager(config, networkLogger)
}

// -----------------------------------------------------------------------------

// setupBridge initializes the connection-per-call gateway bridge
func setupBridge(config *models.MConfig) *gateway.Bridge {
	bridgeLogger := logger.NewLogger(config.LogLevel, "GatewayBridge")
	return gateway.NewBridge(&config.Gateway, bridgeLogger)
}

// -----------------------------------------------------------------------------

// setupGateway wraps the bridge in the typed gateway client
func setupGateway(config *models.MConfig) *gateway.Client {
	return gateway.NewClient(setupBridge(config), &config.Gateway)
}

// -----------------------------------------------------------------------------

// setupPoller initializes the activity poller
func setupPoller(config *models.MConfig, client interfaces.IGatewayClient) *activity.Poller {
	pollerLogger := logger.NewLogger(config.LogLevel, "ActivityPoller")
	return activity.NewPoller(&config.Poller, client, utils.SystemClock{}, pollerLogger)
}

// -----------------------------------------------------------------------------

// setupTreasury initializes the balance aggregator
func setupTreasury(config *models.MConfig, networkManager interfaces.INetworkManager) *treasury.Aggregator {
	treasuryLogger := logger.NewLogger(config.LogLevel, "Treasury")
	return treasury.NewAggregator(config, networkManager, utils.SystemClock{}, treasuryLogger)
}

// -----------------------------------------------------------------------------

// setupLogs initializes the container log client
func setupLogs(config *models.MConfig) *dockerlogs.Client {
	logsLogger := logger.NewLogger(config.LogLevel, "ContainerLogs")
	return dockerlogs.NewClient(&config.Docker, logsLogger)
}
