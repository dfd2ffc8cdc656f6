package main

import (
	"context"
	"sync"

	"gateway-dashboard/src/config"
	pb "gateway-dashboard/src/grpc_control"
	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"
	"gateway-dashboard/src/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the poller, the dashboard API and the gRPC control plane",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), conf)
		},
	}
}

// -----------------------------------------------------------------------------

func runServe(parent context.Context, conf *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	// 1. Setup Logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)

	// 2. Setup Components
	networkManager := setupNetwork(conf.MConfig)
	gatewayClient := setupGateway(conf.MConfig)
	poller := setupPoller(conf.MConfig, gatewayClient)
	aggregator := setupTreasury(conf.MConfig, networkManager)
	logs := setupLogs(conf.MConfig)

	srv := server.NewDashboardServer(conf.MConfig, logger.NewLogger(conf.LogLevel, "DashboardServer"), server.Services{
		Feed:     poller,
		Gateway:  gatewayClient,
		Treasury: aggregator,
		Logs:     logs,
	})
	control := pb.NewControlService(conf.MConfig, poller, gatewayClient, logger.NewLogger(conf.LogLevel, "ControlService"))

	appLogger.Info("Gateway %s, %d wallet(s), polling every %ds",
		conf.Gateway.URL, len(conf.Treasury.Wallets), conf.Poller.IntervalSeconds)

	// 3. Start Servers
	grpcServer := startServers(srv, control, conf.MConfig, appLogger)

	// 4. Lifecycle Management
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var wg sync.WaitGroup
	updatesChan := make(chan []models.MActivityEntry, 500)

	if err := poller.Start(ctx, updatesChan, &wg); err != nil {
		appLogger.Critical("Failed to start poller: %v", err)
		return err
	}

	// Wait for cleanup on exit
	defer func() {
		appLogger.Info("Waiting for poller to stop...")
		poller.Stop()
		cancel()
		wg.Wait()
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := srv.Stop(); err != nil {
			appLogger.Error("Server shutdown: %v", err)
		}
		appLogger.Info("Shutdown complete.")
	}()

	// 5. Run Loop (Blocking)
	runActivityLoop(ctx, updatesChan, srv, appLogger)
	return nil
}
