package main

import (
	"fmt"
	"net"

	pb "gateway-dashboard/src/grpc_control"
	"gateway-dashboard/src/interfaces"
	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"

	"google.golang.org/grpc"
)

const defaultGrpcPort = 50051

// -----------------------------------------------------------------------------

// startServers starts the HTTP/WebSocket server and the gRPC control server.
// The returned gRPC server is nil when its listener could not be opened.
func startServers(
	srv interfaces.IDataExchanger,
	control *pb.ControlService,
	config *models.MConfig,
	appLogger *logger.Logger,
) *grpc.Server {

	// 1. Dashboard HTTP + WebSocket server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	port := config.GrpcPort
	if port == 0 {
		port = defaultGrpcPort
	}
	host := config.GrpcHost
	if host == "" {
		host = config.Host
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		appLogger.Critical("failed to listen for gRPC: %v", err)
		return nil
	}

	grpcServer := grpc.NewServer()
	pb.RegisterDashboardControlServer(grpcServer, control)

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server stopped: %v", err)
		}
	}()

	return grpcServer
}
