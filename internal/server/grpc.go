package server

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/invoice-drafter/internal/common"
)

// NewGRPCServer builds a gRPC server with the invoice service, health and reflection.
func NewGRPCServer(srv *InvoiceServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(recoverInterceptor(logger)))
	gs := grpc.NewServer(opts...)
	RegisterInvoiceServer(gs, srv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Reflection for grpcurl
	reflection.Register(gs)
	return gs, hs
}

func recoverInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc.panic", "method", info.FullMethod, "panic", r)
				err = common.InternalErrorf("internal error in %s", info.FullMethod)
			}
		}()
		return handler(ctx, req)
	}
}
