package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/bibbank/fund/pkg/auth"
)

// treasuryMethods may only be called by treasurers and admins.
var treasuryMethods = []string{
	"ApprovePayment",
	"RejectPayment",
	"DisburseLoan",
	"RejectLoan",
	"MonthlyClose",
	"AnnualClose",
	"DecideWithdrawal",
	"RecordCashMovement",
}

// MethodRoles returns the role policy enforced on FundService.
func MethodRoles() auth.MethodRoles {
	policy := make(auth.MethodRoles, len(treasuryMethods))
	for _, m := range treasuryMethods {
		policy[FullMethod(m)] = []string{auth.RoleTreasurer, auth.RoleAdmin}
	}
	return policy
}

// ServerOptions tunes the gRPC server.
type ServerOptions struct {
	// Creds enables TLS when set.
	Creds      credentials.TransportCredentials
	Reflection bool
}

// Server wraps a gRPC server with the fund handler registered.
type Server struct {
	gs     *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewServer creates and configures the gRPC server.
func NewServer(handler FundServiceServer, validator auth.TokenValidator, opts ServerOptions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	authInterceptor := auth.UnaryAuthInterceptor(validator, []string{
		"/grpc.health.v1.Health/Check",
		"/grpc.health.v1.Health/Watch",
	})

	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			loggingInterceptor(logger),
			authInterceptor,
			auth.UnaryRoleInterceptor(MethodRoles()),
		),
	}
	if opts.Creds != nil {
		serverOpts = append(serverOpts, grpc.Creds(opts.Creds))
		logger.Info("gRPC TLS enabled")
	} else {
		logger.Info("gRPC TLS not configured, running without TLS")
	}

	gs := grpc.NewServer(serverOpts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	if opts.Reflection {
		reflection.Register(gs)
	}

	RegisterFundServiceServer(gs, handler)

	return &Server{gs: gs, health: healthSrv, logger: logger}
}

// Serve accepts connections on lis until the server stops.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.gs.Serve(lis)
}

// ListenAndServe listens on addr and serves.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// GracefulStop marks the service as not serving and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.gs.GracefulStop()
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.DebugContext(ctx, "rpc",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start).String(),
		)
		return resp, err
	}
}
