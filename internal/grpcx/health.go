// Package grpcx runs the standard gRPC health service next to each HTTP server.
package grpcx

import (
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type HealthServer struct {
	name   string
	srv    *grpc.Server
	health *health.Server
	log    *zap.Logger
}

// NewHealthServer registers grpc.health.v1.Health reporting NOT_SERVING for
// both "" and name until SetServing(true).
func NewHealthServer(name string, log *zap.Logger) *HealthServer {
	if log == nil {
		log = zap.NewNop()
	}
	h := &HealthServer{
		name:   name,
		srv:    grpc.NewServer(),
		health: health.NewServer(),
		log:    log,
	}
	healthpb.RegisterHealthServer(h.srv, h.health)
	h.SetServing(false)
	return h
}

func (h *HealthServer) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(h.name, st)
}

// Serve blocks until Stop.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.log.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
	return h.srv.Serve(lis)
}

func (h *HealthServer) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.Serve(lis)
}

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.srv.GracefulStop()
}
