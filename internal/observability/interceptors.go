// Package observability provides gRPC interceptors for metrics and logging.
package observability

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"ai-voice-agent-service/internal/observability/metrics"
)

// Calls to the health service are logged at trace level.
const healthService = "grpc.health.v1.Health"

// UnaryServerInterceptor returns a gRPC unary interceptor for metrics and logging.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observe(m, info.FullMethod, "unary", start, err)
		return resp, err
	}
}

// StreamServerInterceptor returns a gRPC stream interceptor for metrics and
// logging. Health watches and reflection sessions are the only streams.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		err := handler(srv, ss)
		observe(m, info.FullMethod, "stream", start, err)
		return err
	}
}

func observe(m *metrics.Metrics, fullMethod, kind string, start time.Time, err error) {
	code := status.Code(err).String()
	m.RecordGRPCCall(fullMethod, code)

	service, rpc := splitMethod(fullMethod)
	level := zerolog.DebugLevel
	switch {
	case err != nil:
		level = zerolog.WarnLevel
	case service == healthService:
		level = zerolog.TraceLevel
	}

	log.WithLevel(level).
		Str("service", service).
		Str("rpc", rpc).
		Str("kind", kind).
		Str("code", code).
		Dur("duration", time.Since(start)).
		Msg("gRPC call completed")
}

// splitMethod turns "/pkg.Service/Method" into its service and method names.
func splitMethod(fullMethod string) (string, string) {
	service, rpc, ok := strings.Cut(strings.TrimPrefix(fullMethod, "/"), "/")
	if !ok {
		return "unknown", fullMethod
	}
	return service, rpc
}
