package metrics

import (
	"context"
	"log"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor returns a gRPC interceptor that records request count,
// duration and error code of every call. exporter may be nil.
// A panicking handler is answered with codes.Internal and counted as an error.
func UnaryServerInterceptor(collector *Collector, exporter *PrometheusExporter) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		method := info.FullMethod
		start := time.Now()

		collector.RecordRequest(method)
		if exporter != nil {
			exporter.RecordRequest(method)
		}

		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic in %s: %v\n%s", method, r, debug.Stack())
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}

			elapsed := time.Since(start).Seconds()
			collector.RecordDuration(method, elapsed)
			if exporter != nil {
				exporter.RecordDuration(method, elapsed)
			}

			if err == nil {
				return
			}
			collector.RecordError(method)
			if exporter != nil {
				exporter.RecordError(method, status.Code(err).String())
			}
		}()

		return handler(ctx, req)
	}
}
