package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const testMethod = "/skillperm.v1.CapabilityService/Check"

func newTestExporter(t *testing.T, collector *Collector) *PrometheusExporter {
	t.Helper()
	return NewPrometheusExporter(collector, prometheus.NewRegistry())
}

func TestUnaryServerInterceptor(t *testing.T) {
	tests := []struct {
		name       string
		handlerErr error
		calls      int
		wantErrors uint64
		wantCode   string
	}{
		{name: "success", calls: 1},
		{name: "複数リクエスト", calls: 5},
		{name: "status error", handlerErr: status.Error(codes.NotFound, "skill not found"), calls: 2, wantErrors: 2, wantCode: "NotFound"},
		{name: "plain error", handlerErr: errors.New("boom"), calls: 1, wantErrors: 1, wantCode: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := NewCollector()
			exporter := newTestExporter(t, collector)
			interceptor := UnaryServerInterceptor(collector, exporter)

			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				if tt.handlerErr != nil {
					return nil, tt.handlerErr
				}
				return "response", nil
			}
			info := &grpc.UnaryServerInfo{FullMethod: testMethod}

			for i := 0; i < tt.calls; i++ {
				_, err := interceptor(context.Background(), "request", info, handler)
				if err != tt.handlerErr {
					t.Fatalf("expected error %v, got %v", tt.handlerErr, err)
				}
			}

			apiMetrics := collector.GetAPIMetrics()
			if got := apiMetrics.RequestCounts[testMethod]; got != uint64(tt.calls) {
				t.Errorf("request count = %d, want %d", got, tt.calls)
			}
			if got := apiMetrics.ErrorCounts[testMethod]; got != tt.wantErrors {
				t.Errorf("error count = %d, want %d", got, tt.wantErrors)
			}
			if _, ok := apiMetrics.TotalDurationSeconds[testMethod]; !ok {
				t.Error("expected duration to be recorded")
			}

			if got := testutil.ToFloat64(exporter.grpcRequests.WithLabelValues(testMethod)); got != float64(tt.calls) {
				t.Errorf("prometheus requests = %v, want %d", got, tt.calls)
			}
			if tt.wantCode != "" {
				if got := testutil.ToFloat64(exporter.grpcErrors.WithLabelValues(testMethod, tt.wantCode)); got != float64(tt.wantErrors) {
					t.Errorf("prometheus errors{code=%s} = %v, want %d", tt.wantCode, got, tt.wantErrors)
				}
			}
		})
	}
}

func TestUnaryServerInterceptor_NilExporter(t *testing.T) {
	collector := NewCollector()
	interceptor := UnaryServerInterceptor(collector, nil)

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, errors.New("failed")
	}

	// nil exporter でも panic しない
	_, _ = interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: testMethod}, handler)

	apiMetrics := collector.GetAPIMetrics()
	if apiMetrics.RequestCounts[testMethod] != 1 || apiMetrics.ErrorCounts[testMethod] != 1 {
		t.Errorf("unexpected API metrics: %+v", apiMetrics)
	}
}

func TestUnaryServerInterceptor_RecoversPanic(t *testing.T) {
	collector := NewCollector()
	exporter := newTestExporter(t, collector)
	interceptor := UnaryServerInterceptor(collector, exporter)

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("nil skill")
	}

	resp, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: testMethod}, handler)
	if resp != nil {
		t.Errorf("expected nil response, got %v", resp)
	}
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}

	if got := collector.GetAPIMetrics().ErrorCounts[testMethod]; got != 1 {
		t.Errorf("error count = %d, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.grpcErrors.WithLabelValues(testMethod, "Internal")); got != 1 {
		t.Errorf("prometheus errors{code=Internal} = %v, want 1", got)
	}
}
