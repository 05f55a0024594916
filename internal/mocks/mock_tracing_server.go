package mocks

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	otlpcollector "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/grpc"
)

type mockTracingServer struct {
	otlpcollector.UnimplementedTraceServiceServer
	addr        string
	exportCount int
	serviceMu   sync.Mutex
}

var _ otlpcollector.TraceServiceServer = (*mockTracingServer)(nil)

func (s *mockTracingServer) Export(_ context.Context, req *otlpcollector.ExportTraceServiceRequest) (*otlpcollector.ExportTraceServiceResponse, error) {
	s.serviceMu.Lock()
	defer s.serviceMu.Unlock()
	for _, rs := range req.GetResourceSpans() {
		for _, ss := range rs.GetScopeSpans() {
			s.exportCount += len(ss.GetSpans())
		}
	}
	return &otlpcollector.ExportTraceServiceResponse{}, nil
}

// NewMockTracingServer starts an OTLP trace collector on a free local port. It is stopped
// when the test ends.
func NewMockTracingServer(t testing.TB) *mockTracingServer {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	mockServer := &mockTracingServer{addr: lis.Addr().String()}

	server := grpc.NewServer()
	otlpcollector.RegisterTraceServiceServer(server, mockServer)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(lis)
	}()

	t.Cleanup(func() {
		server.Stop()
		<-done
	})

	return mockServer
}

// Addr is the host:port the collector listens on.
func (s *mockTracingServer) Addr() string {
	return s.addr
}

// GetExportCount returns the number of spans received.
func (s *mockTracingServer) GetExportCount() int {
	s.serviceMu.Lock()
	defer s.serviceMu.Unlock()
	return s.exportCount
}
