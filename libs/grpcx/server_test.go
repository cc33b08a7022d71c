package grpcx

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealthOverDial(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(nil)
	hs := RegisterHealth(srv, "slotwise.booking")
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial("passthrough:///bufnet", DialOptions{},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := healthpb.NewHealthClient(conn)
	var header metadata.MD
	resp, err := client.Check(WithRequestID(ctx, "rid-42"), &healthpb.HealthCheckRequest{Service: "slotwise.booking"}, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	assert.Equal(t, []string{"rid-42"}, header.Get(RequestIDMetadataKey))

	hs.SetServingStatus("slotwise.booking", healthpb.HealthCheckResponse_NOT_SERVING)
	st, err := Probe(ctx, conn, "slotwise.booking", time.Second)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)
}

func TestServerMintsRequestID(t *testing.T) {
	var seen string
	interceptor := UnaryServerRequestIDInterceptor()
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(ctx context.Context, _ any) (any, error) {
			seen = RequestIDFromContext(ctx)
			return nil, nil
		})
	require.NoError(t, err)
	assert.Len(t, seen, 32)
}

func TestRecoverInterceptor(t *testing.T) {
	interceptor := UnaryServerRecoverInterceptor(nil)
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(context.Context, any) (any, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))
}
