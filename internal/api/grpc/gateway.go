package grpc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// NewGatewayHandler создает HTTP Gateway для gRPC: GET /healthz -> grpc.health.v1
func NewGatewayHandler(ctx context.Context, grpcAddr string, extra ...grpc.DialOption) (http.Handler, func() error, error) {
	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, extra...)

	conn, err := grpc.NewClient(grpcAddr, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial grpc server: %w", err)
	}

	mux := runtime.NewServeMux(
		runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)),
		runtime.WithMarshalerOption(runtime.MIMEWildcard, &runtime.JSONPb{
			MarshalOptions: protojson.MarshalOptions{
				UseProtoNames:   true,
				EmitUnpopulated: true,
			},
			UnmarshalOptions: protojson.UnmarshalOptions{
				DiscardUnknown: true,
			},
		}),
	)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	return mux, conn.Close, nil
}
