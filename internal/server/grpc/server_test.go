package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/Additional-Code/backorder/pkg/errorbank"
)

func TestToStatusMapsAppErrors(t *testing.T) {
	assert.NoError(t, toStatus(nil))

	err := toStatus(errorbank.NotFound("customer not found"))
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Equal(t, "customer not found", st.Message())

	st, _ = status.FromError(toStatus(errorbank.Validation("customer code already exists")))
	assert.Equal(t, codes.InvalidArgument, st.Code())

	already := status.Error(codes.Aborted, "busy")
	assert.Equal(t, already, toStatus(already))
}

func TestSetHealthFollowsPing(t *testing.T) {
	hs := health.NewServer()
	ctx := context.Background()

	setHealth(hs, nil, zap.NewNop())
	resp, err := hs.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	setHealth(hs, errors.New("connection refused"), zap.NewNop())
	resp, err = hs.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
