package diceserver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/roll/internal/config"
	"github.com/cory-johannsen/roll/internal/dice"
	"github.com/cory-johannsen/roll/internal/diceserver"
	"github.com/cory-johannsen/roll/internal/diceserver/dicev1"
)

type panicSource struct{}

func (panicSource) Intn(int) int { panic("broken source") }

// testClient starts an in-process server over bufconn and returns a connected
// client.
func testClient(t *testing.T, ev *dice.Evaluator, logger *zap.Logger) *grpc.ClientConn {
	t.Helper()
	if ev == nil {
		ev = dice.NewEvaluator(dice.NewSeededSource(3))
	}
	svc := diceserver.NewService(dice.NewLoggedEvaluator(ev, logger), logger)
	srv := diceserver.NewServer(config.GRPCConfig{Host: "127.0.0.1", Port: 50051}, svc, logger)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func callCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestEvaluate_Total(t *testing.T) {
	client := dicev1.NewDiceServiceClient(testClient(t, nil, zaptest.NewLogger(t)))

	resp, err := client.Evaluate(callCtx(t), request(t, map[string]any{"expression": "2 + 2"}))
	require.NoError(t, err)
	assert.Equal(t, 4.0, resp.GetFields()["total"].GetNumberValue())
	assert.NotContains(t, resp.GetFields(), "history")
	assert.NotContains(t, resp.GetFields(), "rolls")
}

func TestEvaluate_VerboseMinimum(t *testing.T) {
	client := dicev1.NewDiceServiceClient(testClient(t, nil, zaptest.NewLogger(t)))

	resp, err := client.Evaluate(callCtx(t), request(t, map[string]any{
		"expression": "4d6K3",
		"verbose":    true,
		"mode":       "min",
	}))
	require.NoError(t, err)

	got := resp.AsMap()
	assert.Equal(t, 3.0, got["total"])
	assert.Equal(t, []any{"Rolled: 4d6: [1, 1, 1, 1]", "Keeping highest: 3: [1, 1, 1]"}, got["history"])
	assert.Equal(t, []any{
		map[string]any{"notation": "4d6", "values": []any{1.0, 1.0, 1.0}},
	}, got["rolls"])
}

func TestEvaluate_MaximumAndDefaultExpression(t *testing.T) {
	client := dicev1.NewDiceServiceClient(testClient(t, nil, zaptest.NewLogger(t)))

	resp, err := client.Evaluate(callCtx(t), request(t, map[string]any{"expression": "3d6", "mode": "maximum"}))
	require.NoError(t, err)
	assert.Equal(t, 18.0, resp.GetFields()["total"].GetNumberValue())

	resp, err = client.Evaluate(callCtx(t), request(t, map[string]any{"mode": "max"}))
	require.NoError(t, err)
	assert.Equal(t, 20.0, resp.GetFields()["total"].GetNumberValue(), "empty expression rolls 1d20")
}

func TestEvaluate_ErrorCodes(t *testing.T) {
	limited := dice.NewEvaluator(dice.NewSeededSource(3), dice.WithLimits(dice.Limits{
		MaxDice:        10,
		MaxDepth:       8,
		MaxInputLength: 64,
	}))
	client := dicev1.NewDiceServiceClient(testClient(t, limited, zaptest.NewLogger(t)))

	tests := []struct {
		name   string
		fields map[string]any
		code   codes.Code
	}{
		{"division by zero", map[string]any{"expression": "1 / 0"}, codes.InvalidArgument},
		{"invalid characters", map[string]any{"expression": "hello"}, codes.InvalidArgument},
		{"syntax", map[string]any{"expression": "2 +"}, codes.InvalidArgument},
		{"negative sides", map[string]any{"expression": "1d-20"}, codes.InvalidArgument},
		{"keep on number", map[string]any{"expression": "5K2"}, codes.InvalidArgument},
		{"unknown field", map[string]any{"expression": "1d6", "sides": 6.0}, codes.InvalidArgument},
		{"wrong kind", map[string]any{"expression": 6.0}, codes.InvalidArgument},
		{"bad mode", map[string]any{"expression": "1d6", "mode": "sideways"}, codes.InvalidArgument},
		{"too many dice", map[string]any{"expression": "11d6"}, codes.ResourceExhausted},
		{"too long", map[string]any{"expression": "1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1"}, codes.ResourceExhausted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Evaluate(callCtx(t), request(t, tc.fields))
			require.Error(t, err)
			assert.Equal(t, tc.code, status.Code(err), "error: %v", err)
		})
	}
}

func TestEvaluate_InternalErrorIsOpaque(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	client := dicev1.NewDiceServiceClient(testClient(t, dice.NewEvaluator(panicSource{}), zap.New(core)))

	_, err := client.Evaluate(callCtx(t), request(t, map[string]any{"expression": "1d6"}))
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, status.Convert(err).Message(), "broken source")
	assert.Equal(t, 1, logs.FilterMessage("evaluation failed").Len())
}

func TestRequestID_EchoedOrGenerated(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	client := dicev1.NewDiceServiceClient(testClient(t, nil, zap.New(core)))

	var header metadata.MD
	ctx := metadata.AppendToOutgoingContext(callCtx(t), diceserver.RequestIDHeader, "req-42")
	_, err := client.Evaluate(ctx, request(t, map[string]any{"expression": "1d4"}), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, header.Get(diceserver.RequestIDHeader))

	header = nil
	_, err = client.Evaluate(callCtx(t), request(t, map[string]any{"expression": "1d4"}), grpc.Header(&header))
	require.NoError(t, err)
	ids := header.Get(diceserver.RequestIDHeader)
	require.Len(t, ids, 1)
	_, err = uuid.Parse(ids[0])
	assert.NoError(t, err)

	calls := logs.FilterMessage("grpc call").All()
	require.Len(t, calls, 2)
	assert.Equal(t, "req-42", calls[0].ContextMap()["request_id"])
	assert.Equal(t, dicev1.DiceService_Evaluate_FullMethodName, calls[0].ContextMap()["method"])
	assert.Equal(t, "OK", calls[0].ContextMap()["code"])
}

func TestHealth_Serving(t *testing.T) {
	conn := testClient(t, nil, zaptest.NewLogger(t))
	health := healthpb.NewHealthClient(conn)

	for _, svc := range []string{"", dicev1.ServiceName} {
		resp, err := health.Check(callCtx(t), &healthpb.HealthCheckRequest{Service: svc})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	}
}

func TestParseRequest(t *testing.T) {
	req, err := diceserver.ParseRequest(request(t, map[string]any{
		"expression": "2d20k1",
		"verbose":    true,
		"mode":       "MAX",
	}))
	require.NoError(t, err)
	assert.Equal(t, diceserver.Request{Expression: "2d20k1", Verbose: true, Mode: dice.Maximum}, req)

	req, err = diceserver.ParseRequest(&structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, diceserver.Request{Mode: dice.Normal}, req)

	_, err = diceserver.ParseRequest(request(t, map[string]any{"verbose": "yes"}))
	assert.ErrorIs(t, err, dice.ErrSyntax)
}

func TestUnimplementedServer(t *testing.T) {
	_, err := dicev1.UnimplementedDiceServiceServer{}.Evaluate(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}
