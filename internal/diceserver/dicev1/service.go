// Package dicev1 declares the roll.v1.DiceService gRPC contract. Requests and
// responses travel as google.protobuf.Struct, so no generated message types
// are needed.
package dicev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "roll.v1.DiceService"
	// DiceService_Evaluate_FullMethodName is the method path of Evaluate.
	DiceService_Evaluate_FullMethodName = "/roll.v1.DiceService/Evaluate"
)

// Request field names.
const (
	FieldExpression = "expression"
	FieldVerbose    = "verbose"
	FieldMode       = "mode"
)

// DiceServiceClient is the client API for DiceService.
type DiceServiceClient interface {
	// Evaluate rolls one expression. The request carries expression (string),
	// verbose (bool) and mode ("min", "normal" or "max"); the response carries
	// total and, when verbose, history and rolls.
	Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type diceServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDiceServiceClient returns a client bound to cc.
func NewDiceServiceClient(cc grpc.ClientConnInterface) DiceServiceClient {
	return &diceServiceClient{cc}
}

func (c *diceServiceClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DiceService_Evaluate_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// DiceServiceServer is the server API for DiceService.
type DiceServiceServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedDiceServiceServer answers every method with codes.Unimplemented.
type UnimplementedDiceServiceServer struct{}

func (UnimplementedDiceServiceServer) Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Evaluate not implemented")
}

// RegisterDiceServiceServer registers srv on s.
func RegisterDiceServiceServer(s grpc.ServiceRegistrar, srv DiceServiceServer) {
	s.RegisterService(&DiceService_ServiceDesc, srv)
}

func _DiceService_Evaluate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiceServiceServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: DiceService_Evaluate_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiceServiceServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// DiceService_ServiceDesc is the grpc.ServiceDesc for DiceService.
var DiceService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DiceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Evaluate",
			Handler:    _DiceService_Evaluate_Handler,
		},
	},
	Streams: []grpc.StreamDesc{},
}
