// Package diceserver exposes dice evaluation as the roll.v1.DiceService gRPC
// service.
package diceserver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/roll/internal/dice"
	"github.com/cory-johannsen/roll/internal/diceserver/dicev1"
	"github.com/cory-johannsen/roll/internal/render"
)

// Request is the decoded form of an Evaluate request Struct.
type Request struct {
	Expression string
	Verbose    bool
	Mode       dice.RollOption
}

// ParseRequest decodes req. Absent fields take their zero value; unknown
// fields and fields of the wrong kind are rejected.
//
// Postcondition: Returns a Request or an error wrapping dice.ErrSyntax.
func ParseRequest(req *structpb.Struct) (Request, error) {
	var out Request
	for name, v := range req.GetFields() {
		switch name {
		case dicev1.FieldExpression:
			s, ok := v.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return Request{}, fieldKindError(name, "string")
			}
			out.Expression = s.StringValue
		case dicev1.FieldVerbose:
			b, ok := v.GetKind().(*structpb.Value_BoolValue)
			if !ok {
				return Request{}, fieldKindError(name, "bool")
			}
			out.Verbose = b.BoolValue
		case dicev1.FieldMode:
			s, ok := v.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return Request{}, fieldKindError(name, "string")
			}
			mode, err := dice.ParseRollOption(s.StringValue)
			if err != nil {
				return Request{}, fmt.Errorf("%w: %w", dice.ErrSyntax, err)
			}
			out.Mode = mode
		default:
			return Request{}, fmt.Errorf("%w: unknown request field %q", dice.ErrSyntax, name)
		}
	}
	return out, nil
}

func fieldKindError(name, kind string) error {
	return fmt.Errorf("%w: request field %q must be a %s", dice.ErrSyntax, name, kind)
}

// Service implements dicev1.DiceServiceServer on top of a LoggedEvaluator.
type Service struct {
	dicev1.UnimplementedDiceServiceServer

	eval   *dice.LoggedEvaluator
	logger *zap.Logger
}

// NewService creates a Service.
//
// Precondition: eval and logger must be non-nil.
func NewService(eval *dice.LoggedEvaluator, logger *zap.Logger) *Service {
	return &Service{eval: eval, logger: logger}
}

// Evaluate implements dicev1.DiceServiceServer.
func (s *Service) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := ParseRequest(in)
	if err != nil {
		return nil, toStatus(err)
	}

	res, err := s.eval.Evaluate(ctx, req.Expression, req.Mode)
	if err != nil {
		if errors.Is(err, dice.ErrInternal) {
			s.logger.Error("evaluation failed",
				zap.String("request_id", RequestIDFromContext(ctx)),
				zap.String("expression", req.Expression),
				zap.Error(err),
			)
		}
		return nil, toStatus(err)
	}

	out, err := render.NewDocument(res, req.Verbose).Struct()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding result: %v", err)
	}
	return out, nil
}

// toStatus maps evaluator sentinels onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, dice.ErrTooComplex):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, dice.ErrSyntax),
		errors.Is(err, dice.ErrInvalidCharacters),
		errors.Is(err, dice.ErrInvalidOperand),
		errors.Is(err, dice.ErrDivisionByZero),
		errors.Is(err, dice.ErrType):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, "internal error evaluating expression")
}
