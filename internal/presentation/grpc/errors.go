package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/fund/internal/domain/valueobject"
)

// toStatus maps domain errors onto gRPC status codes. Unclassified errors
// become Internal with a generic message so storage details do not leak.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, valueobject.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, valueobject.ErrPolicyViolation):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, valueobject.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, valueobject.ErrInvalidStatusTransition),
		errors.Is(err, valueobject.ErrConcurrentModification):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
