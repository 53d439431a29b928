package rpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fekuna/omnipos-pricing-service/internal/apperr"
)

var codeByKind = map[apperr.Kind]codes.Code{
	apperr.Internal:        codes.Internal,
	apperr.NotFound:        codes.NotFound,
	apperr.Conflict:        codes.AlreadyExists,
	apperr.Invalid:         codes.InvalidArgument,
	apperr.Precondition:    codes.FailedPrecondition,
	apperr.Unauthenticated: codes.Unauthenticated,
}

// Error converts a domain error into a gRPC status error.
func Error(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeByKind[apperr.KindOf(err)], err.Error())
}
