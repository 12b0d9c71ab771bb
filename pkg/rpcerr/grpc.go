package rpcerr

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/Goden-Gun/grpcbind/pkg/status"
)

// GRPCStatus maps e onto the status reported to a gRPC peer, which lets
// handlers return an *Error directly.
func (e *Error) GRPCStatus() *grpcstatus.Status {
	switch e.kind {
	case KindRPCFailure:
		return e.status.GRPC()
	case KindRPCFinished:
		if e.hasStatus {
			return e.status.GRPC()
		}
		return grpcstatus.New(codes.FailedPrecondition, e.Error())
	case KindRemoteStopped:
		return grpcstatus.New(codes.Canceled, e.Description())
	case KindBindFail, KindQueueShutdown:
		return grpcstatus.New(codes.Unavailable, e.Error())
	case KindGoogleAuthenticationFailed:
		return grpcstatus.New(codes.Unauthenticated, e.Description())
	case KindInvalidMetadata:
		return grpcstatus.New(codes.InvalidArgument, e.Error())
	default:
		return grpcstatus.New(codes.Internal, e.Error())
	}
}

// FromError classifies an arbitrary error coming out of the transport.
// A taxonomy error anywhere in the chain is returned as-is; context and gRPC
// status errors become RPCFailure; anything else is RPCFailure(Unknown).
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	switch {
	case errors.Is(err, context.Canceled):
		return RPCFailure(status.WithDetails(codes.Canceled, err.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		return RPCFailure(status.WithDetails(codes.DeadlineExceeded, err.Error()))
	}
	st, _ := status.FromError(err)
	return RPCFailure(st)
}
