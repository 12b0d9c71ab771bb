package server

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	log "github.com/Goden-Gun/grpcbind/pkg/logger"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
	"github.com/Goden-Gun/grpcbind/pkg/tracing"
)

const (
	tracerName = "github.com/Goden-Gun/grpcbind/pkg/server"

	FieldMethod     = "method"
	FieldCode       = "code"
	FieldDuration   = "duration_ms"
	FieldStreamType = "stream_type"
)

// UnaryErrorInterceptor classifies handler errors into *rpcerr.Error. The
// peer receives the status from (*rpcerr.Error).GRPCStatus.
func UnaryErrorInterceptor(observer ErrorObserver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if e := rpcerr.FromError(err); e != nil {
			if observer != nil {
				observer.ObserveError(ctx, info.FullMethod, e)
			}
			return nil, e
		}
		return resp, nil
	}
}

// StreamErrorInterceptor is the streaming counterpart of UnaryErrorInterceptor.
func StreamErrorInterceptor(observer ErrorObserver) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if e := rpcerr.FromError(handler(srv, ss)); e != nil {
			if observer != nil {
				observer.ObserveError(ss.Context(), info.FullMethod, e)
			}
			return e
		}
		return nil
	}
}

// UnaryLoggingInterceptor logs one entry per call.
func UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logRPC(ctx, start, info.FullMethod, "", err)
		return resp, err
	}
}

// StreamLoggingInterceptor logs one entry per stream when it ends.
func StreamLoggingInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logRPC(ss.Context(), start, info.FullMethod, streamType(info), err)
		return err
	}
}

func logRPC(ctx context.Context, start time.Time, method, kind string, err error) {
	e := log.WithTrace(ctx).WithFields(log.Fields{
		FieldMethod:   method,
		FieldDuration: time.Since(start).Milliseconds(),
	})
	if kind != "" {
		e = e.WithField(FieldStreamType, kind)
	}
	if err == nil {
		e.WithField(FieldCode, "OK").Debug("grpc call")
		return
	}
	re := rpcerr.FromError(err)
	log.RPCErrorFields(e, re).
		WithField(FieldCode, re.GRPCStatus().Code().String()).
		WithError(err).
		Warn("grpc call failed")
}

// UnaryTracingInterceptor starts a server span continuing the caller's trace.
func UnaryTracingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, span := startSpan(ctx, info.FullMethod)
		defer span.End()

		resp, err := handler(ctx, req)
		tracing.RecordError(span, err)
		return resp, err
	}
}

// StreamTracingInterceptor starts a server span for the lifetime of a stream.
func StreamTracingInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, span := startSpan(ss.Context(), info.FullMethod)
		defer span.End()

		err := handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
		tracing.RecordError(span, err)
		return err
	}
}

func startSpan(ctx context.Context, method string) (context.Context, trace.Span) {
	md, _ := metadata.FromIncomingContext(ctx)
	ctx = tracing.ExtractMetadata(ctx, md)
	return tracing.Tracer(tracerName).Start(ctx, method, trace.WithSpanKind(trace.SpanKindServer))
}

func streamType(info *grpc.StreamServerInfo) string {
	switch {
	case info.IsClientStream && info.IsServerStream:
		return "bidi"
	case info.IsClientStream:
		return "client_stream"
	case info.IsServerStream:
		return "server_stream"
	}
	return ""
}

// wrappedServerStream overrides the stream context with the traced one.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context { return w.ctx }
