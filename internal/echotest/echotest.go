// Package echotest provides a hand-written gRPC echo service and an in-memory
// connection for exercising grpcbind against a real gRPC stack.
package echotest

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName  = "grpcbind.test.Echo"
	EchoMethod   = "/" + ServiceName + "/Echo"
	ChatMethod   = "/" + ServiceName + "/Chat"
	ListenMethod = "/" + ServiceName + "/Listen"

	// FailPrefix makes Echo fail with NotFound and the remaining text.
	FailPrefix = "fail:"
	// Bye ends a Chat stream with OK.
	Bye = "bye"
	// Abort ends a Chat stream with Aborted.
	Abort = "abort"
	// EchoMetadataKey is copied from incoming metadata into the Echo reply.
	EchoMetadataKey = "x-echo"
)

// ChatDesc describes the bidirectional Chat stream.
var ChatDesc = &grpc.StreamDesc{StreamName: "Chat", ClientStreams: true, ServerStreams: true}

// ListenDesc describes the server-streaming Listen method.
var ListenDesc = &grpc.StreamDesc{StreamName: "Listen", ServerStreams: true}

// ListenHandler serves Listen; it receives the request and the server stream.
type ListenHandler func(req *wrapperspb.StringValue, stream grpc.ServerStream) error

// ServiceDesc returns the Echo service description. A nil listen handler
// echoes the request once.
func ServiceDesc(listen ListenHandler) *grpc.ServiceDesc {
	if listen == nil {
		listen = func(req *wrapperspb.StringValue, stream grpc.ServerStream) error {
			return stream.SendMsg(req)
		}
	}
	return &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Echo", Handler: echoHandler},
		},
		Streams: []grpc.StreamDesc{
			{StreamName: "Chat", Handler: chatHandler, ClientStreams: true, ServerStreams: true},
			{StreamName: "Listen", Handler: func(_ any, stream grpc.ServerStream) error {
				req := &wrapperspb.StringValue{}
				if err := stream.RecvMsg(req); err != nil {
					return err
				}
				return listen(req, stream)
			}, ServerStreams: true},
		},
	}
}

func echo(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	v := req.GetValue()
	if rest, ok := strings.CutPrefix(v, FailPrefix); ok {
		return nil, grpcstatus.Error(codes.NotFound, rest)
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(EchoMetadataKey); len(vals) > 0 {
			v += "|" + vals[0]
		}
	}
	return wrapperspb.String(v), nil
}

func echoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := &wrapperspb.StringValue{}
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return echo(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EchoMethod}
	return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
		return echo(ctx, req.(*wrapperspb.StringValue))
	})
}

func chatHandler(_ any, stream grpc.ServerStream) error {
	for {
		msg := &wrapperspb.StringValue{}
		err := stream.RecvMsg(msg)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch msg.GetValue() {
		case Bye:
			return nil
		case Abort:
			return grpcstatus.Error(codes.Aborted, "chat aborted")
		}
		if err := stream.SendMsg(msg); err != nil {
			return err
		}
	}
}

// Dial serves srv on an in-memory listener and returns a client connection.
// Both are torn down with t.
func Dial(t testing.TB, srv *grpc.Server, opts ...grpc.DialOption) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()

	opts = append([]grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	conn, err := grpc.NewClient("passthrough:///bufnet", opts...)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
	})
	return conn
}

// NewServer registers the echo service on a fresh gRPC server.
func NewServer(listen ListenHandler, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	srv.RegisterService(ServiceDesc(listen), nil)
	return srv
}
