package server

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Goden-Gun/grpcbind/internal/echotest"
	"github.com/Goden-Gun/grpcbind/pkg/call"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
	"github.com/Goden-Gun/grpcbind/pkg/status"
)

func openListen(t *testing.T, ctx context.Context, listen echotest.ListenHandler) *call.Stream {
	t.Helper()
	srv, err := New(insecureConfig())
	require.NoError(t, err)
	srv.RegisterService(echotest.ServiceDesc(listen), nil)
	conn := startServer(t, srv)

	s, err := call.NewStream(ctx, conn, echotest.ListenDesc, echotest.ListenMethod)
	require.NoError(t, err)
	require.NoError(t, s.Send(wrapperspb.String("topic")))
	require.NoError(t, s.CloseSend())
	return s
}

func TestSink_FinishOK(t *testing.T) {
	t.Parallel()

	misuse := make(chan []error, 1)
	s := openListen(t, context.Background(), func(req *wrapperspb.StringValue, ss grpc.ServerStream) error {
		sink := NewSink[*wrapperspb.StringValue](ss)
		for _, v := range []string{"a", "b"} {
			if err := sink.Send(wrapperspb.String(req.GetValue() + ":" + v)); err != nil {
				return err
			}
		}
		assert.NoError(t, sink.Finish(status.OKStatus))
		misuse <- []error{
			sink.Send(wrapperspb.String("late")),
			sink.Finish(status.New(codes.Internal)),
		}
		return sink.Err()
	})

	var got []string
	for {
		msg := &wrapperspb.StringValue{}
		err := s.Recv(msg)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, msg.GetValue())
	}
	assert.Equal(t, []string{"topic:a", "topic:b"}, got)

	errs := <-misuse
	for _, err := range errs {
		e, ok := rpcerr.As(err)
		require.True(t, ok)
		assert.Equal(t, rpcerr.KindRPCFinished, e.Kind())
		st, known := e.Status()
		assert.True(t, known)
		assert.True(t, st.OK(), "the first status is kept")
	}
}

func TestSink_FinishWithStatus(t *testing.T) {
	t.Parallel()

	s := openListen(t, context.Background(), func(_ *wrapperspb.StringValue, ss grpc.ServerStream) error {
		sink := NewSink[*wrapperspb.StringValue](ss)
		_ = sink.Finish(status.WithDetails(codes.PermissionDenied, "not yours"))
		return sink.Err()
	})

	err := s.Recv(&wrapperspb.StringValue{})
	e, ok := rpcerr.As(err)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindRPCFailure, e.Kind())
	st, _ := e.Status()
	assert.Equal(t, status.WithDetails(codes.PermissionDenied, "not yours"), st)
}

func TestSink_RemoteStopped(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sendErr := make(chan error, 1)
	started := make(chan struct{})
	s := openListen(t, ctx, func(_ *wrapperspb.StringValue, ss grpc.ServerStream) error {
		sink := NewSink[*wrapperspb.StringValue](ss)
		close(started)
		<-sink.Context().Done()
		deadline := time.Now().Add(time.Second)
		var err error
		for time.Now().Before(deadline) {
			if err = sink.Send(wrapperspb.String("tick")); err != nil {
				break
			}
		}
		sendErr <- err
		return err
	})
	_ = s

	<-started
	cancel()

	err := <-sendErr
	assert.ErrorIs(t, err, rpcerr.ErrRemoteStopped)
	assert.Equal(t, "Remote is stopped.", err.(*rpcerr.Error).Description())
}
