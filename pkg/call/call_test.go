package call

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Goden-Gun/grpcbind/internal/echotest"
	"github.com/Goden-Gun/grpcbind/pkg/metadata"
	"github.com/Goden-Gun/grpcbind/pkg/queue"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
	"github.com/Goden-Gun/grpcbind/pkg/status"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Classify(nil))

	err := Classify(grpcstatus.Error(codes.Unavailable, "down"))
	e, ok := rpcerr.As(err)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindRPCFailure, e.Kind())

	orig := rpcerr.QueueShutdown()
	assert.Same(t, orig, Classify(orig))
}

func TestUnary(t *testing.T) {
	t.Parallel()

	conn := echotest.Dial(t, echotest.NewServer(nil))

	md, err := metadata.NewBuilder().Add(echotest.EchoMetadataKey, "meta").Build()
	require.NoError(t, err)
	ctx := metadata.NewOutgoingContext(context.Background(), md)

	resp := &wrapperspb.StringValue{}
	require.NoError(t, Unary(ctx, conn, echotest.EchoMethod, wrapperspb.String("ping"), resp))
	assert.Equal(t, "ping|meta", resp.GetValue())
}

func TestUnary_RPCFailure(t *testing.T) {
	t.Parallel()

	conn := echotest.Dial(t, echotest.NewServer(nil))

	err := Unary(context.Background(), conn, echotest.EchoMethod, wrapperspb.String(echotest.FailPrefix+"no user"), &wrapperspb.StringValue{})
	e, ok := rpcerr.As(err)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindRPCFailure, e.Kind())
	assert.Equal(t, "Request Error", e.Description())

	st, _ := e.Status()
	assert.Equal(t, status.WithDetails(codes.NotFound, "no user"), st)
}

func TestUnary_CodecFailure(t *testing.T) {
	t.Parallel()

	conn := echotest.Dial(t, echotest.NewServer(nil))

	err := Unary(context.Background(), conn, echotest.EchoMethod, "not a message", &wrapperspb.StringValue{})
	e, ok := rpcerr.As(err)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindCodec, e.Kind())
	assert.Contains(t, e.Cause().Error(), "string")

	err = Unary(context.Background(), conn, echotest.EchoMethod, wrapperspb.String("ping"), new(string))
	e, ok = rpcerr.As(err)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindCodec, e.Kind())
	assert.Contains(t, e.Cause().Error(), "*string")
}

func TestUnaryAsync(t *testing.T) {
	t.Parallel()

	conn := echotest.Dial(t, echotest.NewServer(nil))
	q := queue.New(queue.Config{Workers: 2})
	t.Cleanup(func() { _ = q.Shutdown(context.Background()) })

	ok, err := UnaryAsync(context.Background(), q, conn, echotest.EchoMethod, wrapperspb.String("a"), func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	require.NoError(t, err)
	failed, err := UnaryAsync(context.Background(), q, conn, echotest.EchoMethod, wrapperspb.String(echotest.FailPrefix+"b"), func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	require.NoError(t, err)

	res := <-ok
	require.True(t, res.IsOk())
	assert.Equal(t, "a", res.Value().GetValue())

	res = <-failed
	require.False(t, res.IsOk())
	assert.Equal(t, rpcerr.KindRPCFailure, res.Err().Kind())
}

func openChat(t *testing.T) *Stream {
	t.Helper()
	conn := echotest.Dial(t, echotest.NewServer(nil))
	s, err := NewStream(context.Background(), conn, echotest.ChatDesc, echotest.ChatMethod)
	require.NoError(t, err)
	return s
}

func TestStream_FinishesOK(t *testing.T) {
	t.Parallel()

	s := openChat(t)

	require.NoError(t, s.Send(wrapperspb.String("hi")))
	got := &wrapperspb.StringValue{}
	require.NoError(t, s.Recv(got))
	assert.Equal(t, "hi", got.GetValue())

	_, done := s.Status()
	assert.False(t, done)

	require.NoError(t, s.Send(wrapperspb.String(echotest.Bye)))
	assert.ErrorIs(t, s.Recv(got), io.EOF)

	st, done := s.Status()
	require.True(t, done)
	assert.True(t, st.OK())

	err := s.Send(wrapperspb.String("late"))
	e, ok := rpcerr.As(err)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindRPCFinished, e.Kind())
	fst, known := e.Status()
	assert.True(t, known)
	assert.True(t, fst.OK())

	assert.ErrorIs(t, s.Recv(got), io.EOF)
}

func TestStream_FinishesWithFailure(t *testing.T) {
	t.Parallel()

	s := openChat(t)

	require.NoError(t, s.Send(wrapperspb.String(echotest.Abort)))
	err := s.Recv(&wrapperspb.StringValue{})
	e, ok := rpcerr.As(err)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindRPCFailure, e.Kind())

	st, done := s.Status()
	require.True(t, done)
	assert.Equal(t, codes.Aborted, st.Code())

	err = s.Recv(&wrapperspb.StringValue{})
	assert.ErrorIs(t, err, rpcerr.RPCFinishedUnknown())
	e, _ = rpcerr.As(err)
	fst, known := e.Status()
	assert.True(t, known)
	assert.Equal(t, codes.Aborted, fst.Code())

	assert.ErrorIs(t, s.Send(wrapperspb.String("x")), rpcerr.RPCFinishedUnknown())
}

func TestStream_CodecFailureKeepsCallOpen(t *testing.T) {
	t.Parallel()

	s := openChat(t)

	k, ok := rpcerr.KindOf(s.Send("not a message"))
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindCodec, k)

	require.NoError(t, s.Send(wrapperspb.String("hi")))
	k, ok = rpcerr.KindOf(s.Recv(new(string)))
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindCodec, k)

	_, done := s.Status()
	assert.False(t, done)

	require.NoError(t, s.Send(wrapperspb.String("again")))
	got := &wrapperspb.StringValue{}
	require.NoError(t, s.Recv(got))
	assert.Equal(t, "again", got.GetValue())
}

func TestStream_CloseSendTwice(t *testing.T) {
	t.Parallel()

	s := openChat(t)

	require.NoError(t, s.CloseSend())

	err := s.CloseSend()
	e, ok := rpcerr.As(err)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindRPCFinished, e.Kind())
	_, known := e.Status()
	assert.False(t, known, "status is not known before the server finishes")

	err = s.Send(wrapperspb.String("after close"))
	assert.ErrorIs(t, err, rpcerr.RPCFinishedUnknown())

	assert.ErrorIs(t, s.Recv(&wrapperspb.StringValue{}), io.EOF)
}

func TestStream_SendAfterServerEnded(t *testing.T) {
	t.Parallel()

	s := openChat(t)
	require.NoError(t, s.Send(wrapperspb.String(echotest.Bye)))

	var err error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err = s.Send(wrapperspb.String("more")); err != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Error(t, err)
	e, ok := rpcerr.As(err)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindRPCFinished, e.Kind())
	_, known := e.Status()
	assert.False(t, known)

	assert.True(t, errors.Is(s.Recv(&wrapperspb.StringValue{}), io.EOF))

	e, _ = rpcerr.As(s.Send(wrapperspb.String("again")))
	st, known := e.Status()
	assert.True(t, known)
	assert.True(t, st.OK())
}

func TestReceive(t *testing.T) {
	t.Parallel()

	s := openChat(t)
	for _, v := range []string{"one", "two", echotest.Abort} {
		require.NoError(t, s.Send(wrapperspb.String(v)))
	}

	var got []string
	var last rpcerr.Result[*wrapperspb.StringValue]
	for res := range Receive(context.Background(), s, newString) {
		if !res.IsOk() {
			last = res
			continue
		}
		got = append(got, res.Value().GetValue())
	}
	assert.Equal(t, []string{"one", "two"}, got)
	require.False(t, last.IsOk())
	st, _ := last.Err().Status()
	assert.Equal(t, codes.Aborted, st.Code())
}

func newString() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }

func TestReceive_AbandonedConsumer(t *testing.T) {
	t.Parallel()

	s := openChat(t)
	require.NoError(t, s.Send(wrapperspb.String("one")))
	require.NoError(t, s.Send(wrapperspb.String("two")))

	ctx, cancel := context.WithCancel(context.Background())
	results := Receive(ctx, s, newString)
	first := <-results
	require.True(t, first.IsOk())
	assert.Equal(t, "one", first.Value().GetValue())

	cancel()
	require.Eventually(t, func() bool {
		return errors.Is(s.Context().Err(), context.Canceled)
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		select {
		case _, open := <-results:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}
