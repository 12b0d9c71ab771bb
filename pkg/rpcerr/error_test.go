package rpcerr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/Goden-Gun/grpcbind/pkg/codes"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
	"github.com/Goden-Gun/grpcbind/pkg/status"
)

type variant struct {
	name        string
	build       func(payload string) *rpcerr.Error
	kind        rpcerr.Kind
	description string
}

func variants() []variant {
	return []variant{
		{"codec", func(p string) *rpcerr.Error { return rpcerr.Codec(errors.New(p)) }, rpcerr.KindCodec, "Codec Error"},
		{"call failure", func(p string) *rpcerr.Error { return rpcerr.CallFailure(codes.Lookup(int32(len(p)))) }, rpcerr.KindCallFailure, "Call Error"},
		{"rpc failure", func(p string) *rpcerr.Error {
			return rpcerr.RPCFailure(status.WithDetails(grpccodes.Unavailable, p))
		}, rpcerr.KindRPCFailure, "Request Error"},
		{"rpc finished", func(p string) *rpcerr.Error {
			return rpcerr.RPCFinished(status.WithDetails(grpccodes.OK, p))
		}, rpcerr.KindRPCFinished, "Finish Error"},
		{"remote stopped", func(string) *rpcerr.Error { return rpcerr.RemoteStopped() }, rpcerr.KindRemoteStopped, "Remote is stopped."},
		{"shutdown failed", func(string) *rpcerr.Error { return rpcerr.ShutdownFailed() }, rpcerr.KindShutdownFailed, "Failed to shutdown."},
		{"bind fail", func(p string) *rpcerr.Error { return rpcerr.BindFail(p, 443) }, rpcerr.KindBindFail, "Bind Error"},
		{"queue shutdown", func(string) *rpcerr.Error { return rpcerr.QueueShutdown() }, rpcerr.KindQueueShutdown, "completion queue shutdown"},
		{"google auth", func(string) *rpcerr.Error { return rpcerr.GoogleAuthenticationFailed() }, rpcerr.KindGoogleAuthenticationFailed, "Could not create google default credentials."},
		{"invalid metadata", func(p string) *rpcerr.Error { return rpcerr.InvalidMetadata(p) }, rpcerr.KindInvalidMetadata, "invalid format of metadata"},
	}
}

func TestDescription_DependsOnlyOnKind(t *testing.T) {
	t.Parallel()

	for _, v := range variants() {
		for _, payload := range []string{"", "a", "some longer payload", "0.0.0.0"} {
			e := v.build(payload)
			assert.Equal(t, v.kind, e.Kind(), v.name)
			assert.Equal(t, v.description, e.Description(), v.name)
		}
	}
}

func TestCause_OnlyCodecHasOne(t *testing.T) {
	t.Parallel()

	for _, v := range variants() {
		e := v.build("x")
		if v.kind == rpcerr.KindCodec {
			assert.NotNil(t, e.Cause(), v.name)
			assert.NotNil(t, errors.Unwrap(e), v.name)
			continue
		}
		assert.Nil(t, e.Cause(), v.name)
		assert.Nil(t, errors.Unwrap(e), v.name)
	}

	assert.NotNil(t, rpcerr.Codec(nil).Cause())
}

func TestRender_Injective(t *testing.T) {
	t.Parallel()

	all := []*rpcerr.Error{
		rpcerr.Codec(errors.New("a")),
		rpcerr.Codec(errors.New("b")),
		rpcerr.CallFailure(codes.TooManyOperations),
		rpcerr.CallFailure(codes.AlreadyFinished),
		rpcerr.CallFailure(codes.Lookup(99)),
		rpcerr.RPCFailure(status.New(grpccodes.NotFound)),
		rpcerr.RPCFailure(status.WithDetails(grpccodes.NotFound, "")),
		rpcerr.RPCFailure(status.WithDetails(grpccodes.NotFound, "x")),
		rpcerr.RPCFailure(status.WithDetails(grpccodes.Internal, "x")),
		rpcerr.RPCFinished(status.New(grpccodes.OK)),
		rpcerr.RPCFinished(status.New(grpccodes.NotFound)),
		rpcerr.RPCFinishedUnknown(),
		rpcerr.RemoteStopped(),
		rpcerr.ShutdownFailed(),
		rpcerr.BindFail("0.0.0.0", 50051),
		rpcerr.BindFail("0.0.0.0", 50052),
		rpcerr.BindFail("127.0.0.1", 50051),
		rpcerr.BindFail(`0.0.0.0", 1`, 50051),
		rpcerr.QueueShutdown(),
		rpcerr.GoogleAuthenticationFailed(),
		rpcerr.InvalidMetadata("key contains space"),
		rpcerr.InvalidMetadata("key is empty"),
	}

	seen := map[string]int{}
	for i, e := range all {
		r := e.Error()
		if j, dup := seen[r]; dup {
			t.Fatalf("rendering %q shared by #%d and #%d", r, j, i)
		}
		seen[r] = i
		assert.Equal(t, r, e.String())
		assert.Equal(t, r, e.Error(), "rendering must be deterministic")
	}
}

func TestRPCFinished_UnknownVersusKnown(t *testing.T) {
	t.Parallel()

	unknown := rpcerr.RPCFinishedUnknown()
	known := rpcerr.RPCFinished(status.New(grpccodes.OK))

	assert.NotEqual(t, unknown.Error(), known.Error())
	assert.Equal(t, "Finish Error", unknown.Description())
	assert.Equal(t, "Finish Error", known.Description())

	_, ok := unknown.Status()
	assert.False(t, ok)
	st, ok := known.Status()
	assert.True(t, ok)
	assert.True(t, st.OK())
}

func TestBindFail(t *testing.T) {
	t.Parallel()

	e := rpcerr.BindFail("0.0.0.0", 50051)

	assert.Equal(t, "Bind Error", e.Description())
	assert.Contains(t, e.Error(), "0.0.0.0")
	assert.Contains(t, e.Error(), "50051")

	host, port := e.Addr()
	assert.Equal(t, "0.0.0.0", host)
	assert.EqualValues(t, 50051, port)

	// any port value is accepted, bindable or not
	assert.Contains(t, rpcerr.BindFail("", 0).Error(), "0")
	assert.Contains(t, rpcerr.BindFail("::", 65535).Error(), "65535")
}

func TestInvalidMetadata(t *testing.T) {
	t.Parallel()

	e := rpcerr.InvalidMetadata("key contains space")

	assert.Equal(t, "invalid format of metadata", e.Description())
	assert.Contains(t, e.Error(), "key contains space")
	assert.Equal(t, "key contains space", e.Reason())
}

func TestQueueShutdown_RendersWithoutPayload(t *testing.T) {
	t.Parallel()

	e := rpcerr.QueueShutdown()

	assert.Equal(t, "completion queue shutdown", e.Description())
	assert.Equal(t, "QueueShutdown", e.Error())
}

func TestCallFailure(t *testing.T) {
	t.Parallel()

	e := rpcerr.CallFailure(codes.TooManyOperations)

	assert.Equal(t, codes.TooManyOperations, e.CallCode())
	assert.Equal(t, `CallFailure(GRPC_CALL_ERROR_TOO_MANY_OPERATIONS=8, "too many operations")`, e.Error())

	custom := codes.TooManyOperations
	custom.Message = "queue full"
	assert.NotEqual(t, e.Error(), rpcerr.CallFailure(custom).Error())
	assert.Equal(t, `CallFailure(GRPC_CALL_ERROR_UNKNOWN(99)=99, "")`, rpcerr.CallFailure(codes.Lookup(99)).Error())
}

func TestZeroError(t *testing.T) {
	t.Parallel()

	var e rpcerr.Error
	assert.NotEqual(t, rpcerr.KindCodec, e.Kind())
	assert.Equal(t, "Kind(0)", e.Error())
	assert.Equal(t, "unknown error", e.Description())
	assert.Nil(t, e.Cause())
	assert.False(t, e.Is(rpcerr.Codec(nil)))
}

func TestIs_MatchesKind(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("closing: %w", rpcerr.QueueShutdown())
	assert.ErrorIs(t, wrapped, rpcerr.ErrQueueShutdown)
	assert.NotErrorIs(t, wrapped, rpcerr.ErrShutdownFailed)

	assert.ErrorIs(t, rpcerr.BindFail("a", 1), rpcerr.BindFail("b", 2))
	assert.NotErrorIs(t, rpcerr.RemoteStopped(), errors.New("RemoteStopped"))
}

func TestAsAndKindOf(t *testing.T) {
	t.Parallel()

	inner := rpcerr.RPCFailure(status.WithDetails(grpccodes.NotFound, "gone"))
	err := fmt.Errorf("get user: %w", inner)

	e, ok := rpcerr.As(err)
	require.True(t, ok)
	assert.Same(t, inner, e)

	k, ok := rpcerr.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, rpcerr.KindRPCFailure, k)

	_, ok = rpcerr.KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestCauseChain_WalkedByErrorsIs(t *testing.T) {
	t.Parallel()

	root := errors.New("truncated")
	e := rpcerr.Codec(fmt.Errorf("decode: %w", root))

	assert.ErrorIs(t, e, root)
	assert.Equal(t, "decode: truncated", e.Cause().Error())
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "GoogleAuthenticationFailed", rpcerr.KindGoogleAuthenticationFailed.String())
	assert.Equal(t, "Kind(200)", rpcerr.Kind(200).String())
}

func TestGRPCStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  *rpcerr.Error
		code grpccodes.Code
	}{
		{rpcerr.Codec(errors.New("bad")), grpccodes.Internal},
		{rpcerr.CallFailure(codes.BatchTooBig), grpccodes.Internal},
		{rpcerr.RPCFailure(status.WithDetails(grpccodes.NotFound, "x")), grpccodes.NotFound},
		{rpcerr.RPCFinished(status.New(grpccodes.Aborted)), grpccodes.Aborted},
		{rpcerr.RPCFinishedUnknown(), grpccodes.FailedPrecondition},
		{rpcerr.RemoteStopped(), grpccodes.Canceled},
		{rpcerr.ShutdownFailed(), grpccodes.Internal},
		{rpcerr.BindFail("h", 1), grpccodes.Unavailable},
		{rpcerr.QueueShutdown(), grpccodes.Unavailable},
		{rpcerr.GoogleAuthenticationFailed(), grpccodes.Unauthenticated},
		{rpcerr.InvalidMetadata("bad key"), grpccodes.InvalidArgument},
	}

	for _, tt := range tests {
		st, ok := grpcstatus.FromError(tt.err)
		require.True(t, ok, tt.err.Error())
		assert.Equal(t, tt.code, st.Code(), tt.err.Error())
	}
}

func TestResult(t *testing.T) {
	t.Parallel()

	ok := rpcerr.Ok(42)
	assert.True(t, ok.IsOk())
	assert.Nil(t, ok.Err())
	v, err := ok.Get()
	assert.NoError(t, err)
	assert.Equal(t, 42, v)

	failed := rpcerr.Fail[int](rpcerr.RemoteStopped())
	assert.False(t, failed.IsOk())
	assert.Zero(t, failed.Value())
	_, err = failed.Get()
	assert.ErrorIs(t, err, rpcerr.ErrRemoteStopped)

	// results cross goroutines by value
	ch := make(chan rpcerr.Result[string], 1)
	go func() { ch <- rpcerr.Fail[string](rpcerr.QueueShutdown()) }()
	got := <-ch
	assert.Equal(t, rpcerr.KindQueueShutdown, got.Err().Kind())
}

func TestFromError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, rpcerr.FromError(nil))

	orig := rpcerr.InvalidMetadata("x")
	assert.Same(t, orig, rpcerr.FromError(fmt.Errorf("wrap: %w", orig)))

	e := rpcerr.FromError(context.DeadlineExceeded)
	st, ok := e.Status()
	require.True(t, ok)
	assert.Equal(t, grpccodes.DeadlineExceeded, st.Code())

	e = rpcerr.FromError(fmt.Errorf("op: %w", context.Canceled))
	st, _ = e.Status()
	assert.Equal(t, grpccodes.Canceled, st.Code())

	e = rpcerr.FromError(grpcstatus.Error(grpccodes.NotFound, "missing"))
	assert.Equal(t, rpcerr.KindRPCFailure, e.Kind())
	st, _ = e.Status()
	assert.Equal(t, status.WithDetails(grpccodes.NotFound, "missing"), st)

	e = rpcerr.FromError(errors.New("disk on fire"))
	st, _ = e.Status()
	assert.Equal(t, status.WithDetails(grpccodes.Unknown, "disk on fire"), st)
}
