// Package call issues client RPCs and reports every failure as an
// *rpcerr.Error.
package call

import (
	"context"

	"google.golang.org/grpc"
	grpcmd "google.golang.org/grpc/metadata"

	"github.com/Goden-Gun/grpcbind/pkg/codec"
	"github.com/Goden-Gun/grpcbind/pkg/queue"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
	"github.com/Goden-Gun/grpcbind/pkg/tracing"
)

// Classify maps a transport error onto the taxonomy. It returns an untyped nil
// for a nil err.
func Classify(err error) error {
	if e := rpcerr.FromError(err); e != nil {
		return e
	}
	return nil
}

// outgoing stamps the trace context into the call's outgoing metadata.
func outgoing(ctx context.Context) context.Context {
	md, _ := grpcmd.FromOutgoingContext(ctx)
	return grpcmd.NewOutgoingContext(ctx, tracing.InjectMetadata(ctx, md.Copy()))
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.ForceCodec(codec.Codec{})}, opts...)
}

// Unary invokes method and decodes the reply into resp. req is encoded and
// the reply decoded outside grpc, so a serialization failure on either side
// is returned as Codec.
func Unary(ctx context.Context, conn grpc.ClientConnInterface, method string, req, resp any, opts ...grpc.CallOption) error {
	out, cerr := codec.Encode(req)
	if cerr != nil {
		return cerr
	}
	var in codec.Frame
	if err := conn.Invoke(outgoing(ctx), method, out, &in, callOptions(opts)...); err != nil {
		return Classify(err)
	}
	if cerr := in.Decode(resp); cerr != nil {
		return cerr
	}
	return nil
}

// UnaryAsync runs a unary call on q. newResp allocates the reply message.
func UnaryAsync[R any](ctx context.Context, q *queue.Queue, conn grpc.ClientConnInterface, method string, req any, newResp func() R, opts ...grpc.CallOption) (<-chan rpcerr.Result[R], error) {
	return queue.Submit(ctx, q, func(ctx context.Context) (R, error) {
		resp := newResp()
		if err := Unary(ctx, conn, method, req, resp, opts...); err != nil {
			var zero R
			return zero, err
		}
		return resp, nil
	})
}
