package server

import (
	"context"

	"google.golang.org/grpc"

	"github.com/Goden-Gun/grpcbind/pkg/codec"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

// withCodec returns a copy of desc whose handlers encode and decode messages
// themselves. grpc reports codec failures as a bare Internal status; running
// the codec here keeps the *rpcerr.Error so interceptors and observers see
// kind Codec.
func withCodec(desc *grpc.ServiceDesc) *grpc.ServiceDesc {
	d := *desc
	d.Methods = make([]grpc.MethodDesc, len(desc.Methods))
	for i, m := range desc.Methods {
		m.Handler = codecUnaryHandler("/"+desc.ServiceName+"/"+m.MethodName, m.Handler)
		d.Methods[i] = m
	}
	d.Streams = make([]grpc.StreamDesc, len(desc.Streams))
	for i, sd := range desc.Streams {
		h := sd.Handler
		sd.Handler = func(srv any, ss grpc.ServerStream) error {
			return h(srv, codecServerStream{ss})
		}
		d.Streams[i] = sd
	}
	return &d
}

// codecUnaryHandler decodes the request inside the generated handler and
// encodes the reply innermost in the interceptor chain, so interceptors see
// the reply as a codec.Frame. A request that fails to decode still runs the
// chain, with a handler that returns the Codec error.
func codecUnaryHandler(method string, h grpc.MethodHandler) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
		var in codec.Frame
		if err := dec(&in); err != nil {
			return nil, err
		}
		chain := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			handler = encodeReply(handler)
			if ic == nil {
				return handler(ctx, req)
			}
			return ic(ctx, req, info, handler)
		}

		var decodeErr *rpcerr.Error
		resp, err := h(srv, ctx, func(v any) error {
			if decodeErr = in.Decode(v); decodeErr != nil {
				return decodeErr
			}
			return nil
		}, chain)
		if decodeErr == nil {
			return resp, err
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return chain(ctx, nil, info, func(context.Context, any) (any, error) {
			return nil, decodeErr
		})
	}
}

func encodeReply(handler grpc.UnaryHandler) grpc.UnaryHandler {
	return func(ctx context.Context, req any) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, err
		}
		f, cerr := codec.Encode(resp)
		if cerr != nil {
			return nil, cerr
		}
		return f, nil
	}
}

// codecServerStream runs the codec at the handler boundary of a stream.
type codecServerStream struct {
	grpc.ServerStream
}

func (s codecServerStream) SendMsg(m any) error {
	f, cerr := codec.Encode(m)
	if cerr != nil {
		return cerr
	}
	return s.ServerStream.SendMsg(f)
}

func (s codecServerStream) RecvMsg(m any) error {
	var f codec.Frame
	if err := s.ServerStream.RecvMsg(&f); err != nil {
		return err
	}
	if cerr := f.Decode(m); cerr != nil {
		return cerr
	}
	return nil
}
