package server

import (
	"context"
	"errors"
	"io"
	"sync"

	"google.golang.org/grpc"

	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
	"github.com/Goden-Gun/grpcbind/pkg/status"
)

// Sink is the sending half of a server stream. It serialises sends and
// refuses to write once the handler finished the call or the peer went away.
//
//	func listen(req *pb.Req, ss grpc.ServerStream) error {
//		sink := server.NewSink[*pb.Event](ss)
//		for ev := range events {
//			if err := sink.Send(ev); err != nil {
//				return err
//			}
//		}
//		_ = sink.Finish(status.OKStatus)
//		return sink.Err()
//	}
type Sink[T any] struct {
	ss grpc.ServerStream

	mu       sync.Mutex
	finished bool
	final    status.Status
}

func NewSink[T any](ss grpc.ServerStream) *Sink[T] {
	return &Sink[T]{ss: ss}
}

// Send writes msg. It fails with RPCFinished after Finish and with
// RemoteStopped once the peer cancelled or disconnected.
func (s *Sink[T]) Send(msg T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return rpcerr.RPCFinished(s.final)
	}
	if s.ss.Context().Err() != nil {
		return rpcerr.RemoteStopped()
	}
	err := s.ss.SendMsg(msg)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || s.ss.Context().Err() != nil {
		return rpcerr.RemoteStopped()
	}
	return rpcerr.FromError(err)
}

// Finish records the terminal status of the call. Calling it again fails
// with RPCFinished carrying the first status.
func (s *Sink[T]) Finish(st status.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return rpcerr.RPCFinished(s.final)
	}
	s.finished = true
	s.final = st
	return nil
}

// Err is the value the handler returns to end the call with the finished
// status; nil when the status is OK or Finish was never called.
func (s *Sink[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finished || s.final.OK() {
		return nil
	}
	return rpcerr.RPCFailure(s.final)
}

// Context returns the stream context, done when the peer goes away.
func (s *Sink[T]) Context() context.Context { return s.ss.Context() }
