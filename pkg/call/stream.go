package call

import (
	"context"
	"errors"
	"io"
	"sync"

	"google.golang.org/grpc"

	"github.com/Goden-Gun/grpcbind/pkg/codec"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
	"github.com/Goden-Gun/grpcbind/pkg/status"
)

// Stream is a client streaming call that tracks its own lifecycle, so misuse
// after completion is reported as RPCFinished instead of surfacing raw
// transport errors.
type Stream struct {
	cs     grpc.ClientStream
	cancel context.CancelFunc

	mu         sync.Mutex
	finished   bool
	final      status.Status
	sendClosed bool
	sendBroken bool
}

// NewStream opens a stream for method on conn.
func NewStream(ctx context.Context, conn grpc.ClientConnInterface, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	cs, err := conn.NewStream(outgoing(ctx), desc, method, callOptions(opts)...)
	if err != nil {
		cancel()
		return nil, Classify(err)
	}
	return &Stream{cs: cs, cancel: cancel}, nil
}

// Cancel aborts the call. Blocked and later operations fail with
// RPCFailure(Canceled).
func (s *Stream) Cancel() { s.cancel() }

// finishedErr must be called with mu held.
func (s *Stream) finishedErr() *rpcerr.Error {
	if s.finished {
		return rpcerr.RPCFinished(s.final)
	}
	return rpcerr.RPCFinishedUnknown()
}

// Send writes m. Writing to a call that finished, was half-closed, or was
// terminated by the server fails with RPCFinished. A message that cannot be
// encoded fails with Codec and leaves the call open.
func (s *Stream) Send(m any) error {
	s.mu.Lock()
	if s.finished || s.sendClosed || s.sendBroken {
		err := s.finishedErr()
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	f, cerr := codec.Encode(m)
	if cerr != nil {
		return cerr
	}
	err := s.cs.SendMsg(f)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		// the server ended the call; its status surfaces through Recv
		s.mu.Lock()
		s.sendBroken = true
		ferr := s.finishedErr()
		s.mu.Unlock()
		return ferr
	}
	return s.fail(err)
}

// CloseSend half-closes the call. A second close fails with RPCFinished.
func (s *Stream) CloseSend() error {
	s.mu.Lock()
	if s.sendClosed || s.finished {
		err := s.finishedErr()
		s.mu.Unlock()
		return err
	}
	s.sendClosed = true
	s.mu.Unlock()

	return Classify(s.cs.CloseSend())
}

// Recv reads the next message into m. It returns io.EOF once the call ends
// with OK, and RPCFailure when it ends with any other status. Receiving from a
// call that already failed returns RPCFinished. A message that cannot be
// decoded into m fails with Codec; the call stays open.
func (s *Stream) Recv(m any) error {
	s.mu.Lock()
	if s.finished {
		defer s.mu.Unlock()
		if s.final.OK() {
			return io.EOF
		}
		return rpcerr.RPCFinished(s.final)
	}
	s.mu.Unlock()

	var f codec.Frame
	err := s.cs.RecvMsg(&f)
	if err == nil {
		if cerr := f.Decode(m); cerr != nil {
			return cerr
		}
		return nil
	}
	if errors.Is(err, io.EOF) {
		s.finish(status.OKStatus)
		return io.EOF
	}
	return s.fail(err)
}

func (s *Stream) fail(err error) error {
	e := rpcerr.FromError(err)
	if st, ok := e.Status(); ok && e.Kind() == rpcerr.KindRPCFailure {
		s.finish(st)
	}
	return e
}

func (s *Stream) finish(st status.Status) {
	s.mu.Lock()
	if !s.finished {
		s.finished = true
		s.final = st
	}
	s.mu.Unlock()
}

// Status returns the terminal status once the call has finished.
func (s *Stream) Status() (status.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.final, s.finished
}

// Context returns the stream's context.
func (s *Stream) Context() context.Context { return s.cs.Context() }

// Receive drains s on a goroutine. Every message is delivered as an Ok result;
// a failure is delivered as the last result. The channel is closed when the
// call ends. Cancelling ctx cancels the call and stops the goroutine even if
// nobody reads the channel any more.
func Receive[T any](ctx context.Context, s *Stream, newMsg func() T) <-chan rpcerr.Result[T] {
	out := make(chan rpcerr.Result[T])
	stop := context.AfterFunc(ctx, s.Cancel)
	go func() {
		defer close(out)
		defer stop()
		deliver := func(r rpcerr.Result[T]) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for {
			msg := newMsg()
			err := s.Recv(msg)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				deliver(rpcerr.Fail[T](rpcerr.FromError(err)))
				return
			}
			if !deliver(rpcerr.Ok(msg)) {
				return
			}
		}
	}()
	return out
}
