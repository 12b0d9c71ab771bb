// Package server hosts gRPC services and reports binding, serving and handler
// failures through the rpcerr taxonomy.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	callcodes "github.com/Goden-Gun/grpcbind/pkg/codes"
	"github.com/Goden-Gun/grpcbind/pkg/codec"
	"github.com/Goden-Gun/grpcbind/pkg/config"
	log "github.com/Goden-Gun/grpcbind/pkg/logger"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

// ErrorObserver is notified of every handler failure after classification.
type ErrorObserver interface {
	ObserveError(ctx context.Context, method string, err *rpcerr.Error)
}

// Option customises a Server.
type Option func(*options)

type options struct {
	observer ErrorObserver
	unary    []grpc.UnaryServerInterceptor
	stream   []grpc.StreamServerInterceptor
	grpcOpts []grpc.ServerOption
	closers  []io.Closer
}

// WithErrorObserver installs observer on the error interceptor.
func WithErrorObserver(observer ErrorObserver) Option {
	return func(o *options) { o.observer = observer }
}

// WithUnaryInterceptors appends interceptors that run inside the built-in
// chain, so their errors are classified and logged too.
func WithUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) Option {
	return func(o *options) { o.unary = append(o.unary, interceptors...) }
}

// WithStreamInterceptors is the streaming counterpart of WithUnaryInterceptors.
func WithStreamInterceptors(interceptors ...grpc.StreamServerInterceptor) Option {
	return func(o *options) { o.stream = append(o.stream, interceptors...) }
}

// WithGRPCOptions passes raw options to grpc.NewServer.
func WithGRPCOptions(opts ...grpc.ServerOption) Option {
	return func(o *options) { o.grpcOpts = append(o.grpcOpts, opts...) }
}

// WithClosers hands resources the server's handlers depend on, such as a
// producer or a Redis client, to the server. Shutdown closes them in reverse
// order once the last call has finished.
func WithClosers(closers ...io.Closer) Option {
	return func(o *options) { o.closers = append(o.closers, closers...) }
}

// Server owns a grpc.Server and the listeners bound to it.
type Server struct {
	cfg  config.ServerConfig
	grpc *grpc.Server

	closers []io.Closer

	mu        sync.Mutex
	listeners []net.Listener

	stopOnce sync.Once
	stopErr  error
}

// New builds a server from cfg. TLS material is loaded unless cfg.Insecure is
// set; an unreadable key pair fails with BindFail for the configured address.
func New(cfg config.ServerConfig, opts ...Option) (*Server, error) {
	cfg.ApplyDefaults()
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	serverOpts := []grpc.ServerOption{
		grpc.ForceServerCodec(codec.Codec{}),
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgBytes),
		grpc.ChainUnaryInterceptor(append([]grpc.UnaryServerInterceptor{
			UnaryTracingInterceptor(),
			UnaryLoggingInterceptor(),
			UnaryErrorInterceptor(o.observer),
		}, o.unary...)...),
		grpc.ChainStreamInterceptor(append([]grpc.StreamServerInterceptor{
			StreamTracingInterceptor(),
			StreamLoggingInterceptor(),
			StreamErrorInterceptor(o.observer),
		}, o.stream...)...),
	}
	if cfg.MaxConcurrentStreams > 0 {
		serverOpts = append(serverOpts, grpc.MaxConcurrentStreams(cfg.MaxConcurrentStreams))
	}
	if !cfg.Insecure {
		tlsConf := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
			if err != nil {
				log.WithError(err).Error("load server tls key pair")
				return nil, rpcerr.BindFail(cfg.Host, cfg.Port)
			}
			tlsConf.Certificates = []tls.Certificate{cert}
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(tlsConf)))
	}
	serverOpts = append(serverOpts, o.grpcOpts...)

	return &Server{cfg: cfg, grpc: grpc.NewServer(serverOpts...), closers: o.closers}, nil
}

// RegisterService registers a service implementation before Serve. Request
// and reply codec failures of its methods are reported as Codec.
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl any) {
	s.grpc.RegisterService(withCodec(desc), impl)
}

// GRPC exposes the underlying server, e.g. for reflection or health services.
// Services registered on it directly get grpc's own codec error reporting.
func (s *Server) GRPC() *grpc.Server { return s.grpc }

// Bind listens on host:port over TCP. Port 0 picks a free port; the bound
// address is available from Addrs. The OS error is logged and replaced by
// BindFail, which only carries the requested address.
func (s *Server) Bind(host string, port uint16) error {
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"host": host, "port": port}).Error("grpc server bind failed")
		return rpcerr.BindFail(host, port)
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, lis)
	s.mu.Unlock()
	log.WithField("addr", lis.Addr().String()).Info("grpc server bound")
	return nil
}

// BindConfigured binds the host and port from the server config.
func (s *Server) BindConfigured() error {
	return s.Bind(s.cfg.Host, s.cfg.Port)
}

// Addrs returns the addresses of all bound listeners.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	addrs := make([]net.Addr, 0, len(s.listeners))
	for _, lis := range s.listeners {
		addrs = append(addrs, lis.Addr())
	}
	return addrs
}

// Serve serves every bound listener and blocks until the server stops. It
// fails with CallFailure(NotInvoked) when nothing was bound and with
// QueueShutdown when the server was already shut down.
func (s *Server) Serve() error {
	s.mu.Lock()
	listeners := append([]net.Listener(nil), s.listeners...)
	s.mu.Unlock()
	if len(listeners) == 0 {
		return rpcerr.CallFailure(callcodes.NotInvoked)
	}

	errs := make(chan error, len(listeners))
	for _, lis := range listeners {
		go func(lis net.Listener) { errs <- s.grpc.Serve(lis) }(lis)
	}
	var first error
	for range listeners {
		if err := <-errs; err != nil && first == nil {
			first = err
			s.grpc.Stop()
		}
	}
	if first == nil {
		return nil
	}
	if errors.Is(first, grpc.ErrServerStopped) {
		return rpcerr.QueueShutdown()
	}
	log.WithError(first).Error("grpc server stopped serving")
	return rpcerr.FromError(first)
}

// Shutdown stops accepting calls and waits for in-flight calls to finish. If
// ctx ends first the remaining calls are cancelled and ShutdownFailed is
// returned. Resources passed with WithClosers are closed afterwards; a failed
// close also yields ShutdownFailed. Only the first call has an effect; later
// calls return its result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		done := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
			log.Info("grpc server stopped")
		case <-ctx.Done():
			s.grpc.Stop()
			<-done
			log.WithError(ctx.Err()).Warn("grpc server graceful stop timed out, forced")
			s.stopErr = rpcerr.ShutdownFailed()
		}
		if err := s.closeResources(); err != nil {
			s.stopErr = rpcerr.ShutdownFailed()
		}
	})
	return s.stopErr
}

func (s *Server) closeResources() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			log.WithError(err).Error("close server resource failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ShutdownWithTimeout calls Shutdown bounded by the configured timeout.
func (s *Server) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
	defer cancel()
	return s.Shutdown(ctx)
}
