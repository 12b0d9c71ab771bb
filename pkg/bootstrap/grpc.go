package bootstrap

import (
	"context"
	"crypto/tls"
	"io"
	"sort"
	"strings"

	"google.golang.org/grpc"
	grpccreds "google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Goden-Gun/grpcbind/pkg/config"
	"github.com/Goden-Gun/grpcbind/pkg/credentials"
	log "github.com/Goden-Gun/grpcbind/pkg/logger"
	"github.com/Goden-Gun/grpcbind/pkg/metadata"
	"github.com/Goden-Gun/grpcbind/pkg/queue"
	"github.com/Goden-Gun/grpcbind/pkg/server"
)

// Client 客户端连接及其完成队列
type Client struct {
	Conn  *grpc.ClientConn
	Queue *queue.Queue
}

// Close 先关闭队列再关闭连接
func (c *Client) Close(ctx context.Context) error {
	qErr := c.Queue.Shutdown(ctx)
	if err := c.Conn.Close(); err != nil {
		return err
	}
	return qErr
}

// InitClient 按配置创建 gRPC 客户端连接，GoogleDefault 开启时附带 Google 默认凭据
func InitClient(ctx context.Context, cfg config.ClientConfig, extra ...grpc.DialOption) (*Client, error) {
	cfg.ApplyDefaults()

	opts := []grpc.DialOption{}
	if cfg.Insecure {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(grpccreds.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	}
	if cfg.GoogleDefault {
		creds, err := credentials.GoogleDefault(ctx, cfg.Scopes...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.WithPerRPCCredentials(creds))
	}
	if len(cfg.Headers) > 0 {
		md, err := staticHeaders(cfg.Headers)
		if err != nil {
			log.WithError(err).WithField("target", cfg.Target).Error("grpc client headers invalid")
			return nil, err
		}
		opts = append(opts, grpc.WithChainUnaryInterceptor(headerUnaryInterceptor(md)),
			grpc.WithChainStreamInterceptor(headerStreamInterceptor(md)))
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(cfg.Target, opts...)
	if err != nil {
		log.WithError(err).WithField("target", cfg.Target).Error("grpc client init failed")
		return nil, err
	}
	return &Client{Conn: conn, Queue: queue.New(cfg.Queue)}, nil
}

// staticHeaders 校验配置的静态请求头，非法键值返回 InvalidMetadata；-bin 结尾的键按二进制值处理
func staticHeaders(headers map[string]string) (metadata.MD, error) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := metadata.NewBuilder()
	for _, k := range keys {
		if strings.HasSuffix(strings.ToLower(k), "-bin") {
			b.AddBytes(k, []byte(headers[k]))
		} else {
			b.Add(k, headers[k])
		}
	}
	return b.Build()
}

func headerUnaryInterceptor(md metadata.MD) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(metadata.NewOutgoingContext(ctx, md), method, req, reply, cc, opts...)
	}
}

func headerStreamInterceptor(md metadata.MD) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return streamer(metadata.NewOutgoingContext(ctx, md), desc, cc, method, opts...)
	}
}

// InitServer 按配置创建 gRPC 服务端：RequireToken 时挂载 Token 校验（Redis 配置存在时启用吊销列表），
// Kafka 启用时将处理失败上报为错误事件。Kafka producer 与 Redis 客户端交由服务端，在 Shutdown 时关闭
func InitServer(ctx context.Context, cfg *config.Config, extra ...server.Option) (srv *server.Server, err error) {
	var (
		opts    []server.Option
		closers []io.Closer
	)
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil {
				log.WithError(cerr).Warn("close resource after server init failure")
			}
		}
	}()

	reporter, manager, err := InitErrorReporter(*cfg)
	if err != nil {
		return nil, err
	}
	if reporter != nil {
		closers = append(closers, manager)
		opts = append(opts, server.WithErrorObserver(reporter))
	}

	if cfg.Server.RequireToken {
		var blocklist credentials.Blocklist
		if cfg.Redis.Addr != "" {
			client, err := InitRedis(ctx, cfg.Redis)
			if err != nil {
				return nil, err
			}
			closers = append(closers, client)
			blocklist = credentials.NewRedisBlocklist(client, cfg.Token.BlocklistPrefix)
		}
		v := credentials.NewVerifier(cfg.Token, blocklist)
		opts = append(opts,
			server.WithUnaryInterceptors(v.UnaryInterceptor()),
			server.WithStreamInterceptors(v.StreamInterceptor()),
		)
	}

	opts = append(opts, server.WithClosers(closers...))
	return server.New(cfg.Server, append(opts, extra...)...)
}
