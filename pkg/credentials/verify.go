package credentials

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"

	"github.com/Goden-Gun/grpcbind/pkg/config"
	log "github.com/Goden-Gun/grpcbind/pkg/logger"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
	"github.com/Goden-Gun/grpcbind/pkg/status"
)

// Blocklist holds revoked token ids.
type Blocklist interface {
	Block(ctx context.Context, jti string, ttl time.Duration) error
	IsBlocked(ctx context.Context, jti string) (bool, error)
}

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by the auth interceptors.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// Verifier checks bearer tokens on incoming calls.
type Verifier struct {
	cfg       config.TokenConfig
	blocklist Blocklist
}

// NewVerifier returns a verifier. blocklist may be nil.
func NewVerifier(cfg config.TokenConfig, blocklist Blocklist) *Verifier {
	cfg.ApplyDefaults()
	return &Verifier{cfg: cfg, blocklist: blocklist}
}

func unauthenticated(details string) *rpcerr.Error {
	return rpcerr.RPCFailure(status.WithDetails(codes.Unauthenticated, details))
}

// Verify authenticates the call in ctx. A missing token or one that fails
// validation is RPCFailure(Unauthenticated); an authorization entry that is
// not a single bearer token is InvalidMetadata.
func (v *Verifier) Verify(ctx context.Context) (*Claims, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(AuthorizationKey)
	if len(values) == 0 {
		return nil, unauthenticated("missing token")
	}
	if len(values) > 1 {
		return nil, rpcerr.InvalidMetadata("authorization has multiple values")
	}
	raw, ok := strings.CutPrefix(values[0], bearerPrefix)
	if !ok || raw == "" {
		return nil, rpcerr.InvalidMetadata("authorization is not a bearer token")
	}
	return v.VerifyToken(ctx, raw)
}

// VerifyToken validates the signature, expiry and issuer of raw and checks
// the blocklist.
func (v *Verifier) VerifyToken(ctx context.Context, raw string) (*Claims, error) {
	if v.cfg.SecretKey == "" {
		return nil, unauthenticated("token secret is not configured")
	}
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(v.cfg.ClockSkew.Duration()),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(v.cfg.SecretKey), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, unauthenticated("token expired")
		}
		return nil, unauthenticated("invalid token")
	}
	if !parsed.Valid {
		return nil, unauthenticated("invalid token")
	}
	if v.blocklist != nil && claims.ID != "" {
		blocked, err := v.blocklist.IsBlocked(ctx, claims.ID)
		if err != nil {
			log.WithTrace(ctx).WithError(err).Error("token blocklist lookup failed")
			return nil, rpcerr.RPCFailure(status.WithDetails(codes.Unavailable, "token blocklist unavailable"))
		}
		if blocked {
			return nil, unauthenticated("token revoked")
		}
	}
	return claims, nil
}

// Revoke blocks the token until it would have expired anyway.
func (v *Verifier) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return errors.New("missing token claims")
	}
	if v.blocklist == nil {
		return errors.New("blocklist not configured")
	}
	ttl := v.cfg.TTL.Duration()
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time) + v.cfg.ClockSkew.Duration()
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return v.blocklist.Block(ctx, claims.ID, ttl)
}

// UnaryInterceptor rejects unauthenticated unary calls and stores the claims
// in the handler context.
func (v *Verifier) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		claims, err := v.Verify(ctx)
		if err != nil {
			return nil, err
		}
		return handler(context.WithValue(ctx, claimsKey{}, claims), req)
	}
}

// StreamInterceptor is the streaming counterpart of UnaryInterceptor.
func (v *Verifier) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		claims, err := v.Verify(ss.Context())
		if err != nil {
			return err
		}
		return handler(srv, &claimsStream{ServerStream: ss, ctx: context.WithValue(ss.Context(), claimsKey{}, claims)})
	}
}

type claimsStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *claimsStream) Context() context.Context { return s.ctx }
