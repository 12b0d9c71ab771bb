package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	grpccreds "google.golang.org/grpc/credentials"

	"github.com/Goden-Gun/grpcbind/pkg/config"
)

const (
	// AuthorizationKey is the metadata key carrying the bearer token.
	AuthorizationKey = "authorization"
	bearerPrefix     = "Bearer "
)

// Claims are the claims of a per-RPC token.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Token is a signed per-RPC token.
type Token struct {
	Value     string
	JTI       string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 token for subject.
func IssueToken(cfg config.TokenConfig, subject, scope string) (*Token, error) {
	cfg.ApplyDefaults()
	if cfg.SecretKey == "" {
		return nil, errors.New("token secret is empty")
	}
	now := time.Now()
	jti := uuid.NewString()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL.Duration())),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{Value: signed, JTI: jti, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// TokenCredentials attaches a bearer token to every call, issuing a fresh one
// shortly before the current one expires.
type TokenCredentials struct {
	cfg        config.TokenConfig
	subject    string
	scope      string
	requireTLS bool

	mu      sync.Mutex
	current *Token
}

var _ grpccreds.PerRPCCredentials = (*TokenCredentials)(nil)

// NewTokenCredentials returns credentials for subject. requireTLS should only
// be false for plaintext connections inside a trusted network.
func NewTokenCredentials(cfg config.TokenConfig, subject, scope string, requireTLS bool) *TokenCredentials {
	cfg.ApplyDefaults()
	return &TokenCredentials{cfg: cfg, subject: subject, scope: scope, requireTLS: requireTLS}
}

func (c *TokenCredentials) GetRequestMetadata(ctx context.Context, _ ...string) (map[string]string, error) {
	tok, err := c.token()
	if err != nil {
		return nil, err
	}
	return map[string]string{AuthorizationKey: bearerPrefix + tok.Value}, nil
}

func (c *TokenCredentials) RequireTransportSecurity() bool { return c.requireTLS }

func (c *TokenCredentials) token() (*Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// refresh once less than a tenth of the lifetime is left
	margin := c.cfg.TTL.Duration() / 10
	if c.current != nil && time.Until(c.current.ExpiresAt) > margin {
		return c.current, nil
	}
	tok, err := IssueToken(c.cfg, c.subject, c.scope)
	if err != nil {
		return nil, err
	}
	c.current = tok
	return tok, nil
}
