// Package credentials provides per-RPC credentials for grpcbind clients and
// the matching verification on servers.
package credentials

import (
	"context"

	grpccreds "google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/oauth"

	log "github.com/Goden-Gun/grpcbind/pkg/logger"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

// newApplicationDefault is replaced in tests.
var newApplicationDefault = oauth.NewApplicationDefault

// GoogleDefault loads Google Application Default Credentials for scopes. Any
// failure is logged and reported as GoogleAuthenticationFailed.
func GoogleDefault(ctx context.Context, scopes ...string) (grpccreds.PerRPCCredentials, error) {
	creds, err := newApplicationDefault(ctx, scopes...)
	if err != nil {
		log.WithTrace(ctx).WithError(err).Error("load google application default credentials")
		return nil, rpcerr.GoogleAuthenticationFailed()
	}
	return creds, nil
}
