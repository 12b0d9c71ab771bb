// Package metadata builds and validates call metadata. Every rejected entry is
// reported as an InvalidMetadata error.
package metadata

import (
	"context"
	"fmt"
	"sort"
	"strings"

	grpcmd "google.golang.org/grpc/metadata"

	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

const (
	binarySuffix   = "-bin"
	reservedPrefix = "grpc-"
)

// MD is validated call metadata.
type MD = grpcmd.MD

// Builder accumulates metadata entries. The first invalid entry is kept and
// reported by Build; later additions are ignored.
type Builder struct {
	md  MD
	err *rpcerr.Error
}

func NewBuilder() *Builder {
	return &Builder{md: MD{}}
}

// Add appends a text entry. Keys are lower-cased before validation.
func (b *Builder) Add(key, value string) *Builder {
	if b.err != nil {
		return b
	}
	k, err := normalizeKey(key, false)
	if err != nil {
		b.err = err
		return b
	}
	if err := checkValue(k, value); err != nil {
		b.err = err
		return b
	}
	b.md.Append(k, value)
	return b
}

// AddBytes appends a binary entry; key must end with "-bin".
func (b *Builder) AddBytes(key string, value []byte) *Builder {
	if b.err != nil {
		return b
	}
	k, err := normalizeKey(key, true)
	if err != nil {
		b.err = err
		return b
	}
	b.md.Append(k, string(value))
	return b
}

// Build returns the accumulated metadata or the first validation failure.
func (b *Builder) Build() (MD, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.md.Copy(), nil
}

// ParseMD validates metadata received from a peer. Reserved grpc- keys are
// skipped since the transport owns them.
func ParseMD(md grpcmd.MD) (MD, error) {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := NewBuilder()
	for _, k := range keys {
		if strings.HasPrefix(strings.ToLower(k), reservedPrefix) || k == ":authority" {
			continue
		}
		for _, v := range md[k] {
			if strings.HasSuffix(k, binarySuffix) {
				b.AddBytes(k, []byte(v))
			} else {
				b.Add(k, v)
			}
		}
	}
	return b.Build()
}

// NewOutgoingContext attaches md to ctx, merging with metadata already there.
func NewOutgoingContext(ctx context.Context, md MD) context.Context {
	if existing, ok := grpcmd.FromOutgoingContext(ctx); ok {
		md = grpcmd.Join(existing, md)
	}
	return grpcmd.NewOutgoingContext(ctx, md)
}

func normalizeKey(key string, binary bool) (string, *rpcerr.Error) {
	if key == "" {
		return "", rpcerr.InvalidMetadata("key is empty")
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		case c == ' ':
			return "", rpcerr.InvalidMetadata("key contains space")
		default:
			return "", rpcerr.InvalidMetadata(fmt.Sprintf("key %q contains invalid character %q", key, c))
		}
	}
	k := strings.ToLower(key)
	if strings.HasPrefix(k, reservedPrefix) {
		return "", rpcerr.InvalidMetadata(fmt.Sprintf("key %q uses reserved prefix %q", key, reservedPrefix))
	}
	if binary && !strings.HasSuffix(k, binarySuffix) {
		return "", rpcerr.InvalidMetadata(fmt.Sprintf("binary key %q must end with %q", key, binarySuffix))
	}
	if !binary && strings.HasSuffix(k, binarySuffix) {
		return "", rpcerr.InvalidMetadata(fmt.Sprintf("text key %q must not end with %q", key, binarySuffix))
	}
	return k, nil
}

func checkValue(key, value string) *rpcerr.Error {
	for i := 0; i < len(value); i++ {
		if c := value[i]; c < 0x20 || c > 0x7e {
			return rpcerr.InvalidMetadata(fmt.Sprintf("value of %q contains non-printable byte 0x%02x", key, c))
		}
	}
	return nil
}
