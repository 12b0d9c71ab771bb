//go:build !cbor

package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

// Marshal encodes v, which must be a proto.Message.
func Marshal(v any) ([]byte, *rpcerr.Error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, rpcerr.Codec(fmt.Errorf("proto: cannot marshal %T, not a proto.Message", v))
	}
	b, err := proto.Marshal(m)
	if err != nil {
		return nil, rpcerr.FromCodecError(err)
	}
	return b, nil
}

// Unmarshal decodes data into v, which must be a proto.Message.
func Unmarshal(data []byte, v any) *rpcerr.Error {
	m, ok := v.(proto.Message)
	if !ok {
		return rpcerr.Codec(fmt.Errorf("proto: cannot unmarshal into %T, not a proto.Message", v))
	}
	if err := proto.Unmarshal(data, m); err != nil {
		return rpcerr.FromCodecError(err)
	}
	return nil
}
