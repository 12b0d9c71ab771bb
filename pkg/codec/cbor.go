//go:build cbor

package codec

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

var (
	encMode, _ = cbor.CoreDetEncOptions().EncMode()
	decMode, _ = cbor.DecOptions{}.DecMode()
)

// Marshal encodes v using deterministic core CBOR.
func Marshal(v any) ([]byte, *rpcerr.Error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, rpcerr.FromCodecError(err)
	}
	return b, nil
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) *rpcerr.Error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return rpcerr.FromCodecError(err)
	}
	return nil
}
