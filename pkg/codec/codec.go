// Package codec is the wire codec compiled into this build. Every failure it
// reports is an *rpcerr.Error of kind Codec.
//
// The protobuf family is the default; building with -tags cbor selects cbor.
package codec

import (
	"bytes"

	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

// Name is the content-subtype of the compiled-in codec.
const Name = rpcerr.CodecName

// Frame is a message that is already encoded. Codec writes a Frame as-is and
// reads raw bytes into a *Frame, so callers can run Marshal and Unmarshal
// themselves and keep the Codec error instead of grpc's Internal status.
type Frame []byte

// Encode marshals v into a Frame.
func Encode(v any) (Frame, *rpcerr.Error) {
	b, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}

// Decode unmarshals f into v.
func (f Frame) Decode(v any) *rpcerr.Error { return Unmarshal(f, v) }

// Codec adapts Marshal and Unmarshal to gRPC's encoding.Codec. Pass it with
// grpc.ForceCodec or grpc.ForceServerCodec.
type Codec struct{}

func (Codec) Name() string { return Name }

func (Codec) Marshal(v any) ([]byte, error) {
	switch f := v.(type) {
	case Frame:
		return f, nil
	case *Frame:
		return *f, nil
	}
	b, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if f, ok := v.(*Frame); ok {
		*f = bytes.Clone(data)
		return nil
	}
	if err := Unmarshal(data, v); err != nil {
		return err
	}
	return nil
}
