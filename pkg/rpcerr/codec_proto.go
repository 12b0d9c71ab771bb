//go:build !cbor

package rpcerr

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// CodecName identifies the codec family compiled into this build.
const CodecName = "proto"

// FromCodecError adapts an error from google.golang.org/protobuf into a Codec
// error. nil maps to nil.
func FromCodecError(err error) *Error {
	if err == nil {
		return nil
	}
	return Codec(err)
}

// IsCodecLibraryError reports whether err originates from the protobuf runtime.
func IsCodecLibraryError(err error) bool {
	return err != nil && errors.Is(err, proto.Error)
}
