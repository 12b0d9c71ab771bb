//go:build cbor

package rpcerr

import (
	"errors"

	"github.com/fxamacker/cbor/v2"
)

// CodecName identifies the codec family compiled into this build.
const CodecName = "cbor"

// FromCodecError adapts an error from github.com/fxamacker/cbor/v2 into a
// Codec error. nil maps to nil.
func FromCodecError(err error) *Error {
	if err == nil {
		return nil
	}
	return Codec(err)
}

// IsCodecLibraryError reports whether err is one of the cbor library's
// encode or decode error types.
func IsCodecLibraryError(err error) bool {
	var (
		syntaxErr      *cbor.SyntaxError
		semanticErr    *cbor.SemanticError
		typeErr        *cbor.UnmarshalTypeError
		invalidErr     *cbor.InvalidUnmarshalError
		unsupportedErr *cbor.UnsupportedTypeError
	)
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &semanticErr) ||
		errors.As(err, &typeErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &unsupportedErr)
}
