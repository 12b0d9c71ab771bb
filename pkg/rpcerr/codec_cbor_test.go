//go:build cbor

package rpcerr_test

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

func TestFromCodecError_CBOR(t *testing.T) {
	t.Parallel()

	var out string
	decodeErr := cbor.Unmarshal([]byte{0x01}, &out)
	require.Error(t, decodeErr)
	assert.True(t, rpcerr.IsCodecLibraryError(decodeErr))

	e := rpcerr.FromCodecError(decodeErr)
	require.NotNil(t, e)
	assert.Equal(t, rpcerr.KindCodec, e.Kind())
	assert.Equal(t, decodeErr.Error(), e.Cause().Error())

	var typeErr *cbor.UnmarshalTypeError
	assert.ErrorAs(t, e, &typeErr)
	assert.Equal(t, "cbor", rpcerr.CodecName)
}
