package errors

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := SeedTooLong(1, 40)
	assert.True(t, Is(err, ErrSeedTooLong))
	assert.False(t, Is(err, ErrNoViableAddress))

	wrapped := fmt.Errorf("deriving: %w", err)
	assert.True(t, Is(wrapped, ErrSeedTooLong))
}

func TestUnwrapCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := TransportFailure(cause)

	assert.True(t, Is(err, cause))
	assert.Contains(t, err.Error(), "TRANSPORT_FAILURE")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRPCErrorData(t *testing.T) {
	err := RPCError("x", json.RawMessage(`{"logs":["a","b"]}`))
	assert.Equal(t, "x", err.Message)
	assert.True(t, Is(err, ErrRPC))
	assert.Contains(t, err.Details["data"], "\"logs\"")

	bare := RPCError("y", nil)
	assert.Nil(t, bare.Details)

	null := RPCError("z", json.RawMessage("null"))
	assert.Nil(t, null.Details)
}

func TestAs(t *testing.T) {
	var target *ClientError
	err := fmt.Errorf("outer: %w", UnknownAccountReference("abc"))
	if assert.True(t, As(err, &target)) {
		assert.Equal(t, ErrCodeUnknownAccountReference, target.Code)
	}
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
}
