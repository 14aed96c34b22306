package kernel_test

import (
	"testing"

	"dispatch/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUUID(t *testing.T) {
	a := kernel.NewUUID()
	b := kernel.NewUUID()

	require.NoError(t, a.Validate())
	require.NoError(t, b.Validate())
	assert.False(t, a.IsEqual(b))
}

func TestUUIDFromString(t *testing.T) {
	t.Run("valid string round-trips", func(t *testing.T) {
		const raw = "550e8400-e29b-41d4-a716-446655440000"

		id, err := kernel.UUIDFromString(raw)

		require.NoError(t, err)
		assert.Equal(t, raw, id.String())
	})

	t.Run("invalid string fails", func(t *testing.T) {
		_, err := kernel.UUIDFromString("not-a-uuid")
		require.Error(t, err)
	})
}

func TestUUIDFromBytes(t *testing.T) {
	t.Run("round-trips through bytes", func(t *testing.T) {
		original := kernel.NewUUID()
		raw := original.Bytes()

		restored, err := kernel.UUIDFromBytes(raw[:])

		require.NoError(t, err)
		assert.True(t, original.IsEqual(restored))
	})

	t.Run("wrong length fails", func(t *testing.T) {
		_, err := kernel.UUIDFromBytes([]byte{1, 2, 3})
		require.Error(t, err)
	})

	t.Run("nil UUID bytes fail validation", func(t *testing.T) {
		_, err := kernel.UUIDFromBytes(make([]byte, 16))
		require.Error(t, err)
	})
}

func TestUUID_Validate(t *testing.T) {
	var zero kernel.UUID

	err := zero.Validate()

	require.Error(t, err)
	assert.Equal(t, kernel.ErrUUIDIsNotConstructed, err)
}
