package couriers_test

import (
	"testing"
	"time"

	"dispatch/internal/adapters/out/couriers"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	g4s, err := couriers.NewG4SClient("http://g4s.example", "token", time.Second)
	require.NoError(t, err)
	fargo, err := couriers.NewFargoClient("http://fargo.example", "key", time.Second)
	require.NoError(t, err)

	registry, err := couriers.NewRegistry(g4s, fargo)
	require.NoError(t, err)

	t.Run("resolves registered providers", func(t *testing.T) {
		adapter, rErr := registry.Resolve("g4s")
		require.NoError(t, rErr)
		assert.Equal(t, "g4s", adapter.ProviderID())

		adapter, rErr = registry.Resolve("fargo_courier")
		require.NoError(t, rErr)
		assert.Equal(t, "fargo_courier", adapter.ProviderID())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, rErr := registry.Resolve("pigeon_post")
		require.ErrorIs(t, rErr, errs.ErrProviderNotSupported)

		var notSupported *errs.ProviderNotSupportedError
		require.ErrorAs(t, rErr, &notSupported)
		assert.Equal(t, "pigeon_post", notSupported.ProviderID)
	})

	t.Run("ids are sorted", func(t *testing.T) {
		assert.Equal(t, []string{"fargo_courier", "g4s"}, registry.IDs())
	})

	t.Run("duplicate id fails", func(t *testing.T) {
		_, rErr := couriers.NewRegistry(g4s, g4s)
		require.Error(t, rErr)
	})
}
