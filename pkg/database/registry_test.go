package database

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hww/data-terminal/pkg/apperrors"
)

func TestTenantKey(t *testing.T) {
	assert.Equal(t, "df_p1", TenantKey("df", "p1"))
	assert.Equal(t, "warehouse_orders", TenantKey("warehouse", "orders"))
}

func TestResolveUnregisteredKeyFails(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("df_nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTenantNotProvisioned)
	assert.Contains(t, err.Error(), "df_nope")
}

func TestRegisterThenResolveIsStable(t *testing.T) {
	r := NewRegistry()
	db := &DB{}

	require.True(t, r.Register("df_p1", db))

	for i := 0; i < 10; i++ {
		got, err := r.Resolve("df_p1")
		require.NoError(t, err)
		assert.Same(t, db, got)
	}
}

func TestRegisterFirstWriterWins(t *testing.T) {
	r := NewRegistry()
	first := &DB{}
	second := &DB{}

	assert.True(t, r.Register("df_p1", first))
	assert.False(t, r.Register("df_p1", second))

	got, err := r.Resolve("df_p1")
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestRegistryHasAndKeys(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Has("df_p1"))
	assert.Empty(t, r.Keys())

	r.Register("df_p1", &DB{})
	assert.True(t, r.Has("df_p1"))
	assert.Equal(t, []string{"df_p1"}, r.Keys())
}

// Concurrent resolves against concurrent registrations must never observe a
// torn map entry: every Resolve either fails ErrTenantNotProvisioned or
// returns a fully-registered pool.
func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	const keys = 16

	var wg sync.WaitGroup
	for i := 0; i < keys; i++ {
		key := fmt.Sprintf("df_p%d", i)

		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(key, &DB{})
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				db, err := r.Resolve(key)
				if err != nil {
					assert.ErrorIs(t, err, apperrors.ErrTenantNotProvisioned)
					continue
				}
				assert.NotNil(t, db)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < keys; i++ {
		_, err := r.Resolve(fmt.Sprintf("df_p%d", i))
		assert.NoError(t, err)
	}
}
