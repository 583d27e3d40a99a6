package tenants

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
)

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry(nil, nil)

	n, err := r.Create("api.example.org", "Prod", "Production", "")
	require.NoError(t, err)
	assert.Equal(t, "Production", n.Name())

	got, ok := r.Get("api.example.org", "Prod")
	require.True(t, ok)
	assert.Same(t, n, got)

	_, err = r.Create("api.example.org", "Prod", "again", "")
	assert.ErrorIs(t, err, ErrNetworkExists)

	_, ok = r.Get("other.example.org", "Prod")
	assert.False(t, ok)
}

func TestRegistryWildcardFallback(t *testing.T) {
	r := NewRegistry(nil, nil)
	_, err := r.Create(AnyHost, "Test", "", "")
	require.NoError(t, err)

	_, ok := r.Get("localhost", "Test")
	assert.True(t, ok)
	assert.Len(t, r.List("localhost"), 1)

	_, err = r.Create("localhost", "Own", "", "")
	require.NoError(t, err)
	_, ok = r.Get("localhost", "Test")
	assert.False(t, ok)
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry(nil, nil)
	for _, id := range []ids.RoamingNetworkID{"b", "c", "a"} {
		_, err := r.Create(AnyHost, id, "", "")
		require.NoError(t, err)
	}
	list := r.List(AnyHost)
	require.Len(t, list, 3)
	assert.Equal(t, ids.RoamingNetworkID("a"), list[0].ID)
	assert.Equal(t, ids.RoamingNetworkID("c"), list[2].ID)
}

func TestRegistryGetOrCreateConcurrent(t *testing.T) {
	r := NewRegistry(nil, nil)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.GetOrCreate(AnyHost, "Prod", "", ""); ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(nil, nil)
	_, err := r.Create(AnyHost, "Prod", "", "")
	require.NoError(t, err)

	_, err = r.Remove("localhost", "Prod")
	require.NoError(t, err)
	_, err = r.Remove("localhost", "Prod")
	assert.ErrorIs(t, err, ErrUnknownNetwork)
}
