package ledger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveOnlyOnce(t *testing.T) {
	l := New()

	assert.True(t, l.Reserve(types.KeyTuple{1, "A"}))
	assert.False(t, l.Reserve(types.KeyTuple{int64(1), "A"}))
	assert.True(t, l.Reserve(types.KeyTuple{1, "a"}))

	assert.True(t, l.Contains(types.KeyTuple{1.0, "A"}))
	assert.False(t, l.Contains(types.KeyTuple{2, "A"}))
	assert.Equal(t, 2, l.Len())
}

func TestKeysPreservesOrderAndIsACopy(t *testing.T) {
	l := New()
	l.Reserve(types.KeyTuple{3})
	l.Reserve(types.KeyTuple{1})
	l.Reserve(types.KeyTuple{2})

	keys := l.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, types.KeyTuple{3}, keys[0])
	assert.Equal(t, types.KeyTuple{2}, keys[2])

	keys[0] = types.KeyTuple{99}
	assert.True(t, l.Contains(types.KeyTuple{3}))
	assert.False(t, l.Contains(types.KeyTuple{99}))
}

func TestFingerprintIgnoresOrder(t *testing.T) {
	a, b := New(), New()
	a.Reserve(types.KeyTuple{1})
	a.Reserve(types.KeyTuple{2})
	b.Reserve(types.KeyTuple{2})
	b.Reserve(types.KeyTuple{1})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Reserve(types.KeyTuple{3})
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestConcurrentReserveHandsOutEachKeyOnce(t *testing.T) {
	l := New()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted = make(map[string]int)
	)

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := types.KeyTuple{i}
				if l.Reserve(key) {
					mu.Lock()
					granted[fmt.Sprint(i)]++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, l.Len())
	for k, n := range granted {
		assert.Equalf(t, 1, n, "key %s granted %d times", k, n)
	}
}
