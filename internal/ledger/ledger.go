// Package ledger tracks every key allocated during one run so that no key is
// handed out twice, whether as an insert target or as an update target.
package ledger

import (
	"encoding/hex"
	"sort"
	"sync"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/zeebo/xxh3"
)

// Ledger is a grow-only set of key tuples. Keys are never released during a
// run, even when the row that reserved them is later rejected.
type Ledger struct {
	mu    sync.Mutex
	index map[string]struct{}
	keys  []types.KeyTuple
}

func New() *Ledger {
	return &Ledger{index: make(map[string]struct{})}
}

// Reserve adds key and returns true, or returns false without change when
// the key is already reserved.
func (l *Ledger) Reserve(key types.KeyTuple) bool {
	enc := key.Encode()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[enc]; ok {
		return false
	}
	l.index[enc] = struct{}{}
	l.keys = append(l.keys, append(types.KeyTuple(nil), key...))
	return true
}

func (l *Ledger) Contains(key types.KeyTuple) bool {
	enc := key.Encode()

	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.index[enc]
	return ok
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// Keys returns a copy of the reserved keys in reservation order.
func (l *Ledger) Keys() []types.KeyTuple {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.KeyTuple, len(l.keys))
	copy(out, l.keys)
	return out
}

// Fingerprint is a stable hash of the reserved set, independent of order.
func (l *Ledger) Fingerprint() string {
	l.mu.Lock()
	encoded := make([]string, 0, len(l.index))
	for enc := range l.index {
		encoded = append(encoded, enc)
	}
	l.mu.Unlock()

	sort.Strings(encoded)
	h := xxh3.New()
	for _, enc := range encoded {
		h.WriteString(enc)
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}
