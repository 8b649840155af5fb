package seeder

import (
	"fmt"
	"time"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"golang.org/x/text/cases"
)

// uniquePool hands out values distinct from a snapshot of existing column
// values and from each other. String comparison is case-insensitive.
type uniquePool struct {
	column   types.Column
	gen      *DataGenerator
	attempts int
	folder   cases.Caser
	seen     map[string]struct{}
	pool     []interface{}
	next     int
}

func newUniquePool(col types.Column, existing []interface{}, size, attempts int, gen *DataGenerator) *uniquePool {
	p := &uniquePool{
		column:   col,
		gen:      gen,
		attempts: attempts,
		folder:   cases.Fold(),
		seen:     make(map[string]struct{}, len(existing)+size),
	}
	for _, v := range existing {
		p.seen[p.fold(v)] = struct{}{}
	}
	for i := 0; i < size; i++ {
		p.pool = append(p.pool, p.fresh())
	}
	return p
}

func (p *uniquePool) fold(v interface{}) string {
	if s, ok := types.Normalize(v).(string); ok {
		return "s:" + p.folder.String(s)
	}
	return types.KeyTuple{v}.Encode()
}

func (p *uniquePool) claim(v interface{}) bool {
	k := p.fold(v)
	if _, dup := p.seen[k]; dup {
		return false
	}
	p.seen[k] = struct{}{}
	return true
}

// fresh returns a value guaranteed unseen, deriving one from the last
// candidate when random generation keeps colliding.
func (p *uniquePool) fresh() interface{} {
	var v interface{}
	for i := 0; i < p.attempts; i++ {
		v = p.gen.GenerateForColumn(p.column)
		if p.claim(v) {
			return v
		}
	}
	for n := len(p.seen); ; n++ {
		d := p.derive(v, n)
		if d == nil {
			return v
		}
		if p.claim(d) {
			return d
		}
	}
}

func (p *uniquePool) derive(v interface{}, n int) interface{} {
	switch x := types.Normalize(v).(type) {
	case string:
		suffix := fmt.Sprintf("_%d", n)
		base := x
		if p.column.Length > 0 {
			keep := p.column.Length - len(suffix)
			if keep < 0 {
				keep = 0
			}
			base = types.Column{Length: keep}.Truncate(base)
			if keep == 0 {
				base = ""
			}
		}
		return base + suffix
	case int64:
		return x + int64(n)
	case float64:
		return x + float64(n)
	case time.Time:
		return x.Add(time.Duration(n) * time.Second)
	default:
		return nil
	}
}

// Next draws from the pre-generated pool. Once exhausted, new values are
// checked against everything seen for a bounded number of attempts and the
// last candidate is accepted even if it repeats.
func (p *uniquePool) Next() interface{} {
	if p.next < len(p.pool) {
		v := p.pool[p.next]
		p.next++
		return v
	}

	var v interface{}
	for i := 0; i < p.attempts; i++ {
		v = p.gen.GenerateForColumn(p.column)
		if p.claim(v) {
			return v
		}
	}
	return v
}
