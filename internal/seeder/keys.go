package seeder

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/ledger"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/google/uuid"
)

const baseKeyWindow = 100

// keyGenerator assigns fresh key tuples to synthesized rows. Numeric key
// columns continue past the highest value seen in the target, the sources
// and earlier synthetic keys; string key columns derive a token from the
// group name and row index.
type keyGenerator struct {
	store    Store
	ledger   *ledger.Ledger
	schema   *types.TableSchema
	gen      *DataGenerator
	attempts int
	log      *logger

	high   map[string]int64
	loaded map[string]bool
}

func newKeyGenerator(store Store, l *ledger.Ledger, schema *types.TableSchema, gen *DataGenerator, attempts int, log *logger) *keyGenerator {
	return &keyGenerator{
		store:    store,
		ledger:   l,
		schema:   schema,
		gen:      gen,
		attempts: attempts,
		log:      log,
		high:     make(map[string]int64),
		loaded:   make(map[string]bool),
	}
}

// observe raises the numeric high-water mark of a key column from a source.
func (k *keyGenerator) observe(ctx context.Context, src types.SourceSpec, column, sourceColumn string) error {
	max, err := k.store.MaxValue(ctx, src, sourceColumn)
	if err != nil {
		return err
	}
	if n, ok := types.Coerce(types.Column{Semantic: types.SemanticNumeric}, max).(int64); ok && n > k.high[column] {
		k.high[column] = n
	}
	return nil
}

func (k *keyGenerator) ensureLoaded(ctx context.Context, col types.Column) error {
	if k.loaded[col.Name] {
		return nil
	}
	k.loaded[col.Name] = true
	return k.observe(ctx, types.SourceSpec{Table: k.schema.QualifiedName()}, col.Name, col.Name)
}

// Next returns a key tuple that is neither reserved nor present in the target.
// The caller reserves it.
func (k *keyGenerator) Next(ctx context.Context, group string, index int) (types.KeyTuple, error) {
	cols := k.schema.KeyColumnDefs()
	for _, c := range cols {
		if c.Semantic == types.SemanticNumeric {
			if err := k.ensureLoaded(ctx, c); err != nil {
				return nil, fmt.Errorf("failed to read max of key column %s: %w", c.Name, err)
			}
		}
	}

	window := baseKeyWindow
	for attempt := 0; attempt < k.attempts; attempt++ {
		key := make(types.KeyTuple, len(cols))
		for i, c := range cols {
			key[i] = k.candidate(c, group, index, attempt, window)
		}
		taken, err := k.taken(ctx, key)
		if err != nil {
			return nil, err
		}
		if !taken {
			k.commit(cols, key)
			return key, nil
		}
		window *= 2
	}

	k.log.warn("%s row %d: %v, forcing a unique suffix", group, index, types.ErrKeyCollisionExhausted)
	for n := int64(1); ; n++ {
		key := make(types.KeyTuple, len(cols))
		for i, c := range cols {
			key[i] = k.forcedValue(c, group, n)
		}
		taken, err := k.taken(ctx, key)
		if err != nil {
			return nil, err
		}
		if !taken {
			k.commit(cols, key)
			return key, nil
		}
	}
}

func (k *keyGenerator) candidate(c types.Column, group string, index, attempt, window int) interface{} {
	if isUUIDColumn(c) {
		return k.gen.faker.UUID()
	}
	switch c.Semantic {
	case types.SemanticNumeric:
		return k.high[c.Name] + 1 + int64(k.gen.Intn(window))
	case types.SemanticString, types.SemanticLargeText, types.SemanticOther:
		token := fmt.Sprintf("%s_%d", strings.ToUpper(group), index+1)
		if attempt > 0 {
			token = fmt.Sprintf("%s_%d", token, attempt)
		}
		return truncateKeepingSuffix(c, token)
	default:
		return k.gen.GenerateForColumn(c)
	}
}

func (k *keyGenerator) forcedValue(c types.Column, group string, n int64) interface{} {
	if isUUIDColumn(c) {
		return uuid.NewString()
	}
	switch c.Semantic {
	case types.SemanticNumeric:
		return k.high[c.Name] + n
	case types.SemanticString, types.SemanticLargeText, types.SemanticOther:
		frag := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		return truncateKeepingSuffix(c, fmt.Sprintf("%s_%s", strings.ToUpper(group), frag))
	default:
		return k.gen.GenerateForColumn(c)
	}
}

func (k *keyGenerator) taken(ctx context.Context, key types.KeyTuple) (bool, error) {
	if k.ledger.Contains(key) {
		return true, nil
	}
	exists, err := k.store.KeyExists(ctx, k.schema.QualifiedName(), k.schema.KeyColumns, key)
	if err != nil {
		return false, fmt.Errorf("failed to check key %s: %w", key, err)
	}
	return exists, nil
}

func (k *keyGenerator) commit(cols []types.Column, key types.KeyTuple) {
	for i, c := range cols {
		if n, ok := key[i].(int64); ok && c.Semantic == types.SemanticNumeric && n > k.high[c.Name] {
			k.high[c.Name] = n
		}
	}
}

// truncateKeepingSuffix cuts a token to the column length, dropping
// characters from the front so the distinguishing suffix survives.
func truncateKeepingSuffix(c types.Column, token string) string {
	runes := []rune(token)
	if c.Length <= 0 || len(runes) <= c.Length {
		return token
	}
	return string(runes[len(runes)-c.Length:])
}
