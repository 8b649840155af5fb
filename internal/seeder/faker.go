package seeder

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/brianvoe/gofakeit/v7"
)

// DataGenerator produces type-appropriate values with no constraint awareness.
// The same seed yields the same sequence of values.
type DataGenerator struct {
	faker *gofakeit.Faker
	rand  *rand.Rand
	now   time.Time
}

func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{
		faker: gofakeit.New(uint64(seed)),
		rand:  rand.New(rand.NewSource(seed)),
		now:   time.Now(),
	}
}

func (g *DataGenerator) GenerateForColumn(col types.Column) interface{} {
	switch col.Semantic {
	case types.SemanticNumeric:
		return g.generateNumber(col)
	case types.SemanticDate:
		return g.generateTimestamp().Truncate(24 * time.Hour)
	case types.SemanticTimestamp:
		return g.generateTimestamp().Truncate(time.Second)
	case types.SemanticLargeText:
		return col.Truncate(g.faker.Sentence(12) + " " + g.faker.Sentence(10))
	case types.SemanticBoolean:
		return g.faker.Bool()
	}

	if isUUIDColumn(col) {
		return g.faker.UUID()
	}
	return col.Truncate(g.generateText(col.Name))
}

func isUUIDColumn(col types.Column) bool {
	return strings.Contains(strings.ToUpper(col.DataType), "UUID")
}

// generateText uses the column name for context-aware content.
func (g *DataGenerator) generateText(colName string) string {
	colLower := strings.ToLower(colName)

	switch {
	case strings.Contains(colLower, "email"):
		return g.faker.Email()
	case strings.Contains(colLower, "name") && !strings.Contains(colLower, "file"):
		return g.faker.Name()
	case strings.Contains(colLower, "address") || strings.Contains(colLower, "street"):
		return g.faker.Street()
	case strings.Contains(colLower, "city"):
		return g.faker.City()
	case strings.Contains(colLower, "phone") || strings.Contains(colLower, "mobile"):
		return g.faker.Phone()
	case strings.Contains(colLower, "url") || strings.Contains(colLower, "link"):
		return g.faker.URL()
	case strings.Contains(colLower, "title"):
		return g.faker.Sentence(3)
	case strings.Contains(colLower, "desc") || strings.Contains(colLower, "text") ||
		strings.Contains(colLower, "comment") || strings.Contains(colLower, "note"):
		return g.faker.Sentence(6)
	}
	return g.faker.Word()
}

// generateNumber stays within the declared precision, capped at 9999 for
// integers as a reasonable default range.
func (g *DataGenerator) generateNumber(col types.Column) interface{} {
	max := 9999
	if digits := col.Precision - col.Scale; digits > 0 && digits < 4 {
		max = int(math.Pow10(digits)) - 1
	}
	if col.Scale > 0 {
		f := g.faker.Float64Range(1, float64(max))
		p := math.Pow10(col.Scale)
		return math.Round(f*p) / p
	}
	return int64(g.faker.Number(1, max))
}

func (g *DataGenerator) generateTimestamp() time.Time {
	return g.faker.DateRange(g.now.AddDate(-1, 0, 0), g.now).UTC()
}

// Intn exposes the generator's random source for key offsets.
func (g *DataGenerator) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return g.rand.Intn(n)
}
