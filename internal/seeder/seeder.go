package seeder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database"
	"github.com/Lumos-Labs-HQ/mockdml/internal/ledger"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

const maxUniquePool = 10000

// Store is the read surface the seeder needs from a database.
type Store interface {
	database.MetadataProvider
	database.RowStore
}

type Options struct {
	Seed            int64
	ReferenceSample int
	UniqueAttempts  int
	KeyAttempts     int
	Output          io.Writer
}

func (o Options) withDefaults() Options {
	if o.ReferenceSample <= 0 {
		o.ReferenceSample = 100
	}
	if o.UniqueAttempts <= 0 {
		o.UniqueAttempts = 10
	}
	if o.KeyAttempts <= 0 {
		o.KeyAttempts = 5
	}
	return o
}

type RunSpec struct {
	Target string
	// Source is the default row source of every group, the target table when zero.
	Source types.SourceSpec
	Groups []types.Group
}

type GroupResult struct {
	Name    string
	Inserts []*types.ResolvedRow
	Updates []*types.ResolvedRow
	Skipped int
	Errors  []error
	// Err is set when the whole group was skipped.
	Err error
}

// Count returns how many of the group's rows carry the given provenance.
func (g *GroupResult) Count(p types.Provenance) int {
	n := 0
	seen := make(map[*types.ResolvedRow]bool)
	for _, rows := range [][]*types.ResolvedRow{g.Inserts, g.Updates} {
		for _, r := range rows {
			if r.Provenance == p && !seen[r] {
				seen[r] = true
				n++
			}
		}
	}
	return n
}

type RunResult struct {
	RunID  string
	Target *types.TableSchema
	Ledger *ledger.Ledger
	Groups []*GroupResult
	Plan   *SmartColumnPlan
}

type Seeder struct {
	store     Store
	opts      Options
	generator *DataGenerator
	log       *logger
}

func New(store Store, opts Options) *Seeder {
	opts = opts.withDefaults()
	return &Seeder{
		store:     store,
		opts:      opts,
		generator: NewDataGenerator(opts.Seed),
		log:       newLogger(opts.Output),
	}
}

// Run allocates rows for every group in order. Configuration, connectivity
// and missing-table errors abort the run; group and row failures are
// recorded in the result.
func (s *Seeder) Run(ctx context.Context, spec RunSpec) (*RunResult, error) {
	s.log.info("🌱 Resolving rows for %s...", spec.Target)

	schema, err := s.store.GetSchema(ctx, spec.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to load target schema: %w", err)
	}

	defaultSource := spec.Source
	if defaultSource.IsZero() {
		defaultSource = types.SourceSpec{Table: schema.QualifiedName()}
	}
	if err := s.checkSource(ctx, defaultSource); err != nil {
		return nil, err
	}
	for _, g := range spec.Groups {
		if g.Source != nil && !g.Source.IsZero() {
			if err := s.checkSource(ctx, *g.Source); err != nil {
				return nil, err
			}
		}
	}

	l := ledger.New()
	keys := newKeyGenerator(s.store, l, schema, s.generator, s.opts.KeyAttempts, s.log)

	bindings := make(map[types.SourceSpec]*sourceBinding)
	bind := func(src types.SourceSpec) (*sourceBinding, error) {
		if b, ok := bindings[src]; ok {
			return b, nil
		}
		b, err := bindSource(ctx, s.store, schema, src)
		if err != nil {
			return nil, err
		}
		for i, k := range b.keyCols {
			if c, ok := schema.Column(schema.KeyColumns[i]); ok && c.Semantic == types.SemanticNumeric {
				if err := keys.observe(ctx, src, c.Name, k); err != nil {
					return nil, fmt.Errorf("failed to read max of %s in %s: %w", k, src.Label(), err)
				}
			}
		}
		bindings[src] = b
		return b, nil
	}

	plan, err := buildPlan(ctx, s.store, schema, planOptions{
		ReferenceSample: s.opts.ReferenceSample,
		UniqueAttempts:  s.opts.UniqueAttempts,
		PoolSize:        poolSize(spec.Groups),
	}, s.generator, s.log)
	if err != nil {
		return nil, err
	}

	alloc := &allocator{
		schema:    schema,
		ledger:    l,
		resolver:  &resolver{store: s.store, ledger: l, schema: schema},
		prober:    &prober{store: s.store, ledger: l, schema: schema},
		keys:      keys,
		plan:      plan,
		validator: newFKValidator(s.store, schema),
		log:       s.log,
	}

	result := &RunResult{
		RunID:  uuid.NewString(),
		Target: schema,
		Ledger: l,
		Plan:   plan,
	}

	for _, g := range spec.Groups {
		src := defaultSource
		if g.Source != nil && !g.Source.IsZero() {
			src = *g.Source
		}
		b, err := bind(src)
		if err != nil {
			return nil, err
		}

		gr, err := s.runGroup(ctx, alloc, schema, g, b)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g.Name, err)
		}
		result.Groups = append(result.Groups, gr)
	}

	s.log.success("✅ Allocated %d keys across %d groups", l.Len(), len(result.Groups))
	return result, nil
}

func (s *Seeder) checkSource(ctx context.Context, src types.SourceSpec) error {
	if src.IsQuery() {
		if _, err := s.store.SourceColumns(ctx, src); err != nil {
			return fmt.Errorf("invalid source query: %w", err)
		}
		return nil
	}
	ok, err := s.store.TableExists(ctx, src.Table)
	if err != nil {
		return fmt.Errorf("failed to check source %s: %w", src.Table, err)
	}
	if !ok {
		return fmt.Errorf("source %s: %w", src.Table, types.ErrSchemaNotFound)
	}
	return nil
}

func (s *Seeder) runGroup(ctx context.Context, alloc *allocator, schema *types.TableSchema, g types.Group, b *sourceBinding) (*GroupResult, error) {
	gr := &GroupResult{Name: g.Name}
	s.log.info("  📝 Group %s", g.Name)

	if b.err != nil {
		gr.Err = b.err
		s.log.fail("Skipping group %s: %v", g.Name, b.err)
		return gr, nil
	}
	if !b.hasKey() {
		s.log.warn("source %s lacks the key columns %v, rows will be synthesized", b.spec.Label(), schema.KeyColumns)
	}

	ins, err := alloc.InsertBatch(ctx, g.Name, g.Insert, b)
	switch {
	case errors.Is(err, types.ErrNoInsertableKey):
		gr.Errors = append(gr.Errors, err)
		gr.Skipped += g.Insert.Count
		s.log.fail("group %s inserts: %v", g.Name, err)
	case err != nil:
		return nil, err
	default:
		gr.Inserts = append(gr.Inserts, ins.Rows...)
		gr.Skipped += ins.Skipped
		gr.Errors = append(gr.Errors, ins.Errors...)
	}

	for i, upd := range g.Updates {
		set, err := bindAssignments(schema, upd.Set)
		if err != nil {
			gr.Errors = append(gr.Errors, fmt.Errorf("update %d: %w", i+1, err))
			s.log.fail("group %s update %d: %v", g.Name, i+1, err)
			continue
		}

		res, err := alloc.UpdateBatch(ctx, g.Name, upd, set, b)
		if err != nil {
			return nil, err
		}
		for _, r := range res.Rows {
			if r.Provenance.Inserts() {
				gr.Inserts = append(gr.Inserts, r)
			}
			gr.Updates = append(gr.Updates, r)
		}
		gr.Skipped += res.Skipped
		gr.Errors = append(gr.Errors, res.Errors...)
	}
	return gr, nil
}

// bindAssignments resolves assignment columns against the target. Without
// any assignment the first updatable column gets generated values.
func bindAssignments(schema *types.TableSchema, set []types.Assignment) ([]boundAssignment, error) {
	updatable := schema.UpdatableColumns()
	if len(updatable) == 0 {
		return nil, types.ErrNoUpdatableColumns
	}
	if len(set) == 0 {
		return []boundAssignment{{Assignment: types.Assignment{Column: updatable[0].Name}, column: updatable[0]}}, nil
	}

	out := make([]boundAssignment, 0, len(set))
	for _, a := range set {
		var col *types.Column
		for i := range updatable {
			if strings.EqualFold(updatable[i].Name, a.Column) {
				col = &updatable[i]
				break
			}
		}
		if col == nil {
			return nil, fmt.Errorf("column %s is not updatable: %w", a.Column, types.ErrInvalidConfig)
		}
		out = append(out, boundAssignment{Assignment: a, column: *col})
	}
	return out, nil
}

func poolSize(groups []types.Group) int {
	n := 0
	for _, g := range groups {
		n += g.Insert.Count
		for _, u := range g.Updates {
			n += u.Count
		}
	}
	if n > maxUniquePool {
		return maxUniquePool
	}
	return n
}

// PrintSummary writes the per-group provenance table.
func PrintSummary(w io.Writer, result *RunResult) {
	if w == nil {
		w = color.Output
	}
	color.New(color.FgCyan, color.Bold).Fprintf(w, "\n📊 Summary for %s (run %s)\n", result.Target.QualifiedName(), result.RunID)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tSOURCED\tTARGET_EXISTING\tMERGE_INSERTED\tSYNTHESIZED\tSKIPPED\tINSERTS\tUPDATES")
	for _, g := range result.Groups {
		if g.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\tskipped\t0\t0\n", g.Name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n", g.Name,
			g.Count(types.Sourced), g.Count(types.TargetExisting), g.Count(types.MergeInserted),
			g.Count(types.Synthesized), g.Skipped, len(g.Inserts), len(g.Updates))
	}
	tw.Flush()

	for _, g := range result.Groups {
		if g.Err != nil {
			color.New(color.FgRed).Fprintf(w, "❌ %s: %v\n", g.Name, g.Err)
		}
		for _, err := range g.Errors {
			color.New(color.FgYellow).Fprintf(w, "⚠️  %s: %v\n", g.Name, err)
		}
	}
	if len(result.Plan.Degraded) > 0 {
		color.New(color.FgYellow).Fprintf(w, "⚠️  Foreign keys generated without reference data: %s\n", strings.Join(result.Plan.Degraded, ", "))
	}
}
