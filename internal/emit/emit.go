// Package emit renders an allocation result as a DML script with a backup
// of every touched key and a matching restore script.
package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database"
	"github.com/Lumos-Labs-HQ/mockdml/internal/seeder"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

type Mode string

const (
	ModeScript  Mode = "script"
	ModeExecute Mode = "execute"
)

// Script is the rendered output of one run.
type Script struct {
	Target      *types.TableSchema
	BackupTable string
	Mode        Mode

	backup  string
	groups  []groupBlock
	restore []string
	header  []string
}

type groupBlock struct {
	name    string
	deletes []string
	inserts []string
	updates []string
}

// Build renders the result with the provider's dialect. Nothing is emitted
// for groups that produced no rows.
func Build(d database.Dialect, result *seeder.RunResult, mode Mode) *Script {
	schema := result.Target
	r := &renderer{dialect: d, schema: schema, table: schema.QualifiedName()}
	keys := result.Ledger.Keys()

	s := &Script{
		Target:      schema,
		BackupTable: BackupTableName(schema, result.Ledger.Fingerprint()),
		Mode:        mode,
		header: []string{
			fmt.Sprintf("-- mockdml run %s", result.RunID),
			fmt.Sprintf("-- target: %s (%s key %s)", r.table, schema.KeyKind, strings.Join(schema.KeyColumns, ", ")),
			fmt.Sprintf("-- provider: %s, generated %s", d.Name(), time.Now().Format("2006-01-02 15:04:05")),
			fmt.Sprintf("-- keys touched: %d, fingerprint %s", len(keys), result.Ledger.Fingerprint()),
		},
	}
	if len(keys) == 0 {
		return s
	}

	pred := r.keysPredicate(keys)
	s.backup = d.CreateTableAs(s.BackupTable, r.table, pred)
	s.restore = []string{
		fmt.Sprintf("DELETE FROM %s WHERE %s", r.table, pred),
		r.restoreInsert(s.BackupTable),
	}

	for _, g := range result.Groups {
		if len(g.Inserts) == 0 && len(g.Updates) == 0 {
			continue
		}
		b := groupBlock{name: g.Name}
		for _, row := range g.Inserts {
			b.deletes = append(b.deletes, fmt.Sprintf("DELETE FROM %s WHERE %s", r.table, r.keyMatch(row.Key)))
			b.inserts = append(b.inserts, r.insert(row))
		}
		for _, row := range g.Updates {
			if stmt := r.update(row); stmt != "" {
				b.updates = append(b.updates, stmt)
			}
		}
		s.groups = append(s.groups, b)
	}
	return s
}

// Statements lists the backup and DML statements in execution order,
// without transaction control.
func (s *Script) Statements() []string {
	var out []string
	if s.backup != "" {
		out = append(out, s.backup)
	}
	for _, g := range s.groups {
		out = append(out, g.deletes...)
		out = append(out, g.inserts...)
		out = append(out, g.updates...)
	}
	return out
}

func (s *Script) RestoreStatements() []string {
	return append([]string(nil), s.restore...)
}

// String renders the full script. The restore block is commented out unless
// the script was built to be executed.
func (s *Script) String() string {
	var b strings.Builder
	for _, h := range s.header {
		b.WriteString(h + "\n")
	}
	b.WriteString("\n")

	if s.backup != "" {
		b.WriteString("-- backup of every key touched by this script\n")
		b.WriteString(s.backup + ";\n\n")
	}
	for _, g := range s.groups {
		fmt.Fprintf(&b, "-- group %s\n", g.name)
		for _, section := range [][]string{g.deletes, g.inserts, g.updates} {
			for _, stmt := range section {
				b.WriteString(stmt + ";\n")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("COMMIT;\n")

	if len(s.restore) > 0 {
		b.WriteString("\n-- restore from backup\n")
		for _, stmt := range s.restore {
			if s.Mode == ModeScript {
				b.WriteString("-- ")
			}
			b.WriteString(stmt + ";\n")
		}
	}
	return b.String()
}

// RestoreScript renders the standalone restore script.
func (s *Script) RestoreScript() string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- restore %s from %s\n", s.Target.QualifiedName(), s.BackupTable)
	for _, stmt := range s.restore {
		b.WriteString(stmt + ";\n")
	}
	b.WriteString("COMMIT;\n")
	return b.String()
}

// WriteFiles writes mock_<table>.sql and restore_<table>.sql into dir and
// returns their paths.
func (s *Script) WriteFiles(dir string) (script, restore string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := strings.ToLower(s.Target.Name)
	script = filepath.Join(dir, fmt.Sprintf("mock_%s.sql", name))
	if err := os.WriteFile(script, []byte(s.String()), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write script: %w", err)
	}
	if len(s.restore) == 0 {
		return script, "", nil
	}
	restore = filepath.Join(dir, fmt.Sprintf("restore_%s.sql", name))
	if err := os.WriteFile(restore, []byte(s.RestoreScript()), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write restore script: %w", err)
	}
	return script, restore, nil
}

// BackupTableName derives the backup table from the target name and the
// ledger fingerprint, in the target's schema.
func BackupTableName(schema *types.TableSchema, fingerprint string) string {
	if len(fingerprint) > 8 {
		fingerprint = fingerprint[:8]
	}
	name := strings.ToLower(schema.Name)
	if max := 63 - len("bkp__") - len(fingerprint); len(name) > max {
		name = name[:max]
	}
	name = fmt.Sprintf("bkp_%s_%s", name, fingerprint)
	if schema.Schema != "" {
		return schema.Schema + "." + name
	}
	return name
}
