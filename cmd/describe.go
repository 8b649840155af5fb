package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe [table]",
	Short: "Show how mockdml sees a table",
	Long: `Print the columns, resolved key, identity and sequence columns,
foreign keys, enumerated CHECK values and updatable columns of a table.
Defaults to the configured target table.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		table := cfg.Target.Name()
		if len(args) == 1 {
			table = args[0]
		}

		ctx := context.Background()
		adapter, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer adapter.Close()

		schema, err := adapter.GetSchema(ctx, table)
		if err != nil {
			return err
		}
		fks, err := adapter.GetForeignKeys(ctx, table)
		if err != nil {
			return err
		}
		checks, err := adapter.GetCheckConstraints(ctx, table)
		if err != nil {
			return err
		}

		color.Cyan("📋 %s", schema.QualifiedName())
		fmt.Printf("Key type: %s, Key columns: %s\n\n", schema.KeyKind, strings.Join(schema.KeyColumns, ", "))

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "COLUMN\tTYPE\tSEMANTIC\tNULL\tIDENTITY\tSEQUENCE")
		for _, c := range schema.Columns {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\t%s\n", c.Name, c.DataType, c.Semantic, c.Nullable, c.Identity, c.Sequence)
		}
		tw.Flush()

		for _, uk := range schema.UniqueKeys {
			fmt.Printf("Unique: %s\n", strings.Join(uk, ", "))
		}
		for _, col := range sortedKeys(fks) {
			fk := fks[col]
			fmt.Printf("Foreign key: %s -> %s.%s\n", col, fk.RefTable, fk.RefColumn)
		}
		for _, col := range sortedKeys(checks) {
			fmt.Printf("Check constraint: %s IN (%s)\n", col, strings.Join(checks[col], ", "))
		}

		var updatable []string
		for _, c := range schema.UpdatableColumns() {
			updatable = append(updatable, c.Name)
		}
		if len(updatable) == 0 {
			color.Yellow("⚠️  No updatable columns (all columns are keys, identity or large text)")
		} else {
			fmt.Printf("Updatable columns: %s\n", strings.Join(updatable, ", "))
		}
		if !schema.KeyInsertable() {
			color.Yellow("⚠️  Key is an identity column: only existing rows can be updated")
		}
		return nil
	},
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
