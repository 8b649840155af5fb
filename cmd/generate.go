package cmd

import (
	"context"
	"fmt"

	"github.com/Lumos-Labs-HQ/mockdml/internal/backup"
	"github.com/Lumos-Labs-HQ/mockdml/internal/emit"
	"github.com/Lumos-Labs-HQ/mockdml/internal/seeder"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	generateExecute bool
	generateOutput  string
	generateSeed    int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate mock INSERT/UPDATE statements for the target table",
	Long: `Resolve every configured group against the target table and write
mock_<table>.sql, restore_<table>.sql and a run manifest.

Rows are taken from the source where possible, from the target for updates,
and synthesized for whatever is left. With --execute the statements are run
in a single transaction after a backup table of every touched key is created.
On MySQL the backup table is created before that transaction starts, since
CREATE TABLE commits implicitly there.

Examples:
  mockdml generate
  mockdml generate --seed 42 --output out/
  mockdml generate --execute`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("output") {
			cfg.OutputDir = generateOutput
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = generateSeed
		}
		if generateExecute {
			cfg.Mode = string(emit.ModeExecute)
		}

		groups, err := cfg.BuildGroups()
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}

		ctx := context.Background()
		adapter, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer adapter.Close()

		s := seeder.New(adapter, seeder.Options{
			Seed:            cfg.Seed,
			ReferenceSample: cfg.ReferenceSample,
			UniqueAttempts:  cfg.UniqueAttempts,
			KeyAttempts:     cfg.KeyAttempts,
		})
		result, err := s.Run(ctx, seeder.RunSpec{
			Target: cfg.Target.Name(),
			Source: cfg.Source,
			Groups: groups,
		})
		if err != nil {
			return err
		}

		script := emit.Build(adapter, result, emit.Mode(cfg.Mode))
		scriptPath, restorePath, err := script.WriteFiles(cfg.OutputDir)
		if err != nil {
			return err
		}
		color.Green("📄 Script written to %s", scriptPath)
		if restorePath != "" {
			color.Green("📄 Restore script written to %s", restorePath)
		}

		if script.Mode == emit.ModeExecute {
			stmts := script.Statements()
			if len(stmts) == 0 {
				color.Yellow("⚠️  Nothing to execute")
			} else {
				color.Cyan("🔒 Executing %d statements in one transaction...", len(stmts))
				if err := adapter.ExecuteScript(ctx, stmts); err != nil {
					return fmt.Errorf("failed to execute script: %w", err)
				}
				color.Green("✅ Executed; backup table %s", script.BackupTable)
			}
		}

		if result.Ledger.Len() > 0 {
			manifest := backup.NewManifest(cfg.Database.Provider, result, script)
			manifest.Script = scriptPath
			path, err := backup.NewManager(cfg.BackupDir).Write(manifest)
			if err != nil {
				return err
			}
			color.Green("🗂️  Manifest written to %s", path)
		}

		seeder.PrintSummary(nil, result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolVar(&generateExecute, "execute", false, "Run the statements instead of only writing the script")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output directory for scripts")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "Random seed for reproducible output")
}
