package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/backup"
	"github.com/Lumos-Labs-HQ/mockdml/internal/database"
	"github.com/Lumos-Labs-HQ/mockdml/internal/database/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [manifest|restore.sql]",
	Short: "Restore the rows a run touched from its backup table",
	Long: `Delete every key recorded for a run from the target and copy the
pre-run rows back from the backup table. Accepts a run manifest or a
restore_<table>.sql script and defaults to the newest manifest in the
backup directory.

⚠️  WARNING: rows written to those keys since the run are lost!

Examples:
  mockdml restore
  mockdml restore db_backup/manifest_2025-01-15_10-30-00.json --force
  mockdml restore restore_orders.sql`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		bm := backup.NewManager(cfg.BackupDir)
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else if path, err = bm.Latest(); err != nil {
			return err
		}
		if path == "" {
			return fmt.Errorf("no manifest found in %s", cfg.BackupDir)
		}

		var statements []string
		target := cfg.Target.Name()
		if strings.EqualFold(filepath.Ext(path), ".sql") {
			body, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read restore script: %w", err)
			}
			statements = common.ParseSQLStatements(string(body))
			color.Cyan("📄 %s: %d statements", path, len(statements))
		} else {
			m, err := bm.Load(path)
			if err != nil {
				return err
			}
			if database.NewAdapter(m.Provider).Name() != database.NewAdapter(cfg.Database.Provider).Name() {
				return fmt.Errorf("manifest was written for %s but the config uses %s", m.Provider, cfg.Database.Provider)
			}
			statements = m.Restore
			target = m.Target
			color.Cyan("🗂️  Run %s on %s: %d keys from %s", m.RunID, m.Target, len(m.Keys), m.BackupTable)
		}
		if len(statements) == 0 {
			return fmt.Errorf("%s has no restore statements", path)
		}

		force, _ := cmd.Flags().GetBool("force")
		if !force && !confirm(fmt.Sprintf("Restore the touched rows of %s?", target)) {
			color.Yellow("Restore cancelled")
			return nil
		}

		ctx := context.Background()
		adapter, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer adapter.Close()

		if err := adapter.ExecuteScript(ctx, statements); err != nil {
			return fmt.Errorf("failed to restore: %w", err)
		}
		color.Green("✅ Restored %s", target)
		return nil
	},
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
