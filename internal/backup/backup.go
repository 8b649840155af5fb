// Package backup records what a run touched so it can be restored later.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Lumos-Labs-HQ/mockdml/internal/emit"
	"github.com/Lumos-Labs-HQ/mockdml/internal/seeder"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
)

const timestampFormat = "2006-01-02_15-04-05"

type GroupCounts struct {
	Sourced        int `json:"sourced"`
	TargetExisting int `json:"target_existing"`
	MergeInserted  int `json:"merge_inserted"`
	Synthesized    int `json:"synthesized"`
	Skipped        int `json:"skipped"`
}

// Manifest describes one run: the keys it touched, where their pre-run
// image was copied and how to put it back.
type Manifest struct {
	RunID       string                 `json:"run_id"`
	Timestamp   string                 `json:"timestamp"`
	Provider    string                 `json:"provider"`
	Target      string                 `json:"target"`
	BackupTable string                 `json:"backup_table"`
	Fingerprint string                 `json:"fingerprint"`
	KeyColumns  []string               `json:"key_columns"`
	Keys        [][]interface{}        `json:"keys"`
	Counts      map[string]GroupCounts `json:"counts"`
	Script      string                 `json:"script,omitempty"`
	Executed    bool                   `json:"executed"`
	Restore     []string               `json:"restore"`
}

func NewManifest(provider string, result *seeder.RunResult, script *emit.Script) *Manifest {
	m := &Manifest{
		RunID:       result.RunID,
		Timestamp:   time.Now().Format(timestampFormat),
		Provider:    provider,
		Target:      result.Target.QualifiedName(),
		BackupTable: script.BackupTable,
		Fingerprint: result.Ledger.Fingerprint(),
		KeyColumns:  result.Target.KeyColumns,
		Counts:      make(map[string]GroupCounts),
		Executed:    script.Mode == emit.ModeExecute,
		Restore:     script.RestoreStatements(),
	}
	for _, k := range result.Ledger.Keys() {
		m.Keys = append(m.Keys, []interface{}(k))
	}
	for _, g := range result.Groups {
		m.Counts[g.Name] = GroupCounts{
			Sourced:        g.Count(types.Sourced),
			TargetExisting: g.Count(types.TargetExisting),
			MergeInserted:  g.Count(types.MergeInserted),
			Synthesized:    g.Count(types.Synthesized),
			Skipped:        g.Skipped,
		}
	}
	return m
}

// Manager reads and writes manifests in a directory.
type Manager struct {
	backupPath string
}

func NewManager(backupPath string) *Manager {
	return &Manager{backupPath: backupPath}
}

func (bm *Manager) Write(m *Manifest) (string, error) {
	if err := os.MkdirAll(bm.backupPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	filename := fmt.Sprintf("manifest_%s.json", m.Timestamp)
	path := filepath.Join(bm.backupPath, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create manifest file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

func (bm *Manager) Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if len(m.Restore) == 0 {
		return nil, fmt.Errorf("manifest %s has no restore statements", path)
	}
	return &m, nil
}

// Latest returns the path of the newest manifest, empty when there is none.
func (bm *Manager) Latest() (string, error) {
	matches, err := filepath.Glob(filepath.Join(bm.backupPath, "manifest_*.json"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
