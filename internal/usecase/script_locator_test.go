package usecase

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"dbdeploy/internal/domain"
)

// writeScripts はテスト用のスクリプトディレクトリを作成する。
func writeScripts(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "scripts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create scripts dir: %v", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func collect(t *testing.T, locator *ScriptLocator, dir string, op domain.MigrationOp, r domain.SequenceRange) []*domain.Migration {
	t.Helper()

	var found []*domain.Migration
	for m, err := range locator.Locate(dir, op, r) {
		if err != nil {
			t.Fatalf("Locate failed: %v", err)
		}
		found = append(found, m)
	}
	return found
}

func sequenceIDs(migrations []*domain.Migration) []int {
	ids := make([]int, len(migrations))
	for i, m := range migrations {
		ids[i] = m.SequenceID
	}
	return ids
}

func TestScriptLocator_Locate_Order(t *testing.T) {
	// ファイル名順では M1, M10, M2 になる
	dir := writeScripts(t, map[string]string{
		"M10__ten.sql":  "SELECT 10",
		"M2__two.sql":   "SELECT 2",
		"M1__one.sql":   "SELECT 1",
		"M3__three.sql": "SELECT 3",
	})

	found := collect(t, NewScriptLocator(), dir, domain.OpMigrate, domain.SequenceRange{})
	if got := sequenceIDs(found); !slices.Equal(got, []int{1, 2, 3, 10}) {
		t.Errorf("expected ascending ids [1 2 3 10], got %v", got)
	}
}

func TestScriptLocator_Locate_Range(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"M1__a.sql": "SELECT 1",
		"M2__b.sql": "SELECT 2",
		"M3__c.sql": "SELECT 3",
		"M4__d.sql": "SELECT 4",
		"M5__e.sql": "SELECT 5",
	})
	locator := NewScriptLocator()

	tests := []struct {
		name string
		r    domain.SequenceRange
		want []int
	}{
		{"両端を指定", domain.SequenceRange{Lower: 2, Upper: 4}, []int{2, 3, 4}},
		{"下限のみ", domain.SequenceRange{Lower: 4}, []int{4, 5}},
		{"上限のみ", domain.SequenceRange{Upper: 2}, []int{1, 2}},
		{"指定なし", domain.SequenceRange{}, []int{1, 2, 3, 4, 5}},
		{"負の境界は無効", domain.SequenceRange{Lower: -1, Upper: -1}, []int{1, 2, 3, 4, 5}},
		{"範囲外", domain.SequenceRange{Lower: 6}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sequenceIDs(collect(t, locator, dir, domain.OpMigrate, tt.r))
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestScriptLocator_Locate_Operation(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"M1__create.sql": "CREATE TABLE t (id int)",
		"U1__drop.sql":   "DROP TABLE t",
		"m2__lower.SQL":  "SELECT 2",
		"u2__lower.sql":  "SELECT -2",
	})
	locator := NewScriptLocator()

	migrate := collect(t, locator, dir, domain.OpMigrate, domain.SequenceRange{})
	if len(migrate) != 2 || migrate[0].Filename != "M1__create.sql" || migrate[1].Filename != "m2__lower.SQL" {
		t.Errorf("unexpected migrate scripts: %v", migrate)
	}

	undo := collect(t, locator, dir, domain.OpUndo, domain.SequenceRange{})
	if len(undo) != 2 || undo[0].Operation != domain.OpUndo || undo[0].Filename != "U1__drop.sql" {
		t.Errorf("unexpected undo scripts: %v", undo)
	}
}

func TestScriptLocator_Locate_SkipsMalformedNames(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"readme.txt":           "not a script",
		"bad_name.sql":         "SELECT 1",
		"M__no_id.sql":         "SELECT 1",
		"M1_single.sql":        "SELECT 1",
		"M1__bad!chars.sql":    "SELECT 1",
		"X1__unknown_op.sql":   "SELECT 1",
		"M0__zero.sql":         "SELECT 0",
		"M1__create users.sql": "SELECT 1",
	})
	if err := os.Mkdir(filepath.Join(dir, "M9__directory.sql"), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	found := collect(t, NewScriptLocator(), dir, domain.OpMigrate, domain.SequenceRange{})
	if len(found) != 1 {
		t.Fatalf("expected 1 script, got %d", len(found))
	}
	if found[0].Filename != "M1__create users.sql" || found[0].Description != "create users" {
		t.Errorf("unexpected script: %+v", found[0])
	}
}

func TestScriptLocator_Locate_Record(t *testing.T) {
	content := "CREATE TABLE users (id int)"
	dir := writeScripts(t, map[string]string{"M7__create_users.sql": content})

	found := collect(t, NewScriptLocator(), dir, domain.OpMigrate, domain.SequenceRange{})
	if len(found) != 1 {
		t.Fatalf("expected 1 script, got %d", len(found))
	}
	m := found[0]

	sum := sha256.Sum256([]byte(content))
	if !bytes.Equal(m.Checksum, sum[:]) {
		t.Errorf("expected checksum %x, got %x", sum, m.Checksum)
	}
	if m.SequenceID != 7 || m.Description != "create_users" || m.Filename != "M7__create_users.sql" {
		t.Errorf("unexpected record: %+v", m)
	}
	if !filepath.IsAbs(m.FilePath) || filepath.Base(m.FilePath) != m.Filename {
		t.Errorf("expected absolute file path, got %s", m.FilePath)
	}
}

func TestScriptLocator_Locate_StopsEarly(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"M1__a.sql": "SELECT 1",
		"M2__b.sql": "SELECT 2",
	})

	count := 0
	for _, err := range NewScriptLocator().Locate(dir, domain.OpMigrate, domain.SequenceRange{}) {
		if err != nil {
			t.Fatalf("Locate failed: %v", err)
		}
		count++
		break
	}
	if count != 1 {
		t.Errorf("expected iteration to stop after 1 script, got %d", count)
	}
}

func TestScriptLocator_Locate_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	var errs []error
	for m, err := range NewScriptLocator().Locate(dir, domain.OpMigrate, domain.SequenceRange{}) {
		if m != nil {
			t.Errorf("expected no script, got %+v", m)
		}
		errs = append(errs, err)
	}
	if len(errs) != 1 || !errors.Is(errs[0], domain.ErrScriptDirNotFound) {
		t.Errorf("expected a single ErrScriptDirNotFound, got %v", errs)
	}
}
