package usecase

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"dbdeploy/internal/domain"
)

// scriptFilePattern はスクリプトファイル名の形式: {M|U}{sequence_id}__{description}.sql
var scriptFilePattern = regexp.MustCompile(`(?i)^([mu])(\d+)__([a-z0-9 _-]+)\.sql$`)

// ScriptLocator はディレクトリからマイグレーションスクリプトを検出する。
type ScriptLocator struct{}

// NewScriptLocator は新しいScriptLocatorを生成する。
func NewScriptLocator() *ScriptLocator {
	return &ScriptLocator{}
}

// Locate は dir 直下のスクリプトを sequence_id の昇順で返す。
// op と r に一致しないスクリプトは返さない。ディレクトリが読めない場合はエラーを1件返して終わる。
func (l *ScriptLocator) Locate(dir string, op domain.MigrationOp, r domain.SequenceRange) iter.Seq2[*domain.Migration, error] {
	return func(yield func(*domain.Migration, error) bool) {
		scripts, err := l.discover(dir)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, m := range scripts {
			if m.Operation != op || !r.Contains(m.SequenceID) {
				continue
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

// discover は名前が形式に一致する全ファイルを読み込み、チェックサムを計算して並べ替える。
func (l *ScriptLocator) discover(dir string) ([]*domain.Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrScriptDirNotFound, dir)
		}
		return nil, fmt.Errorf("failed to read script directory: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve script directory: %w", err)
	}

	var scripts []*domain.Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m, ok := parseScriptFilename(entry.Name())
		if !ok {
			continue
		}

		m.FilePath = filepath.Join(absDir, entry.Name())
		content, err := os.ReadFile(m.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read script %s: %w", entry.Name(), err)
		}
		m.Checksum = domain.ContentChecksum(content)
		scripts = append(scripts, m)
	}

	// 同じ sequence_id はファイル名順（ReadDir の順序）を保つ
	slices.SortStableFunc(scripts, func(a, b *domain.Migration) int {
		return cmp.Compare(a.SequenceID, b.SequenceID)
	})
	return scripts, nil
}

// parseScriptFilename はファイル名から FilePath と Checksum 以外の項目を組み立てる。
// 形式に一致しない名前や int に収まらない番号は対象外とする。
func parseScriptFilename(name string) (*domain.Migration, bool) {
	match := scriptFilePattern.FindStringSubmatch(name)
	if match == nil {
		return nil, false
	}
	op, err := domain.ParseMigrationOp(match[1])
	if err != nil {
		return nil, false
	}
	id, err := strconv.Atoi(match[2])
	if err != nil || id <= 0 {
		return nil, false
	}
	return &domain.Migration{
		SequenceID:  id,
		Operation:   op,
		Description: match[3],
		Filename:    name,
	}, true
}
