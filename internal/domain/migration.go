// Package domain はマイグレーションのドメインモデルとビジネスルールを定義する。
package domain

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"
)

// MigrationOp はスクリプトが属する実行モードを表す。
type MigrationOp int16

const (
	// OpMigrate は適用スクリプト（M プレフィックス）を表す。
	OpMigrate MigrationOp = 0
	// OpUndo は取り消しスクリプト（U プレフィックス）を表す。
	OpUndo MigrationOp = 1
)

// ParseMigrationOp はファイル名のプレフィックスを MigrationOp に変換する。
func ParseMigrationOp(value string) (MigrationOp, error) {
	switch strings.ToLower(value) {
	case "m":
		return OpMigrate, nil
	case "u":
		return OpUndo, nil
	case "":
		return 0, fmt.Errorf("%w: empty operation prefix", ErrInvalidMigrationFile)
	default:
		return 0, fmt.Errorf("%w: unknown operation prefix %q", ErrInvalidMigrationFile, value)
	}
}

// String は表示用の名前を返す。
func (o MigrationOp) String() string {
	switch o {
	case OpMigrate:
		return "migrate"
	case OpUndo:
		return "undo"
	default:
		return fmt.Sprintf("MigrationOp(%d)", int16(o))
	}
}

// MigrationStatus はスクリプトの適用状態を表す。
type MigrationStatus string

const (
	MigrationStatusPending  MigrationStatus = "pending"
	MigrationStatusApplied  MigrationStatus = "applied"
	MigrationStatusModified MigrationStatus = "modified"
)

// Migration はマイグレーションスクリプト1件を表すドメインモデル。
// 生成後は変更しない。
type Migration struct {
	SequenceID  int         // 適用順序（ファイル名の数値部分）
	Operation   MigrationOp // 実行モード
	Description string      // ファイル名の説明部分
	FilePath    string      // スクリプトの絶対パス（永続化しない）
	Filename    string      // ベース名（台帳の検索キー）
	Checksum    []byte      // ファイル内容のSHA-256
}

// Equal はファイル名とチェックサムが一致するかを判定する。
func (m *Migration) Equal(other *Migration) bool {
	if m == nil || other == nil {
		return false
	}
	return m.Filename == other.Filename && bytes.Equal(m.Checksum, other.Checksum)
}

// ContentChecksum はスクリプト内容の SHA-256 を返す。
func ContentChecksum(content []byte) []byte {
	sum := sha256.Sum256(content)
	return sum[:]
}

// ScriptStatus は検出したスクリプトと台帳の突き合わせ結果。
type ScriptStatus struct {
	Migration *Migration
	Status    MigrationStatus
}

// SequenceRange は適用対象の SequenceID の範囲（両端を含む）。
// 0 以下の境界はその側の制限なしを意味する。
type SequenceRange struct {
	Lower int
	Upper int
}

// Contains は id が範囲内かを返す。
func (r SequenceRange) Contains(id int) bool {
	if r.Lower > 0 && id < r.Lower {
		return false
	}
	if r.Upper > 0 && id > r.Upper {
		return false
	}
	return true
}
