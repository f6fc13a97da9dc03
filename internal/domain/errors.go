package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrScriptDirNotFound はスクリプトディレクトリが存在しない場合のエラー。
	ErrScriptDirNotFound = errors.New("script directory not found")

	// ErrInvalidMigrationFile はマイグレーションファイル名のフォーマットが不正な場合のエラー。
	ErrInvalidMigrationFile = errors.New("invalid migration file")

	// ErrParseFailure はスクリプトが解析できない場合のエラー。
	ErrParseFailure = errors.New("script parse failure")

	// ErrUnsupportedDialect はサーバーのバージョンに対応する方言がない場合のエラー。
	ErrUnsupportedDialect = errors.New("unsupported dialect")

	// ErrDuplicateKey は台帳への登録が主キーと衝突した場合のエラー。
	ErrDuplicateKey = errors.New("duplicate ledger key")

	// ErrBatchExecution はバッチの実行に失敗した場合のエラー。
	ErrBatchExecution = errors.New("batch execution failed")

	// ErrMissingDataType は列定義にデータ型がない場合のエラー。
	ErrMissingDataType = errors.New("missing data type")

	// ErrMalformedDescriptor はテーブル定義が不完全な場合のエラー。
	ErrMalformedDescriptor = errors.New("malformed table descriptor")

	// ErrInvalidDatabaseName は接続文字列からデータベース名が得られない場合のエラー。
	ErrInvalidDatabaseName = errors.New("invalid database name")
)

// ParseError はスクリプト解析エラーの一覧を保持する。
type ParseError struct {
	Filename string
	Messages []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Filename, strings.Join(e.Messages, "; "))
}

// Is は ErrParseFailure との比較を可能にする。
func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailure
}
