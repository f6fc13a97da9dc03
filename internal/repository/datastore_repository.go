package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dbdeploy/internal/domain"

	"gorm.io/gorm"
)

// DataStoreRepository はデータベースとテーブルの存在確認・作成を行う。
type DataStoreRepository struct {
	db *gorm.DB
}

// NewDataStoreRepository は新しいDataStoreRepositoryを生成する。
func NewDataStoreRepository(db *gorm.DB) *DataStoreRepository {
	return &DataStoreRepository{db: db}
}

// DatabaseExists はデータベースが存在するか確認する。サーバー単位の接続で使う。
func (r *DataStoreRepository) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Raw("SELECT COUNT(*) FROM sys.databases WHERE name = ?", name).Scan(&count).Error; err != nil {
		slog.ErrorContext(ctx, "failed to check database existence",
			"operation", "database_exists",
			"database", name,
			"error", err,
		)
		return false, err
	}
	return count > 0, nil
}

// CreateDatabase はデータベースを作成する。
func (r *DataStoreRepository) CreateDatabase(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", domain.ErrInvalidDatabaseName)
	}
	if err := r.db.WithContext(ctx).Exec("CREATE DATABASE " + QuoteIdentifier(name)).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create database",
			"operation", "create_database",
			"database", name,
			"error", err,
		)
		return err
	}
	return nil
}

// TableExists は接続先のデータベースにテーブルが存在するか確認する。
func (r *DataStoreRepository) TableExists(ctx context.Context, name string) (bool, error) {
	return r.db.WithContext(ctx).Migrator().HasTable(name), nil
}

// CreateTable は記述子からテーブルと主キー制約を作成する。
func (r *DataStoreRepository) CreateTable(ctx context.Context, def *domain.TableDefinition) error {
	create, err := BuildCreateTableStatement(def)
	if err != nil {
		return err
	}
	primaryKey := BuildCreatePrimaryKeyStatement(def)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(create).Error; err != nil {
			return err
		}
		if primaryKey == "" {
			return nil
		}
		return tx.Exec(primaryKey).Error
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create table",
			"operation", "create_table",
			"table", def.Name,
			"error", err,
		)
		return err
	}
	return nil
}

// QuoteIdentifier は識別子を角括弧で囲む。
func QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// BuildCreateTableStatement は CREATE TABLE 文を組み立てる。
func BuildCreateTableStatement(def *domain.TableDefinition) (string, error) {
	if err := def.Validate(); err != nil {
		return "", err
	}

	columns := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		null := "NOT NULL"
		if c.Nullable {
			null = "NULL"
		}
		columns[i] = fmt.Sprintf("    %s %s %s", QuoteIdentifier(c.Name), c.DataType.SQL(), null)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", QuoteIdentifier(def.Name), strings.Join(columns, ",\n")), nil
}

// BuildCreatePrimaryKeyStatement は主キー制約を追加する ALTER TABLE 文を組み立てる。
// 主キー列がない場合は空文字を返す。
func BuildCreatePrimaryKeyStatement(def *domain.TableDefinition) string {
	keys := def.PrimaryKeyColumns()
	if len(keys) == 0 {
		return ""
	}
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = QuoteIdentifier(k)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY CLUSTERED (%s)",
		QuoteIdentifier(def.Name), QuoteIdentifier("pk_"+def.Name), strings.Join(quoted, ", "))
}
