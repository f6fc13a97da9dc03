package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"dbdeploy/internal/domain"
)

// DataStore はデータベースとテーブルの存在確認・作成のインターフェース。
type DataStore interface {
	DatabaseExists(ctx context.Context, name string) (bool, error)
	CreateDatabase(ctx context.Context, name string) error
	TableExists(ctx context.Context, name string) (bool, error)
	CreateTable(ctx context.Context, def *domain.TableDefinition) error
}

// BootstrapService は実行前に必要なデータベースと台帳テーブルを用意する。
type BootstrapService struct {
	store DataStore
}

// NewBootstrapService は新しいBootstrapServiceを生成する。
func NewBootstrapService(store DataStore) *BootstrapService {
	return &BootstrapService{store: store}
}

// EnsureDatabase はデータベースがなければ作成する。作成した場合は true を返す。
// store はカタログを指定しないサーバー単位の接続である必要がある。
func (s *BootstrapService) EnsureDatabase(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("%w: empty name", domain.ErrInvalidDatabaseName)
	}
	exists, err := s.store.DatabaseExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("checking database %s: %w", name, err)
	}
	if exists {
		return false, nil
	}
	if err := s.store.CreateDatabase(ctx, name); err != nil {
		return false, fmt.Errorf("creating database %s: %w", name, err)
	}
	slog.InfoContext(ctx, "created database", "database", name)
	return true, nil
}

// EnsureLedgerTable は台帳テーブルがなければ作成する。作成した場合は true を返す。
func (s *BootstrapService) EnsureLedgerTable(ctx context.Context) (bool, error) {
	return s.EnsureTable(ctx, domain.LedgerTableDefinition())
}

// EnsureTable は記述子のテーブルがなければ作成する。
// 記述子の検証は存在確認より先に行う。
func (s *BootstrapService) EnsureTable(ctx context.Context, def *domain.TableDefinition) (bool, error) {
	if err := def.Validate(); err != nil {
		return false, err
	}
	exists, err := s.store.TableExists(ctx, def.Name)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", def.Name, err)
	}
	if exists {
		return false, nil
	}
	if err := s.store.CreateTable(ctx, def); err != nil {
		return false, fmt.Errorf("creating table %s: %w", def.Name, err)
	}
	slog.InfoContext(ctx, "created table", "table", def.Name)
	return true, nil
}
