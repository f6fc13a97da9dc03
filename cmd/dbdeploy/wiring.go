package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"dbdeploy/internal/domain"
	"dbdeploy/internal/infra"
	"dbdeploy/internal/metrics"
	"dbdeploy/internal/repository"
	"dbdeploy/internal/tsql"
	"dbdeploy/internal/usecase"
)

// target はCLI引数から組み立てた接続先とスクリプトディレクトリ。
type target struct {
	scriptDir string
	dsn       string
	database  string
}

// resolveTarget は <search_path> <connection_string> を解決する。
func resolveTarget(args []string) (*target, error) {
	scriptDir, err := filepath.Abs(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to resolve search path: %w", err)
	}
	database, err := infra.DatabaseName(args[1])
	if err != nil {
		return nil, err
	}
	return &target{scriptDir: scriptDir, dsn: args[1], database: database}, nil
}

// addRangeFlags は sequence_id の範囲指定フラグを登録する。
func addRangeFlags(cmd *cobra.Command, r *domain.SequenceRange) {
	cmd.Flags().IntVarP(&r.Lower, "lower_id", "l", 0, "Lowest sequence id to apply (inclusive, <=0 disables)")
	cmd.Flags().IntVarP(&r.Upper, "upper_id", "h", 0, "Highest sequence id to apply (inclusive, <=0 disables)")
}

// ensureDatabase はカタログを外したサーバー接続で対象データベースを用意する。
func ensureDatabase(ctx context.Context, t *target) error {
	serverDSN, err := infra.ServerDSN(t.dsn)
	if err != nil {
		return err
	}
	db, err := infra.NewDB(serverDSN, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() {
		if err := infra.CloseDB(db); err != nil {
			slog.WarnContext(ctx, "failed to close server connection", "error", err)
		}
	}()

	bootstrap := usecase.NewBootstrapService(repository.NewDataStoreRepository(db))
	if _, err := bootstrap.EnsureDatabase(ctx, t.database); err != nil {
		return err
	}
	return nil
}

// newLedger は *gorm.DB に束縛した台帳を返す。
func newLedger(db *gorm.DB) usecase.MigrationLedger {
	return repository.NewMigrationRepository(db)
}

// newResolver は *gorm.DB に束縛した方言判定を返す。
func newResolver(db *gorm.DB) usecase.DialectResolver {
	return repository.NewServerRepository(db)
}

// newMigrationService は対象データベースへの接続から MigrationService を組み立てる。
func newMigrationService(db *gorm.DB) *usecase.MigrationService {
	return usecase.NewMigrationService(
		db,
		newLedger,
		usecase.NewBootstrapService(repository.NewDataStoreRepository(db)),
		newResolver,
		tsql.NewSplitter(),
		usecase.WithRecorder(metrics.NewRecorder()),
	)
}
