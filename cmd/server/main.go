// Package main はマイグレーション状態APIサーバーのエントリポイント。
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"dbdeploy/config"
	"dbdeploy/internal/handler"
	"dbdeploy/internal/infra"
	"dbdeploy/internal/metrics"
	"dbdeploy/internal/repository"
	"dbdeploy/internal/tsql"
	"dbdeploy/internal/usecase"
)

func main() {
	ctx := context.Background()

	// .envファイルを読み込む（存在しない場合は無視）
	// 既存の環境変数は上書きしない
	_ = godotenv.Load()

	// 設定読み込み
	cfg := config.Load()

	// トレーサー初期化（ロガー設定の前に実行）
	tp, err := infra.InitTracer(ctx, cfg)
	if err != nil {
		slog.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer infra.ShutdownTracer(ctx, tp)

	// トレース情報付きロガーを設定
	infra.SetupLogger(cfg, os.Stdout, infra.LogFormatJSON)

	// DB初期化
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is not set")
		os.Exit(1)
	}
	db, err := infra.NewDB(cfg.DatabaseURL, cfg)
	if err != nil {
		slog.Error("failed to init database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := infra.CloseDB(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	scriptDir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		slog.Error("failed to resolve migrations directory", "error", err)
		os.Exit(1)
	}

	// DI
	serverRepo := repository.NewServerRepository(db)
	service := usecase.NewMigrationService(
		db,
		func(db *gorm.DB) usecase.MigrationLedger { return repository.NewMigrationRepository(db) },
		usecase.NewBootstrapService(repository.NewDataStoreRepository(db)),
		func(db *gorm.DB) usecase.DialectResolver { return repository.NewServerRepository(db) },
		tsql.NewSplitter(),
	)
	prometheus.MustRegister(metrics.NewLedgerCollector(service, 5*time.Second))

	h := handler.NewMigrationHandler(service, serverRepo, scriptDir)
	router := handler.NewRouter(h, cfg)

	// サーバー起動
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting server", "port", cfg.Port, "migrations_dir", scriptDir)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
