// Package main はマイグレーションCLIのエントリポイント。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"dbdeploy/config"
	"dbdeploy/internal/infra"
)

const version = "1.0.0"

var (
	cfg *config.Config
	tp  *sdktrace.TracerProvider
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "dbdeploy",
		Short:         "Versioned SQL Server migration runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .envファイルを読み込む（存在しない場合は無視）
			_ = godotenv.Load()
			cfg = config.Load()

			// トレーサー初期化（ロガー設定の前に実行）
			var err error
			tp, err = infra.InitTracer(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to init tracer: %w", err)
			}
			infra.SetupLogger(cfg, os.Stderr, infra.LogFormatText)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdownTracer(cmd.Context())
		},
	}

	// サブコマンド登録
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		shutdownTracer(ctx)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// shutdownTracer はトレーサーを一度だけ停止する。
func shutdownTracer(ctx context.Context) {
	infra.ShutdownTracer(ctx, tp)
	tp = nil
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dbdeploy version %s\n", version)
		},
	}
}
