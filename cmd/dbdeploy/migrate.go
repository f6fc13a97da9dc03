package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"dbdeploy/internal/domain"
	"dbdeploy/internal/infra"
	"dbdeploy/internal/metrics"
	"dbdeploy/internal/middleware"
	"dbdeploy/internal/usecase"
)

// migrateCmd は未適用スクリプトを適用するコマンド。
func migrateCmd() *cobra.Command {
	var rng domain.SequenceRange
	cmd := &cobra.Command{
		Use:   "migrate <search_path> <connection_string>",
		Short: "Apply pending migration scripts",
		Long: "Apply every M<id>__<description>.sql script in search_path that is not yet recorded\n" +
			"in the ledger, one transaction per script, in ascending id order.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			t, err := resolveTarget(args)
			if err != nil {
				return err
			}
			if err := ensureDatabase(ctx, t); err != nil {
				return err
			}

			db, err := infra.NewDB(t.dsn, cfg)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := infra.CloseDB(db); err != nil {
					slog.WarnContext(ctx, "failed to close database connection", "error", err)
				}
			}()

			report, runErr := newMigrationService(db).Run(ctx, usecase.RunOptions{
				ScriptDir: t.scriptDir,
				Range:     rng,
			})
			finishRun(ctx, t, report, runErr)
			if runErr != nil {
				return runErr
			}

			if len(report.Applied) == 0 {
				fmt.Println("No pending migrations.")
			} else {
				fmt.Printf("Applied %d migration(s) successfully.\n", len(report.Applied))
			}
			return nil
		},
	}
	addRangeFlags(cmd, &rng)
	return cmd
}

// finishRun は実行結果をメトリクスと監査ログに記録する。
func finishRun(ctx context.Context, t *target, report *domain.RunReport, runErr error) {
	metrics.RecordRun(report.State)
	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.PushgatewayURL, t.database); err != nil {
			slog.WarnContext(ctx, "failed to push metrics",
				"operation", "push_metrics",
				"pushgateway", cfg.PushgatewayURL,
				"error", err,
			)
		}
	}

	result := middleware.ResultSuccess
	if runErr != nil {
		result = middleware.ResultFailed
	}
	middleware.WriteAuditLog(ctx, middleware.AuditLog{
		Operation: "MIGRATE",
		Database:  t.database,
		RunID:     report.RunID,
		Applied:   report.Applied,
		Result:    result,
	})
}
