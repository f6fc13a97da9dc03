package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dbdeploy/internal/domain"
	"dbdeploy/internal/infra"
)

// statusCmd はスクリプトと台帳の突き合わせ結果を表示するコマンド。
func statusCmd() *cobra.Command {
	var rng domain.SequenceRange
	cmd := &cobra.Command{
		Use:   "status <search_path> <connection_string>",
		Short: "Show migration status",
		Long:  "Show whether each migration script in search_path is applied, pending or modified since it was applied",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			t, err := resolveTarget(args)
			if err != nil {
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

			statuses, err := newMigrationService(db).GetMigrationStatus(ctx, t.scriptDir, rng)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			return printStatus(os.Stdout, statuses)
		},
	}
	addRangeFlags(cmd, &rng)
	return cmd
}

// printStatus はテーブル形式で出力する。
func printStatus(out io.Writer, statuses []*domain.ScriptStatus) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tSTATUS\tCHECKSUM")
	fmt.Fprintln(w, "--\t--------\t------\t--------")

	for _, s := range statuses {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			s.Migration.SequenceID,
			s.Migration.Filename,
			s.Status,
			hex.EncodeToString(s.Migration.Checksum)[:12],
		)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}
