// Package middleware はHTTPミドルウェアと監査ログを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"
)

// AuditLog は監査ログの構造体。
type AuditLog struct {
	Operation string   `json:"operation"`
	Database  string   `json:"database"`
	RunID     string   `json:"run_id,omitempty"`
	Applied   []string `json:"applied,omitempty"`
	Result    string   `json:"result"`
}

// 監査ログの結果
const (
	ResultSuccess = "SUCCESS"
	ResultFailed  = "FAILED"
)

// WriteAuditLog は監査ログを出力する。
func WriteAuditLog(ctx context.Context, entry AuditLog) {
	slog.InfoContext(ctx, "migration operation completed",
		"operation", entry.Operation,
		"database", entry.Database,
		"run_id", entry.RunID,
		"applied", entry.Applied,
		"result", entry.Result,
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	)
}
