package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"dbdeploy/internal/domain"

	"gorm.io/gorm"
)

// ServerRepository は接続先サーバーの情報を取得する。
type ServerRepository struct {
	db *gorm.DB
}

// NewServerRepository は新しいServerRepositoryを生成する。
func NewServerRepository(db *gorm.DB) *ServerRepository {
	return &ServerRepository{db: db}
}

// ResolveDialect はサーバーのバージョンから方言を判定する。
// ProductMajorVersion は 2008 以前で NULL になるため ProductVersion を使う。
func (r *ServerRepository) ResolveDialect(ctx context.Context) (domain.Dialect, error) {
	var version sql.NullString
	row := r.db.WithContext(ctx).Raw("SELECT CAST(SERVERPROPERTY('ProductVersion') AS nvarchar(128))").Row()
	if err := row.Scan(&version); err != nil {
		slog.ErrorContext(ctx, "failed to query server version",
			"operation", "resolve_dialect",
			"error", err,
		)
		return domain.DialectUnknown, err
	}

	major, err := ParseMajorVersion(version.String)
	if err != nil {
		return domain.DialectUnknown, err
	}
	return domain.DialectForMajorVersion(major)
}

// ParseMajorVersion は "15.0.2000.5" 形式のバージョン文字列からメジャーバージョンを取り出す。
func ParseMajorVersion(version string) (int, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(version), ".")
	major, err := strconv.Atoi(head)
	if err != nil || major <= 0 {
		return 0, fmt.Errorf("%w: unrecognized server version %q", domain.ErrUnsupportedDialect, version)
	}
	return major, nil
}

// Ping はサーバーへの疎通を確認する。
func (r *ServerRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		slog.WarnContext(ctx, "database ping failed",
			"operation", "ping",
			"error", err,
		)
		return err
	}
	return nil
}
