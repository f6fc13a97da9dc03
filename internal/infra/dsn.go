package infra

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/microsoft/go-mssqldb/msdsn"

	"dbdeploy/internal/domain"
)

// DatabaseName は接続文字列からデータベース名を取り出す。
// URL形式 (sqlserver://...?database=x) と ADO形式 (Server=...;Database=x) に対応する。
func DatabaseName(dsn string) (string, error) {
	cfg, err := msdsn.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidDatabaseName, err)
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("%w: connection string has no database", domain.ErrInvalidDatabaseName)
	}
	return cfg.Database, nil
}

// ServerDSN はデータベース指定を取り除いた、サーバー単位の接続文字列を返す。
func ServerDSN(dsn string) (string, error) {
	if strings.HasPrefix(strings.ToLower(dsn), "sqlserver://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid connection url: %w", err)
		}
		q := u.Query()
		for key := range q {
			if isCatalogKey(key) {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	var parts []string
	for _, part := range strings.Split(dsn, ";") {
		key, _, _ := strings.Cut(part, "=")
		if isCatalogKey(key) || strings.TrimSpace(part) == "" {
			continue
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ";"), nil
}

func isCatalogKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "database", "initial catalog":
		return true
	}
	return false
}
