package repository

import (
	"context"
	"errors"
	"testing"

	"dbdeploy/internal/domain"
)

func TestParseMajorVersion(t *testing.T) {
	tests := []struct {
		version string
		want    int
		wantErr bool
	}{
		{"9.00.5000.00", 9, false},
		{"10.50.6000.34", 10, false},
		{"15.0.2000.5", 15, false},
		{" 16.0.1000.6 ", 16, false},
		{"14", 14, false},
		{"", 0, true},
		{"abc.1", 0, true},
		{"0.1", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMajorVersion(tt.version)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrUnsupportedDialect) {
				t.Errorf("ParseMajorVersion(%q): expected ErrUnsupportedDialect, got %v", tt.version, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMajorVersion(%q) failed: %v", tt.version, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMajorVersion(%q): expected %d, got %d", tt.version, tt.want, got)
		}
	}
}

func TestServerRepository_Ping(t *testing.T) {
	db := setupTestDB(t)
	repo := NewServerRepository(db)

	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.Close()
	if err := repo.Ping(context.Background()); err == nil {
		t.Error("expected ping on closed pool to fail")
	}
}

func TestServerRepository_ResolveDialect_NotSQLServer(t *testing.T) {
	// SQLite には SERVERPROPERTY がないため問い合わせ自体が失敗する
	repo := NewServerRepository(setupTestDB(t))

	d, err := repo.ResolveDialect(context.Background())
	if err == nil {
		t.Fatalf("expected error, got dialect %s", d)
	}
	if d != domain.DialectUnknown {
		t.Errorf("expected DialectUnknown, got %s", d)
	}
}
