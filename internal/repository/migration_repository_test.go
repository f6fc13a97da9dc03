package repository

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"path/filepath"
	"testing"

	"dbdeploy/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB はテスト用のSQLiteデータベースを作成する。
// トランザクション中に別接続が使われても同じデータを見られるようファイルに置く。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "dbdeploy.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	// SQLiteは ALTER TABLE ADD CONSTRAINT を持たないため主キーは列定義に含める
	sql := `
		CREATE TABLE migration (
			sequence_id INTEGER NOT NULL PRIMARY KEY,
			operation SMALLINT NOT NULL,
			description NVARCHAR(1024) NOT NULL,
			filename NVARCHAR(256) NOT NULL,
			content_checksum BINARY(32) NOT NULL
		)
	`
	if err := db.Exec(sql).Error; err != nil {
		t.Fatalf("failed to create migration table: %v", err)
	}

	return db
}

func newTestMigration(id int, filename, content string) *domain.Migration {
	sum := sha256.Sum256([]byte(content))
	return &domain.Migration{
		SequenceID:  id,
		Operation:   domain.OpMigrate,
		Description: "test",
		FilePath:    filepath.Join("/scripts", filename),
		Filename:    filename,
		Checksum:    sum[:],
	}
}

func TestMigrationRepository_FindByFilename(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)

	// 台帳に存在しない場合は nil, nil
	found, err := repo.FindByFilename(ctx, "M1__create_users.sql")
	if err != nil {
		t.Fatalf("FindByFilename failed: %v", err)
	}
	if found != nil {
		t.Errorf("expected nil, got %+v", found)
	}

	m := newTestMigration(1, "M1__create_users.sql", "CREATE TABLE users (id int)")
	if err := repo.Insert(ctx, m); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	found, err = repo.FindByFilename(ctx, "M1__create_users.sql")
	if err != nil {
		t.Fatalf("FindByFilename failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected migration, got nil")
	}
	if found.SequenceID != 1 || found.Operation != domain.OpMigrate || found.Description != "test" {
		t.Errorf("unexpected migration: %+v", found)
	}
	if !bytes.Equal(found.Checksum, m.Checksum) {
		t.Errorf("checksum mismatch: expected %x, got %x", m.Checksum, found.Checksum)
	}
	if found.FilePath != "" {
		t.Errorf("expected FilePath not to be persisted, got %s", found.FilePath)
	}
	if !found.Equal(m) {
		t.Error("expected stored migration to equal the inserted one")
	}
}

func TestMigrationRepository_Insert_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)

	if err := repo.Insert(ctx, newTestMigration(1, "M1__first.sql", "SELECT 1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// 同じ sequence_id を別名で登録すると主キー違反
	err := repo.Insert(ctx, newTestMigration(1, "M1__renamed.sql", "SELECT 1"))
	if err == nil {
		t.Fatal("expected duplicate key error, got nil")
	}
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestMigrationRepository_Execute(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)

	if err := repo.Execute(ctx, "CREATE TABLE notes (body TEXT)"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	// ? はプレースホルダとして扱われない
	if err := repo.Execute(ctx, "INSERT INTO notes (body) VALUES ('who?')"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var body string
	if err := db.Raw("SELECT body FROM notes").Scan(&body).Error; err != nil {
		t.Fatalf("failed to read notes: %v", err)
	}
	if body != "who?" {
		t.Errorf("expected body 'who?', got %q", body)
	}

	if err := repo.Execute(ctx, "INSERT INTO missing_table VALUES (1)"); err == nil {
		t.Error("expected error for invalid statement, got nil")
	}
}

func TestMigrationRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)

	for _, id := range []int{3, 1, 2} {
		m := newTestMigration(id, "M"+string(rune('0'+id))+"__step.sql", "SELECT 1")
		if err := repo.Insert(ctx, m); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	migrations, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	for i, m := range migrations {
		if m.SequenceID != i+1 {
			t.Errorf("position %d: expected sequence_id %d, got %d", i, i+1, m.SequenceID)
		}
	}
}

func TestMigrationRepository_RollbackInTransaction(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	// トランザクション内の実行と記録はエラー時にまとめて取り消される
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewMigrationRepository(tx)
		if err := repo.Execute(ctx, "CREATE TABLE partial (id INTEGER)"); err != nil {
			return err
		}
		if err := repo.Insert(ctx, newTestMigration(1, "M1__partial.sql", "x")); err != nil {
			return err
		}
		return repo.Execute(ctx, "INSERT INTO partial VALUES (")
	})
	if err == nil {
		t.Fatal("expected transaction error, got nil")
	}

	found, err := NewMigrationRepository(db).FindByFilename(ctx, "M1__partial.sql")
	if err != nil {
		t.Fatalf("FindByFilename failed: %v", err)
	}
	if found != nil {
		t.Error("expected ledger insert to be rolled back")
	}
	if db.Migrator().HasTable("partial") {
		t.Error("expected table creation to be rolled back")
	}
}

func TestMigrationRepository_Exists(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	exists, err := NewMigrationRepository(db).Exists(ctx)
	if err != nil || !exists {
		t.Fatalf("expected ledger table to exist, got %v (%v)", exists, err)
	}

	if err := db.Exec("DROP TABLE migration").Error; err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}
	exists, err = NewMigrationRepository(db).Exists(ctx)
	if err != nil || exists {
		t.Errorf("expected ledger table to be missing, got %v (%v)", exists, err)
	}
}
