package repository

import (
	"context"
	"errors"
	"testing"

	"dbdeploy/internal/domain"
)

func TestBuildCreateTableStatement_Ledger(t *testing.T) {
	got, err := BuildCreateTableStatement(domain.LedgerTableDefinition())
	if err != nil {
		t.Fatalf("BuildCreateTableStatement failed: %v", err)
	}

	want := "CREATE TABLE [migration] (\n" +
		"    [sequence_id] int NOT NULL,\n" +
		"    [operation] smallint NOT NULL,\n" +
		"    [description] nvarchar(1024) NOT NULL,\n" +
		"    [filename] nvarchar(256) NOT NULL,\n" +
		"    [content_checksum] binary(32) NOT NULL\n" +
		")"
	if got != want {
		t.Errorf("unexpected statement:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildCreatePrimaryKeyStatement(t *testing.T) {
	got := BuildCreatePrimaryKeyStatement(domain.LedgerTableDefinition())
	want := "ALTER TABLE [migration] ADD CONSTRAINT [pk_migration] PRIMARY KEY CLUSTERED ([sequence_id])"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	// 複合主キー
	def := domain.NewTableDefinition("audit")
	def.WithColumn("tenant").AsNVarChar(64).UseInPrimaryKey()
	def.WithColumn("seq").AsBigInt().UseInPrimaryKey()
	def.WithColumn("note").AsNVarChar(256).AllowNull()
	got = BuildCreatePrimaryKeyStatement(def)
	want = "ALTER TABLE [audit] ADD CONSTRAINT [pk_audit] PRIMARY KEY CLUSTERED ([tenant], [seq])"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	// 主キーがない場合は出力しない
	heap := domain.NewTableDefinition("heap")
	heap.WithColumn("value").AsInt()
	if got := BuildCreatePrimaryKeyStatement(heap); got != "" {
		t.Errorf("expected empty statement, got %q", got)
	}
}

func TestBuildCreateTableStatement_Invalid(t *testing.T) {
	def := domain.NewTableDefinition("broken")
	def.WithColumn("untyped")

	_, err := BuildCreateTableStatement(def)
	if !errors.Is(err, domain.ErrMissingDataType) {
		t.Errorf("expected ErrMissingDataType, got %v", err)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := map[string]string{
		"migration":  "[migration]",
		"my db":      "[my db]",
		"odd]name":   "[odd]]name]",
		"[bracketed": "[[bracketed]",
	}
	for in, want := range tests {
		if got := QuoteIdentifier(in); got != want {
			t.Errorf("QuoteIdentifier(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestDataStoreRepository_CreateTable(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewDataStoreRepository(db)

	exists, err := repo.TableExists(ctx, "deploy_notes")
	if err != nil {
		t.Fatalf("TableExists failed: %v", err)
	}
	if exists {
		t.Fatal("expected table not to exist")
	}

	def := domain.NewTableDefinition("deploy_notes")
	def.WithColumn("id").AsInt()
	def.WithColumn("body").AsNVarChar(512).AllowNull()
	if err := repo.CreateTable(ctx, def); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	exists, err = repo.TableExists(ctx, "deploy_notes")
	if err != nil {
		t.Fatalf("TableExists failed: %v", err)
	}
	if !exists {
		t.Error("expected table to exist after CreateTable")
	}

	// 台帳テーブルは setupTestDB で作成済み
	exists, err = repo.TableExists(ctx, domain.LedgerTableName)
	if err != nil {
		t.Fatalf("TableExists failed: %v", err)
	}
	if !exists {
		t.Error("expected ledger table to exist")
	}
}

func TestDataStoreRepository_CreateDatabase_EmptyName(t *testing.T) {
	repo := NewDataStoreRepository(setupTestDB(t))

	err := repo.CreateDatabase(context.Background(), "")
	if !errors.Is(err, domain.ErrInvalidDatabaseName) {
		t.Errorf("expected ErrInvalidDatabaseName, got %v", err)
	}
}
