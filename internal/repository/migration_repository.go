// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dbdeploy/internal/domain"

	"gorm.io/gorm"
)

// MigrationModel は適用履歴テーブルのモデル。
type MigrationModel struct {
	SequenceID      int    `gorm:"column:sequence_id;primaryKey;autoIncrement:false"`
	Operation       int16  `gorm:"column:operation;type:smallint;not null"`
	Description     string `gorm:"column:description;type:nvarchar(1024);not null"`
	Filename        string `gorm:"column:filename;type:nvarchar(256);not null"`
	ContentChecksum []byte `gorm:"column:content_checksum;type:binary(32);not null"`
}

// TableName はテーブル名を指定。
func (MigrationModel) TableName() string {
	return domain.LedgerTableName
}

func newMigrationModel(m *domain.Migration) *MigrationModel {
	return &MigrationModel{
		SequenceID:      m.SequenceID,
		Operation:       int16(m.Operation),
		Description:     m.Description,
		Filename:        m.Filename,
		ContentChecksum: m.Checksum,
	}
}

// toDomain はモデルをドメインモデルに変換する。FilePath は永続化しないため空になる。
func (m *MigrationModel) toDomain() *domain.Migration {
	return &domain.Migration{
		SequenceID:  m.SequenceID,
		Operation:   domain.MigrationOp(m.Operation),
		Description: m.Description,
		Filename:    m.Filename,
		Checksum:    m.ContentChecksum,
	}
}

// MigrationRepository は適用履歴（台帳）を管理するリポジトリ。
// トランザクション内で使う場合はトランザクションの *gorm.DB を渡して生成する。
type MigrationRepository struct {
	db *gorm.DB
}

// NewMigrationRepository は新しいMigrationRepositoryを生成する。
func NewMigrationRepository(db *gorm.DB) *MigrationRepository {
	return &MigrationRepository{db: db}
}

// FindByFilename はファイル名で台帳を検索する。見つからない場合は nil, nil を返す。
// SQL Server 2005/2008 は OFFSET/FETCH を解釈できないため LIMIT 付きの検索は使わない。
func (r *MigrationRepository) FindByFilename(ctx context.Context, filename string) (*domain.Migration, error) {
	var models []MigrationModel
	if err := r.db.WithContext(ctx).Where("filename = ?", filename).Find(&models).Error; err != nil {
		slog.ErrorContext(ctx, "failed to find migration by filename",
			"operation", "find_by_filename",
			"filename", filename,
			"error", err,
		)
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	return models[0].toDomain(), nil
}

// Insert は適用履歴を1件記録する。主キーが衝突した場合は domain.ErrDuplicateKey を返す。
func (r *MigrationRepository) Insert(ctx context.Context, m *domain.Migration) error {
	err := r.db.WithContext(ctx).Create(newMigrationModel(m)).Error
	if err == nil {
		return nil
	}
	slog.ErrorContext(ctx, "failed to insert migration",
		"operation", "insert_migration",
		"sequence_id", m.SequenceID,
		"filename", m.Filename,
		"error", err,
	)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: sequence_id %d (%s): %w", domain.ErrDuplicateKey, m.SequenceID, m.Filename, err)
	}
	return err
}

// Execute はバッチ1件をそのまま実行する。バインド変数は使わない。
func (r *MigrationRepository) Execute(ctx context.Context, statement string) error {
	if err := r.db.WithContext(ctx).Exec(statement).Error; err != nil {
		slog.ErrorContext(ctx, "failed to execute statement",
			"operation", "execute",
			"error", err,
		)
		return err
	}
	return nil
}

// FindAll は台帳の全件を sequence_id の昇順で取得する。
func (r *MigrationRepository) FindAll(ctx context.Context) ([]*domain.Migration, error) {
	var models []MigrationModel
	if err := r.db.WithContext(ctx).Order("sequence_id ASC").Find(&models).Error; err != nil {
		slog.ErrorContext(ctx, "failed to find all migrations",
			"operation", "find_all",
			"error", err,
		)
		return nil, err
	}

	migrations := make([]*domain.Migration, len(models))
	for i := range models {
		migrations[i] = models[i].toDomain()
	}
	return migrations, nil
}

// Exists は台帳テーブルが存在するかを返す。
func (r *MigrationRepository) Exists(ctx context.Context) (bool, error) {
	return r.db.WithContext(ctx).Migrator().HasTable(&MigrationModel{}), nil
}
