package usecase

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"dbdeploy/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// MigrationLedger は適用履歴（台帳）のインターフェース。
type MigrationLedger interface {
	FindByFilename(ctx context.Context, filename string) (*domain.Migration, error)
	Insert(ctx context.Context, m *domain.Migration) error
	Execute(ctx context.Context, statement string) error
	FindAll(ctx context.Context) ([]*domain.Migration, error)
	Exists(ctx context.Context) (bool, error)
}

// LedgerFactory は *gorm.DB（トランザクションを含む）に束縛した台帳を生成する。
type LedgerFactory func(db *gorm.DB) MigrationLedger

// LedgerBootstrapper は台帳テーブルを用意する。
type LedgerBootstrapper interface {
	EnsureLedgerTable(ctx context.Context) (bool, error)
}

// DialectResolver は接続先サーバーの方言を判定する。
type DialectResolver interface {
	ResolveDialect(ctx context.Context) (domain.Dialect, error)
}

// ResolverFactory は *gorm.DB（トランザクションを含む）に束縛した DialectResolver を生成する。
type ResolverFactory func(db *gorm.DB) DialectResolver

// BatchSplitter はスクリプトを実行用バッチに分割する。
type BatchSplitter interface {
	Split(dialect domain.Dialect, filename, script string) ([]string, error)
}

// ScriptSource はスクリプトを sequence_id の昇順で返す。
type ScriptSource interface {
	Locate(dir string, op domain.MigrationOp, r domain.SequenceRange) iter.Seq2[*domain.Migration, error]
}

// RunRecorder はスクリプトごとの結果を受け取る。
type RunRecorder interface {
	ScriptApplied(filename string, elapsed time.Duration, batches int)
	ScriptSkipped(filename string)
	ScriptFailed(filename string)
}

type nopRecorder struct{}

func (nopRecorder) ScriptApplied(string, time.Duration, int) {}
func (nopRecorder) ScriptSkipped(string)                     {}
func (nopRecorder) ScriptFailed(string)                      {}

// RunOptions は1回の実行の入力。
type RunOptions struct {
	ScriptDir string
	Range     domain.SequenceRange
}

// MigrationService はマイグレーション実行のビジネスロジックを提供する。
type MigrationService struct {
	db          *gorm.DB
	newLedger   LedgerFactory
	bootstrap   LedgerBootstrapper
	newResolver ResolverFactory
	splitter    BatchSplitter
	locator     ScriptSource
	recorder    RunRecorder
	tracer      trace.Tracer
}

// MigrationServiceOption は MigrationService の設定を変更する。
type MigrationServiceOption func(*MigrationService)

// WithScriptSource はスクリプトの検出方法を差し替える。
func WithScriptSource(locator ScriptSource) MigrationServiceOption {
	return func(s *MigrationService) { s.locator = locator }
}

// WithRecorder は実行結果の記録先を設定する。
func WithRecorder(recorder RunRecorder) MigrationServiceOption {
	return func(s *MigrationService) { s.recorder = recorder }
}

// WithTracer はスクリプト適用のスパンを作るトレーサーを設定する。
func WithTracer(tracer trace.Tracer) MigrationServiceOption {
	return func(s *MigrationService) { s.tracer = tracer }
}

// NewMigrationService は新しいMigrationServiceを生成する。
// 台帳と方言判定はスクリプトごとのトランザクションに束縛して使う。
func NewMigrationService(db *gorm.DB, newLedger LedgerFactory, bootstrap LedgerBootstrapper, newResolver ResolverFactory, splitter BatchSplitter, opts ...MigrationServiceOption) *MigrationService {
	s := &MigrationService{
		db:          db,
		newLedger:   newLedger,
		bootstrap:   bootstrap,
		newResolver: newResolver,
		splitter:    splitter,
		locator:     NewScriptLocator(),
		recorder:    nopRecorder{},
		tracer:      otel.Tracer("dbdeploy/usecase"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run は未適用のスクリプトを sequence_id の昇順に1件ずつトランザクション内で適用する。
// 最初の失敗で停止し、それ以降のスクリプトは実行しない。
func (s *MigrationService) Run(ctx context.Context, opts RunOptions) (*domain.RunReport, error) {
	report := &domain.RunReport{
		RunID: uuid.NewString(),
		State: domain.RunStateBootstrapping,
	}
	logger := slog.With("run_id", report.RunID)
	fail := func(err error) (*domain.RunReport, error) {
		report.State = domain.RunStateFailed
		return report, err
	}

	created, err := s.bootstrap.EnsureLedgerTable(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to bootstrap ledger table",
			"operation", "run",
			"stage", report.State,
			"error", err,
		)
		return fail(fmt.Errorf("%w: bootstrap: %w", domain.ErrMigrationFailed, err))
	}
	if created {
		logger.InfoContext(ctx, "created ledger table", "table", domain.LedgerTableName)
	}

	report.State = domain.RunStateDiscovering
	for m, err := range s.locator.Locate(opts.ScriptDir, domain.OpMigrate, opts.Range) {
		if err != nil {
			logger.ErrorContext(ctx, "failed to discover scripts",
				"operation", "run",
				"stage", report.State,
				"script_dir", opts.ScriptDir,
				"error", err,
			)
			return fail(fmt.Errorf("%w: %w", domain.ErrMigrationFailed, err))
		}

		report.State = domain.RunStateApplying
		applied, err := s.apply(ctx, logger, m)
		if err != nil {
			s.recorder.ScriptFailed(m.Filename)
			logger.ErrorContext(ctx, "failed to apply migration",
				"operation", "run",
				"stage", report.State,
				"filename", m.Filename,
				"sequence_id", m.SequenceID,
				"error", err,
			)
			return fail(fmt.Errorf("%w: %s: %w", domain.ErrMigrationFailed, m.Filename, err))
		}
		if applied {
			report.Applied = append(report.Applied, m.Filename)
			report.LastApplied = m.Filename
		} else {
			report.Skipped = append(report.Skipped, m.Filename)
		}
	}

	report.State = domain.RunStateCompleted
	logger.InfoContext(ctx, "migration run completed",
		"applied", len(report.Applied),
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// apply はスクリプト1件を1つのトランザクションで処理する。
// 台帳に同じファイル名とチェックサムの記録があれば何もせず false を返す。
func (s *MigrationService) apply(ctx context.Context, logger *slog.Logger, m *domain.Migration) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "dbdeploy.apply_script", trace.WithAttributes(
		attribute.String("dbdeploy.filename", m.Filename),
		attribute.Int("dbdeploy.sequence_id", m.SequenceID),
	))
	defer span.End()

	start := time.Now()
	applied := false
	batches := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := s.newLedger(tx)

		existing, err := ledger.FindByFilename(ctx, m.Filename)
		if err != nil {
			return fmt.Errorf("looking up ledger: %w", err)
		}
		if m.Equal(existing) {
			return nil
		}

		dialect, err := s.newResolver(tx).ResolveDialect(ctx)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(m.FilePath)
		if err != nil {
			return fmt.Errorf("reading script: %w", err)
		}
		if !bytes.Equal(domain.ContentChecksum(content), m.Checksum) {
			return fmt.Errorf("%w: %s changed after discovery", domain.ErrInvalidMigrationFile, m.Filename)
		}
		statements, err := s.splitter.Split(dialect, m.Filename, string(content))
		if err != nil {
			return err
		}

		for i, stmt := range statements {
			if err := ledger.Execute(ctx, stmt); err != nil {
				return fmt.Errorf("%w: %s batch %d: %w", domain.ErrBatchExecution, m.Filename, i+1, err)
			}
			batches++
		}
		if err := ledger.Insert(ctx, m); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	span.SetAttributes(attribute.Bool("dbdeploy.applied", applied), attribute.Int("dbdeploy.batches", batches))
	if !applied {
		s.recorder.ScriptSkipped(m.Filename)
		logger.InfoContext(ctx, "skipped already applied script",
			"filename", m.Filename,
			"sequence_id", m.SequenceID,
		)
		return false, nil
	}
	s.recorder.ScriptApplied(m.Filename, time.Since(start), batches)
	logger.InfoContext(ctx, "applied migration script",
		"filename", m.Filename,
		"sequence_id", m.SequenceID,
		"batches", batches,
	)
	return true, nil
}

// GetMigrationStatus は範囲内の適用スクリプトごとに台帳との突き合わせ結果を返す。
// 台帳テーブルがなければ全て pending になる。
func (s *MigrationService) GetMigrationStatus(ctx context.Context, dir string, r domain.SequenceRange) ([]*domain.ScriptStatus, error) {
	applied, err := s.ListApplied(ctx)
	if err != nil {
		return nil, err
	}
	byFilename := make(map[string]*domain.Migration, len(applied))
	for _, m := range applied {
		byFilename[m.Filename] = m
	}

	var statuses []*domain.ScriptStatus
	for m, err := range s.locator.Locate(dir, domain.OpMigrate, r) {
		if err != nil {
			return nil, err
		}
		status := domain.MigrationStatusPending
		if existing, ok := byFilename[m.Filename]; ok {
			status = domain.MigrationStatusModified
			if m.Equal(existing) {
				status = domain.MigrationStatusApplied
			}
		}
		statuses = append(statuses, &domain.ScriptStatus{Migration: m, Status: status})
	}
	return statuses, nil
}

// ListApplied は台帳の全件を sequence_id の昇順で返す。台帳テーブルがなければ空を返す。
func (s *MigrationService) ListApplied(ctx context.Context) ([]*domain.Migration, error) {
	ledger := s.newLedger(s.db)
	exists, err := ledger.Exists(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check ledger table",
			"operation", "list_applied",
			"error", err,
		)
		return nil, fmt.Errorf("failed to check ledger table: %w", err)
	}
	if !exists {
		return nil, nil
	}

	migrations, err := ledger.FindAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch applied migrations",
			"operation", "list_applied",
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch applied migrations: %w", err)
	}
	return migrations, nil
}
