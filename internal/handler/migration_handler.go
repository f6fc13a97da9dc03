// Package handler はマイグレーション状態を返すHTTPハンドラを提供する。
package handler

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"

	"dbdeploy/internal/domain"
	"dbdeploy/pkg/httputil"
)

// MigrationQuerier は台帳とスクリプトの状態を返す。
type MigrationQuerier interface {
	ListApplied(ctx context.Context) ([]*domain.Migration, error)
	GetMigrationStatus(ctx context.Context, dir string, r domain.SequenceRange) ([]*domain.ScriptStatus, error)
}

// HealthChecker はデータベースへの疎通を確認する。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// MigrationHandler はHTTPハンドラを提供する。
type MigrationHandler struct {
	service   MigrationQuerier
	health    HealthChecker
	scriptDir string
}

// NewMigrationHandler は新しいMigrationHandlerを生成する。
func NewMigrationHandler(service MigrationQuerier, health HealthChecker, scriptDir string) *MigrationHandler {
	return &MigrationHandler{service: service, health: health, scriptDir: scriptDir}
}

// MigrationResponse は台帳1件のレスポンス形式。
type MigrationResponse struct {
	SequenceID  int    `json:"sequence_id"`
	Operation   string `json:"operation"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
	Checksum    string `json:"checksum"`
}

// MigrationListResponse は台帳一覧のレスポンス形式。
type MigrationListResponse struct {
	Migrations []MigrationResponse `json:"migrations"`
}

// ScriptStatusResponse はスクリプト1件の状態。
type ScriptStatusResponse struct {
	MigrationResponse
	Status string `json:"status"`
}

// StatusResponse はスクリプト状態一覧のレスポンス形式。
type StatusResponse struct {
	Scripts  []ScriptStatusResponse `json:"scripts"`
	Pending  int                    `json:"pending"`
	Modified int                    `json:"modified"`
}

func toMigrationResponse(m *domain.Migration) MigrationResponse {
	return MigrationResponse{
		SequenceID:  m.SequenceID,
		Operation:   m.Operation.String(),
		Description: m.Description,
		Filename:    m.Filename,
		Checksum:    hex.EncodeToString(m.Checksum),
	}
}

// parseRange は lower_id / upper_id クエリを SequenceRange に変換する。
func parseRange(r *http.Request) (domain.SequenceRange, error) {
	var rng domain.SequenceRange
	for key, dst := range map[string]*int{"lower_id": &rng.Lower, "upper_id": &rng.Upper} {
		v := r.URL.Query().Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return rng, err
		}
		*dst = n
	}
	return rng, nil
}

// Health はデータベースに接続できるかを返す。
func (h *MigrationHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		httputil.Error(w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "database is not reachable")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListMigrations は台帳の全件を返す。
func (h *MigrationHandler) ListMigrations(w http.ResponseWriter, r *http.Request) {
	migrations, err := h.service.ListApplied(r.Context())
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	resp := MigrationListResponse{Migrations: make([]MigrationResponse, 0, len(migrations))}
	for _, m := range migrations {
		resp.Migrations = append(resp.Migrations, toMigrationResponse(m))
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// GetStatus はスクリプトディレクトリと台帳を突き合わせた結果を返す。
func (h *MigrationHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_RANGE", "lower_id and upper_id must be integers")
		return
	}

	statuses, err := h.service.GetMigrationStatus(r.Context(), h.scriptDir, rng)
	if err != nil {
		if errors.Is(err, domain.ErrScriptDirNotFound) {
			httputil.Error(w, http.StatusNotFound, "SCRIPT_DIR_NOT_FOUND", "script directory not found")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	resp := StatusResponse{Scripts: make([]ScriptStatusResponse, 0, len(statuses))}
	for _, s := range statuses {
		switch s.Status {
		case domain.MigrationStatusPending:
			resp.Pending++
		case domain.MigrationStatusModified:
			resp.Modified++
		}
		resp.Scripts = append(resp.Scripts, ScriptStatusResponse{
			MigrationResponse: toMigrationResponse(s.Migration),
			Status:            string(s.Status),
		})
	}
	httputil.JSON(w, http.StatusOK, resp)
}
