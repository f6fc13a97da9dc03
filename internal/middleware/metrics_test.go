package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"dbdeploy/internal/metrics"
)

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	notFound := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/items/{id}", "4xx")
	ok := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/ok", "2xx")
	notFoundBefore := testutil.ToFloat64(notFound)
	okBefore := testutil.ToFloat64(ok)

	for _, path := range []string{"/v1/items/1", "/v1/items/2", "/ok"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(notFound) - notFoundBefore; got != 2 {
		t.Errorf("expected 2 requests on route pattern, got %v", got)
	}
	// WriteHeader を呼ばないハンドラは 200 として数える
	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Errorf("expected 1 ok request, got %v", got)
	}
}

func TestWriteAuditLog(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	WriteAuditLog(context.Background(), AuditLog{
		Operation: "MIGRATE",
		Database:  "inventory",
		RunID:     "run-1",
		Applied:   []string{"M1__a.sql", "M2__b.sql"},
		Result:    ResultSuccess,
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode audit log: %v", err)
	}
	if entry["operation"] != "MIGRATE" || entry["database"] != "inventory" || entry["result"] != ResultSuccess {
		t.Errorf("unexpected audit log: %v", entry)
	}
	if applied, ok := entry["applied"].([]any); !ok || len(applied) != 2 {
		t.Errorf("expected 2 applied scripts, got %v", entry["applied"])
	}
	if entry["timestamp"] == "" || entry["timestamp"] == nil {
		t.Error("expected timestamp")
	}
}
