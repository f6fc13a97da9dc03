package metrics

import (
	"context"
	"log/slog"
	"time"

	"dbdeploy/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ledgerEntriesDesc = prometheus.NewDesc(
		"dbdeploy_ledger_entries",
		"Number of scripts recorded in the migration ledger",
		nil, nil)

	ledgerLastSequenceDesc = prometheus.NewDesc(
		"dbdeploy_ledger_last_sequence_id",
		"Highest sequence id recorded in the migration ledger",
		nil, nil)

	ledgerUpDesc = prometheus.NewDesc(
		"dbdeploy_ledger_up",
		"Whether the migration ledger could be read (1) or not (0)",
		nil, nil)
)

// LedgerReader は台帳の全件を返す。
type LedgerReader interface {
	ListApplied(ctx context.Context) ([]*domain.Migration, error)
}

var _ prometheus.Collector = (*LedgerCollector)(nil)

// LedgerCollector は scrape のたびに台帳を読み、件数と最新の sequence_id を公開する。
type LedgerCollector struct {
	reader  LedgerReader
	timeout time.Duration
}

// NewLedgerCollector は新しいLedgerCollectorを生成する。
func NewLedgerCollector(reader LedgerReader, timeout time.Duration) *LedgerCollector {
	return &LedgerCollector{reader: reader, timeout: timeout}
}

// Describe はコレクタの全ての記述子を返す。
func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- ledgerEntriesDesc
	ch <- ledgerLastSequenceDesc
	ch <- ledgerUpDesc
}

// Collect は台帳を読み込んでメトリクスを送る。読み込みに失敗した場合は up=0 のみ送る。
func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	migrations, err := c.reader.ListApplied(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read ledger for metrics",
			"operation", "collect_ledger",
			"error", err,
		)
		ch <- prometheus.MustNewConstMetric(ledgerUpDesc, prometheus.GaugeValue, 0)
		return
	}

	last := 0
	for _, m := range migrations {
		last = max(last, m.SequenceID)
	}
	ch <- prometheus.MustNewConstMetric(ledgerUpDesc, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(ledgerEntriesDesc, prometheus.GaugeValue, float64(len(migrations)))
	ch <- prometheus.MustNewConstMetric(ledgerLastSequenceDesc, prometheus.GaugeValue, float64(last))
}
