// Package metrics holds the Prometheus collectors of the bot and the sync
// worker. Collectors register on the default registry and are served by
// promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stripbot"

// ─── Pipeline ───────────────────────────────────────────────────────────────

// PipelineMessages counts messages run through the scanner.
var PipelineMessages = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "pipeline",
	Name:      "messages_total",
	Help:      "Total messages scanned for numbers.",
})

// PipelineValues counts classified values by kind.
var PipelineValues = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "pipeline",
	Name:      "values_total",
	Help:      "Total classified values by kind (amount, charge).",
}, []string{"kind"})

// PipelineParseErrors counts tokens the normalizer rejected.
var PipelineParseErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "pipeline",
	Name:      "parse_errors_total",
	Help:      "Total numeric tokens that could not be interpreted.",
})

// ─── Ledger ─────────────────────────────────────────────────────────────────

var LedgerDeposits = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "deposits_total",
	Help:      "Total deposits recorded.",
})

// LedgerValidationErrors counts rejected user input by field (bank, deposit, limit).
var LedgerValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "validation_errors_total",
	Help:      "Total rejected ledger inputs by field.",
}, []string{"field"})

// ─── Sync ───────────────────────────────────────────────────────────────────

// SyncResults counts sync attempts by result (synced, stale, failed).
var SyncResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "sync",
	Name:      "results_total",
	Help:      "Total ledger sync attempts by result.",
}, []string{"result"})

// Sync result labels.
const (
	SyncSynced = "synced"
	SyncStale  = "stale"
	SyncFailed = "failed"
)
