package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bridge_relay"

var (
	ScannedBlockGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scanned_block_height",
		Help:      "Latest block height covered by a scan",
	}, []string{"role"})

	EventsFoundCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_found_total",
		Help:      "Deposit/Unwrap events returned by eth_getLogs",
	}, []string{"role", "event"})

	EventsSkippedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_skipped_total",
		Help:      "Events skipped because they were relayed before",
	}, []string{"role"})

	ActionsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Mirrored transactions by outcome",
	}, []string{"role", "method", "status"})

	ScansCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Completed scans by outcome",
	}, []string{"role", "status"})
)
