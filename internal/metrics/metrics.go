package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var initOnce sync.Once

// Sweep subsystem metrics
var (
	// SweepDuration tracks how long sweep passes take
	SweepDuration prometheus.Histogram

	// EntriesRemovedTotal tracks total stale entries removed
	EntriesRemovedTotal prometheus.Counter

	// BytesFreedTotal tracks total bytes freed across all sweeps
	BytesFreedTotal prometheus.Counter

	// RemovalErrorsTotal tracks failed removal attempts
	RemovalErrorsTotal prometheus.Counter

	// ErrorsTotal tracks total daemon-level errors
	ErrorsTotal prometheus.Counter

	// LastSweepTimestamp records Unix timestamp of the last sweep pass
	LastSweepTimestamp prometheus.Gauge

	// RootBytesRemovedTotal tracks bytes removed per sweep root
	RootBytesRemovedTotal *prometheus.CounterVec

	// RootFreeSpacePercent tracks free space percentage per sweep root
	RootFreeSpacePercent *prometheus.GaugeVec
)

// Init initializes all metrics and registers them with Prometheus.
// Safe to call multiple times (uses sync.Once).
func Init() {
	initOnce.Do(func() {
		SweepDuration = NewDurationHistogram(
			"stalesweep_sweep_duration_seconds",
			"Duration of sweep passes in seconds.",
		)

		EntriesRemovedTotal = NewCounter(
			"stalesweep_entries_removed_total",
			"Total number of stale entries removed.",
		)

		BytesFreedTotal = NewCounter(
			"stalesweep_bytes_freed_total",
			"Total bytes freed by stale-sweep.",
		)

		RemovalErrorsTotal = NewCounter(
			"stalesweep_removal_errors_total",
			"Total number of failed removal attempts.",
		)

		ErrorsTotal = NewCounter(
			"stalesweep_daemon_errors_total",
			"Total number of errors encountered by the daemon.",
		)

		LastSweepTimestamp = NewGauge(
			"stalesweep_last_sweep_timestamp",
			"Timestamp of the last sweep pass (Unix epoch seconds).",
		)

		RootBytesRemovedTotal = NewCounterVec(
			"stalesweep_root_bytes_removed_total",
			"Total bytes removed per sweep root.",
			[]string{"root"},
		)

		RootFreeSpacePercent = NewGaugeVec(
			"stalesweep_root_free_space_percent",
			"Current free space percentage on the filesystem of each sweep root.",
			[]string{"root"},
		)

		prometheus.MustRegister(SweepDuration)
		prometheus.MustRegister(EntriesRemovedTotal)
		prometheus.MustRegister(BytesFreedTotal)
		prometheus.MustRegister(RemovalErrorsTotal)
		prometheus.MustRegister(ErrorsTotal)
		prometheus.MustRegister(LastSweepTimestamp)
		prometheus.MustRegister(RootBytesRemovedTotal)
		prometheus.MustRegister(RootFreeSpacePercent)

		// Expose the gauge immediately so /metrics shows it before the
		// first sweep runs.
		LastSweepTimestamp.Set(0)
	})
}

// RecordSweepRun updates the last sweep timestamp to current time
func RecordSweepRun() {
	LastSweepTimestamp.Set(float64(time.Now().Unix()))
}

// RecordRootRemoval records bytes removed under a specific root
func RecordRootRemoval(root string, bytes int64) {
	RootBytesRemovedTotal.WithLabelValues(root).Add(float64(bytes))
}

// UpdateRootFreeSpace updates the free space percentage for a root
func UpdateRootFreeSpace(root string, percent float64) {
	RootFreeSpacePercent.WithLabelValues(root).Set(percent)
}
