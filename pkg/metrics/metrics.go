package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Work queue metrics (pkg/workqueue)
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xlb_queue_depth",
			Help: "Queued work units by type and kind (untargeted, targeted, parallel)",
		},
		[]string{"work_type", "kind"},
	)

	ParkedWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xlb_parked_workers",
			Help: "Parked worker ranks by work type",
		},
		[]string{"work_type"},
	)

	MatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlb_matches_total",
			Help: "Total PUT/GET matches by work type and path (redirect, queued_then_matched)",
		},
		[]string{"work_type", "path"},
	)

	MatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xlb_match_latency_seconds",
			Help:    "Time between a PUT and its eventual matching GET, in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"work_type"},
	)

	// Data store metrics (pkg/datastore)
	DatumsLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xlb_datums_live",
			Help: "Number of datums currently resident in this server's store shard",
		},
	)

	DatumsLeaked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xlb_datums_leaked",
			Help: "Number of datums still resident at the most recent Finalize (ADLB_REPORT_LEAKS)",
		},
	)

	RefcountRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlb_refcount_rejects_total",
			Help: "Rejected data-store operations by sub-kind (double_declare, double_write, not_found, ...)",
		},
		[]string{"sub_kind"},
	)

	// Steal protocol metrics (pkg/steal)
	StealsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlb_steals_total",
			Help: "Total completed steals by work type",
		},
		[]string{"work_type"},
	)

	StealUnitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlb_steal_units_total",
			Help: "Total work units transferred by steals, by work type",
		},
		[]string{"work_type"},
	)

	StealLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xlb_steal_latency_seconds",
			Help:    "Time taken for a steal round trip in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sync protocol metrics (pkg/xsync)
	SyncRoundTripsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlb_sync_round_trips_total",
			Help: "Total sync initiations by outcome (accepted, rejected, deferred)",
		},
		[]string{"outcome"},
	)

	SyncLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xlb_sync_latency_seconds",
			Help:    "Time from SYNC-REQUEST to acceptance, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PendingSyncRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xlb_pending_sync_requests",
			Help: "Deferred lower-rank sync requests awaiting this server's current sync to complete",
		},
	)

	// Checkpoint log metrics (pkg/checkpoint)
	CheckpointRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlb_checkpoint_records_total",
			Help: "Total checkpoint log records written or read, by direction (write, read)",
		},
		[]string{"direction"},
	)

	CheckpointBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlb_checkpoint_bytes_total",
			Help: "Total checkpoint log bytes written or read, by direction (write, read)",
		},
		[]string{"direction"},
	)

	CheckpointCRCFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xlb_checkpoint_crc_failures_total",
			Help: "Total records reported INVALID during checkpoint log reads (CRC mismatch or oversized length)",
		},
	)

	CheckpointFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xlb_checkpoint_flush_duration_seconds",
			Help:    "Time taken to flush the checkpoint log's write buffer",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RPC server metrics (pkg/rpcserver)
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xlb_rpc_requests_total",
			Help: "Total RPC requests dispatched by tag and outcome",
		},
		[]string{"tag", "outcome"},
	)

	RPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xlb_rpc_request_duration_seconds",
			Help:    "RPC handler duration in seconds, by tag",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tag"},
	)
)

func init() {
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(ParkedWorkers)
	prometheus.MustRegister(MatchesTotal)
	prometheus.MustRegister(MatchLatency)

	prometheus.MustRegister(DatumsLive)
	prometheus.MustRegister(DatumsLeaked)
	prometheus.MustRegister(RefcountRejectsTotal)

	prometheus.MustRegister(StealsTotal)
	prometheus.MustRegister(StealUnitsTotal)
	prometheus.MustRegister(StealLatency)

	prometheus.MustRegister(SyncRoundTripsTotal)
	prometheus.MustRegister(SyncLatency)
	prometheus.MustRegister(PendingSyncRequests)

	prometheus.MustRegister(CheckpointRecordsTotal)
	prometheus.MustRegister(CheckpointBytesTotal)
	prometheus.MustRegister(CheckpointCRCFailuresTotal)
	prometheus.MustRegister(CheckpointFlushDuration)

	prometheus.MustRegister(RPCRequestsTotal)
	prometheus.MustRegister(RPCRequestDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
