/*
Package metrics provides Prometheus metrics collection and exposition for xlb.

The metrics package defines and registers all of a server's metrics using the
Prometheus client library, providing observability into work queue depth,
data store residency, steal activity, sync protocol round trips, checkpoint
log throughput, and RPC dispatch latency. Metrics are exposed via an HTTP
endpoint for scraping by Prometheus servers.

# Architecture

xlb's metrics system follows Prometheus best practices with comprehensive
instrumentation across all components:

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  │  - Automatic Go runtime metrics             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │                                              │          │
	│  │  Gauge: Instant values (queue depth)        │          │
	│  │  Counter: Monotonic increases (steals)      │          │
	│  │  Histogram: Distributions (sync latency)    │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  WorkQueue: Depth, matches, match latency   │          │
	│  │  Datastore: Live/leaked datums, rejects     │          │
	│  │  Steal: Count, units moved, round trip time │          │
	│  │  Sync: Round trips, latency, pending count  │          │
	│  │  Checkpoint: Records, bytes, CRC failures   │          │
	│  │  RPC: Request count, dispatch duration      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	└─────────────────────▼──────────────────────────────────────┘
	                  Prometheus Server

# Metrics Catalog

WorkQueue Metrics:

xlb_queue_depth{work_type, kind}:
  - Type: Gauge
  - Description: Queued work units by work type and kind (untargeted, targeted, parallel)
  - Example: xlb_queue_depth{work_type="3",kind="untargeted"} 12

xlb_parked_workers{work_type}:
  - Type: Gauge
  - Description: Parked worker ranks currently blocked in GET, by work type
  - Example: xlb_parked_workers{work_type="3"} 2

xlb_matches_total{work_type, path}:
  - Type: Counter
  - Description: Total PUT/GET matches by work type and path (redirect, queued_then_matched)
  - Example: xlb_matches_total{work_type="3",path="redirect"} 1000

xlb_match_latency_seconds{work_type}:
  - Type: Histogram
  - Description: Time between a PUT and its eventual matching GET, in seconds

Datastore Metrics:

xlb_datums_live:
  - Type: Gauge
  - Description: Number of datums currently resident in this server's store shard
  - Example: xlb_datums_live 4213

xlb_datums_leaked:
  - Type: Gauge
  - Description: Number of datums still resident at the most recent Finalize (ADLB_REPORT_LEAKS)
  - Example: xlb_datums_leaked 0

xlb_refcount_rejects_total{sub_kind}:
  - Type: Counter
  - Description: Rejected data-store operations by sub-kind (double_declare, double_write, not_found, ...)

Steal Metrics:

xlb_steals_total{work_type}:
  - Type: Counter
  - Description: Total completed steals by work type

xlb_steal_units_total{work_type}:
  - Type: Counter
  - Description: Total work units transferred by steals, by work type

xlb_steal_latency_seconds:
  - Type: Histogram
  - Description: Time taken for a steal round trip in seconds

Sync Protocol Metrics:

xlb_sync_round_trips_total{outcome}:
  - Type: Counter
  - Description: Total sync initiations by outcome (accepted, rejected, deferred)

xlb_sync_latency_seconds:
  - Type: Histogram
  - Description: Time from SYNC-REQUEST to acceptance, in seconds

xlb_pending_sync_requests:
  - Type: Gauge
  - Description: Deferred lower-rank sync requests awaiting this server's current sync to complete

Checkpoint Log Metrics:

xlb_checkpoint_records_total{direction}:
  - Type: Counter
  - Description: Total checkpoint log records written or read, by direction (write, read)

xlb_checkpoint_bytes_total{direction}:
  - Type: Counter
  - Description: Total checkpoint log bytes written or read, by direction (write, read)

xlb_checkpoint_crc_failures_total:
  - Type: Counter
  - Description: Total records reported INVALID during checkpoint log reads (CRC mismatch or oversized length)

xlb_checkpoint_flush_duration_seconds:
  - Type: Histogram
  - Description: Time taken to flush the checkpoint log's write buffer

RPC Metrics:

xlb_rpc_requests_total{tag, outcome}:
  - Type: Counter
  - Description: Total RPC requests dispatched by tag and outcome

xlb_rpc_request_duration_seconds{tag}:
  - Type: Histogram
  - Description: RPC handler duration in seconds, by tag

# Usage

Updating Gauge Metrics:

	import "github.com/cuemby/xlb/pkg/metrics"

	// Set absolute value
	metrics.DatumsLive.Set(4213)

	// Per-label gauge
	metrics.QueueDepth.WithLabelValues("3", "untargeted").Set(12)

Updating Counter Metrics:

	// Increment by 1
	metrics.StealsTotal.WithLabelValues("3").Inc()

	// Add arbitrary value
	metrics.StealUnitsTotal.WithLabelValues("3").Add(6)

Recording Histogram Observations:

	// Direct observation
	metrics.SyncLatency.Observe(0.004) // 4ms

	// Using Timer helper
	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.StealLatency)

Using Timer with Labels:

	timer := metrics.NewTimer()
	// ... dispatch an RPC ...
	timer.ObserveDurationVec(metrics.RPCRequestDuration, tag.String())

Complete Example:

	package main

	import (
		"net/http"
		"github.com/cuemby/xlb/pkg/metrics"
	)

	func main() {
		collector := metrics.NewCollector(store, work, req, syncer)
		collector.Start()
		defer collector.Stop()

		// Expose metrics endpoint
		http.Handle("/metrics", metrics.Handler())
		http.ListenAndServe(":9090", nil)
	}

# Integration Points

This package integrates with:

  - pkg/workqueue: Reports queue depth and match counts
  - pkg/datastore: Reports live datum count and refcount rejects
  - pkg/steal: Records steal counts and round-trip latency
  - pkg/xsync: Records sync round trips and pending request depth
  - pkg/checkpoint: Records log throughput and CRC failures
  - pkg/rpcserver: Instruments per-tag RPC dispatch duration
  - Prometheus: Scrapes /metrics endpoint

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration
  - Ensures metrics available before main()
  - No runtime registration needed

Label Discipline:
  - Use WithLabelValues for cardinality-bounded labels
  - Avoid high-cardinality labels (datum IDs, timestamps)
  - Work type is a small bounded integer domain per cluster, safe as a label
  - Keep label count low (< 5 per metric)

Timer Pattern:
  - Create timer at operation start
  - Defer or explicitly call ObserveDuration
  - Automatically calculates elapsed time
  - Supports both simple and vector histograms

Collector Pattern:
  - pkg/metrics.Collector polls a server's Store/WorkQueue/Syncer on a 15s
    ticker (same cadence and single-goroutine shape as the teacher's
    collector), rather than every call site updating gauges inline
  - Counters (steals, matches, sync outcomes) are still incremented inline
    at the call site, since they record discrete events a poll would miss

# Performance Characteristics

Metric Update Overhead:
  - Gauge set/inc: ~50ns per operation
  - Counter inc: ~50ns per operation
  - Histogram observe: ~200ns per operation
  - Labels: +100ns per label value
  - Negligible impact on the server's hot loop

Memory Usage:
  - Per metric: ~1KB baseline
  - Per label combination: ~100 bytes
  - Histogram buckets: ~50 bytes each
  - Total: a few MB for a typical cluster's work-type cardinality

Scrape Performance:
  - Metrics gathering: ~1-5ms for full scrape
  - HTTP response: ~10ms for typical metric set
  - Recommendation: Scrape interval ≥ 15s
  - Concurrent scrapes: Safe (read-only)

Cardinality Management:
  - Low cardinality: work_type, kind, outcome, direction (< 20 values)
  - Medium cardinality: RPC tag (< 30 values)
  - Avoid: datum IDs, rank numbers as labels (unbounded across large clusters)
  - Best practice: Aggregate high-cardinality detail in logs, not labels

# Troubleshooting

Common Issues:

Missing Metrics:
  - Symptom: Metric not appearing in /metrics output
  - Check: Metric registered in init() function
  - Check: MustRegister called (panics if duplicate)
  - Solution: Verify metric variable is exported

High Cardinality:
  - Symptom: Prometheus memory usage grows
  - Cause: Using datum IDs or unbounded values as labels
  - Check: Label cardinality (count unique combinations)
  - Solution: Remove high-cardinality labels, aggregate differently

Histogram Bucket Mismatch:
  - Symptom: No data in desired percentiles
  - Cause: Buckets don't cover observed value range
  - Check: Histogram sum / count for average
  - Solution: Customize buckets for value range

Stale Metrics:
  - Symptom: Queue depth / datum gauges not updating
  - Cause: Collector not started, or ticker stopped
  - Check: Collector.Start() called once per server process
  - Solution: Verify Start()/Stop() lifecycle around the server loop

# Monitoring

Prometheus Queries (PromQL):

Work Queue Health:
  - Total queued units: sum(xlb_queue_depth)
  - Untargeted backlog: xlb_queue_depth{kind="untargeted"}
  - Match rate: rate(xlb_matches_total[1m])

Datastore Health:
  - Live datums: xlb_datums_live
  - Leak count after shutdown: xlb_datums_leaked
  - Refcount reject rate: rate(xlb_refcount_rejects_total[5m])

Steal Activity:
  - Steal rate: rate(xlb_steals_total[1m])
  - p95 steal latency: histogram_quantile(0.95, xlb_steal_latency_seconds_bucket)

Sync Protocol Health:
  - Sync rejection rate: rate(xlb_sync_round_trips_total{outcome="rejected"}[1m])
  - p99 sync latency: histogram_quantile(0.99, xlb_sync_latency_seconds_bucket)
  - Pending depth: xlb_pending_sync_requests

Checkpoint Health:
  - Write rate: rate(xlb_checkpoint_records_total{direction="write"}[1m])
  - CRC failure rate: rate(xlb_checkpoint_crc_failures_total[5m])

RPC Performance:
  - Request rate: rate(xlb_rpc_requests_total[1m])
  - p95 dispatch latency: histogram_quantile(0.95, xlb_rpc_request_duration_seconds_bucket)

# Alerting Rules

Recommended Prometheus alerts:

Growing Untargeted Backlog:
  - Alert: xlb_queue_depth{kind="untargeted"} > 10000
  - Description: Untargeted work is accumulating faster than workers drain it
  - Action: Check worker liveness, consider adding ranks

Datum Leak at Shutdown:
  - Alert: xlb_datums_leaked > 0
  - Description: Finalize found datums with outstanding refcounts
  - Action: Check application for missing store_complete/permanent calls

Checkpoint CRC Failures:
  - Alert: rate(xlb_checkpoint_crc_failures_total[5m]) > 0
  - Description: Checkpoint log records are failing CRC validation
  - Action: Check disk health, confirm block size consistency on resume

Sync Rejection Storm:
  - Alert: rate(xlb_sync_round_trips_total{outcome="rejected"}[1m]) > 1
  - Description: A server's pending sync queue is saturating
  - Action: Check for a stuck peer holding a sync outstanding, raise pendingCap

# Grafana Dashboards

Recommended dashboard panels:

Work Queue Overview:
  - Time series: Queue depth by work type and kind
  - Time series: Match rate
  - Heatmap: Match latency distribution

Datastore Overview:
  - Single stat: Live datums
  - Single stat: Leaked datums (post-shutdown)
  - Time series: Refcount reject rate by sub_kind

Steal and Sync:
  - Time series: Steals and units moved per second
  - Time series: Sync round trips by outcome
  - Single stat: Pending sync requests

Checkpoint:
  - Time series: Records/bytes written and read
  - Single stat: CRC failure count

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
  - PromQL tutorial: https://prometheus.io/docs/prometheus/latest/querying/basics/
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
