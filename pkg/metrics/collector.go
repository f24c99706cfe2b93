package metrics

import (
	"strconv"
	"time"

	"github.com/cuemby/xlb/pkg/datastore"
	"github.com/cuemby/xlb/pkg/workqueue"
	"github.com/cuemby/xlb/pkg/xsync"
)

// Collector periodically snapshots a server's in-process state into the
// gauges above. Grounded on the ticker-driven goroutine shape of
// _examples/cuemby-warren/pkg/metrics/collector.go (itself collecting from
// a *manager.Manager on the same 15s cadence) — here it polls this
// server's own Store/WorkQueue/Syncer instead of a cluster manager, since
// this runtime has no Raft-replicated control plane to read from.
type Collector struct {
	store *datastore.Store
	work  *workqueue.WorkQueue
	req   *workqueue.RequestQueue
	sync  *xsync.Syncer

	stopCh chan struct{}
}

// NewCollector creates a collector over one server's store, work queue,
// request queue and syncer.
func NewCollector(store *datastore.Store, work *workqueue.WorkQueue, req *workqueue.RequestQueue, syncer *xsync.Syncer) *Collector {
	return &Collector{store: store, work: work, req: req, sync: syncer, stopCh: make(chan struct{})}
}

// Start begins collecting metrics on a 15s ticker.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectDatastoreMetrics()
	c.collectQueueMetrics()
	c.collectSyncMetrics()
}

func (c *Collector) collectDatastoreMetrics() {
	DatumsLive.Set(float64(c.store.Len()))
}

func (c *Collector) collectQueueMetrics() {
	for typ, depth := range c.work.DepthByKind() {
		label := workTypeLabel(typ)
		QueueDepth.WithLabelValues(label, "untargeted").Set(float64(depth.Untargeted))
		QueueDepth.WithLabelValues(label, "targeted").Set(float64(depth.Targeted))
		QueueDepth.WithLabelValues(label, "parallel").Set(float64(depth.Parallel))
	}
}

func (c *Collector) collectSyncMetrics() {
	PendingSyncRequests.Set(float64(c.sync.PendingCount()))
}

// workTypeLabel formats a work-type int32 as a Prometheus label value.
func workTypeLabel(typ int32) string {
	return strconv.FormatInt(int64(typ), 10)
}
