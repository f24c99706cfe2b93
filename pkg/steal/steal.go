// Package steal implements the work-stealing protocol of spec §4.5: a
// server with no matching queued work for a GET picks a random peer and
// requests a share of its per-type backlog. The computation here is pure —
// peer selection and transfer-size arithmetic — and is driven either by a
// failed GET (spec §4.5 "(a)") or by the idle-detection loop below (spec
// §4.5 "(b)"); the actual SYNC-REQUEST/STEAL exchange that carries this
// plan to a peer lives in pkg/xsync.
package steal

import (
	"math/rand"
	"time"

	"github.com/cuemby/xlb/pkg/workqueue"
)

// Share is the number of tasks of WorkType the peer agreed to transfer.
type Share struct {
	WorkType int32
	Count    int
}

// Plan computes, for each per-type count of the serving server's own
// untargeted backlog (workqueue.WorkQueue.UntargetedCounts), how many
// tasks to transfer: ceil(count/2), capped so the
// cumulative estimated payload does not exceed budgetBytes (spec §4.5).
// Types are visited in the order given, so callers that want larger types
// served first should sort counts beforehand; ties are otherwise broken by
// input order for determinism in tests.
func Plan(counts []workqueue.TypeCount, budgetBytes int64) []Share {
	var shares []Share
	var spent int64
	for _, tc := range counts {
		if tc.Count <= 0 {
			continue
		}
		want := (tc.Count + 1) / 2
		if want <= 0 {
			continue
		}
		if tc.AvgBytes > 0 {
			afford := int((budgetBytes - spent) / tc.AvgBytes)
			if afford < want {
				want = afford
			}
		}
		if want <= 0 {
			continue
		}
		shares = append(shares, Share{WorkType: tc.WorkType, Count: want})
		spent += int64(want) * tc.AvgBytes
	}
	return shares
}

// PeerSelector draws a random peer server index, excluding self, from the
// fixed set of servers (spec §2: a fixed cluster of N ranks). It is not
// safe for concurrent use, matching every other package in this module:
// callers only ever invoke it from their own server's single-threaded event
// loop (spec §5).
type PeerSelector struct {
	self       int64
	numServers int32
	rnd        *rand.Rand
}

// NewPeerSelector builds a selector for the server at zero-based server
// index self among numServers servers; the caller maps indices to and from
// cluster ranks (servers are the last S ranks). seed is exposed for deterministic tests; production callers
// should seed from a real time source once at startup.
func NewPeerSelector(self int64, numServers int32, seed int64) *PeerSelector {
	return &PeerSelector{self: self, numServers: numServers, rnd: rand.New(rand.NewSource(seed))}
}

// Pick returns a random server index other than self. It returns
// (0, false) when numServers <= 1, since there is no other server to steal
// from.
func (p *PeerSelector) Pick() (int64, bool) {
	if p.numServers <= 1 {
		return 0, false
	}
	for {
		r := int64(p.rnd.Int31n(p.numServers))
		if r != p.self {
			return r, true
		}
	}
}

// IdleDetector tracks how long the server has been idle (no work matched),
// the trigger for spec §4.5's "(b) idle-detection daemon loop" path. It
// runs no ticker and takes no callback: the caller's own event loop polls
// ShouldSteal each tick. Grounded on the single-goroutine ticker pattern of
// _examples/cuemby-warren/pkg/reconciler/reconciler.go's run loop, reduced
// to that time comparison — this package never starts its own goroutine,
// since all steal decisions must execute on the server's single-threaded
// loop (spec §5).
type IdleDetector struct {
	interval time.Duration
	lastWork time.Time
}

// NewIdleDetector creates a detector that considers the server idle once
// interval has elapsed since the last successful match.
func NewIdleDetector(interval time.Duration) *IdleDetector {
	return &IdleDetector{interval: interval, lastWork: time.Now()}
}

// NoteWork resets the idle clock; call this whenever a GET/IGET is
// satisfied without stealing.
func (d *IdleDetector) NoteWork() {
	d.lastWork = time.Now()
}

// ShouldSteal reports whether interval has elapsed since the last
// NoteWork, meaning the server's event loop should attempt a steal on its
// next tick.
func (d *IdleDetector) ShouldSteal(now time.Time) bool {
	return now.Sub(d.lastWork) >= d.interval
}
