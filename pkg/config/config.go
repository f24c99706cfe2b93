// Package config loads the cluster topology file and environment overrides
// that drive a server or worker process (spec §2 "N ranks, of which the
// last S are servers", §6 "Environment variables consumed by the core").
//
// Grounded on the teacher's plain-struct config pattern
// (_examples/cuemby-warren/pkg/manager/manager.Config,
// pkg/worker/worker.Config): a small struct the process entrypoint builds
// and hands to the component constructor, plus gopkg.in/yaml.v3 (already a
// teacher dependency) for loading it from a file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/xlb/pkg/checkpoint"
)

// HostmapMode mirrors ADLB_HOSTMAP_MODE's enum (spec §6).
type HostmapMode string

const (
	HostmapEnabled HostmapMode = "ENABLED"
	HostmapLeaders HostmapMode = "LEADERS"
	HostmapDisabled HostmapMode = "DISABLED"
)

// Cluster is the topology file: rank count, server/worker split, and the
// per-server tunables spec §4.6 and §4.3 leave as deployment choices.
type Cluster struct {
	// Ranks is N, the total rank count. Servers is S, the number of
	// trailing ranks that act as servers (spec §2: "the last S are
	// servers"); Workers = Ranks - Servers.
	Ranks   int32 `yaml:"ranks"`
	Servers int32 `yaml:"servers"`

	// Peers maps rank -> "host:port" for pkg/transport.TCPTransport.Connect.
	Peers map[int32]string `yaml:"peers"`

	Checkpoint CheckpointConfig `yaml:"checkpoint"`

	// InlineThreshold is the payload size (bytes) below which a PUT's
	// payload is carried with the descriptor rather than streamed in a
	// follow-up message (spec §4.3 step 3).
	InlineThreshold int `yaml:"inline_threshold"`

	// StealBudgetBytes caps the cumulative payload size a single steal
	// transfers (spec §4.5).
	StealBudgetBytes int64 `yaml:"steal_budget_bytes"`

	// PendingSyncCap bounds pkg/xsync.Syncer's pending_requests queue
	// (spec §4.4).
	PendingSyncCap int `yaml:"pending_sync_cap"`

	Env Env `yaml:"-"`
}

// CheckpointConfig configures pkg/checkpoint.Writer (spec §4.6).
type CheckpointConfig struct {
	BlockSize int64  `yaml:"block_size"`
	Path      string `yaml:"path"`
	Flush     FlushConfig `yaml:"flush"`
}

// FlushConfig mirrors checkpoint.FlushPolicy in a yaml-friendly shape.
type FlushConfig struct {
	Mode     string        `yaml:"mode"` // "none", "periodic", "always"
	Interval time.Duration `yaml:"interval"`
}

// Worker returns W, the number of worker ranks (spec §2: "W = N - S").
func (c Cluster) Worker() int32 { return c.Ranks - c.Servers }

// HomeServer returns the rank this worker w is permanently bound to (spec
// §2: "server(w) = W + (w mod S)").
func (c Cluster) HomeServer(w int32) int32 {
	return c.Worker() + (w % c.Servers)
}

// HomeServerForID returns the home server of a data object id (spec §2:
// "W + ((id mod S + S) mod S)"); negative ids distribute identically.
func (c Cluster) HomeServerForID(id int64) int32 {
	s := int64(c.Servers)
	m := ((id % s) + s) % s
	return c.Worker() + int32(m)
}

// ToFlushPolicy converts FlushConfig to the checkpoint package's native
// policy type.
func (f FlushConfig) ToFlushPolicy() checkpoint.FlushPolicy {
	var mode checkpoint.FlushMode
	switch f.Mode {
	case "periodic":
		mode = checkpoint.PeriodicFlush
	case "always":
		mode = checkpoint.AlwaysFlush
	default:
		mode = checkpoint.NoFlush
	}
	return checkpoint.FlushPolicy{Mode: mode, Interval: f.Interval}
}

// Load reads and parses a cluster topology file, then applies Env overrides
// gathered from the process environment.
func Load(path string) (*Cluster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var c Cluster
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if c.Servers <= 0 || c.Servers > c.Ranks {
		return nil, fmt.Errorf("config: invalid servers=%d for ranks=%d", c.Servers, c.Ranks)
	}
	if c.Checkpoint.BlockSize == 0 {
		c.Checkpoint.BlockSize = 4 << 20 // 4 MiB default (spec §4.6)
	}
	if c.InlineThreshold == 0 {
		c.InlineThreshold = 256
	}
	if c.PendingSyncCap == 0 {
		c.PendingSyncCap = 64
	}

	c.Env = LoadEnv()
	return &c, nil
}

// Env mirrors spec §6's "Environment variables consumed by the core".
type Env struct {
	Debug           bool
	Trace           bool
	ReportLeaks     bool
	DisableHostmap  bool
	HostmapMode     HostmapMode
}

// LoadEnv reads ADLB_DEBUG, ADLB_TRACE, ADLB_REPORT_LEAKS,
// ADLB_DISABLE_HOSTMAP and ADLB_HOSTMAP_MODE from the process environment.
// Each boolean flag follows spec §6's "0 to silence" convention: a value
// that parses as the integer 0 disables it and any other value enables it.
// An unset flag takes its default: ADLB_DEBUG and ADLB_TRACE on,
// ADLB_REPORT_LEAKS and ADLB_DISABLE_HOSTMAP off.
func LoadEnv() Env {
	return Env{
		Debug:          envBool("ADLB_DEBUG", true),
		Trace:          envBool("ADLB_TRACE", true),
		ReportLeaks:    envBool("ADLB_REPORT_LEAKS", false),
		DisableHostmap: envBool("ADLB_DISABLE_HOSTMAP", false),
		HostmapMode:    envHostmapMode("ADLB_HOSTMAP_MODE", HostmapEnabled),
	}
}

func envBool(name string, defaultVal bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return defaultVal
	}
	if v == "0" {
		return false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n != 0
	}
	return true
}

func envHostmapMode(name string, defaultVal HostmapMode) HostmapMode {
	v, ok := os.LookupEnv(name)
	if !ok {
		return defaultVal
	}
	switch HostmapMode(v) {
	case HostmapEnabled, HostmapLeaders, HostmapDisabled:
		return HostmapMode(v)
	default:
		return defaultVal
	}
}
