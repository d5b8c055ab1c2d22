// Package config holds the typed option tree the indexer core reads
// (spec.md §6). Reading these values from a file on disk is an explicit
// non-goal (spec.md §1) — callers build a MainConfig however they like
// (flags, env, a config format of their choosing) and hand it to the
// Facade.
package config

import "time"

var AppVersion = "-unset-" // set at build time by the embedding binary

const (
	// NNTP protocol constants.
	DOT  = "."
	CR   = "\r"
	LF   = "\n"
	CRLF = CR + LF

	// Defaults for options the core reads (spec.md §6 table).
	DefaultXOverSpan      = 100
	DefaultBackfill       = 1000
	DefaultWorkerCount    = 5
	DefaultQueueDepth     = 256
	DefaultCommandTimeout = 30 * time.Second
	DefaultConnectTimeout = 30 * time.Second
)

// MainConfig is the option tree the core reads.
type MainConfig struct {
	Servers       []Server `json:"servers"`
	Groups        []string `json:"groups"`         // initial watch set
	RegexpFile    string   `json:"regexp_file"`    // path to matcher template file
	WorkerCount   int      `json:"worker_count"`   // default 5
	Backfill      int      `json:"backfill"`       // default 1000
	QueueDepth    int      `json:"queue_depth"`    // bounded task queue capacity
	CommandTimeout time.Duration `json:"command_timeout"` // per GROUP/XOVER/LIST command
	AppVersion    string   `json:"app_version"`
}

// Server is one NNTP provider entry.
type Server struct {
	Name        string        `json:"name"`
	Host        string        `json:"host"`
	Port        int           `json:"port"`
	Username    string        `json:"username"`
	Password    string        `json:"password"`
	SSL         bool          `json:"ssl"`
	Connections int           `json:"connections"` // per-server session cap C
	XOverSpan   int           `json:"xover_span"`  // default 100, must be >= 1
	// RatePerSec bounds commands/sec against this server; 0 = unlimited.
	RatePerSec float64 `json:"rate_per_sec"`
}

// NewDefaultConfig returns a configuration with the defaults spec.md §6
// names, one localhost provider, and no watched groups.
func NewDefaultConfig() *MainConfig {
	return &MainConfig{
		Servers: []Server{
			{
				Name:        "localhost",
				Host:        "localhost",
				Port:        119,
				SSL:         false,
				Connections: 1,
				XOverSpan:   DefaultXOverSpan,
			},
		},
		WorkerCount:    DefaultWorkerCount,
		Backfill:       DefaultBackfill,
		QueueDepth:     DefaultQueueDepth,
		CommandTimeout: DefaultCommandTimeout,
		AppVersion:     AppVersion,
	}
}

// Normalize fills in zero-valued fields with their documented defaults, the
// way the teacher's flag-parsing clamps bad CLI input instead of failing.
func (c *MainConfig) Normalize() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.Backfill <= 0 {
		c.Backfill = DefaultBackfill
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	for i := range c.Servers {
		if c.Servers[i].Connections <= 0 {
			c.Servers[i].Connections = 1
		}
		if c.Servers[i].XOverSpan <= 0 {
			c.Servers[i].XOverSpan = DefaultXOverSpan
		}
	}
}
