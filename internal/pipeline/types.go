package pipeline

import (
	"time"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/normalize"
)

// State is the refresh state of the controller
type State string

const (
	StateIdle       State = "idle"
	StateRefreshing State = "refreshing"
)

// Config holds the refresh cadence and time limits of the controller
type Config struct {
	Interval       time.Duration // Time between automatic pulls
	PullTimeout    time.Duration // Upper bound of one pull, expiry counts as a failure
	CommandTimeout time.Duration // Upper bound of one forwarded sell/refill command
}

// DefaultConfig returns the defaults observed in production
func DefaultConfig() Config {
	return Config{
		Interval:       2 * time.Second,
		PullTimeout:    10 * time.Second,
		CommandTimeout: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.PullTimeout <= 0 {
		c.PullTimeout = def.PullTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = def.CommandTimeout
	}
	return c
}

// Status is the connectivity state exposed to callers
type Status struct {
	State               State      `json:"state"`
	Source              string     `json:"source"`
	Connected           bool       `json:"connected"`
	LastError           string     `json:"last_error,omitempty"`
	LastAttemptAt       *time.Time `json:"last_attempt_at,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastDuration        string     `json:"last_duration,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	SnapshotVersion     uint64     `json:"snapshot_version"`
	Refreshes           int64      `json:"refreshes"`
	Failures            int64      `json:"failures"`
}

// RefreshOutcome describes one finished pull attempt
type RefreshOutcome struct {
	Snapshot *domain.Snapshot // nil when the pull failed
	Report   normalize.Report
	Duration time.Duration
	Err      error
	// Unchanged is set when the upstream reported the same revision as the last pull;
	// Snapshot is then the current one and its version did not move.
	Unchanged bool
}

// Listener is notified after every pull attempt, successful or not
type Listener func(RefreshOutcome)
