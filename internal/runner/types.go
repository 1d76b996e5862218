package runner

import (
	"time"

	"songbench/internal/user"
)

type Config struct {
	Behavior user.Behavior `json:"behavior"`

	// Load shape
	Shape     string        `json:"shape"` // "constant" or "stages"
	TargetRPS int           `json:"target_rps"`
	Duration  time.Duration `json:"duration"`

	// How often the shape is polled
	PollInterval time.Duration `json:"poll_interval"`
	Timeout      time.Duration `json:"timeout"` // per request, 0 = none

	OutPrefix string `json:"-"`
}

// TotalDuration is the nominal length of a run, used for progress display.
func (c Config) TotalDuration() time.Duration {
	return c.Duration
}

type ExperimentResult struct {
	TimeStamp   time.Time     `json:"timestamp"`
	ServiceTime time.Duration `json:"service_time"`
	Task        string        `json:"task"`
	URL         string        `json:"url"`
	Status      int           `json:"status"`
	Success     bool          `json:"success"`
	Bytes       int64         `json:"bytes"`
	UserID      string        `json:"user_id"`
	Error       string        `json:"error,omitempty"`
}

func resultFromOutcome(o user.Outcome) ExperimentResult {
	return ExperimentResult{
		TimeStamp:   o.Start,
		ServiceTime: o.ServiceTime,
		Task:        o.Task,
		URL:         o.URL,
		Status:      o.Status,
		Success:     o.Success(),
		Bytes:       o.Bytes,
		UserID:      o.UserID,
		Error:       o.ErrorString(),
	}
}
