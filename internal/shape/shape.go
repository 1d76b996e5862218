package shape

import (
	"fmt"
	"time"
)

// Target is what a shape asks the scheduler for on a single poll.
type Target struct {
	Users     int
	SpawnRate float64 // users started per second
}

// Shape maps elapsed run time to a desired load. The bool is false once the
// shape wants the run to end.
type Shape interface {
	Tick(runTime time.Duration) (Target, bool)
}

const (
	KindConstant = "constant"
	KindStages   = "stages"
)

// ConstantRPS keeps TargetRPS users alive, spawned at TargetRPS users/s,
// until Duration has passed. It is open-loop: the user count stands in for
// the request rate, and the rate actually reached depends on response
// latency plus think-time.
type ConstantRPS struct {
	TargetRPS int
	Duration  time.Duration
}

func (c ConstantRPS) Tick(runTime time.Duration) (Target, bool) {
	if runTime > c.Duration {
		return Target{}, false
	}

	return Target{
		Users:     c.TargetRPS,
		SpawnRate: float64(c.TargetRPS),
	}, true
}

// Stages ramps linearly to Peak over RampUp, holds it for Steady and ramps
// back down over RampDown.
type Stages struct {
	Peak     int
	RampUp   time.Duration
	Steady   time.Duration
	RampDown time.Duration
}

func (s Stages) total() time.Duration {
	return s.RampUp + s.Steady + s.RampDown
}

func (s Stages) Tick(runTime time.Duration) (Target, bool) {
	if runTime > s.total() {
		return Target{}, false
	}

	users := float64(s.Peak)

	switch {
	case runTime < s.RampUp:
		users = float64(s.Peak) * (float64(runTime) / float64(s.RampUp))
	case runTime < s.RampUp+s.Steady:
		// plateau
	case s.RampDown == 0:
		users = 0
	default:
		remaining := s.total() - runTime
		users = float64(s.Peak) * (float64(remaining) / float64(s.RampDown))
	}

	// Spawn fast enough to reach the peak within one second.
	return Target{Users: int(users), SpawnRate: float64(s.Peak)}, true
}

// New builds a shape by name. Stages uses rate as peak and splits duration
// into a 20% ramp up, 60% plateau and 20% ramp down.
func New(kind string, rate int, duration time.Duration) (Shape, error) {
	switch kind {
	case KindConstant, "":
		return ConstantRPS{TargetRPS: rate, Duration: duration}, nil
	case KindStages:
		ramp := duration / 5

		return Stages{
			Peak:     rate,
			RampUp:   ramp,
			Steady:   duration - 2*ramp,
			RampDown: ramp,
		}, nil
	default:
		return nil, fmt.Errorf("unknown shape %q", kind)
	}
}
