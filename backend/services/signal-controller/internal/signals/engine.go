// Package signals decides which approach of a four-way intersection gets green.
//
// Every decision walks a fixed cascade: an active pedestrian crossing holds all approaches red,
// an emergency lane wins next, then any lane that has waited longer than the fairness timeout,
// and finally the lane with the highest hour-weighted vehicle demand.
package signals

import (
	"fmt"
	"sync"
	"time"

	"trafficsignal/backend/services/signal-controller/internal/clock"
)

// Config fixes the engine timings. Each value is independent of the others.
type Config struct {
	// CycleTime is the green granted to the selected lane per decision.
	CycleTime time.Duration
	// FairnessTime is the longest a lane may go without green before it is forced.
	FairnessTime time.Duration
	// PedestrianWait is the delay between an accepted request and the all-red phase.
	PedestrianWait time.Duration
	// PedestrianCross is the length of the all-red phase.
	PedestrianCross time.Duration
	// PedestrianCooldown is the minimum gap between a finished crossing and the next request.
	PedestrianCooldown time.Duration
}

// DefaultConfig returns the stock intersection timings.
func DefaultConfig() Config {
	return Config{
		CycleTime:          30 * time.Second,
		FairnessTime:       90 * time.Second,
		PedestrianWait:     30 * time.Second,
		PedestrianCross:    15 * time.Second,
		PedestrianCooldown: 120 * time.Second,
	}
}

// State is a copy of the engine bookkeeping.
type State struct {
	LastGreen             [LaneCount]time.Time
	CurrentGreen          Lane
	Pedestrian            PedestrianPhase
	PedestrianRequestedAt time.Time
	PedestrianLastDone    time.Time
}

// Engine owns the decision state. It is safe for concurrent use; every call is one critical
// section.
type Engine struct {
	cfg   Config
	clock clock.Clock

	mu                 sync.Mutex
	lastGreen          [LaneCount]time.Time
	currentGreen       Lane
	pedestrian         *pedestrianRequest
	pedestrianLastDone time.Time
}

// NewEngine builds an engine whose lanes all count as green at construction time.
func NewEngine(cfg Config, clk clock.Clock) *Engine {
	now := clk.Now()
	e := &Engine{
		cfg:   cfg,
		clock: clk,
	}
	for i := range e.lastGreen {
		e.lastGreen[i] = now
	}
	return e
}

// Config returns the timings the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// RequestPedestrian registers a crossing request. It is rejected while another request is
// pending or while the cooldown after the last crossing is running.
func (e *Engine) RequestPedestrian() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if e.pedestrian != nil || now.Sub(e.pedestrianLastDone) < e.cfg.PedestrianCooldown {
		return false
	}
	e.pedestrian = &pedestrianRequest{requestedAt: now}
	return true
}

// Decide picks the green lane for the given counts. emergency is NoLane when no emergency
// vehicle is approaching.
func (e *Engine) Decide(counts VehicleCounts, emergency Lane) (Decision, error) {
	if emergency != NoLane && !emergency.Valid() {
		return Decision{}, fmt.Errorf("%w: got %d", ErrInvalidLane, emergency)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()

	switch e.pedestrian.phase(now, e.cfg.PedestrianWait, e.cfg.PedestrianCross) {
	case PedestrianCrossing:
		return Decision{Green: NoLane, Reason: ReasonPedestrian, DecidedAt: now, State: e.stateAt(now)}, nil
	case PedestrianCompleted:
		e.pedestrian = nil
		e.pedestrianLastDone = now
	}

	if emergency != NoLane {
		return e.grant(emergency, ReasonEmergency, now), nil
	}

	for lane := Lane(0); lane < LaneCount; lane++ {
		if now.Sub(e.lastGreen[lane]) > e.cfg.FairnessTime {
			return e.grant(lane, ReasonFairness, now), nil
		}
	}

	return e.grant(busiestLane(counts, Weights(now.Hour())), ReasonDemand, now), nil
}

// grant must be called with mu held.
func (e *Engine) grant(lane Lane, reason Reason, now time.Time) Decision {
	var green Durations
	green[lane] = int(e.cfg.CycleTime / time.Second)
	e.lastGreen[lane] = now
	e.currentGreen = lane
	return Decision{
		Signals:   green,
		Green:     lane,
		Reason:    reason,
		DecidedAt: now,
		State:     e.stateAt(now),
	}
}

// Snapshot returns a copy of the current state. The pedestrian phase is evaluated at the
// current clock time.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateAt(e.clock.Now())
}

// stateAt must be called with mu held.
func (e *Engine) stateAt(now time.Time) State {
	state := State{
		LastGreen:          e.lastGreen,
		CurrentGreen:       e.currentGreen,
		Pedestrian:         e.pedestrian.phase(now, e.cfg.PedestrianWait, e.cfg.PedestrianCross),
		PedestrianLastDone: e.pedestrianLastDone,
	}
	if e.pedestrian != nil {
		state.PedestrianRequestedAt = e.pedestrian.requestedAt
	}
	return state
}
