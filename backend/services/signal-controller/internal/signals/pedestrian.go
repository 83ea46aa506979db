package signals

import "time"

// PedestrianPhase is where a pedestrian request currently sits.
type PedestrianPhase string

const (
	// PedestrianIdle means no request is pending.
	PedestrianIdle PedestrianPhase = "idle"
	// PedestrianWaiting means a request was accepted and traffic still flows.
	PedestrianWaiting PedestrianPhase = "waiting"
	// PedestrianCrossing means all approaches are held red.
	PedestrianCrossing PedestrianPhase = "crossing"
	// PedestrianCompleted means the crossing window is over; the next decision clears it.
	PedestrianCompleted PedestrianPhase = "completed"
)

// pedestrianRequest is a pending crossing. A nil *pedestrianRequest is the idle state, so a
// request time can never exist without a pending request.
type pedestrianRequest struct {
	requestedAt time.Time
}

func (r *pedestrianRequest) phase(now time.Time, wait, cross time.Duration) PedestrianPhase {
	if r == nil {
		return PedestrianIdle
	}
	elapsed := now.Sub(r.requestedAt)
	switch {
	case elapsed < wait:
		return PedestrianWaiting
	case elapsed < wait+cross:
		return PedestrianCrossing
	default:
		return PedestrianCompleted
	}
}
