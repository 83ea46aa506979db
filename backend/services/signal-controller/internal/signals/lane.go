package signals

import (
	"errors"
	"fmt"
	"time"
)

// LaneCount is the number of intersection approaches.
const LaneCount = 4

// Lane identifies one approach, 0..3.
type Lane int

// NoLane stands for "no lane": no emergency request, or all approaches red.
const NoLane Lane = -1

// ErrInvalidLane is returned for lane ids outside 0..3.
var ErrInvalidLane = errors.New("signals: lane must be 0..3")

// Valid reports whether l is a real approach.
func (l Lane) Valid() bool {
	return l >= 0 && l < LaneCount
}

// ParseLane converts a caller supplied id into a Lane.
func ParseLane(id int) (Lane, error) {
	lane := Lane(id)
	if !lane.Valid() {
		return NoLane, fmt.Errorf("%w: got %d", ErrInvalidLane, id)
	}
	return lane, nil
}

// VehicleCounts holds vehicles waiting per lane.
type VehicleCounts [LaneCount]int

// Durations holds seconds of green per lane. At most one entry is non-zero.
type Durations [LaneCount]int

// GreenLane returns the first lane with a non-zero duration, or NoLane when all are red.
func (d Durations) GreenLane() Lane {
	for i, secs := range d {
		if secs > 0 {
			return Lane(i)
		}
	}
	return NoLane
}

// Reason names the cascade rule that produced a decision.
type Reason string

const (
	ReasonPedestrian Reason = "pedestrian"
	ReasonEmergency  Reason = "emergency"
	ReasonFairness   Reason = "fairness"
	ReasonDemand     Reason = "demand"
)

// Decision is the outcome of one Decide call. State is the engine bookkeeping right after the
// decision, taken under the same lock and clock reading.
type Decision struct {
	Signals   Durations
	Green     Lane
	Reason    Reason
	DecidedAt time.Time
	State     State
}
