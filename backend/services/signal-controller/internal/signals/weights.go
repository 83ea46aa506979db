package signals

import "github.com/samber/lo"

// Lanes 0 and 1 are inbound and peak in the morning, lanes 2 and 3 are outbound and peak in the
// evening.
var (
	morningWeights = [LaneCount]float64{1.4, 1.3, 1.0, 1.0}
	eveningWeights = [LaneCount]float64{1.0, 1.0, 1.4, 1.3}
	neutralWeights = [LaneCount]float64{1.0, 1.0, 1.0, 1.0}
)

var allLanes = []Lane{0, 1, 2, 3}

// Weights returns the demand multipliers for an hour of day (0..23).
func Weights(hour int) [LaneCount]float64 {
	switch {
	case hour >= 8 && hour <= 11:
		return morningWeights
	case hour >= 17 && hour <= 20:
		return eveningWeights
	default:
		return neutralWeights
	}
}

// WeightedDemand multiplies counts by weights lane by lane.
func WeightedDemand(counts VehicleCounts, weights [LaneCount]float64) []float64 {
	return lo.Map(counts[:], func(c int, i int) float64 {
		return float64(c) * weights[i]
	})
}

// busiestLane picks the lane with the highest weighted demand. Ties go to the lowest lane.
func busiestLane(counts VehicleCounts, weights [LaneCount]float64) Lane {
	weighted := WeightedDemand(counts, weights)
	return lo.MaxBy(allLanes, func(a, b Lane) bool {
		return weighted[a] > weighted[b]
	})
}
