// Package traffic simulates per-lane vehicle counts.
package traffic

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"trafficsignal/backend/services/signal-controller/internal/clock"
)

// Lanes is the number of simulated approaches.
const Lanes = 4

// Counts holds vehicles waiting per lane.
type Counts [Lanes]int

// Config describes the simulated traffic.
type Config struct {
	MinCars int
	MaxCars int
	// Refresh is how long a generated vector stays cached.
	Refresh time.Duration
	// Seed makes the sequence reproducible. Zero seeds from the wall clock.
	Seed uint64
}

// DefaultConfig mirrors a busy urban approach.
func DefaultConfig() Config {
	return Config{
		MinCars: 0,
		MaxCars: 40,
		Refresh: 7 * time.Second,
	}
}

// Source hands out vehicle counts, regenerating all lanes at once when the cached vector is
// older than the refresh interval.
type Source struct {
	cfg   Config
	clock clock.Clock

	mu          sync.Mutex
	rng         *rand.Rand
	counts      Counts
	refreshedAt time.Time
}

// NewSource builds a source. The first Counts call always generates.
func NewSource(cfg Config, clk clock.Clock) *Source {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if cfg.MaxCars < cfg.MinCars {
		cfg.MaxCars = cfg.MinCars
	}
	return &Source{
		cfg:   cfg,
		clock: clk,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Counts returns the cached vector, regenerating it first when it is stale.
func (s *Source) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.refreshedAt.IsZero() || now.Sub(s.refreshedAt) >= s.cfg.Refresh {
		span := s.cfg.MaxCars - s.cfg.MinCars + 1
		var next Counts
		for i := range next {
			next[i] = s.cfg.MinCars + s.rng.Intn(span)
		}
		s.counts = next
		s.refreshedAt = now
	}
	return s.counts
}

// RefreshedAt returns when the cached vector was generated; zero before the first call.
func (s *Source) RefreshedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshedAt
}
