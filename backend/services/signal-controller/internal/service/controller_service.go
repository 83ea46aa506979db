package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"trafficsignal/backend/services/signal-controller/internal/models"
	"trafficsignal/backend/services/signal-controller/internal/signals"
	"trafficsignal/backend/services/signal-controller/internal/traffic"
)

const publishTimeout = 2 * time.Second

// ErrHistoryDisabled is returned when decision statistics are requested without an audit log.
var ErrHistoryDisabled = errors.New("service: decision history is not configured")

// VehicleCountSource provides per-lane vehicle counts.
type VehicleCountSource interface {
	Counts() traffic.Counts
}

// SnapshotPublisher caches and announces the latest status.
type SnapshotPublisher interface {
	Save(ctx context.Context, status models.Status) error
}

// DecisionRecorder appends decisions to an audit log.
type DecisionRecorder interface {
	Save(ctx context.Context, status models.Status) error
}

// DecisionHistory summarises the audit log.
type DecisionHistory interface {
	CountSince(ctx context.Context, intersectionID string, since time.Time) (map[string]int64, error)
}

// StatusBroadcaster pushes statuses to live subscribers.
type StatusBroadcaster interface {
	Broadcast(status models.Status)
}

// Dependencies groups collaborators. Snapshots, Recorder, History and Broadcaster are optional.
type Dependencies struct {
	Source      VehicleCountSource
	Engine      *signals.Engine
	Snapshots   SnapshotPublisher
	Recorder    DecisionRecorder
	History     DecisionHistory
	Broadcaster StatusBroadcaster
	Logger      *zap.Logger
}

// ControllerService ties the vehicle count source, the decision engine and the emergency lane
// set by operators. It is the only owner of that state for the lifetime of the process.
type ControllerService struct {
	intersectionID string
	deps           Dependencies
	logger         *zap.Logger

	mu        sync.RWMutex
	emergency signals.Lane
}

// NewControllerService builds service.
func NewControllerService(intersectionID string, deps Dependencies) *ControllerService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ControllerService{
		intersectionID: intersectionID,
		deps:           deps,
		logger:         logger.With(zap.String("intersection_id", intersectionID)),
		emergency:      signals.NoLane,
	}
}

// IntersectionID returns the controlled intersection.
func (s *ControllerService) IntersectionID() string {
	return s.intersectionID
}

// Status runs one decision round and reports it.
func (s *ControllerService) Status(ctx context.Context) (models.Status, error) {
	counts := signals.VehicleCounts(s.deps.Source.Counts())
	emergency, _ := s.EmergencyLane()

	decision, err := s.deps.Engine.Decide(counts, emergency)
	if err != nil {
		return models.Status{}, err
	}

	status := s.buildStatus(counts, emergency, decision)
	s.logger.Debug("signal decision",
		zap.String("decision_id", status.DecisionID),
		zap.String("reason", status.Reason),
		zap.Int("green_lane", int(decision.Green)),
		zap.Ints("vehicles", status.Vehicles[:]),
	)
	s.fanOut(ctx, status)
	return status, nil
}

// buildStatus reads only the decision and the state captured with it, so a concurrent round or a
// later clock reading cannot leak into the report.
func (s *ControllerService) buildStatus(counts signals.VehicleCounts, emergency signals.Lane, decision signals.Decision) models.Status {
	state := decision.State
	pending := state.Pedestrian == signals.PedestrianWaiting || state.Pedestrian == signals.PedestrianCrossing
	status := models.Status{
		DecisionID:     uuid.NewString(),
		IntersectionID: s.intersectionID,
		Vehicles:       counts,
		Signals:        decision.Signals,
		Reason:         string(decision.Reason),
		DecidedAt:      decision.DecidedAt,
		Pedestrian: models.PedestrianStatus{
			Requested: pending,
			Waiting:   pending,
			Crossing:  state.Pedestrian == signals.PedestrianCrossing,
			Phase:     string(state.Pedestrian),
		},
	}

	if decision.Green != signals.NoLane {
		status.CurrentGreen = lo.ToPtr(int(decision.Green))
	}
	if emergency != signals.NoLane {
		status.EmergencyLane = lo.ToPtr(int(emergency))
	}
	if !state.PedestrianRequestedAt.IsZero() {
		status.Pedestrian.RequestedAt = lo.ToPtr(state.PedestrianRequestedAt)
	}
	return status
}

func (s *ControllerService) fanOut(ctx context.Context, status models.Status) {
	if s.deps.Broadcaster != nil {
		s.deps.Broadcaster.Broadcast(status)
	}
	if s.deps.Snapshots == nil && s.deps.Recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if s.deps.Snapshots != nil {
		if err := s.deps.Snapshots.Save(ctx, status); err != nil {
			s.logger.Warn("failed to publish status snapshot", zap.String("decision_id", status.DecisionID), zap.Error(err))
		}
	}
	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.Save(ctx, status); err != nil {
			s.logger.Warn("failed to record decision", zap.String("decision_id", status.DecisionID), zap.Error(err))
		}
	}
}

// SetEmergency routes every following decision to lane until cleared.
func (s *ControllerService) SetEmergency(ctx context.Context, id int) error {
	lane, err := signals.ParseLane(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.emergency = lane
	s.mu.Unlock()

	s.logger.Info("emergency override set", zap.Int("lane", id))
	return nil
}

// ClearEmergency returns to normal selection.
func (s *ControllerService) ClearEmergency(ctx context.Context) {
	s.mu.Lock()
	previous := s.emergency
	s.emergency = signals.NoLane
	s.mu.Unlock()

	if previous != signals.NoLane {
		s.logger.Info("emergency override cleared", zap.Int("lane", int(previous)))
	}
}

// EmergencyLane returns the active emergency lane, if any.
func (s *ControllerService) EmergencyLane() (signals.Lane, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emergency, s.emergency != signals.NoLane
}

// RequestPedestrian asks for a crossing and reports whether it was accepted.
func (s *ControllerService) RequestPedestrian(ctx context.Context) bool {
	accepted := s.deps.Engine.RequestPedestrian()
	if accepted {
		s.logger.Info("pedestrian crossing requested")
	} else {
		s.logger.Debug("pedestrian request ignored")
	}
	return accepted
}

// DecisionStats counts recorded decisions per reason since the given time.
func (s *ControllerService) DecisionStats(ctx context.Context, since time.Time) (map[string]int64, error) {
	if s.deps.History == nil {
		return nil, ErrHistoryDisabled
	}
	return s.deps.History.CountSince(ctx, s.intersectionID, since)
}
