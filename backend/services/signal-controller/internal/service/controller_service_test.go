package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trafficsignal/backend/services/signal-controller/internal/clock"
	"trafficsignal/backend/services/signal-controller/internal/models"
	"trafficsignal/backend/services/signal-controller/internal/signals"
	"trafficsignal/backend/services/signal-controller/internal/traffic"
)

type fixedSource struct {
	counts traffic.Counts
}

func (f *fixedSource) Counts() traffic.Counts { return f.counts }

type recordingSink struct {
	mu       sync.Mutex
	statuses []models.Status
	err      error
}

func (r *recordingSink) Save(_ context.Context, status models.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return r.err
}

func (r *recordingSink) Broadcast(status models.Status) {
	_ = r.Save(context.Background(), status)
}

func (r *recordingSink) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statuses)
}

type fakeHistory struct {
	gotID    string
	gotSince time.Time
}

func (f *fakeHistory) CountSince(_ context.Context, intersectionID string, since time.Time) (map[string]int64, error) {
	f.gotID = intersectionID
	f.gotSince = since
	return map[string]int64{"demand": 3}, nil
}

// noon keeps every lane weight at 1.0.
var noon = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, counts traffic.Counts, deps Dependencies) (*ControllerService, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(noon)
	deps.Source = &fixedSource{counts: counts}
	deps.Engine = signals.NewEngine(signals.DefaultConfig(), clk)
	deps.Logger = zap.NewNop()
	return NewControllerService("junction-1", deps), clk
}

func TestStatusReportsDemandDecision(t *testing.T) {
	svc, _ := newTestService(t, traffic.Counts{3, 12, 7, 1}, Dependencies{})

	status, err := svc.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "junction-1", status.IntersectionID)
	assert.NotEmpty(t, status.DecisionID)
	assert.Equal(t, [4]int{3, 12, 7, 1}, status.Vehicles)
	assert.Equal(t, [4]int{0, 30, 0, 0}, status.Signals)
	require.NotNil(t, status.CurrentGreen)
	assert.Equal(t, 1, *status.CurrentGreen)
	assert.Nil(t, status.EmergencyLane)
	assert.Equal(t, "demand", status.Reason)
	assert.Equal(t, "idle", status.Pedestrian.Phase)
	assert.False(t, status.Pedestrian.Requested)
	assert.Equal(t, noon, status.DecidedAt)
}

func TestEmergencyOverrideLifecycle(t *testing.T) {
	svc, _ := newTestService(t, traffic.Counts{0, 40, 0, 0}, Dependencies{})
	ctx := context.Background()

	require.NoError(t, svc.SetEmergency(ctx, 3))
	lane, active := svc.EmergencyLane()
	assert.True(t, active)
	assert.Equal(t, signals.Lane(3), lane)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "emergency", status.Reason)
	require.NotNil(t, status.EmergencyLane)
	assert.Equal(t, 3, *status.EmergencyLane)
	assert.Equal(t, [4]int{0, 0, 0, 30}, status.Signals)

	svc.ClearEmergency(ctx)
	_, active = svc.EmergencyLane()
	assert.False(t, active)

	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "demand", status.Reason)
	assert.Nil(t, status.EmergencyLane)
}

func TestSetEmergencyRejectsUnknownLane(t *testing.T) {
	svc, _ := newTestService(t, traffic.Counts{}, Dependencies{})

	for _, id := range []int{-1, 4, 99} {
		err := svc.SetEmergency(context.Background(), id)
		assert.ErrorIs(t, err, signals.ErrInvalidLane, "lane %d", id)
	}
	_, active := svc.EmergencyLane()
	assert.False(t, active)
}

func TestPedestrianRequestFlowsIntoStatus(t *testing.T) {
	svc, clk := newTestService(t, traffic.Counts{5, 5, 5, 5}, Dependencies{})
	ctx := context.Background()

	assert.True(t, svc.RequestPedestrian(ctx))
	assert.False(t, svc.RequestPedestrian(ctx))

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Pedestrian.Requested)
	assert.True(t, status.Pedestrian.Waiting)
	assert.Equal(t, "waiting", status.Pedestrian.Phase)
	require.NotNil(t, status.Pedestrian.RequestedAt)
	assert.Equal(t, noon, *status.Pedestrian.RequestedAt)

	clk.Advance(31 * time.Second)
	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pedestrian", status.Reason)
	assert.True(t, status.Pedestrian.Crossing)
	assert.True(t, status.Pedestrian.Waiting, "waiting stays set until the crossing ends")
	assert.True(t, status.Pedestrian.Requested)
	assert.Equal(t, [4]int{}, status.Signals)
	assert.Nil(t, status.CurrentGreen)
}

func TestStatusFansOutToSinks(t *testing.T) {
	snapshots := &recordingSink{}
	recorder := &recordingSink{err: errors.New("db down")}
	broadcaster := &recordingSink{}
	svc, _ := newTestService(t, traffic.Counts{1, 2, 3, 4}, Dependencies{
		Snapshots:   snapshots,
		Recorder:    recorder,
		Broadcaster: broadcaster,
	})

	status, err := svc.Status(context.Background())
	require.NoError(t, err, "sink failures must not fail the decision")

	require.Equal(t, 1, snapshots.len())
	require.Equal(t, 1, recorder.len())
	require.Equal(t, 1, broadcaster.len())
	assert.Equal(t, status.DecisionID, snapshots.statuses[0].DecisionID)
	assert.Equal(t, status.DecisionID, broadcaster.statuses[0].DecisionID)
}

func TestStatusSurvivesCancelledRequestContext(t *testing.T) {
	snapshots := &recordingSink{}
	svc, _ := newTestService(t, traffic.Counts{}, Dependencies{Snapshots: snapshots})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshots.len())
}

func TestDecisionStats(t *testing.T) {
	svc, _ := newTestService(t, traffic.Counts{}, Dependencies{})
	_, err := svc.DecisionStats(context.Background(), time.Time{})
	assert.ErrorIs(t, err, ErrHistoryDisabled)

	history := &fakeHistory{}
	svc, _ = newTestService(t, traffic.Counts{}, Dependencies{History: history})
	since := noon.Add(-time.Hour)
	stats, err := svc.DecisionStats(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"demand": 3}, stats)
	assert.Equal(t, "junction-1", history.gotID)
	assert.Equal(t, since, history.gotSince)
}

// tickingClock moves forward one second on every reading.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(time.Second)
	return now
}

func TestStatusReportsStateOfTheDecisionItself(t *testing.T) {
	clk := &tickingClock{now: noon}
	engine := signals.NewEngine(signals.DefaultConfig(), clk)
	svc := NewControllerService("junction-1", Dependencies{
		Source: &fixedSource{counts: traffic.Counts{4, 3, 2, 1}},
		Engine: engine,
		Logger: zap.NewNop(),
	})
	ctx := context.Background()

	require.True(t, svc.RequestPedestrian(ctx))
	requestedAt := noon.Add(time.Second)

	// The decision reads requestedAt+44; any later reading is already past the crossing window.
	clk.mu.Lock()
	clk.now = requestedAt.Add(44 * time.Second)
	clk.mu.Unlock()

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pedestrian", status.Reason)
	assert.Equal(t, [4]int{}, status.Signals)
	assert.True(t, status.Pedestrian.Crossing)
	assert.True(t, status.Pedestrian.Waiting)
	assert.Equal(t, "crossing", status.Pedestrian.Phase)
	require.NotNil(t, status.Pedestrian.RequestedAt)
	assert.Equal(t, requestedAt, *status.Pedestrian.RequestedAt)

	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "demand", status.Reason)
	assert.Equal(t, "idle", status.Pedestrian.Phase)
	assert.False(t, status.Pedestrian.Requested)
	assert.False(t, status.Pedestrian.Waiting)
	assert.Nil(t, status.Pedestrian.RequestedAt)
	require.NotNil(t, status.CurrentGreen)
	assert.Equal(t, 0, *status.CurrentGreen)
}

func TestConcurrentStatusNeverReportsCompletedPhase(t *testing.T) {
	clk := &tickingClock{now: noon}
	svc := NewControllerService("junction-1", Dependencies{
		Source: &fixedSource{counts: traffic.Counts{1, 1, 1, 1}},
		Engine: signals.NewEngine(signals.DefaultConfig(), clk),
		Logger: zap.NewNop(),
	})
	ctx := context.Background()
	require.True(t, svc.RequestPedestrian(ctx))

	var wg sync.WaitGroup
	phases := make(chan string, 200)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				status, err := svc.Status(ctx)
				if err != nil {
					t.Error(err)
					return
				}
				phases <- status.Pedestrian.Phase
			}
		}()
	}
	wg.Wait()
	close(phases)

	for phase := range phases {
		assert.NotEqual(t, "completed", phase)
	}
}
