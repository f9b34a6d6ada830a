package reclaim

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinicslots/internal/scheduling/events"
	"clinicslots/internal/scheduling/repository/memory"
	"clinicslots/pkg/clock"
	"clinicslots/pkg/lock"
	"clinicslots/pkg/logger"
	"clinicslots/pkg/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2030, 5, 6, 12, 0, 0, 0, time.UTC)

func seedHold(t *testing.T, store *memory.Store, doctorID int64, hour int, status model.HoldStatus, expiresAt time.Time) *model.SlotHold {
	t.Helper()
	start := time.Date(2030, 5, 7, hour, 0, 0, 0, time.UTC)
	hold := &model.SlotHold{
		DoctorID:  doctorID,
		SlotStart: start,
		SlotEnd:   start.Add(30 * time.Minute),
		Status:    status,
		ExpiresAt: expiresAt,
		CreatedAt: testNow.Add(-time.Hour),
	}
	if status == model.HoldStatusConfirmed {
		booking := int64(hour)
		hold.BookingID = &booking
	}
	err := store.WithTx(context.Background(), func(ctx context.Context) error {
		if err := store.Holds().LockDoctor(ctx, doctorID); err != nil {
			return err
		}
		return store.Holds().Create(ctx, hold)
	})
	require.NoError(t, err)
	return hold
}

func statusOf(t *testing.T, store *memory.Store, id string) model.HoldStatus {
	t.Helper()
	for _, h := range store.AllHolds() {
		if h.ID == id {
			return h.Status
		}
	}
	t.Fatalf("hold %s not found", id)
	return ""
}

func TestSweep(t *testing.T) {
	store := memory.NewStore(time.Second)
	pub := &events.RecordingPublisher{}
	sweeper := NewSweeper(store, pub, clock.NewFixed(testNow), 10, logger.Discard())

	expiredA := seedHold(t, store, 1, 9, model.HoldStatusHeld, testNow.Add(-time.Minute))
	expiredB := seedHold(t, store, 2, 9, model.HoldStatusHeld, testNow.Add(-time.Second))
	live := seedHold(t, store, 1, 10, model.HoldStatusHeld, testNow.Add(time.Minute))
	confirmed := seedHold(t, store, 1, 11, model.HoldStatusConfirmed, testNow.Add(-time.Hour))

	res, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Doctors: 2, Released: 2}, res)

	assert.Equal(t, model.HoldStatusReleased, statusOf(t, store, expiredA.ID))
	assert.Equal(t, model.HoldStatusReleased, statusOf(t, store, expiredB.ID))
	assert.Equal(t, model.HoldStatusHeld, statusOf(t, store, live.ID))
	assert.Equal(t, model.HoldStatusConfirmed, statusOf(t, store, confirmed.ID))

	assert.Equal(t, []model.HoldEventType{model.HoldEventExpired, model.HoldEventExpired}, pub.Types())

	res, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Released, "second sweep finds nothing")
}

func TestSweep_LeavesCapacityAlone(t *testing.T) {
	store := memory.NewStore(time.Second)
	store.SetCapacity(1, "2030-05-07", 5)
	seedHold(t, store, 1, 9, model.HoldStatusHeld, testNow.Add(-time.Minute))

	_, err := NewSweeper(store, nil, clock.NewFixed(testNow), 10, logger.Discard()).Sweep(context.Background())
	require.NoError(t, err)

	dc, ok := store.Capacity(1, "2030-05-07")
	require.True(t, ok)
	assert.Equal(t, 0, dc.BookedCount)
}

func TestSweep_PublishFailureDoesNotUndoRelease(t *testing.T) {
	store := memory.NewStore(time.Second)
	pub := &events.RecordingPublisher{Err: errors.New("broker down")}
	hold := seedHold(t, store, 1, 9, model.HoldStatusHeld, testNow.Add(-time.Minute))

	res, err := NewSweeper(store, pub, clock.NewFixed(testNow), 10, logger.Discard()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Released)
	assert.Equal(t, model.HoldStatusReleased, statusOf(t, store, hold.ID))
}

func TestSweep_BatchSize(t *testing.T) {
	store := memory.NewStore(time.Second)
	for hour := 8; hour < 12; hour++ {
		seedHold(t, store, 1, hour, model.HoldStatusHeld, testNow.Add(-time.Minute))
	}

	sweeper := NewSweeper(store, nil, clock.NewFixed(testNow), 3, logger.Discard())
	res, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Released)

	res, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Released)
}

func newLocker(t *testing.T) (*lock.Locker, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return lock.NewLocker(rdb, "clinicslots:"), mr
}

func TestJob_RunOnce(t *testing.T) {
	store := memory.NewStore(time.Second)
	seedHold(t, store, 1, 9, model.HoldStatusHeld, testNow.Add(-time.Minute))
	sweeper := NewSweeper(store, nil, clock.NewFixed(testNow), 10, logger.Discard())
	locker, mr := newLocker(t)

	job := NewJob(sweeper, locker, time.Minute, logger.Discard())

	ran, res, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, res.Released)
	assert.False(t, mr.Exists("clinicslots:"+LeaseName), "lease released after run")
}

func TestJob_RunOnce_SkipsWhenLeaseHeld(t *testing.T) {
	store := memory.NewStore(time.Second)
	hold := seedHold(t, store, 1, 9, model.HoldStatusHeld, testNow.Add(-time.Minute))
	sweeper := NewSweeper(store, nil, clock.NewFixed(testNow), 10, logger.Discard())
	locker, _ := newLocker(t)

	_, err := locker.Acquire(context.Background(), LeaseName, time.Minute)
	require.NoError(t, err)

	ran, _, err := NewJob(sweeper, locker, time.Minute, logger.Discard()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, model.HoldStatusHeld, statusOf(t, store, hold.ID))
}

func TestJob_RunOnce_WithoutLocker(t *testing.T) {
	store := memory.NewStore(time.Second)
	seedHold(t, store, 1, 9, model.HoldStatusHeld, testNow.Add(-time.Minute))
	sweeper := NewSweeper(store, nil, clock.NewFixed(testNow), 10, logger.Discard())

	ran, res, err := NewJob(sweeper, nil, time.Minute, logger.Discard()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, res.Released)
}

func TestJob_Schedule(t *testing.T) {
	sweeper := NewSweeper(memory.NewStore(time.Second), nil, clock.NewFixed(testNow), 10, logger.Discard())
	job := NewJob(sweeper, nil, time.Minute, logger.Discard())

	c, err := job.Schedule(context.Background(), "@every 1m")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = job.Schedule(context.Background(), "not a schedule")
	assert.Error(t, err)
}
