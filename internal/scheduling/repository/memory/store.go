// Package memory is an in-process Store. Exclusive sections are keyed
// mutexes held for the life of the unit of work, and writes are staged and
// applied together on commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	schedulingerrors "clinicslots/internal/scheduling/errors"
	"clinicslots/internal/scheduling/repository"
	"clinicslots/pkg/model"

	"github.com/google/uuid"
)

var errNoTransaction = errors.New("memory store: exclusive sections require WithTx")

type txKey struct{}

type tx struct {
	holds  map[string]*model.SlotHold
	days   map[string]*model.DailyCapacity
	locked map[string]bool
	order  []string
}

type Store struct {
	mu    sync.RWMutex
	holds map[string]*model.SlotHold
	days  map[string]*model.DailyCapacity

	locks       *keyedMutex
	lockTimeout time.Duration
}

var _ repository.Store = (*Store)(nil)

func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		holds:       make(map[string]*model.SlotHold),
		days:        make(map[string]*model.DailyCapacity),
		locks:       newKeyedMutex(),
		lockTimeout: lockTimeout,
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	t := &tx{
		holds:  make(map[string]*model.SlotHold),
		days:   make(map[string]*model.DailyCapacity),
		locked: make(map[string]bool),
	}
	defer s.unlockAll(t)

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}

	s.commit(t)
	return nil
}

func (s *Store) Holds() repository.HoldRepository {
	return &holdRepository{store: s}
}

func (s *Store) Capacities() repository.CapacityRepository {
	return &capacityRepository{store: s}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Capacity returns the committed counter for (doctorID, day).
func (s *Store) Capacity(doctorID int64, day string) (*model.DailyCapacity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dc, ok := s.days[dayKey(doctorID, day)]
	if !ok {
		return nil, false
	}
	c := *dc
	return &c, true
}

// SetCapacity overrides the limit of (doctorID, day), creating the row if needed.
func (s *Store) SetCapacity(doctorID int64, day string, capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(doctorID, day)
	updated := model.DailyCapacity{ID: key, DoctorID: doctorID, Day: day, Revision: 1, CreatedAt: time.Now().UTC()}
	if dc, ok := s.days[key]; ok {
		updated = *dc
	}
	updated.Capacity = capacity
	s.days[key] = &updated
}

// AllHolds returns a snapshot of every committed hold ordered by start.
func (s *Store) AllHolds() []*model.SlotHold {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holds := make([]*model.SlotHold, 0, len(s.holds))
	for _, h := range s.holds {
		holds = append(holds, h.Clone())
	}
	sort.Slice(holds, func(i, j int) bool { return holds[i].SlotStart.Before(holds[j].SlotStart) })
	return holds
}

func (s *Store) lock(ctx context.Context, key string) error {
	t := txFromContext(ctx)
	if t == nil {
		return errNoTransaction
	}
	if t.locked[key] {
		return nil
	}
	if err := s.locks.Lock(ctx, key, s.lockTimeout); err != nil {
		return err
	}
	t.locked[key] = true
	t.order = append(t.order, key)
	return nil
}

func (s *Store) unlockAll(t *tx) {
	for i := len(t.order) - 1; i >= 0; i-- {
		s.locks.Unlock(t.order[i])
	}
}

func (s *Store) commit(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, h := range t.holds {
		s.holds[id] = h
	}
	for key, dc := range t.days {
		s.days[key] = dc
	}
}

func (s *Store) hold(ctx context.Context, id string) (*model.SlotHold, bool) {
	if t := txFromContext(ctx); t != nil {
		if h, ok := t.holds[id]; ok {
			return h, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holds[id]
	return h, ok
}

// visibleHolds merges committed holds with those staged in ctx's transaction.
func (s *Store) visibleHolds(ctx context.Context) []*model.SlotHold {
	s.mu.RLock()
	merged := make(map[string]*model.SlotHold, len(s.holds))
	for id, h := range s.holds {
		merged[id] = h
	}
	s.mu.RUnlock()

	if t := txFromContext(ctx); t != nil {
		for id, h := range t.holds {
			merged[id] = h
		}
	}

	holds := make([]*model.SlotHold, 0, len(merged))
	for _, h := range merged {
		holds = append(holds, h)
	}
	return holds
}

func (s *Store) putHold(ctx context.Context, h *model.SlotHold) {
	if t := txFromContext(ctx); t != nil {
		t.holds[h.ID] = h
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[h.ID] = h
}

func (s *Store) day(ctx context.Context, key string) (*model.DailyCapacity, bool) {
	if t := txFromContext(ctx); t != nil {
		if dc, ok := t.days[key]; ok {
			return dc, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	dc, ok := s.days[key]
	return dc, ok
}

func (s *Store) putDay(ctx context.Context, dc *model.DailyCapacity) {
	if t := txFromContext(ctx); t != nil {
		t.days[dc.ID] = dc
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days[dc.ID] = dc
}

type holdRepository struct {
	store *Store
}

func (r *holdRepository) LockDoctor(ctx context.Context, doctorID int64) error {
	return r.store.lock(ctx, doctorKey(doctorID))
}

func (r *holdRepository) FindOverlapping(ctx context.Context, doctorID int64, start, end time.Time) ([]*model.SlotHold, error) {
	var holds []*model.SlotHold
	for _, h := range r.store.visibleHolds(ctx) {
		if h.DoctorID == doctorID && h.Status.Blocking() && h.Overlaps(start, end) {
			holds = append(holds, h.Clone())
		}
	}
	sort.Slice(holds, func(i, j int) bool { return holds[i].SlotStart.Before(holds[j].SlotStart) })
	return holds, nil
}

func (r *holdRepository) FindByID(ctx context.Context, id string) (*model.SlotHold, error) {
	h, ok := r.store.hold(ctx, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", schedulingerrors.ErrHoldNotFound, id)
	}
	return h.Clone(), nil
}

func (r *holdRepository) Create(ctx context.Context, hold *model.SlotHold) error {
	hold.ID = uuid.NewString()
	hold.Revision = 1
	r.store.putHold(ctx, hold.Clone())
	return nil
}

func (r *holdRepository) Update(ctx context.Context, hold *model.SlotHold) error {
	current, ok := r.store.hold(ctx, hold.ID)
	if !ok {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrHoldNotFound, hold.ID)
	}
	if current.Revision != hold.Revision {
		return schedulingerrors.ErrStaleRevision
	}

	hold.Revision++
	r.store.putHold(ctx, hold.Clone())
	return nil
}

func (r *holdRepository) FindExpired(ctx context.Context, doctorID int64, status model.HoldStatus, cutoff time.Time, limit int) ([]*model.SlotHold, error) {
	var holds []*model.SlotHold
	for _, h := range r.store.visibleHolds(ctx) {
		if h.DoctorID == doctorID && h.Status == status && h.ExpiresAt.Before(cutoff) {
			holds = append(holds, h.Clone())
		}
	}
	sort.Slice(holds, func(i, j int) bool { return holds[i].ExpiresAt.Before(holds[j].ExpiresAt) })
	if limit > 0 && len(holds) > limit {
		holds = holds[:limit]
	}
	return holds, nil
}

func (r *holdRepository) DoctorsWithExpiredHolds(ctx context.Context, status model.HoldStatus, cutoff time.Time, limit int) ([]int64, error) {
	seen := make(map[int64]bool)
	for _, h := range r.store.visibleHolds(ctx) {
		if h.Status == status && h.ExpiresAt.Before(cutoff) {
			seen[h.DoctorID] = true
		}
	}

	doctorIDs := make([]int64, 0, len(seen))
	for id := range seen {
		doctorIDs = append(doctorIDs, id)
	}
	sort.Slice(doctorIDs, func(i, j int) bool { return doctorIDs[i] < doctorIDs[j] })
	if limit > 0 && len(doctorIDs) > limit {
		doctorIDs = doctorIDs[:limit]
	}
	return doctorIDs, nil
}

type capacityRepository struct {
	store *Store
}

func (r *capacityRepository) LockDay(ctx context.Context, doctorID int64, day string, defaultCapacity int) (*model.DailyCapacity, error) {
	key := dayKey(doctorID, day)
	if err := r.store.lock(ctx, key); err != nil {
		return nil, err
	}

	dc, ok := r.store.day(ctx, key)
	if !ok {
		dc = &model.DailyCapacity{
			ID:        key,
			DoctorID:  doctorID,
			Day:       day,
			Capacity:  defaultCapacity,
			Revision:  1,
			CreatedAt: time.Now().UTC(),
		}
		r.store.putDay(ctx, dc)
	}
	c := *dc
	return &c, nil
}

func (r *capacityRepository) Update(ctx context.Context, dc *model.DailyCapacity) error {
	current, ok := r.store.day(ctx, dc.ID)
	if !ok {
		return fmt.Errorf("daily capacity %s not found", dc.ID)
	}
	if current.Revision != dc.Revision {
		return schedulingerrors.ErrStaleRevision
	}

	dc.Revision++
	c := *dc
	r.store.putDay(ctx, &c)
	return nil
}

func txFromContext(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

func doctorKey(doctorID int64) string {
	return fmt.Sprintf("doctor/%d", doctorID)
}

func dayKey(doctorID int64, day string) string {
	return fmt.Sprintf("day/%d/%s", doctorID, day)
}
