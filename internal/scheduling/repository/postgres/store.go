package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	schedulingerrors "clinicslots/internal/scheduling/errors"
	"clinicslots/internal/scheduling/repository"
	"clinicslots/pkg/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const holdColumns = `id, doctor_id, slot_start, slot_end, booking_id, status, expires_at, created_at, revision`

type Store struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	holds       *HoldRepository
	capacities  *CapacityRepository
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, lockTimeout time.Duration) *Store {
	return &Store{
		pool:        pool,
		lockTimeout: lockTimeout,
		holds:       &HoldRepository{pool: pool},
		capacities:  &CapacityRepository{pool: pool},
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.pool, s.lockTimeout, fn)
}

func (s *Store) Holds() repository.HoldRepository {
	return s.holds
}

func (s *Store) Capacities() repository.CapacityRepository {
	return s.capacities
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type HoldRepository struct {
	pool *pgxpool.Pool
}

// LockDoctor upserts the doctor's section row; the row lock is held until
// the surrounding transaction ends.
func (r *HoldRepository) LockDoctor(ctx context.Context, doctorID int64) error {
	if txFromContext(ctx) == nil {
		return errors.New("postgres store: exclusive sections require WithTx")
	}

	const stmt = `
INSERT INTO doctor_sections (doctor_id) VALUES ($1)
ON CONFLICT (doctor_id) DO UPDATE
SET revision = doctor_sections.revision + 1, locked_at = NOW()`

	if _, err := exec(ctx, r.pool, stmt, doctorID); err != nil {
		return translate(fmt.Errorf("lock doctor section: %w", err))
	}
	return nil
}

func (r *HoldRepository) FindOverlapping(ctx context.Context, doctorID int64, start, end time.Time) ([]*model.SlotHold, error) {
	query := `SELECT ` + holdColumns + `
FROM slot_holds
WHERE doctor_id = $1
  AND status IN ('HELD', 'CONFIRMED')
  AND slot_start < $3
  AND slot_end > $2
ORDER BY slot_start
FOR UPDATE`

	holds, err := queryHolds(ctx, r.pool, query, doctorID, start, end)
	if err != nil {
		return nil, translate(fmt.Errorf("find overlapping holds: %w", err))
	}
	return holds, nil
}

func (r *HoldRepository) FindByID(ctx context.Context, id string) (*model.SlotHold, error) {
	query := `SELECT ` + holdColumns + ` FROM slot_holds WHERE id = $1`

	h, err := scanHold(queryRow(ctx, r.pool, query, id))
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", schedulingerrors.ErrHoldNotFound, id)
		}
		return nil, translate(fmt.Errorf("find hold: %w", err))
	}
	return h, nil
}

func (r *HoldRepository) Create(ctx context.Context, hold *model.SlotHold) error {
	const stmt = `
INSERT INTO slot_holds (id, doctor_id, slot_start, slot_end, booking_id, status, expires_at, created_at, revision)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)`

	id := uuid.NewString()
	_, err := exec(ctx, r.pool, stmt,
		id,
		hold.DoctorID,
		hold.SlotStart,
		hold.SlotEnd,
		hold.BookingID,
		string(hold.Status),
		hold.ExpiresAt,
		hold.CreatedAt,
	)
	if err != nil {
		return translate(fmt.Errorf("create hold: %w", err))
	}

	hold.ID = id
	hold.Revision = 1
	return nil
}

func (r *HoldRepository) Update(ctx context.Context, hold *model.SlotHold) error {
	const stmt = `
UPDATE slot_holds
SET status = $3, booking_id = $4, expires_at = $5, revision = revision + 1
WHERE id = $1 AND revision = $2`

	tag, err := exec(ctx, r.pool, stmt,
		hold.ID,
		hold.Revision,
		string(hold.Status),
		hold.BookingID,
		hold.ExpiresAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return fmt.Errorf("%w: %s", schedulingerrors.ErrHoldNotFound, hold.ID)
		}
		return translate(fmt.Errorf("update hold: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return schedulingerrors.ErrStaleRevision
	}

	hold.Revision++
	return nil
}

func (r *HoldRepository) FindExpired(ctx context.Context, doctorID int64, status model.HoldStatus, cutoff time.Time, limit int) ([]*model.SlotHold, error) {
	query := `SELECT ` + holdColumns + `
FROM slot_holds
WHERE doctor_id = $1 AND status = $2 AND expires_at < $3
ORDER BY expires_at
LIMIT $4`

	holds, err := queryHolds(ctx, r.pool, query, doctorID, string(status), cutoff, limit)
	if err != nil {
		return nil, translate(fmt.Errorf("find expired holds: %w", err))
	}
	return holds, nil
}

func (r *HoldRepository) DoctorsWithExpiredHolds(ctx context.Context, status model.HoldStatus, cutoff time.Time, limit int) ([]int64, error) {
	const query = `
SELECT DISTINCT doctor_id
FROM slot_holds
WHERE status = $1 AND expires_at < $2
ORDER BY doctor_id
LIMIT $3`

	rows, err := queryRows(ctx, r.pool, query, string(status), cutoff, limit)
	if err != nil {
		return nil, translate(fmt.Errorf("list doctors with expired holds: %w", err))
	}
	defer rows.Close()

	var doctorIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan doctor id: %w", err)
		}
		doctorIDs = append(doctorIDs, id)
	}
	return doctorIDs, rows.Err()
}

type CapacityRepository struct {
	pool *pgxpool.Pool
}

func (r *CapacityRepository) LockDay(ctx context.Context, doctorID int64, day string, defaultCapacity int) (*model.DailyCapacity, error) {
	if txFromContext(ctx) == nil {
		return nil, errors.New("postgres store: exclusive sections require WithTx")
	}

	const insert = `
INSERT INTO daily_capacity (doctor_id, day, capacity)
VALUES ($1, $2, $3)
ON CONFLICT (doctor_id, day) DO NOTHING`
	if _, err := exec(ctx, r.pool, insert, doctorID, day, defaultCapacity); err != nil {
		return nil, translate(fmt.Errorf("ensure daily capacity: %w", err))
	}

	const query = `
SELECT doctor_id, day, capacity, booked_count, revision, created_at
FROM daily_capacity
WHERE doctor_id = $1 AND day = $2
FOR UPDATE`

	var dc model.DailyCapacity
	err := queryRow(ctx, r.pool, query, doctorID, day).
		Scan(&dc.DoctorID, &dc.Day, &dc.Capacity, &dc.BookedCount, &dc.Revision, &dc.CreatedAt)
	if err != nil {
		return nil, translate(fmt.Errorf("lock daily capacity: %w", err))
	}
	dc.ID = fmt.Sprintf("%d/%s", dc.DoctorID, dc.Day)
	return &dc, nil
}

func (r *CapacityRepository) Update(ctx context.Context, dc *model.DailyCapacity) error {
	const stmt = `
UPDATE daily_capacity
SET booked_count = $4, revision = revision + 1
WHERE doctor_id = $1 AND day = $2 AND revision = $3`

	tag, err := exec(ctx, r.pool, stmt, dc.DoctorID, dc.Day, dc.Revision, dc.BookedCount)
	if err != nil {
		return translate(fmt.Errorf("update daily capacity: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return schedulingerrors.ErrStaleRevision
	}

	dc.Revision++
	return nil
}

func scanHold(row pgx.Row) (*model.SlotHold, error) {
	var (
		h      model.SlotHold
		status string
	)
	err := row.Scan(&h.ID, &h.DoctorID, &h.SlotStart, &h.SlotEnd, &h.BookingID, &status, &h.ExpiresAt, &h.CreatedAt, &h.Revision)
	if err != nil {
		return nil, err
	}
	h.Status = model.HoldStatus(status)
	return &h, nil
}

func queryHolds(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) ([]*model.SlotHold, error) {
	rows, err := queryRows(ctx, pool, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []*model.SlotHold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

func exec(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return pool.Exec(ctx, sql, args...)
}

func queryRow(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return pool.QueryRow(ctx, sql, args...)
}

func queryRows(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return pool.Query(ctx, sql, args...)
}
