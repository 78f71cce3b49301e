package reservation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Isolation strategies for the write transaction.
const (
	// IsolationLock runs READ COMMITTED and serializes writers per room type
	// with a transaction-scoped advisory lock. Every statement after the lock
	// sees the rows committed by the previous holder.
	IsolationLock = "lock"
	// IsolationSerializable relies on Postgres SSI to abort one of two
	// conflicting writers with a serialization failure.
	IsolationSerializable = "serializable"
)

// advisoryNamespace is the first key of pg_advisory_xact_lock(int, int) so
// reservation locks never collide with other advisory lock users.
const advisoryNamespace int32 = 0x52455356

// Repository is the inventory store. InsertReservationWithUnits is the only
// code path that writes reservation_units.
type Repository interface {
	CountOverlapping(ctx context.Context, roomTypeID string, iv Interval) (int, error)
	BookedCounts(ctx context.Context, q AvailabilityQuery) ([]Availability, error)
	InsertReservationWithUnits(ctx context.Context, res *Reservation, units []Unit) (string, error)
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	UpdateStatus(ctx context.Context, id string, next Status) (*Reservation, error)
}

const (
	DefaultLockTimeout  = 3 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// StoreOptions configures the write transaction.
type StoreOptions struct {
	Isolation string
	// LockTimeout bounds each lock wait inside the transaction. Postgres
	// treats lock_timeout = 0 as no limit, so values under 1ms fall back to
	// DefaultLockTimeout.
	LockTimeout time.Duration
	// WriteTimeout bounds a whole write, pool acquisition included.
	WriteTimeout time.Duration
}

type pgxRepository struct {
	pool         *pgxpool.Pool
	isolation    string
	lockTimeout  time.Duration
	writeTimeout time.Duration
}

func NewPgxRepository(pool *pgxpool.Pool, opts StoreOptions) Repository {
	if opts.Isolation != IsolationSerializable {
		opts.Isolation = IsolationLock
	}
	if opts.LockTimeout < time.Millisecond {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &pgxRepository{
		pool:         pool,
		isolation:    opts.Isolation,
		lockTimeout:  opts.LockTimeout,
		writeTimeout: opts.WriteTimeout,
	}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const countOverlappingSQL = `
	SELECT count(*)
	FROM public.reservation_units u
	JOIN public.reservations r ON r.id = u.reservation_id
	WHERE u.room_type_id = $1
	  AND r.status <> 'cancelled'
	  AND u.occupancy && tstzrange($2, $3, '[)')
`

func countOverlapping(ctx context.Context, q querier, roomTypeID string, iv Interval) (int, error) {
	var n int
	if err := q.QueryRow(ctx, countOverlappingSQL, roomTypeID, iv.Start, iv.End).Scan(&n); err != nil {
		return 0, fmt.Errorf("count overlapping units failed: %w", err)
	}
	return n, nil
}

func (r *pgxRepository) CountOverlapping(ctx context.Context, roomTypeID string, iv Interval) (int, error) {
	n, err := countOverlapping(ctx, r.pool, roomTypeID, iv)
	if err != nil {
		return 0, classifyStoreError(err)
	}
	return n, nil
}

func (r *pgxRepository) BookedCounts(ctx context.Context, q AvailabilityQuery) ([]Availability, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select("rt.id", "rt.capacity", "count(r.id) AS booked").
		From("public.room_types rt").
		LeftJoin("public.reservation_units u ON u.room_type_id = rt.id AND u.occupancy && tstzrange(?, ?, '[)')", q.Start, q.End).
		LeftJoin("public.reservations r ON r.id = u.reservation_id AND r.status <> 'cancelled'").
		Where(squirrel.Eq{"rt.hotel_id": q.HotelID}).
		GroupBy("rt.id", "rt.capacity").
		OrderBy("rt.id")

	if q.RoomTypeID != "" {
		query = query.Where(squirrel.Eq{"rt.id": q.RoomTypeID})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build availability query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, classifyStoreError(fmt.Errorf("availability query failed: %w", err))
	}
	defer rows.Close()

	var items []Availability
	for rows.Next() {
		var a Availability
		if err := rows.Scan(&a.RoomTypeID, &a.Capacity, &a.BookedCount); err != nil {
			return nil, classifyStoreError(fmt.Errorf("scan availability failed: %w", err))
		}
		a.Free = max(a.Capacity-a.BookedCount, 0)
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStoreError(fmt.Errorf("iterate availability failed: %w", err))
	}

	return items, nil
}

// InsertReservationWithUnits creates the reservation in pending status and
// all of its units in one transaction. Units are checked and inserted one at
// a time so later units of the same request count the earlier ones.
func (r *pgxRepository) InsertReservationWithUnits(ctx context.Context, res *Reservation, units []Unit) (string, error) {
	if len(units) == 0 {
		return "", ErrInvalidRequest
	}

	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if r.isolation == IsolationSerializable {
		txOpts.IsoLevel = pgx.Serializable
	}

	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return "", unavailable(fmt.Errorf("begin reservation transaction failed: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err := r.setLockTimeout(ctx, tx); err != nil {
		return "", err
	}

	if r.isolation == IsolationLock {
		for _, roomTypeID := range lockOrder(units) {
			if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, hashtext($2))", advisoryNamespace, roomTypeID); err != nil {
				return "", classifyStoreError(fmt.Errorf("lock room type %s failed: %w", roomTypeID, err))
			}
		}
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	insertRes, args, err := psql.Insert("public.reservations").
		Columns("hotel_id", "guest_id", "status", "currency", "total_amount").
		Values(res.HotelID, res.GuestID, StatusPending, DefaultCurrency, squirrel.Expr("0")).
		Suffix("RETURNING id, status, currency, total_amount::text, created_at, updated_at").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert reservation query failed: %w", err)
	}

	if err := tx.QueryRow(ctx, insertRes, args...).Scan(
		&res.ID, &res.Status, &res.Currency, &res.TotalAmount, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		return "", classifyStoreError(fmt.Errorf("insert reservation failed: %w", err))
	}

	capacities := make(map[string]int, 1)
	inserted := make([]Unit, 0, len(units))

	for _, u := range units {
		capacity, ok := capacities[u.RoomTypeID]
		if !ok {
			err := tx.QueryRow(ctx,
				"SELECT capacity FROM public.room_types WHERE id = $1 AND hotel_id = $2",
				u.RoomTypeID, res.HotelID,
			).Scan(&capacity)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return "", ErrRoomTypeNotFound
				}
				return "", classifyStoreError(fmt.Errorf("read room type capacity failed: %w", err))
			}
			capacities[u.RoomTypeID] = capacity
		}

		booked, err := countOverlapping(ctx, tx, u.RoomTypeID, u.Interval())
		if err != nil {
			return "", classifyStoreError(err)
		}
		if booked >= capacity {
			return "", ErrCapacityExceeded
		}

		u.ReservationID = res.ID
		if err := tx.QueryRow(ctx, `
			INSERT INTO public.reservation_units (reservation_id, room_type_id, occupancy_start, occupancy_end)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			u.ReservationID, u.RoomTypeID, u.Start, u.End,
		).Scan(&u.ID); err != nil {
			return "", classifyStoreError(fmt.Errorf("insert reservation unit failed: %w", err))
		}
		inserted = append(inserted, u)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", commitFailed(fmt.Errorf("commit reservation failed: %w", err))
	}
	committed = true

	res.Units = inserted
	return res.ID, nil
}

func (r *pgxRepository) setLockTimeout(ctx context.Context, tx pgx.Tx) error {
	// SET does not accept bind parameters.
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, stmt); err != nil {
		return unavailable(fmt.Errorf("set lock timeout failed: %w", err))
	}
	return nil
}

// lockOrder returns the distinct room types of units in ascending order so
// concurrent multi-type requests always lock in the same sequence.
func lockOrder(units []Unit) []string {
	seen := make(map[string]struct{}, len(units))
	ids := make([]string, 0, len(units))
	for _, u := range units {
		if _, ok := seen[u.RoomTypeID]; ok {
			continue
		}
		seen[u.RoomTypeID] = struct{}{}
		ids = append(ids, u.RoomTypeID)
	}
	sort.Strings(ids)
	return ids
}

var reservationColumns = []string{
	"r.id", "r.hotel_id", "r.guest_id", "r.status", "r.currency",
	"r.total_amount::text", "r.created_at", "r.updated_at",
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(reservationColumns...).
		From("public.reservations r").
		Where(squirrel.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	var res Reservation
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&res.ID, &res.HotelID, &res.GuestID, &res.Status, &res.Currency,
		&res.TotalAmount, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classifyStoreError(fmt.Errorf("get reservation failed: %w", err))
	}

	units, err := r.unitsFor(ctx, []string{res.ID})
	if err != nil {
		return nil, err
	}
	res.Units = units[res.ID]

	return &res, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(reservationColumns, "count(*) OVER() AS total_count")...).
		From("public.reservations r")

	if filter.GuestID != "" {
		query = query.Where(squirrel.Eq{"r.guest_id": filter.GuestID})
	}
	if filter.HotelID != "" {
		query = query.Where(squirrel.Eq{"r.hotel_id": filter.HotelID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"r.status": filter.Status})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.SortOrder, "ASC") {
		orderDir = "ASC"
	}
	query = query.OrderBy("r.created_at "+orderDir, "r.id").
		Limit(uint64(filter.PageSize)).
		Offset(uint64((filter.Page - 1) * filter.PageSize))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, classifyStoreError(fmt.Errorf("list reservations failed: %w", err))
	}
	defer rows.Close()

	var list []*Reservation
	var total int
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(
			&res.ID, &res.HotelID, &res.GuestID, &res.Status, &res.Currency,
			&res.TotalAmount, &res.CreatedAt, &res.UpdatedAt, &total,
		); err != nil {
			return nil, 0, classifyStoreError(fmt.Errorf("scan reservation failed: %w", err))
		}
		list = append(list, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classifyStoreError(fmt.Errorf("iterate reservations failed: %w", err))
	}

	if len(list) == 0 {
		return list, total, nil
	}

	ids := make([]string, len(list))
	for i, res := range list {
		ids[i] = res.ID
	}
	units, err := r.unitsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, res := range list {
		res.Units = units[res.ID]
	}

	return list, total, nil
}

func (r *pgxRepository) unitsFor(ctx context.Context, reservationIDs []string) (map[string][]Unit, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "reservation_id", "room_type_id", "occupancy_start", "occupancy_end").
		From("public.reservation_units").
		Where(squirrel.Eq{"reservation_id": reservationIDs}).
		OrderBy("occupancy_start", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list units query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyStoreError(fmt.Errorf("list units failed: %w", err))
	}
	defer rows.Close()

	out := make(map[string][]Unit, len(reservationIDs))
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.ReservationID, &u.RoomTypeID, &u.Start, &u.End); err != nil {
			return nil, classifyStoreError(fmt.Errorf("scan unit failed: %w", err))
		}
		out[u.ReservationID] = append(out[u.ReservationID], u)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStoreError(fmt.Errorf("iterate units failed: %w", err))
	}
	return out, nil
}

// UpdateStatus applies a status transition under a row lock so two
// concurrent transitions cannot both pass the state check.
func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, next Status) (*Reservation, error) {
	writeCtx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	tx, err := r.pool.Begin(writeCtx)
	if err != nil {
		return nil, unavailable(fmt.Errorf("begin status transaction failed: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(writeCtx))
		}
	}()

	if err := r.setLockTimeout(writeCtx, tx); err != nil {
		return nil, err
	}

	var current Status
	if err := tx.QueryRow(writeCtx, "SELECT status FROM public.reservations WHERE id = $1 FOR UPDATE", id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classifyStoreError(fmt.Errorf("lock reservation failed: %w", err))
	}

	if !current.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current, next)
	}

	if _, err := tx.Exec(writeCtx,
		"UPDATE public.reservations SET status = $1, updated_at = now() WHERE id = $2",
		next, id,
	); err != nil {
		return nil, classifyStoreError(fmt.Errorf("update reservation status failed: %w", err))
	}

	if err := tx.Commit(writeCtx); err != nil {
		return nil, commitFailed(fmt.Errorf("commit status change failed: %w", err))
	}
	committed = true

	return r.GetByID(ctx, id)
}
