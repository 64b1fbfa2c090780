package room

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"umrah-backoffice/internal/db"
	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
)

const roomColumns = `id::text, hotel_name, city, type, capacity, floor_number, room_number, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres. Capacity and the
// one-room-per-(client, city) rule are enforced inside the Assign transaction.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY city, hotel_name, room_number, created_at`)
	if err != nil {
		return nil, db.Translate(err, "list rooms")
	}
	rooms := make([]domain.Room, 0)
	index := make(map[string]int)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			rows.Close()
			return nil, db.Translate(err, "list rooms")
		}
		index[room.ID] = len(rooms)
		rooms = append(rooms, *room)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, db.Translate(err, "list rooms")
	}

	assignments, err := r.assignments(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		if i, ok := index[a.RoomID]; ok {
			rooms[i].Assignments = append(rooms[i].Assignments, a)
		}
	}
	return rooms, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "room "+id)
	}
	assignments, err := r.assignments(ctx, id)
	if err != nil {
		return nil, err
	}
	room.Assignments = assignments
	return room, nil
}

func (r *postgresRepo) assignments(ctx context.Context, roomID string) ([]domain.Assignment, error) {
	q := `
SELECT a.id::text, a.room_id::text, a.client_id::text, a.city, a.assigned_at,
       c.name, c.email, c.phone, c.address, c.passport_number, c.gender, c.date_of_birth, c.created_at
FROM room_assignments a
JOIN clients c ON c.id = a.client_id`
	args := []any{}
	if roomID != "" {
		q += ` WHERE a.room_id = $1`
		args = append(args, roomID)
	}
	q += ` ORDER BY a.assigned_at, a.id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, db.Translate(err, "list assignments")
	}
	defer rows.Close()

	out := make([]domain.Assignment, 0)
	for rows.Next() {
		var (
			a      domain.Assignment
			c      domain.Client
			city   string
			gender string
		)
		if err := rows.Scan(&a.ID, &a.RoomID, &a.ClientID, &city, &a.AssignedAt,
			&c.Name, &c.Email, &c.Phone, &c.Address, &c.PassportNumber, &gender, &c.DateOfBirth, &c.CreatedAt); err != nil {
			r.logger.Error("room repo: scan assignment", zap.Error(err))
			return nil, db.Translate(err, "list assignments")
		}
		a.City = domain.City(city)
		c.ID = a.ClientID
		c.Gender = domain.Gender(gender)
		a.Client = &c
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Translate(err, "list assignments")
	}
	return out, nil
}

func (r *postgresRepo) Create(ctx context.Context, in domain.Room) (*domain.Room, error) {
	const q = `
INSERT INTO rooms (hotel_name, city, type, capacity, floor_number, room_number)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + roomColumns
	room, err := scanRoom(r.pool.QueryRow(ctx, q,
		in.HotelName, string(in.City), string(in.Type), in.Type.Capacity(), in.FloorNumber, in.RoomNumber))
	if err != nil {
		return nil, db.Translate(err, "create room")
	}
	return room, nil
}

func (r *postgresRepo) UpdateType(ctx context.Context, id string, t domain.RoomType) (*domain.Room, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, db.Translate(err, "room "+id)
	}
	defer tx.Rollback(ctx)

	var occupancy int
	if err := tx.QueryRow(ctx, `
SELECT (SELECT count(*) FROM room_assignments WHERE room_id = rooms.id)
FROM rooms WHERE id = $1 FOR UPDATE`, id).Scan(&occupancy); err != nil {
		return nil, db.Translate(err, "room "+id)
	}
	if occupancy > t.Capacity() {
		return nil, fmt.Errorf("room %s holds %d, %s seats %d: %w", id, occupancy, t, t.Capacity(), domain.ErrCapacityExceeded)
	}

	if _, err := tx.Exec(ctx, `UPDATE rooms SET type = $2, capacity = $3 WHERE id = $1`, id, string(t), t.Capacity()); err != nil {
		return nil, db.Translate(err, "room "+id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, db.Translate(err, "room "+id)
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err, "room "+id)
	}
	if tag.RowsAffected() == 0 {
		return db.Translate(pgx.ErrNoRows, "room "+id)
	}
	return nil
}

func (r *postgresRepo) Assign(ctx context.Context, roomID, clientID string, city domain.City, at time.Time) (*domain.Assignment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, db.Translate(err, "assign client")
	}
	defer tx.Rollback(ctx)

	// Row lock on the room serializes concurrent assignments to its last seats.
	var (
		roomCity string
		capacity int
	)
	if err := tx.QueryRow(ctx, `SELECT city, capacity FROM rooms WHERE id = $1 FOR UPDATE`, roomID).Scan(&roomCity, &capacity); err != nil {
		return nil, db.Translate(err, "room "+roomID)
	}
	if domain.City(roomCity) != city {
		return nil, fmt.Errorf("room %s is in %s, not %s: %w", roomID, roomCity, city, domain.ErrValidation)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM room_assignments WHERE client_id = $1 AND city = $2`, clientID, string(city)); err != nil {
		return nil, db.Translate(err, "client "+clientID)
	}

	var occupancy int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM room_assignments WHERE room_id = $1`, roomID).Scan(&occupancy); err != nil {
		return nil, db.Translate(err, "room "+roomID)
	}
	if occupancy >= capacity {
		return nil, fmt.Errorf("room %s has %d/%d: %w", roomID, occupancy, capacity, domain.ErrCapacityExceeded)
	}

	a := domain.Assignment{RoomID: roomID, ClientID: clientID, City: city}
	if err := tx.QueryRow(ctx, `
INSERT INTO room_assignments (room_id, client_id, city, assigned_at)
VALUES ($1, $2, $3, $4)
RETURNING id::text, assigned_at`, roomID, clientID, string(city), at).Scan(&a.ID, &a.AssignedAt); err != nil {
		return nil, db.Translate(err, "assign client "+clientID)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, db.Translate(err, "assign client "+clientID)
	}
	return &a, nil
}

func (r *postgresRepo) Unassign(ctx context.Context, clientID string, city domain.City) (int, error) {
	q := `DELETE FROM room_assignments WHERE client_id = $1`
	args := []any{clientID}
	if city != "" {
		q += ` AND city = $2`
		args = append(args, string(city))
	}
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, db.Translate(err, "unassign client "+clientID)
	}
	return int(tag.RowsAffected()), nil
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var (
		room      domain.Room
		city, typ string
		floor     *int32
	)
	if err := row.Scan(&room.ID, &room.HotelName, &city, &typ, &room.Capacity, &floor, &room.RoomNumber, &room.CreatedAt); err != nil {
		return nil, err
	}
	room.City = domain.City(city)
	room.Type = domain.RoomType(typ)
	room.Assignments = []domain.Assignment{}
	if floor != nil {
		f := int(*floor)
		room.FloorNumber = &f
	}
	return &room, nil
}
