package client

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"umrah-backoffice/internal/db"
	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
)

const clientColumns = `id::text, name, email, phone, address, passport_number, gender, date_of_birth, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at, name`)
	if err != nil {
		return nil, db.Translate(err, "list clients")
	}
	defer rows.Close()

	out := make([]domain.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			r.logger.Error("client repo: scan", zap.Error(err))
			return nil, db.Translate(err, "list clients")
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Translate(err, "list clients")
	}
	return out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "client "+id)
	}
	return c, nil
}

const insertClient = `
INSERT INTO clients (name, email, phone, address, passport_number, gender, date_of_birth)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + clientColumns

func (r *postgresRepo) Create(ctx context.Context, c domain.Client) (*domain.Client, error) {
	created, err := scanClient(r.pool.QueryRow(ctx, insertClient, clientArgs(c)...))
	if err != nil {
		return nil, db.Translate(err, "create client")
	}
	return created, nil
}

func (r *postgresRepo) BulkCreate(ctx context.Context, cs []domain.Client) ([]domain.Client, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, db.Translate(err, "bulk create clients")
	}
	defer tx.Rollback(ctx)

	out := make([]domain.Client, 0, len(cs))
	for _, c := range cs {
		created, err := scanClient(tx.QueryRow(ctx, insertClient, clientArgs(c)...))
		if err != nil {
			return nil, db.Translate(err, "bulk create client "+c.Name)
		}
		out = append(out, *created)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, db.Translate(err, "bulk create clients")
	}
	r.logger.Info("client repo: bulk insert", zap.Int("count", len(out)))
	return out, nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, p domain.ClientPatch) (*domain.Client, error) {
	const q = `
UPDATE clients SET
    name            = COALESCE($2, name),
    email           = COALESCE($3, email),
    phone           = COALESCE($4, phone),
    address         = COALESCE($5, address),
    passport_number = COALESCE($6, passport_number),
    gender          = COALESCE($7, gender),
    date_of_birth   = COALESCE($8, date_of_birth)
WHERE id = $1
RETURNING ` + clientColumns
	var gender *string
	if p.Gender != nil {
		g := string(*p.Gender)
		gender = &g
	}
	c, err := scanClient(r.pool.QueryRow(ctx, q, id,
		p.Name, p.Email, p.Phone, p.Address, p.PassportNumber, gender, p.DateOfBirth))
	if err != nil {
		return nil, db.Translate(err, "client "+id)
	}
	return c, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	// room_assignments rows go with the client through ON DELETE CASCADE.
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err, "client "+id)
	}
	if tag.RowsAffected() == 0 {
		return db.Translate(pgx.ErrNoRows, "client "+id)
	}
	return nil
}

func clientArgs(c domain.Client) []any {
	return []any{c.Name, c.Email, c.Phone, c.Address, c.PassportNumber, string(c.Gender), c.DateOfBirth}
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var c domain.Client
	var gender string
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Address,
		&c.PassportNumber,
		&gender,
		&c.DateOfBirth,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	c.Gender = domain.Gender(gender)
	return &c, nil
}
