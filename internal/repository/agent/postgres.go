package agent

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"umrah-backoffice/internal/db"
	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
)

const agentColumns = `id::text, name, email, role, department, password_hash, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Agent, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY name, email`)
	if err != nil {
		return nil, db.Translate(err, "list agents")
	}
	defer rows.Close()

	out := make([]domain.Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			r.logger.Error("agent repo: scan", zap.Error(err))
			return nil, db.Translate(err, "list agents")
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Translate(err, "list agents")
	}
	return out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "agent "+id)
	}
	return a, nil
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, db.Translate(err, "agent "+email)
	}
	return a, nil
}

func (r *postgresRepo) Create(ctx context.Context, in domain.Agent) (*domain.Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx, `
INSERT INTO agents (name, email, role, department, password_hash)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+agentColumns, in.Name, in.Email, string(in.Role), in.Department, in.PasswordHash))
	if err != nil {
		return nil, db.Translate(err, "create agent "+in.Email)
	}
	return a, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err, "agent "+id)
	}
	if tag.RowsAffected() == 0 {
		return db.Translate(pgx.ErrNoRows, "agent "+id)
	}
	return nil
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var (
		a    domain.Agent
		role string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &role, &a.Department, &a.PasswordHash, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Role = domain.Role(role)
	return &a, nil
}
