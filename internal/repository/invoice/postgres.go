package invoice

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

const invoiceSelect = `
SELECT i.id::text, i.invoice_number, i.client_id::text, i.agent_id, i.agent_name,
       i.subtotal, i.tax, i.total, i.status, i.due_date, i.notes,
       i.passport_number, i.gender, i.flight_number, i.room_type, i.visa_status,
       i.departure_date, i.date_of_birth, i.created_at, i.updated_at,
       c.name, c.email, c.phone, c.address, c.passport_number, c.gender, c.date_of_birth, c.created_at
FROM invoices i
LEFT JOIN clients c ON c.id = i.client_id`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) List(ctx context.Context, agentID string) ([]domain.Invoice, error) {
	q := invoiceSelect
	args := []any{}
	if agentID != "" {
		q += ` WHERE i.agent_id = $1`
		args = append(args, agentID)
	}
	q += ` ORDER BY i.created_at DESC, i.id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, db.Translate(err, "list invoices")
	}
	invoices := make([]domain.Invoice, 0)
	index := make(map[string]int)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			r.logger.Error("invoice repo: scan", zap.Error(err))
			return nil, db.Translate(err, "list invoices")
		}
		index[inv.ID] = len(invoices)
		invoices = append(invoices, *inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, db.Translate(err, "list invoices")
	}
	if len(invoices) == 0 {
		return invoices, nil
	}

	ids := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	items, err := r.items(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		i := index[it.InvoiceID]
		invoices[i].Items = append(invoices[i].Items, it)
	}
	return invoices, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	return r.get(ctx, r.pool, id)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *postgresRepo) get(ctx context.Context, q querier, id string) (*domain.Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx, invoiceSelect+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "invoice "+id)
	}
	items, err := r.items(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	inv.Items = append(inv.Items, items...)
	return inv, nil
}

func (r *postgresRepo) items(ctx context.Context, q querier, invoiceIDs []string) ([]domain.InvoiceItem, error) {
	rows, err := q.Query(ctx, `
SELECT id::text, invoice_id::text, description, quantity, unit_price
FROM items
WHERE invoice_id::text = ANY($1::text[])
ORDER BY invoice_id, position`, invoiceIDs)
	if err != nil {
		return nil, db.Translate(err, "list items")
	}
	defer rows.Close()

	out := make([]domain.InvoiceItem, 0)
	for rows.Next() {
		var it domain.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, db.Translate(err, "list items")
		}
		it.Total = it.Quantity * it.UnitPrice
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Translate(err, "list items")
	}
	return out, nil
}

func (r *postgresRepo) Create(ctx context.Context, inv domain.Invoice) (*domain.Invoice, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, db.Translate(err, "create invoice")
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
INSERT INTO invoices (invoice_number, client_id, agent_id, agent_name, subtotal, tax, total, status,
                      due_date, notes, passport_number, gender, flight_number, room_type, visa_status,
                      departure_date, date_of_birth)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id::text`,
		inv.InvoiceNumber, nullable(inv.ClientID), inv.AgentID, inv.AgentName,
		inv.Subtotal, inv.Tax, inv.Total, string(inv.Status),
		inv.DueDate, inv.Notes, inv.PassportNumber, string(inv.Gender), inv.FlightNumber,
		string(inv.RoomType), string(inv.VisaStatus), inv.DepartureDate, inv.DateOfBirth,
	).Scan(&id)
	if err != nil {
		return nil, db.Translate(err, "create invoice")
	}
	if err := insertItems(ctx, tx, id, inv.Items); err != nil {
		return nil, err
	}

	created, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, db.Translate(err, "create invoice")
	}
	return created, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, invoiceID string, items []domain.InvoiceItem) error {
	batch := &pgx.Batch{}
	for pos, it := range items {
		batch.Queue(`INSERT INTO items (invoice_id, position, description, quantity, unit_price) VALUES ($1, $2, $3, $4, $5)`,
			invoiceID, pos, it.Description, it.Quantity, it.UnitPrice)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return db.Translate(err, "insert items")
	}
	return nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, p domain.InvoicePatch) (*domain.Invoice, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, db.Translate(err, "invoice "+id)
	}
	defer tx.Rollback(ctx)

	current, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(id, current.Status, p.ExpectStatus); err != nil {
		return nil, err
	}
	next := p.Apply(*current)
	next.UpdatedAt = time.Now().UTC()

	var expect *string
	if p.ExpectStatus != nil {
		s := string(*p.ExpectStatus)
		expect = &s
	}
	// A concurrent writer that committed first is re-checked against $16.
	tag, err := tx.Exec(ctx, `
UPDATE invoices SET
    subtotal = $2, tax = $3, total = $4, status = $5, due_date = $6, notes = $7,
    passport_number = $8, gender = $9, flight_number = $10, room_type = $11,
    visa_status = $12, departure_date = $13, date_of_birth = $14, updated_at = $15
WHERE id = $1 AND ($16::text IS NULL OR status = $16::text)`,
		id, next.Subtotal, next.Tax, next.Total, string(next.Status), next.DueDate, next.Notes,
		next.PassportNumber, string(next.Gender), next.FlightNumber, string(next.RoomType),
		string(next.VisaStatus), next.DepartureDate, next.DateOfBirth, next.UpdatedAt, expect)
	if err != nil {
		return nil, db.Translate(err, "invoice "+id)
	}
	if tag.RowsAffected() == 0 {
		if p.ExpectStatus != nil {
			return nil, fmt.Errorf("invoice %s changed status concurrently: %w", id, domain.ErrInvalidTransition)
		}
		return nil, db.Translate(pgx.ErrNoRows, "invoice "+id)
	}

	if p.Items != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM items WHERE invoice_id = $1`, id); err != nil {
			return nil, db.Translate(err, "invoice "+id+" items")
		}
		if err := insertItems(ctx, tx, id, p.Items); err != nil {
			return nil, err
		}
	}

	updated, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, db.Translate(err, "invoice "+id)
	}
	return updated, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	// items go with the invoice through ON DELETE CASCADE.
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err, "invoice "+id)
	}
	if tag.RowsAffected() == 0 {
		return db.Translate(pgx.ErrNoRows, "invoice "+id)
	}
	return nil
}

func (r *postgresRepo) CountByClient(ctx context.Context, clientID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM invoices WHERE client_id = $1`, clientID).Scan(&n); err != nil {
		return 0, db.Translate(err, "count invoices of client "+clientID)
	}
	return n, nil
}

func checkStatus(id string, current domain.InvoiceStatus, expect *domain.InvoiceStatus) error {
	if expect != nil && current != *expect {
		return fmt.Errorf("invoice %s is %s, not %s: %w", id, current, *expect, domain.ErrInvalidTransition)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var (
		inv                             domain.Invoice
		clientID                        *string
		status, gender, roomType, visa  string
		cName, cEmail, cPhone, cAddress *string
		cPassport, cGender, cDOB        *string
		cCreated                        *time.Time
	)
	if err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &clientID, &inv.AgentID, &inv.AgentName,
		&inv.Subtotal, &inv.Tax, &inv.Total, &status, &inv.DueDate, &inv.Notes,
		&inv.PassportNumber, &gender, &inv.FlightNumber, &roomType, &visa,
		&inv.DepartureDate, &inv.DateOfBirth, &inv.CreatedAt, &inv.UpdatedAt,
		&cName, &cEmail, &cPhone, &cAddress, &cPassport, &cGender, &cDOB, &cCreated,
	); err != nil {
		return nil, err
	}
	inv.Status = domain.InvoiceStatus(status)
	inv.Gender = domain.Gender(gender)
	inv.RoomType = domain.RoomType(roomType)
	inv.VisaStatus = domain.VisaStatus(visa)
	inv.Items = []domain.InvoiceItem{}
	if clientID != nil {
		inv.ClientID = *clientID
	}
	if cName != nil {
		inv.Client = &domain.Client{
			ID:             inv.ClientID,
			Name:           *cName,
			Email:          deref(cEmail),
			Phone:          deref(cPhone),
			Address:        deref(cAddress),
			PassportNumber: deref(cPassport),
			Gender:         domain.Gender(deref(cGender)),
			DateOfBirth:    deref(cDOB),
		}
		if cCreated != nil {
			inv.Client.CreatedAt = *cCreated
		}
	}
	return &inv, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
