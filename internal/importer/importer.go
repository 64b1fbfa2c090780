// Package importer turns rooming spreadsheets into client records.
package importer

import (
	"context"
	"io"

	"go.uber.org/zap"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
)

type ClientWriter interface {
	BulkCreate(ctx context.Context, in []domain.Client) ([]domain.Client, error)
}

// Batch is a parsed upload awaiting review.
type Batch struct {
	Filename string          `json:"filename"`
	Rows     int             `json:"rows"`
	Clients  []domain.Client `json:"clients"`
}

type Importer struct {
	clients    ClientWriter
	classifier Classifier
	logger     *zap.Logger
}

// New uses the default denylist classifier when classifier is nil.
func New(clients ClientWriter, classifier Classifier, logger *zap.Logger) *Importer {
	if classifier == nil {
		classifier = NewDenylistClassifier()
	}
	return &Importer{clients: clients, classifier: classifier, logger: logging.OrNop(logger)}
}

// Stage parses r without writing anything.
func (i *Importer) Stage(ctx context.Context, r io.Reader, filename string) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := ReadRows(r, filename)
	if err != nil {
		i.logger.Warn("import: unreadable file", zap.String("file", filename), zap.Error(err))
		return nil, err
	}
	b := &Batch{Filename: filename, Rows: len(rows), Clients: Scan(rows, i.classifier)}
	i.logger.Info("import: staged",
		zap.String("file", filename),
		zap.Int("rows", b.Rows),
		zap.Int("clients", len(b.Clients)),
	)
	return b, nil
}

// Commit writes a staged batch in one bulk insert.
func (i *Importer) Commit(ctx context.Context, b *Batch) ([]domain.Client, error) {
	if b == nil || len(b.Clients) == 0 {
		return []domain.Client{}, nil
	}
	created, err := i.clients.BulkCreate(ctx, b.Clients)
	if err != nil {
		return nil, err
	}
	i.logger.Info("import: committed", zap.String("file", b.Filename), zap.Int("clients", len(created)))
	return created, nil
}

// Run stages and commits. A parse failure writes nothing.
func (i *Importer) Run(ctx context.Context, r io.Reader, filename string) ([]domain.Client, error) {
	b, err := i.Stage(ctx, r, filename)
	if err != nil {
		return nil, err
	}
	return i.Commit(ctx, b)
}
