package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
	"umrah-backoffice/internal/mongodb"
	clientrepo "umrah-backoffice/internal/repository/client"
)

type itemDocument struct {
	ID          string  `bson:"id"`
	Description string  `bson:"description"`
	Quantity    float64 `bson:"quantity"`
	UnitPrice   float64 `bson:"unitPrice"`
}

// document embeds the items; they have no life outside their invoice.
type document struct {
	ID             string         `bson:"_id"`
	InvoiceNumber  string         `bson:"invoiceNumber"`
	ClientID       string         `bson:"clientId,omitempty"`
	AgentID        string         `bson:"agentId"`
	AgentName      string         `bson:"agentName,omitempty"`
	Items          []itemDocument `bson:"items"`
	Subtotal       float64        `bson:"subtotal"`
	Tax            float64        `bson:"tax"`
	Total          float64        `bson:"total"`
	Status         string         `bson:"status"`
	DueDate        *time.Time     `bson:"dueDate,omitempty"`
	Notes          string         `bson:"notes,omitempty"`
	PassportNumber string         `bson:"passportNumber,omitempty"`
	Gender         string         `bson:"gender,omitempty"`
	FlightNumber   string         `bson:"flightNumber,omitempty"`
	RoomType       string         `bson:"roomType,omitempty"`
	VisaStatus     string         `bson:"visaStatus,omitempty"`
	DepartureDate  *time.Time     `bson:"departureDate,omitempty"`
	DateOfBirth    string         `bson:"dateOfBirth,omitempty"`
	CreatedAt      time.Time      `bson:"createdAt"`
	UpdatedAt      time.Time      `bson:"updatedAt"`
}

func toDocument(inv domain.Invoice) document {
	return document{
		ID:             inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		ClientID:       inv.ClientID,
		AgentID:        inv.AgentID,
		AgentName:      inv.AgentName,
		Items:          toItemDocuments(inv.Items),
		Subtotal:       inv.Subtotal,
		Tax:            inv.Tax,
		Total:          inv.Total,
		Status:         string(inv.Status),
		DueDate:        inv.DueDate,
		Notes:          inv.Notes,
		PassportNumber: inv.PassportNumber,
		Gender:         string(inv.Gender),
		FlightNumber:   inv.FlightNumber,
		RoomType:       string(inv.RoomType),
		VisaStatus:     string(inv.VisaStatus),
		DepartureDate:  inv.DepartureDate,
		DateOfBirth:    inv.DateOfBirth,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

func toItemDocuments(items []domain.InvoiceItem) []itemDocument {
	out := make([]itemDocument, 0, len(items))
	for _, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		out = append(out, itemDocument{ID: id, Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out
}

func (d document) domain() domain.Invoice {
	inv := domain.Invoice{
		ID:             d.ID,
		InvoiceNumber:  d.InvoiceNumber,
		ClientID:       d.ClientID,
		AgentID:        d.AgentID,
		AgentName:      d.AgentName,
		Items:          make([]domain.InvoiceItem, 0, len(d.Items)),
		Subtotal:       d.Subtotal,
		Tax:            d.Tax,
		Total:          d.Total,
		Status:         domain.InvoiceStatus(d.Status),
		DueDate:        d.DueDate,
		Notes:          d.Notes,
		PassportNumber: d.PassportNumber,
		Gender:         domain.Gender(d.Gender),
		FlightNumber:   d.FlightNumber,
		RoomType:       domain.RoomType(d.RoomType),
		VisaStatus:     domain.VisaStatus(d.VisaStatus),
		DepartureDate:  d.DepartureDate,
		DateOfBirth:    d.DateOfBirth,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for _, it := range d.Items {
		inv.Items = append(inv.Items, domain.InvoiceItem{
			ID:          it.ID,
			InvoiceID:   d.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Quantity * it.UnitPrice,
		})
	}
	return inv
}

type mongoRepo struct {
	invoices *mongo.Collection
	clients  *mongo.Collection
	logger   *zap.Logger
}

// NewMongo returns a Repository backed by the invoices collection.
func NewMongo(db *mongo.Database, logger *zap.Logger) Repository {
	return &mongoRepo{
		invoices: db.Collection(mongodb.Invoices),
		clients:  db.Collection(mongodb.Clients),
		logger:   logging.OrNop(logger),
	}
}

func (r *mongoRepo) List(ctx context.Context, agentID string) ([]domain.Invoice, error) {
	filter := bson.M{}
	if agentID != "" {
		filter["agentId"] = agentID
	}
	cur, err := r.invoices.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mongodb.Translate(err, "list invoices")
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongodb.Translate(err, "list invoices")
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.ClientID != "" {
			ids = append(ids, d.ClientID)
		}
	}
	clients, err := r.clientsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Invoice, 0, len(docs))
	for _, d := range docs {
		inv := d.domain()
		if c, ok := clients[d.ClientID]; ok {
			inv.Client = &c
		}
		out = append(out, inv)
	}
	return out, nil
}

func (r *mongoRepo) clientsByID(ctx context.Context, ids []string) (map[string]domain.Client, error) {
	out := make(map[string]domain.Client, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.clients.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, mongodb.Translate(err, "load invoice clients")
	}
	var docs []clientrepo.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongodb.Translate(err, "load invoice clients")
	}
	for _, d := range docs {
		out[d.ID] = d.Domain()
	}
	return out, nil
}

func (r *mongoRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	var d document
	if err := r.invoices.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, mongodb.Translate(err, "invoice "+id)
	}
	return r.withClient(ctx, d)
}

func (r *mongoRepo) withClient(ctx context.Context, d document) (*domain.Invoice, error) {
	inv := d.domain()
	if d.ClientID == "" {
		return &inv, nil
	}
	var c clientrepo.Document
	err := r.clients.FindOne(ctx, bson.M{"_id": d.ClientID}).Decode(&c)
	switch {
	case err == nil:
		client := c.Domain()
		inv.Client = &client
	case errors.Is(err, mongo.ErrNoDocuments):
		r.logger.Warn("invoice repo: client missing", zap.String("invoice", d.ID), zap.String("client", d.ClientID))
	default:
		return nil, mongodb.Translate(err, "invoice "+d.ID+" client")
	}
	return &inv, nil
}

func (r *mongoRepo) Create(ctx context.Context, inv domain.Invoice) (*domain.Invoice, error) {
	now := time.Now().UTC()
	inv.ID = uuid.NewString()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	d := toDocument(inv)
	if _, err := r.invoices.InsertOne(ctx, d); err != nil {
		return nil, mongodb.Translate(err, "create invoice")
	}
	return r.withClient(ctx, d)
}

func (r *mongoRepo) Update(ctx context.Context, id string, p domain.InvoicePatch) (*domain.Invoice, error) {
	var current document
	if err := r.invoices.FindOne(ctx, bson.M{"_id": id}).Decode(&current); err != nil {
		return nil, mongodb.Translate(err, "invoice "+id)
	}
	if err := checkStatus(id, domain.InvoiceStatus(current.Status), p.ExpectStatus); err != nil {
		return nil, err
	}
	next := p.Apply(current.domain())
	next.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": id}
	if p.ExpectStatus != nil {
		filter["status"] = string(*p.ExpectStatus)
	}
	var updated document
	err := r.invoices.FindOneAndReplace(ctx, filter, toDocument(next),
		options.FindOneAndReplace().SetReturnDocument(options.After)).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) && p.ExpectStatus != nil {
		return nil, fmt.Errorf("invoice %s changed status concurrently: %w", id, domain.ErrInvalidTransition)
	}
	if err != nil {
		return nil, mongodb.Translate(err, "invoice "+id)
	}
	return r.withClient(ctx, updated)
}

func (r *mongoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.invoices.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongodb.Translate(err, "invoice "+id)
	}
	if res.DeletedCount == 0 {
		return mongodb.Translate(mongo.ErrNoDocuments, "invoice "+id)
	}
	return nil
}

func (r *mongoRepo) CountByClient(ctx context.Context, clientID string) (int, error) {
	n, err := r.invoices.CountDocuments(ctx, bson.M{"clientId": clientID})
	if err != nil {
		return 0, mongodb.Translate(err, "count invoices of client "+clientID)
	}
	return int(n), nil
}
