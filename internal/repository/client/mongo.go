package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
	"umrah-backoffice/internal/mongodb"
)

// Document is the stored shape of a client in the document backend.
type Document struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Email          string    `bson:"email"`
	Phone          string    `bson:"phone,omitempty"`
	Address        string    `bson:"address,omitempty"`
	PassportNumber string    `bson:"passportNumber,omitempty"`
	Gender         string    `bson:"gender,omitempty"`
	DateOfBirth    string    `bson:"dateOfBirth,omitempty"`
	CreatedAt      time.Time `bson:"createdAt"`
}

func (d Document) Domain() domain.Client {
	return domain.Client{
		ID:             d.ID,
		Name:           d.Name,
		Email:          d.Email,
		Phone:          d.Phone,
		Address:        d.Address,
		PassportNumber: d.PassportNumber,
		Gender:         domain.Gender(d.Gender),
		DateOfBirth:    d.DateOfBirth,
		CreatedAt:      d.CreatedAt,
	}
}

func toDocument(c domain.Client, now time.Time) Document {
	return Document{
		ID:             uuid.NewString(),
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Address:        c.Address,
		PassportNumber: c.PassportNumber,
		Gender:         string(c.Gender),
		DateOfBirth:    c.DateOfBirth,
		CreatedAt:      now,
	}
}

type mongoRepo struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewMongo returns a Repository backed by the clients collection.
func NewMongo(db *mongo.Database, logger *zap.Logger) Repository {
	return &mongoRepo{coll: db.Collection(mongodb.Clients), logger: logging.OrNop(logger)}
}

func (r *mongoRepo) List(ctx context.Context) ([]domain.Client, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "name", Value: 1}}))
	if err != nil {
		return nil, mongodb.Translate(err, "list clients")
	}
	var docs []Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongodb.Translate(err, "list clients")
	}
	out := make([]domain.Client, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Domain())
	}
	return out, nil
}

func (r *mongoRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	var d Document
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, mongodb.Translate(err, "client "+id)
	}
	c := d.Domain()
	return &c, nil
}

func (r *mongoRepo) Create(ctx context.Context, c domain.Client) (*domain.Client, error) {
	d := toDocument(c, time.Now().UTC())
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return nil, mongodb.Translate(err, "create client")
	}
	created := d.Domain()
	return &created, nil
}

func (r *mongoRepo) BulkCreate(ctx context.Context, cs []domain.Client) ([]domain.Client, error) {
	if len(cs) == 0 {
		return []domain.Client{}, nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(cs))
	out := make([]domain.Client, 0, len(cs))
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		d := toDocument(c, now)
		docs = append(docs, d)
		ids = append(ids, d.ID)
		out = append(out, d.Domain())
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		// InsertMany is not atomic; remove whatever landed so the batch is all or nothing.
		if _, derr := r.coll.DeleteMany(context.WithoutCancel(ctx), bson.M{"_id": bson.M{"$in": ids}}); derr != nil {
			r.logger.Error("client repo: bulk rollback failed", zap.Error(derr))
		}
		return nil, mongodb.Translate(err, "bulk create clients")
	}
	r.logger.Info("client repo: bulk insert", zap.Int("count", len(out)))
	return out, nil
}

func (r *mongoRepo) Update(ctx context.Context, id string, p domain.ClientPatch) (*domain.Client, error) {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.Address != nil {
		set["address"] = *p.Address
	}
	if p.PassportNumber != nil {
		set["passportNumber"] = *p.PassportNumber
	}
	if p.Gender != nil {
		set["gender"] = string(*p.Gender)
	}
	if p.DateOfBirth != nil {
		set["dateOfBirth"] = *p.DateOfBirth
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	var d Document
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if err != nil {
		return nil, mongodb.Translate(err, "client "+id)
	}
	c := d.Domain()
	return &c, nil
}

func (r *mongoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongodb.Translate(err, "client "+id)
	}
	if res.DeletedCount == 0 {
		return mongodb.Translate(mongo.ErrNoDocuments, "client "+id)
	}
	// No foreign keys here: drop the client's assignments explicitly.
	if _, err := r.coll.Database().Collection(mongodb.Assignments).DeleteMany(ctx, bson.M{"clientId": id}); err != nil {
		return mongodb.Translate(err, "client "+id+" assignments")
	}
	return nil
}
