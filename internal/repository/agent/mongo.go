package agent

import (
	"context"
	"strings"
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

// Emails are stored lowercased so the unique index is case-insensitive.
type document struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	Role         string    `bson:"role"`
	Department   string    `bson:"department,omitempty"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func (d document) domain() domain.Agent {
	return domain.Agent{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		Role:         domain.Role(d.Role),
		Department:   d.Department,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

type mongoRepo struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewMongo returns a Repository backed by the agents collection.
func NewMongo(db *mongo.Database, logger *zap.Logger) Repository {
	return &mongoRepo{coll: db.Collection(mongodb.Agents), logger: logging.OrNop(logger)}
}

func (r *mongoRepo) List(ctx context.Context) ([]domain.Agent, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "email", Value: 1}}))
	if err != nil {
		return nil, mongodb.Translate(err, "list agents")
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongodb.Translate(err, "list agents")
	}
	out := make([]domain.Agent, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}

func (r *mongoRepo) find(ctx context.Context, filter bson.M, what string) (*domain.Agent, error) {
	var d document
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, mongodb.Translate(err, what)
	}
	a := d.domain()
	return &a, nil
}

func (r *mongoRepo) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	return r.find(ctx, bson.M{"_id": id}, "agent "+id)
}

func (r *mongoRepo) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	return r.find(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}, "agent "+email)
}

func (r *mongoRepo) Create(ctx context.Context, in domain.Agent) (*domain.Agent, error) {
	d := document{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Role:         string(in.Role),
		Department:   in.Department,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return nil, mongodb.Translate(err, "create agent "+in.Email)
	}
	a := d.domain()
	return &a, nil
}

func (r *mongoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongodb.Translate(err, "agent "+id)
	}
	if res.DeletedCount == 0 {
		return mongodb.Translate(mongo.ErrNoDocuments, "agent "+id)
	}
	return nil
}
