package room

import (
	"context"
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

type roomDocument struct {
	ID          string    `bson:"_id"`
	HotelName   string    `bson:"hotelName"`
	City        string    `bson:"city"`
	Type        string    `bson:"type"`
	Capacity    int       `bson:"capacity"`
	FloorNumber *int      `bson:"floorNumber,omitempty"`
	RoomNumber  string    `bson:"roomNumber,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func (d roomDocument) domain() domain.Room {
	return domain.Room{
		ID:          d.ID,
		HotelName:   d.HotelName,
		City:        domain.City(d.City),
		Type:        domain.RoomType(d.Type),
		Capacity:    d.Capacity,
		FloorNumber: d.FloorNumber,
		RoomNumber:  d.RoomNumber,
		CreatedAt:   d.CreatedAt,
		Assignments: []domain.Assignment{},
	}
}

// assignmentDocument may lack a city on rows written before cities were tracked.
type assignmentDocument struct {
	ID         string    `bson:"_id"`
	RoomID     string    `bson:"roomId"`
	ClientID   string    `bson:"clientId"`
	City       string    `bson:"city,omitempty"`
	AssignedAt time.Time `bson:"assignedAt"`
}

type mongoRepo struct {
	rooms       *mongo.Collection
	assignments *mongo.Collection
	clients     *mongo.Collection
	logger      *zap.Logger
}

// NewMongo returns a Repository backed by the rooms and assignments
// collections. The unique (clientId, city) index guards duplicates; the
// capacity check is read-then-write and can race.
func NewMongo(db *mongo.Database, logger *zap.Logger) Repository {
	return &mongoRepo{
		rooms:       db.Collection(mongodb.Rooms),
		assignments: db.Collection(mongodb.Assignments),
		clients:     db.Collection(mongodb.Clients),
		logger:      logging.OrNop(logger),
	}
}

func (r *mongoRepo) List(ctx context.Context) ([]domain.Room, error) {
	cur, err := r.rooms.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{
		{Key: "city", Value: 1}, {Key: "hotelName", Value: 1}, {Key: "roomNumber", Value: 1}, {Key: "createdAt", Value: 1},
	}))
	if err != nil {
		return nil, mongodb.Translate(err, "list rooms")
	}
	var docs []roomDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongodb.Translate(err, "list rooms")
	}

	assignments, err := r.loadAssignments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	rooms := make([]domain.Room, 0, len(docs))
	for _, d := range docs {
		room := d.domain()
		room.Assignments = append(room.Assignments, assignments[d.ID]...)
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (r *mongoRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	var d roomDocument
	if err := r.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, mongodb.Translate(err, "room "+id)
	}
	assignments, err := r.loadAssignments(ctx, bson.M{"roomId": id})
	if err != nil {
		return nil, err
	}
	room := d.domain()
	room.Assignments = append(room.Assignments, assignments[id]...)
	return &room, nil
}

// loadAssignments groups assignments by room and joins their clients.
// Legacy rows without a city inherit the room's city.
func (r *mongoRepo) loadAssignments(ctx context.Context, filter bson.M) (map[string][]domain.Assignment, error) {
	cur, err := r.assignments.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "assignedAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mongodb.Translate(err, "list assignments")
	}
	var docs []assignmentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongodb.Translate(err, "list assignments")
	}
	if len(docs) == 0 {
		return map[string][]domain.Assignment{}, nil
	}

	clientIDs := make([]string, 0, len(docs))
	roomIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		clientIDs = append(clientIDs, d.ClientID)
		roomIDs = append(roomIDs, d.RoomID)
	}
	clients, err := r.clientsByID(ctx, clientIDs)
	if err != nil {
		return nil, err
	}
	cities, err := r.roomCities(ctx, roomIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]domain.Assignment)
	for _, d := range docs {
		c, ok := clients[d.ClientID]
		if !ok {
			// Orphan left behind by a client deleted elsewhere.
			r.logger.Warn("room repo: assignment without client", zap.String("assignment", d.ID), zap.String("client", d.ClientID))
			continue
		}
		city := domain.City(d.City)
		if city == "" {
			city = cities[d.RoomID]
		}
		out[d.RoomID] = append(out[d.RoomID], domain.Assignment{
			ID:         d.ID,
			RoomID:     d.RoomID,
			ClientID:   d.ClientID,
			City:       city,
			AssignedAt: d.AssignedAt,
			Client:     &c,
		})
	}
	return out, nil
}

func (r *mongoRepo) clientsByID(ctx context.Context, ids []string) (map[string]domain.Client, error) {
	cur, err := r.clients.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, mongodb.Translate(err, "load assignment clients")
	}
	var docs []clientrepo.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongodb.Translate(err, "load assignment clients")
	}
	out := make(map[string]domain.Client, len(docs))
	for _, d := range docs {
		out[d.ID] = d.Domain()
	}
	return out, nil
}

func (r *mongoRepo) roomCities(ctx context.Context, ids []string) (map[string]domain.City, error) {
	cur, err := r.rooms.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"city": 1}))
	if err != nil {
		return nil, mongodb.Translate(err, "load assignment rooms")
	}
	var docs []roomDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongodb.Translate(err, "load assignment rooms")
	}
	out := make(map[string]domain.City, len(docs))
	for _, d := range docs {
		out[d.ID] = domain.City(d.City)
	}
	return out, nil
}

func (r *mongoRepo) Create(ctx context.Context, in domain.Room) (*domain.Room, error) {
	d := roomDocument{
		ID:          uuid.NewString(),
		HotelName:   in.HotelName,
		City:        string(in.City),
		Type:        string(in.Type),
		Capacity:    in.Type.Capacity(),
		FloorNumber: in.FloorNumber,
		RoomNumber:  in.RoomNumber,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := r.rooms.InsertOne(ctx, d); err != nil {
		return nil, mongodb.Translate(err, "create room")
	}
	room := d.domain()
	return &room, nil
}

func (r *mongoRepo) UpdateType(ctx context.Context, id string, t domain.RoomType) (*domain.Room, error) {
	occupancy, err := r.assignments.CountDocuments(ctx, bson.M{"roomId": id})
	if err != nil {
		return nil, mongodb.Translate(err, "room "+id)
	}
	if int(occupancy) > t.Capacity() {
		return nil, fmt.Errorf("room %s holds %d, %s seats %d: %w", id, occupancy, t, t.Capacity(), domain.ErrCapacityExceeded)
	}
	res, err := r.rooms.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"type": string(t), "capacity": t.Capacity()}})
	if err != nil {
		return nil, mongodb.Translate(err, "room "+id)
	}
	if res.MatchedCount == 0 {
		return nil, mongodb.Translate(mongo.ErrNoDocuments, "room "+id)
	}
	return r.GetByID(ctx, id)
}

func (r *mongoRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.assignments.DeleteMany(ctx, bson.M{"roomId": id}); err != nil {
		return mongodb.Translate(err, "room "+id+" assignments")
	}
	res, err := r.rooms.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongodb.Translate(err, "room "+id)
	}
	if res.DeletedCount == 0 {
		return mongodb.Translate(mongo.ErrNoDocuments, "room "+id)
	}
	return nil
}

func (r *mongoRepo) Assign(ctx context.Context, roomID, clientID string, city domain.City, at time.Time) (*domain.Assignment, error) {
	var room roomDocument
	if err := r.rooms.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room); err != nil {
		return nil, mongodb.Translate(err, "room "+roomID)
	}
	if domain.City(room.City) != city {
		return nil, fmt.Errorf("room %s is in %s, not %s: %w", roomID, room.City, city, domain.ErrValidation)
	}
	if err := r.clients.FindOne(ctx, bson.M{"_id": clientID}).Err(); err != nil {
		return nil, mongodb.Translate(err, "client "+clientID)
	}

	// The client's own seat in this room is about to be replaced, so it does
	// not count. Nothing is removed until the room is known to have space.
	occupancy, err := r.assignments.CountDocuments(ctx, bson.M{"roomId": roomID, "clientId": bson.M{"$ne": clientID}})
	if err != nil {
		return nil, mongodb.Translate(err, "room "+roomID)
	}
	if int(occupancy) >= room.Capacity {
		return nil, fmt.Errorf("room %s has %d/%d: %w", roomID, occupancy, room.Capacity, domain.ErrCapacityExceeded)
	}

	if _, err := r.Unassign(ctx, clientID, city); err != nil {
		return nil, err
	}

	d := assignmentDocument{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		ClientID:   clientID,
		City:       string(city),
		AssignedAt: at.UTC(),
	}
	if _, err := r.assignments.InsertOne(ctx, d); err != nil {
		return nil, mongodb.Translate(err, "assign client "+clientID)
	}
	return &domain.Assignment{ID: d.ID, RoomID: roomID, ClientID: clientID, City: city, AssignedAt: d.AssignedAt}, nil
}

func (r *mongoRepo) Unassign(ctx context.Context, clientID string, city domain.City) (int, error) {
	filter := bson.M{"clientId": clientID}
	if city != "" {
		// Legacy rows carry no city; they are retired together with the city's row.
		filter["$or"] = bson.A{
			bson.M{"city": string(city)},
			bson.M{"city": bson.M{"$exists": false}},
			bson.M{"city": ""},
		}
	}
	res, err := r.assignments.DeleteMany(ctx, filter)
	if err != nil {
		return 0, mongodb.Translate(err, "unassign client "+clientID)
	}
	return int(res.DeletedCount), nil
}
