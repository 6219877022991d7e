package ratings

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists rating records in the "ratings" collection.
type MongoStore struct {
	col *mongo.Collection
}

type ratingDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	MovieID   int64              `bson:"movie_id"`
	Rating    int                `bson:"rating"`
	CreatedAt time.Time          `bson:"created_at"`
}

// NewMongoStore creates a store backed by MongoDB.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("ratings")}
}

// EnsureIndexes creates the unique (email, movie_id) index that backs the
// at-most-one-rating-per-pair invariant. Call once at startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}, {Key: "movie_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoStore) Find(ctx context.Context, email string, movieID int64) (*Record, error) {
	var doc ratingDoc
	err := s.col.FindOne(ctx, bson.M{"email": email, "movie_id": movieID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := doc.record()
	return &rec, nil
}

func (s *MongoStore) Insert(ctx context.Context, rec Record) (Record, error) {
	doc := ratingDoc{
		ID:        primitive.NewObjectID(),
		Email:     rec.Email,
		MovieID:   rec.MovieID,
		Rating:    rec.Value,
		CreatedAt: rec.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Record{}, ErrDuplicate
		}
		return Record{}, err
	}
	return doc.record(), nil
}

func (s *MongoStore) FindByMovie(ctx context.Context, movieID int64) ([]Record, error) {
	cur, err := s.col.Find(ctx, bson.M{"movie_id": movieID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Record
	for cur.Next(ctx) {
		var doc ratingDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.record())
	}
	return out, cur.Err()
}

func (d ratingDoc) record() Record {
	return Record{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		MovieID:   d.MovieID,
		Value:     d.Rating,
		CreatedAt: d.CreatedAt,
	}
}
