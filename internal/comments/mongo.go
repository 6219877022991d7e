package comments

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists comments in the "comments" collection.
type MongoStore struct {
	col *mongo.Collection
}

type commentDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	MovieID   int64              `bson:"movie_id"`
	Username  string             `bson:"username"`
	Title     string             `bson:"title"`
	Body      string             `bson:"comment"`
	Rating    int                `bson:"rating"`
	Upvotes   int                `bson:"upvotes"`
	Downvotes int                `bson:"downvotes"`
	CreatedAt time.Time          `bson:"created_at"`
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("comments")}
}

// EnsureIndexes creates the movie_id index the per-movie listing queries on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "movie_id", Value: 1}},
	})
	return err
}

func (s *MongoStore) Insert(ctx context.Context, c Comment) (Comment, error) {
	doc := commentDoc{
		ID:        primitive.NewObjectID(),
		MovieID:   c.MovieID,
		Username:  c.Username,
		Title:     c.Title,
		Body:      c.Body,
		Rating:    c.Rating,
		Upvotes:   c.Upvotes,
		Downvotes: c.Downvotes,
		CreatedAt: c.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		return Comment{}, err
	}
	return doc.comment(), nil
}

func (s *MongoStore) FindByMovie(ctx context.Context, movieID int64) ([]Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"movie_id": movieID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Comment
	for cur.Next(ctx) {
		var doc commentDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.comment())
	}
	return out, cur.Err()
}

func (d commentDoc) comment() Comment {
	return Comment{
		ID:        d.ID.Hex(),
		MovieID:   d.MovieID,
		Username:  d.Username,
		Title:     d.Title,
		Body:      d.Body,
		Rating:    d.Rating,
		Upvotes:   d.Upvotes,
		Downvotes: d.Downvotes,
		CreatedAt: d.CreatedAt,
	}
}
