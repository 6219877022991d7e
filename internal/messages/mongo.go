package messages

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists messages in the "messages" collection.
type MongoStore struct {
	col *mongo.Collection
}

type messageDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Content   string             `bson:"content,omitempty"`
	Email     string             `bson:"email,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("messages")}
}

func (s *MongoStore) Insert(ctx context.Context, m Message) (Message, error) {
	doc := messageDoc{
		ID:        primitive.NewObjectID(),
		Name:      m.Name,
		Content:   m.Content,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.UpdatedAt = doc.CreatedAt
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		return Message{}, err
	}
	return doc.message(), nil
}

func (s *MongoStore) List(ctx context.Context) ([]Message, error) {
	cur, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Message
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.message())
	}
	return out, cur.Err()
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Message{}, ErrNotFound
	}
	var doc messageDoc
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, err
	}
	return doc.message(), nil
}

func (s *MongoStore) UpdateName(ctx context.Context, id, name string) (Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Message{}, ErrNotFound
	}
	var doc messageDoc
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"name": name, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, err
	}
	return doc.message(), nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (d messageDoc) message() Message {
	return Message{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Content:   d.Content,
		Email:     d.Email,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
