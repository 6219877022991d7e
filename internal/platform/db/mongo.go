package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OpenMongo connects to the document collaborator and returns the database
// handle plus a close function for shutdown.
func OpenMongo(ctx context.Context, uri, database string) (*mongo.Database, func(context.Context) error, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, nil, errors.New("mongo uri is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client.Database(database), client.Disconnect, nil
}
