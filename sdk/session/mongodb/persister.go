// Package mongodb provides a session.Persister backed by a MongoDB collection.
package mongodb

import (
	"context"

	"github.com/krancour/authkeeper/sdk/session"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection is the name of the collection used when none is specified.
const DefaultCollection = "sessions"

// entry is the document stored for each session entry.
type entry struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

type persister struct {
	collection *mongo.Collection
}

// NewPersister returns a session.Persister that stores one document per entry
// in the specified collection of the specified database.
func NewPersister(
	database *mongo.Database,
	collectionName string,
) session.Persister {
	if collectionName == "" {
		collectionName = DefaultCollection
	}
	return &persister{
		collection: database.Collection(collectionName),
	}
}

func (p *persister) Get(
	ctx context.Context,
	key string,
) (string, bool, error) {
	e := entry{}
	err := p.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(
			err,
			"error finding session entry %q",
			key,
		)
	}
	return e.Value, true, nil
}

func (p *persister) Set(ctx context.Context, key string, value string) error {
	if _, err := p.collection.UpdateOne(
		ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}},
		options.Update().SetUpsert(true),
	); err != nil {
		return errors.Wrapf(err, "error upserting session entry %q", key)
	}
	return nil
}

func (p *persister) Delete(ctx context.Context, key string) error {
	if _, err := p.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return errors.Wrapf(err, "error deleting session entry %q", key)
	}
	return nil
}
