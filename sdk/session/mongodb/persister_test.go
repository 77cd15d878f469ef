package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	mongoconfig "github.com/krancour/authkeeper/internal/mongodb"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestNewPersister(t *testing.T) {
	// Constructing a client doesn't require a running server
	client, err := mongo.NewClient()
	require.NoError(t, err)
	database := client.Database("authkeeper")

	p := NewPersister(database, "")
	require.IsType(t, &persister{}, p)
	require.Equal(t, DefaultCollection, p.(*persister).collection.Name())

	p = NewPersister(database, "custom")
	require.Equal(t, "custom", p.(*persister).collection.Name())
}

func TestEntryDocument(t *testing.T) {
	docBytes, err := bson.Marshal(entry{Key: "access_token", Value: "T1"})
	require.NoError(t, err)
	doc := bson.M{}
	require.NoError(t, bson.Unmarshal(docBytes, &doc))
	require.Equal(t, "access_token", doc["_id"])
	require.Equal(t, "T1", doc["value"])
}

// TestPersister runs against a real MongoDB and is skipped unless one is
// described by MONGODB_* environment variables.
func TestPersister(t *testing.T) {
	if os.Getenv("MONGODB_CONNECTION_STRING") == "" &&
		os.Getenv("MONGODB_HOST") == "" {
		t.Skip("MONGODB_CONNECTION_STRING or MONGODB_HOST is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	config, err := mongoconfig.ConfigFromEnvironment()
	require.NoError(t, err)
	database, err := mongoconfig.Database(ctx, config)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, database.Client().Disconnect(context.Background()))
	}()

	collectionName := "sessions-" + uuid.NewV4().String()
	defer func() {
		require.NoError(
			t,
			database.Collection(collectionName).Drop(context.Background()),
		)
	}()
	p := NewPersister(database, collectionName)

	// Absent entries are not an error
	_, ok, err := p.Get(ctx, "access_token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, p.Set(ctx, "access_token", "T1"))
	value, ok, err := p.Get(ctx, "access_token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "T1", value)

	// Set overwrites in place
	require.NoError(t, p.Set(ctx, "access_token", "T2"))
	value, _, err = p.Get(ctx, "access_token")
	require.NoError(t, err)
	require.Equal(t, "T2", value)
	count, err := database.Collection(collectionName).CountDocuments(
		ctx,
		bson.M{},
	)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	require.NoError(t, p.Delete(ctx, "access_token"))
	_, ok, err = p.Get(ctx, "access_token")
	require.NoError(t, err)
	require.False(t, ok)

	// Deleting an absent entry is not an error
	require.NoError(t, p.Delete(ctx, "access_token"))
}
