package mongodb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const envconfigPrefix = "MONGODB"

// Config represents common configuration options for a MongoDB connection
type Config struct {
	// ConnectionString, when set, takes precedence over every other option
	// except Database.
	ConnectionString string `envconfig:"CONNECTION_STRING"`
	Host             string `envconfig:"HOST" default:"localhost"`
	Port             int    `envconfig:"PORT" default:"27017"`
	Database         string `envconfig:"DATABASE" default:"authkeeper"`
	ReplicaSet       string `envconfig:"REPLICA_SET"`
	Username         string `envconfig:"USERNAME"`
	Password         string `envconfig:"PASSWORD"`
}

// ConfigFromEnvironment returns MongoDB connection configuration gathered from
// MONGODB_* environment variables.
func ConfigFromEnvironment() (Config, error) {
	c := Config{}
	if err := envconfig.Process(envconfigPrefix, &c); err != nil {
		return c, errors.Wrap(
			err,
			"error getting mongo configuration from environment",
		)
	}
	return c, nil
}

// URI returns the connection string described by the Config.
func (c Config) URI() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	var credentials string
	if c.Username != "" {
		credentials = fmt.Sprintf(
			"%s:%s@",
			escapeCredential(c.Username),
			escapeCredential(c.Password),
		)
	}
	uri := fmt.Sprintf(
		"mongodb://%s%s:%d/%s",
		credentials,
		c.Host,
		c.Port,
		c.Database,
	)
	if c.ReplicaSet != "" {
		uri = fmt.Sprintf("%s?replicaSet=%s", uri, c.ReplicaSet)
	}
	return uri
}

// escapeCredential percent-encodes s for use in the user info portion of a
// connection string. Spaces are encoded as %20 rather than +.
func escapeCredential(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Database returns a connection to the MongoDB database described by the
// Config.
func Database(ctx context.Context, c Config) (*mongo.Database, error) {
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	defer connectCancel()
	// This client's settings favor consistency over speed
	client, err := mongo.Connect(
		connectCtx,
		options.Client().ApplyURI(c.URI()).SetWriteConcern(
			writeconcern.New(writeconcern.WMajority()),
		).SetReadConcern(readconcern.Majority()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to mongo")
	}
	return client.Database(c.Database), nil
}
