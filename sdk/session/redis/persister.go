// Package redis provides a session.Persister backed by Redis. It lets several
// processes on different hosts share one logged in session.
package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/krancour/authkeeper/sdk/session"
	"github.com/pkg/errors"
)

// DefaultKeyPrefix is the prefix applied to session keys when none is
// specified.
const DefaultKeyPrefix = "authkeeper:session"

type persister struct {
	redisClient *redis.Client
	keyPrefix   string
}

// NewPersister returns a session.Persister that stores entries in Redis under
// keys of the form <keyPrefix>:<key>. Entries never expire on their own; the
// API server is the authority on whether an access token is still valid.
func NewPersister(
	redisClient *redis.Client,
	keyPrefix string,
) session.Persister {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &persister{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
	}
}

func (p *persister) Get(
	ctx context.Context,
	key string,
) (string, bool, error) {
	value, err := p.redisClient.WithContext(ctx).Get(p.redisKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(
			err,
			"error reading %q from redis",
			p.redisKey(key),
		)
	}
	return value, true, nil
}

func (p *persister) Set(ctx context.Context, key string, value string) error {
	if err := p.redisClient.WithContext(ctx).Set(
		p.redisKey(key),
		value,
		0,
	).Err(); err != nil {
		return errors.Wrapf(err, "error writing %q to redis", p.redisKey(key))
	}
	return nil
}

func (p *persister) Delete(ctx context.Context, key string) error {
	if err :=
		p.redisClient.WithContext(ctx).Del(p.redisKey(key)).Err(); err != nil {
		return errors.Wrapf(err, "error deleting %q from redis", p.redisKey(key))
	}
	return nil
}

func (p *persister) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", p.keyPrefix, key)
}
