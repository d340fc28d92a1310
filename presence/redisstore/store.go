package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"codeshare-server/core"
)

const keyPrefix = "presence:"

const opTimeout = 2 * time.Second

type presenceStore struct {
	client *redis.Client
}

// NewPresenceStore returns a Redis-backed presence store. No TTL is set on
// entries; the registry deletes them on every leave and disconnect, so a
// key with no owning live connection is a bug, not something to expire away.
func NewPresenceStore(addr string) core.PresenceStore {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"addr":  addr,
			"error": err,
		}).Warn("Redis presence store unreachable at startup")
	}
	return &presenceStore{client: client}
}

func (s *presenceStore) Set(connectionID, displayName string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, keyPrefix+connectionID, displayName, 0).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"connection_id": connectionID,
			"error":         err,
		}).Error("Failed to store presence entry")
	}
}

func (s *presenceStore) Get(connectionID string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	name, err := s.client.Get(ctx, keyPrefix+connectionID).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"connection_id": connectionID,
			"error":         err,
		}).Error("Failed to read presence entry")
		return "", false
	}
	return name, true
}

func (s *presenceStore) Delete(connectionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, keyPrefix+connectionID).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"connection_id": connectionID,
			"error":         err,
		}).Error("Failed to delete presence entry")
	}
}
