package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trafficsignal/backend/services/signal-controller/internal/models"
)

// SnapshotStore keeps the latest decision of each intersection in redis and announces every
// new decision on a pub/sub channel for dashboards.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore returns redis-backed store.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) key(intersectionID string) string {
	return fmt.Sprintf("signals:status:%s", intersectionID)
}

func (s *SnapshotStore) channel(intersectionID string) string {
	return fmt.Sprintf("signals:decisions:%s", intersectionID)
}

// Save caches the status and publishes it.
func (s *SnapshotStore) Save(ctx context.Context, status models.Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(status.IntersectionID), data, s.ttl)
		pipe.Publish(ctx, s.channel(status.IntersectionID), data)
		return nil
	})
	return err
}

// Delete drops the cached status.
func (s *SnapshotStore) Delete(ctx context.Context, intersectionID string) error {
	return s.client.Del(ctx, s.key(intersectionID)).Err()
}
