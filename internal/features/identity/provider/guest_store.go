package provider

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"miniapp-sync-backend/internal/features/identity/models"
	rplatform "miniapp-sync-backend/internal/platform/redis"
)

// RedisGuestStore keeps synthesized browser identities keyed by the
// device id the browser persists locally. Entries never expire: the whole
// point is that revisits resolve to the same identity.
type RedisGuestStore struct {
	client *rplatform.Client
}

func NewRedisGuestStore(client *rplatform.Client) *RedisGuestStore {
	return &RedisGuestStore{client: client}
}

func (s *RedisGuestStore) key(deviceID string) string {
	return fmt.Sprintf("guest:%s", deviceID)
}

func (s *RedisGuestStore) Get(ctx context.Context, deviceID string) (*models.Identity, error) {
	data, err := s.client.Get(ctx, s.key(deviceID)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var identity models.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *RedisGuestStore) Put(ctx context.Context, deviceID string, identity *models.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(deviceID), data, 0).Err()
}
