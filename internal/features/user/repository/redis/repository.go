package redis

import (
	"context"
	"strings"

	"miniapp-sync-backend/internal/common/errors"
	"miniapp-sync-backend/internal/features/user/repository"
	rplatform "miniapp-sync-backend/internal/platform/redis"
)

// store implements the remote store boundary on Redis hashes: one hash
// per document path, HSet as the field-level merge, HIncrBy for counters.
type store struct {
	client *rplatform.Client
}

func NewStore(client *rplatform.Client) repository.Store {
	return &store{client: client}
}

func (s *store) Get(ctx context.Context, path string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, path).Result()
	if err != nil {
		return nil, classify("get", err)
	}
	return fields, nil
}

func (s *store) Merge(ctx context.Context, path string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	// HSet writes only the named fields; existing fields stay untouched,
	// so a merge can never delete data.
	if err := s.client.HSet(ctx, path, fields).Err(); err != nil {
		return classify("merge", err)
	}
	return nil
}

func (s *store) IncrBy(ctx context.Context, path, field string, delta int64) (int64, error) {
	v, err := s.client.HIncrBy(ctx, path, field, delta).Result()
	if err != nil {
		return 0, classify("incrby", err)
	}
	return v, nil
}

func (s *store) IncrByFloat(ctx context.Context, path, field string, delta float64) (float64, error) {
	v, err := s.client.HIncrByFloat(ctx, path, field, delta).Result()
	if err != nil {
		return 0, classify("incrbyfloat", err)
	}
	return v, nil
}

// classify maps driver errors into the taxonomy the writer retries on.
func classify(operation string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "i/o timeout"), strings.Contains(msg, "context deadline exceeded"):
		return errors.NewStoreTimeoutError(operation, err)
	case strings.Contains(msg, "NOAUTH"), strings.Contains(msg, "NOPERM"), strings.Contains(msg, "WRONGPASS"):
		return errors.Wrap(err, errors.ErrCodeUnauthorized, "store rejected credentials").
			WithContext("operation", operation)
	default:
		return errors.NewStoreError(operation, err)
	}
}
