package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"miniapp-sync-backend/internal/common/errors"
	"miniapp-sync-backend/internal/features/referral/models"
	"miniapp-sync-backend/internal/features/referral/repository"
	rplatform "miniapp-sync-backend/internal/platform/redis"
)

type referralRepository struct {
	client *rplatform.Client
}

func NewRepository(client *rplatform.Client) repository.Repository {
	return &referralRepository{client: client}
}

func key(userID string) string {
	return fmt.Sprintf("referrals/%s", userID)
}

func claimKey(userID string) string {
	return fmt.Sprintf("referrals/%s/claim", userID)
}

func (r *referralRepository) Get(ctx context.Context, userID string) (*models.ReferralRecord, error) {
	data, err := r.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, errors.NewStoreError("referral get", err)
	}

	var record models.ReferralRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.NewStoreError("referral decode", err)
	}
	return &record, nil
}

func (r *referralRepository) Create(ctx context.Context, record *models.ReferralRecord) (*models.ReferralRecord, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, errors.NewStoreError("referral encode", err)
	}

	created, err := r.client.SetNX(ctx, key(record.UserID), data, 0).Result()
	if err != nil {
		return nil, errors.NewStoreError("referral create", err)
	}
	if created {
		return record, nil
	}
	// First link wins: return what is already stored.
	return r.Get(ctx, record.UserID)
}

func (r *referralRepository) MarkConfirmed(ctx context.Context, record *models.ReferralRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.NewStoreError("referral encode", err)
	}
	if err := r.client.Set(ctx, key(record.UserID), data, 0).Err(); err != nil {
		return errors.NewStoreError("referral confirm", err)
	}
	return nil
}

func (r *referralRepository) ClaimConfirmation(ctx context.Context, userID string) (bool, error) {
	claimed, err := r.client.SetNX(ctx, claimKey(userID), "1", 0).Result()
	if err != nil {
		return false, errors.NewStoreError("referral claim", err)
	}
	return claimed, nil
}

func (r *referralRepository) ReleaseConfirmation(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, claimKey(userID)).Err(); err != nil {
		return errors.NewStoreError("referral claim release", err)
	}
	return nil
}
