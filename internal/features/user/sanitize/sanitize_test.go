package sanitize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miniapp-sync-backend/internal/features/user/models"
)

func TestSanitize_EmptyInput(t *testing.T) {
	out := Sanitize(models.UntrustedUser{})

	assert.Equal(t, "", out.ID)
	assert.Equal(t, "", out.TelegramID)
	assert.Equal(t, "", out.DisplayName)
	assert.Equal(t, "", out.ProfileImageURL)
	assert.Equal(t, "", out.LanguageCode)
	assert.False(t, out.IsPremium)

	assert.Equal(t, DefaultCoins, out.Coins)
	assert.Equal(t, DefaultXP, out.XP)
	assert.Equal(t, DefaultLevel, out.Level)
	assert.Equal(t, DefaultDailyStreak, out.DailyStreak)
	assert.Equal(t, DefaultFarmingMultiplier, out.FarmingMultiplier)
	assert.Equal(t, DefaultReferralMultiplier, out.ReferralMultiplier)
	assert.Equal(t, DefaultAdsLimitPerDay, out.AdsLimitPerDay)
	assert.Equal(t, DefaultWithdrawalLimit, out.WithdrawalLimit)
	assert.Equal(t, DefaultMinWithdrawal, out.MinWithdrawal)

	assert.Equal(t, models.TierFree, out.Tier)
	assert.Equal(t, int64(0), out.ReferralCount)
	assert.Equal(t, float64(0), out.ReferralEarnings)

	assert.Nil(t, out.WalletAddress)
	assert.Nil(t, out.CreatedAt)
	assert.Nil(t, out.LastLoginAt)
	assert.Nil(t, out.VIPExpires)
}

func TestSanitize_DefaultsAreNonNegative(t *testing.T) {
	out := Sanitize(models.UntrustedUser{})

	assert.GreaterOrEqual(t, out.Coins, int64(0))
	assert.GreaterOrEqual(t, out.XP, int64(0))
	assert.GreaterOrEqual(t, out.Level, int64(0))
	assert.GreaterOrEqual(t, out.DailyStreak, int64(0))
	assert.GreaterOrEqual(t, out.FarmingMultiplier, 0.0)
	assert.GreaterOrEqual(t, out.ReferralMultiplier, 0.0)
	assert.GreaterOrEqual(t, out.AdsLimitPerDay, int64(0))
	assert.GreaterOrEqual(t, out.WithdrawalLimit, int64(0))
	assert.GreaterOrEqual(t, out.MinWithdrawal, int64(0))
	assert.GreaterOrEqual(t, out.ReferralCount, int64(0))
	assert.GreaterOrEqual(t, out.ReferralEarnings, 0.0)
}

func TestSanitize_NegativesFallBackToDefaults(t *testing.T) {
	neg := int64(-5)
	negF := -1.5
	out := Sanitize(models.UntrustedUser{
		Coins:             &neg,
		XP:                &neg,
		Level:             &neg,
		DailyStreak:       &neg,
		FarmingMultiplier: &negF,
		ReferralCount:     &neg,
		ReferralEarnings:  &negF,
	})

	assert.Equal(t, DefaultCoins, out.Coins)
	assert.Equal(t, DefaultXP, out.XP)
	assert.Equal(t, DefaultLevel, out.Level)
	assert.Equal(t, DefaultDailyStreak, out.DailyStreak)
	assert.Equal(t, DefaultFarmingMultiplier, out.FarmingMultiplier)
	assert.Equal(t, int64(0), out.ReferralCount)
	assert.Equal(t, float64(0), out.ReferralEarnings)
}

func TestSanitize_LevelZeroRaisedToOne(t *testing.T) {
	zero := int64(0)
	out := Sanitize(models.UntrustedUser{Level: &zero})
	assert.Equal(t, int64(1), out.Level)
}

func TestSanitize_KeepsValidValues(t *testing.T) {
	id := "12345"
	coins := int64(999)
	mult := 2.5
	tier := "vip2"
	out := Sanitize(models.UntrustedUser{
		ID:                &id,
		Coins:             &coins,
		FarmingMultiplier: &mult,
		Tier:              &tier,
	})

	assert.Equal(t, "12345", out.ID)
	assert.Equal(t, int64(999), out.Coins)
	assert.Equal(t, 2.5, out.FarmingMultiplier)
	assert.Equal(t, models.TierVIP2, out.Tier)
}

func TestSanitize_UnknownTierBecomesFree(t *testing.T) {
	for _, bad := range []string{"", "vip3", "premium", "FREE"} {
		tier := bad
		out := Sanitize(models.UntrustedUser{Tier: &tier})
		assert.Equal(t, models.TierFree, out.Tier, "tier %q", bad)
	}
}

func TestSanitize_DatesOmittedUnlessValid(t *testing.T) {
	var zero time.Time
	valid := time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)

	out := Sanitize(models.UntrustedUser{
		CreatedAt:   &zero,
		LastLoginAt: &valid,
	})

	assert.Nil(t, out.CreatedAt, "zero time must be omitted, not defaulted")
	require.NotNil(t, out.LastLoginAt)
	assert.True(t, valid.Equal(*out.LastLoginAt))
	assert.Nil(t, out.VIPExpires)
}

func TestSanitize_WalletAddress(t *testing.T) {
	validRaw := "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	invalid := "not-a-wallet"
	empty := ""

	out := Sanitize(models.UntrustedUser{WalletAddress: &validRaw})
	require.NotNil(t, out.WalletAddress)
	assert.Equal(t, validRaw, *out.WalletAddress)

	out = Sanitize(models.UntrustedUser{WalletAddress: &invalid})
	assert.Nil(t, out.WalletAddress)

	out = Sanitize(models.UntrustedUser{WalletAddress: &empty})
	assert.Nil(t, out.WalletAddress)
}

func TestSanitize_Idempotent(t *testing.T) {
	id := "42"
	coins := int64(17)
	bad := int64(-3)
	tier := "vip1"
	valid := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	inputs := []models.UntrustedUser{
		{},
		{ID: &id, Coins: &coins, Tier: &tier, LastLoginAt: &valid},
		{XP: &bad, Level: &bad},
	}

	for i, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(Untrust(once))
		assert.Equal(t, once, twice, "input %d", i)
	}
}

func TestFields_NoOptionalPlaceholders(t *testing.T) {
	fields := Sanitize(models.UntrustedUser{}).Fields()

	// Optional fields must be absent entirely, never present as empty
	// placeholders the store's merge would interpret as deletions.
	for _, f := range []string{
		models.FieldWalletAddress,
		models.FieldCreatedAt,
		models.FieldLastLoginAt,
		models.FieldVIPExpires,
	} {
		_, ok := fields[f]
		assert.False(t, ok, "field %s must be omitted", f)
	}

	// Required fields are always present with concrete values.
	assert.Equal(t, "0", fields[models.FieldCoins])
	assert.Equal(t, "1", fields[models.FieldLevel])
	assert.Equal(t, "free", fields[models.FieldTier])
	assert.Equal(t, "5", fields[models.FieldAdsLimitPerDay])
	assert.Equal(t, "200", fields[models.FieldMinWithdrawal])
}

func TestFieldsRoundTrip(t *testing.T) {
	id := "777"
	wallet := "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	login := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := Sanitize(models.UntrustedUser{
		ID:            &id,
		WalletAddress: &wallet,
		LastLoginAt:   &login,
	})

	back := models.FromFields(record.Fields())
	assert.Equal(t, record.ID, back.ID)
	assert.Equal(t, record.Coins, back.Coins)
	assert.Equal(t, record.Tier, back.Tier)
	require.NotNil(t, back.WalletAddress)
	assert.Equal(t, wallet, *back.WalletAddress)
	require.NotNil(t, back.LastLoginAt)
	assert.True(t, login.Equal(*back.LastLoginAt))
	assert.Nil(t, back.CreatedAt)
}
