// Package sanitize is the single choke point between untrusted partial
// user records and the remote store. Sanitize is pure and total: any
// input, including the empty record, produces a canonical SafeUserRecord
// with no unset required field and all numeric defaults non-negative.
package sanitize

import (
	"time"

	"github.com/xssnick/tonutils-go/address"

	"miniapp-sync-backend/internal/features/user/models"
)

// Documented defaults for numeric progression fields.
const (
	DefaultCoins              = int64(0)
	DefaultXP                 = int64(0)
	DefaultLevel              = int64(1)
	DefaultDailyStreak        = int64(0)
	DefaultFarmingMultiplier  = 1.0
	DefaultReferralMultiplier = 1.0
	DefaultAdsLimitPerDay     = int64(5)
	DefaultWithdrawalLimit    = int64(1)
	DefaultMinWithdrawal      = int64(200)
)

// Sanitize maps an arbitrary partial record to the canonical safe form.
// Absent strings become "", absent numerics get their documented default,
// negatives are clamped to the default's floor, unknown tiers become
// free. Date fields are included only when the source value is a valid
// non-zero date; a wallet address is included only when it parses as a
// TON address. Never panics.
func Sanitize(in models.UntrustedUser) models.SafeUserRecord {
	out := models.SafeUserRecord{
		ID:         str(in.ID),
		TelegramID: str(in.TelegramID),

		DisplayName:     str(in.DisplayName),
		ProfileImageURL: str(in.ProfileImageURL),
		LanguageCode:    str(in.LanguageCode),
		IsPremium:       in.IsPremium != nil && *in.IsPremium,

		Coins:       nonNegInt(in.Coins, DefaultCoins),
		XP:          nonNegInt(in.XP, DefaultXP),
		Level:       minInt(in.Level, DefaultLevel),
		DailyStreak: nonNegInt(in.DailyStreak, DefaultDailyStreak),

		FarmingMultiplier:  nonNegFloat(in.FarmingMultiplier, DefaultFarmingMultiplier),
		ReferralMultiplier: nonNegFloat(in.ReferralMultiplier, DefaultReferralMultiplier),
		AdsLimitPerDay:     nonNegInt(in.AdsLimitPerDay, DefaultAdsLimitPerDay),
		WithdrawalLimit:    nonNegInt(in.WithdrawalLimit, DefaultWithdrawalLimit),
		MinWithdrawal:      nonNegInt(in.MinWithdrawal, DefaultMinWithdrawal),

		Tier: tier(in.Tier),

		ReferralCount:    nonNegInt(in.ReferralCount, 0),
		ReferralEarnings: nonNegFloat(in.ReferralEarnings, 0),

		WalletAddress: wallet(in.WalletAddress),

		CreatedAt:   validTime(in.CreatedAt),
		LastLoginAt: validTime(in.LastLoginAt),
		VIPExpires:  validTime(in.VIPExpires),
	}
	return out
}

// Resanitize re-applies the policy to an already-canonical record, e.g.
// one read back from the store. Sanitize(Resanitize(x)) == Resanitize(x).
func Resanitize(r models.SafeUserRecord) models.SafeUserRecord {
	return Sanitize(Untrust(r))
}

// Untrust is the lossless reverse mapping into the untrusted shape.
func Untrust(r models.SafeUserRecord) models.UntrustedUser {
	tierStr := string(r.Tier)
	return models.UntrustedUser{
		ID:                 &r.ID,
		TelegramID:         &r.TelegramID,
		DisplayName:        &r.DisplayName,
		ProfileImageURL:    &r.ProfileImageURL,
		LanguageCode:       &r.LanguageCode,
		IsPremium:          &r.IsPremium,
		Coins:              &r.Coins,
		XP:                 &r.XP,
		Level:              &r.Level,
		DailyStreak:        &r.DailyStreak,
		FarmingMultiplier:  &r.FarmingMultiplier,
		ReferralMultiplier: &r.ReferralMultiplier,
		AdsLimitPerDay:     &r.AdsLimitPerDay,
		WithdrawalLimit:    &r.WithdrawalLimit,
		MinWithdrawal:      &r.MinWithdrawal,
		Tier:               &tierStr,
		ReferralCount:      &r.ReferralCount,
		ReferralEarnings:   &r.ReferralEarnings,
		WalletAddress:      r.WalletAddress,
		CreatedAt:          r.CreatedAt,
		LastLoginAt:        r.LastLoginAt,
		VIPExpires:         r.VIPExpires,
	}
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// nonNegInt defaults absent values and clamps negatives to def (def is
// the field's floor, always >= 0).
func nonNegInt(p *int64, def int64) int64 {
	if p == nil || *p < 0 {
		return def
	}
	return *p
}

// minInt defaults absent values and raises anything below the minimum up
// to it (level 0 is as invalid as level -3).
func minInt(p *int64, min int64) int64 {
	if p == nil || *p < min {
		return min
	}
	return *p
}

func nonNegFloat(p *float64, def float64) float64 {
	if p == nil || *p < 0 {
		return def
	}
	return *p
}

func tier(p *string) models.Tier {
	if p == nil {
		return models.TierFree
	}
	t := models.Tier(*p)
	if !t.Valid() {
		return models.TierFree
	}
	return t
}

// validTime keeps a timestamp only when it is a real value. Zero times
// are what a fabricated default would look like, so they are omitted
// rather than persisted.
func validTime(p *time.Time) *time.Time {
	if p == nil || p.IsZero() {
		return nil
	}
	t := *p
	return &t
}

// wallet keeps the address only when it parses as a TON address in any
// accepted form.
func wallet(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	if _, err := address.ParseAddr(*p); err != nil {
		if _, err := address.ParseRawAddr(*p); err != nil {
			return nil
		}
	}
	a := *p
	return &a
}
