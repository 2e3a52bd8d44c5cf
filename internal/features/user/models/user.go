package models

import "time"

// Tier is the subscription tier stored on a user record.
type Tier string

const (
	TierFree Tier = "free"
	TierVIP1 Tier = "vip1"
	TierVIP2 Tier = "vip2"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierVIP1, TierVIP2:
		return true
	}
	return false
}

// UntrustedUser is the tagged untrusted-input shape: an arbitrary,
// partial user-like record as it arrives from the client or a host
// payload. Pointer fields distinguish "absent" from zero values. Nothing
// of this type may reach the store; it exists so every call site is
// forced through Sanitize.
type UntrustedUser struct {
	ID         *string `json:"id,omitempty"`
	TelegramID *string `json:"telegram_id,omitempty"`

	DisplayName     *string `json:"display_name,omitempty"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
	LanguageCode    *string `json:"language_code,omitempty"`
	IsPremium       *bool   `json:"is_premium,omitempty"`

	Coins       *int64   `json:"coins,omitempty"`
	XP          *int64   `json:"xp,omitempty"`
	Level       *int64   `json:"level,omitempty"`
	DailyStreak *int64   `json:"daily_streak,omitempty"`

	FarmingMultiplier  *float64 `json:"farming_multiplier,omitempty"`
	ReferralMultiplier *float64 `json:"referral_multiplier,omitempty"`
	AdsLimitPerDay     *int64   `json:"ads_limit_per_day,omitempty"`
	WithdrawalLimit    *int64   `json:"withdrawal_limit,omitempty"`
	MinWithdrawal      *int64   `json:"min_withdrawal,omitempty"`

	Tier *string `json:"tier,omitempty"`

	ReferralCount    *int64   `json:"referral_count,omitempty"`
	ReferralEarnings *float64 `json:"referral_earnings,omitempty"`

	WalletAddress *string `json:"wallet_address,omitempty"`

	CreatedAt   *time.Time `json:"created_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	VIPExpires  *time.Time `json:"vip_expires,omitempty"`
}

// SafeUserRecord is the canonical persisted shape. Every required field
// carries a concrete value; optional timestamps and the wallet address
// are pointers that are simply omitted when unset. A SafeUserRecord can
// therefore never instruct the store's merge to delete a field.
type SafeUserRecord struct {
	ID         string `json:"id"`
	TelegramID string `json:"telegram_id"`

	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
	LanguageCode    string `json:"language_code"`
	IsPremium       bool   `json:"is_premium"`

	Coins       int64 `json:"coins"`
	XP          int64 `json:"xp"`
	Level       int64 `json:"level"`
	DailyStreak int64 `json:"daily_streak"`

	FarmingMultiplier  float64 `json:"farming_multiplier"`
	ReferralMultiplier float64 `json:"referral_multiplier"`
	AdsLimitPerDay     int64   `json:"ads_limit_per_day"`
	WithdrawalLimit    int64   `json:"withdrawal_limit"`
	MinWithdrawal      int64   `json:"min_withdrawal"`

	Tier Tier `json:"tier"`

	ReferralCount    int64   `json:"referral_count"`
	ReferralEarnings float64 `json:"referral_earnings"`

	WalletAddress *string `json:"wallet_address,omitempty"`

	CreatedAt   *time.Time `json:"created_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	VIPExpires  *time.Time `json:"vip_expires,omitempty"`
}
