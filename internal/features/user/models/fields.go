package models

import (
	"strconv"
	"time"
)

// Field names as persisted in the store.
const (
	FieldID                 = "id"
	FieldTelegramID         = "telegram_id"
	FieldDisplayName        = "display_name"
	FieldProfileImageURL    = "profile_image_url"
	FieldLanguageCode       = "language_code"
	FieldIsPremium          = "is_premium"
	FieldCoins              = "coins"
	FieldXP                 = "xp"
	FieldLevel              = "level"
	FieldDailyStreak        = "daily_streak"
	FieldFarmingMultiplier  = "farming_multiplier"
	FieldReferralMultiplier = "referral_multiplier"
	FieldAdsLimitPerDay     = "ads_limit_per_day"
	FieldWithdrawalLimit    = "withdrawal_limit"
	FieldMinWithdrawal      = "min_withdrawal"
	FieldTier               = "tier"
	FieldReferralCount      = "referral_count"
	FieldReferralEarnings   = "referral_earnings"
	FieldWalletAddress      = "wallet_address"
	FieldCreatedAt          = "created_at"
	FieldLastLoginAt        = "last_login_at"
	FieldVIPExpires         = "vip_expires"
)

// Fields flattens the record into the field map handed to the store's
// merge. Optional fields appear only when set, so a merge can update a
// record without ever deleting a field it did not mean to touch.
func (r SafeUserRecord) Fields() map[string]string {
	fields := map[string]string{
		FieldID:                 r.ID,
		FieldTelegramID:         r.TelegramID,
		FieldDisplayName:        r.DisplayName,
		FieldProfileImageURL:    r.ProfileImageURL,
		FieldLanguageCode:       r.LanguageCode,
		FieldIsPremium:          strconv.FormatBool(r.IsPremium),
		FieldCoins:              strconv.FormatInt(r.Coins, 10),
		FieldXP:                 strconv.FormatInt(r.XP, 10),
		FieldLevel:              strconv.FormatInt(r.Level, 10),
		FieldDailyStreak:        strconv.FormatInt(r.DailyStreak, 10),
		FieldFarmingMultiplier:  strconv.FormatFloat(r.FarmingMultiplier, 'f', -1, 64),
		FieldReferralMultiplier: strconv.FormatFloat(r.ReferralMultiplier, 'f', -1, 64),
		FieldAdsLimitPerDay:     strconv.FormatInt(r.AdsLimitPerDay, 10),
		FieldWithdrawalLimit:    strconv.FormatInt(r.WithdrawalLimit, 10),
		FieldMinWithdrawal:      strconv.FormatInt(r.MinWithdrawal, 10),
		FieldTier:               string(r.Tier),
		FieldReferralCount:      strconv.FormatInt(r.ReferralCount, 10),
		FieldReferralEarnings:   strconv.FormatFloat(r.ReferralEarnings, 'f', -1, 64),
	}

	if r.WalletAddress != nil {
		fields[FieldWalletAddress] = *r.WalletAddress
	}
	if r.CreatedAt != nil {
		fields[FieldCreatedAt] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if r.LastLoginAt != nil {
		fields[FieldLastLoginAt] = r.LastLoginAt.UTC().Format(time.RFC3339Nano)
	}
	if r.VIPExpires != nil {
		fields[FieldVIPExpires] = r.VIPExpires.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

// FromFields rebuilds a record from stored fields. Unparseable values
// fall back to the zero value; the sanitizer re-applies defaults on the
// way back out.
func FromFields(fields map[string]string) SafeUserRecord {
	var r SafeUserRecord
	r.ID = fields[FieldID]
	r.TelegramID = fields[FieldTelegramID]
	r.DisplayName = fields[FieldDisplayName]
	r.ProfileImageURL = fields[FieldProfileImageURL]
	r.LanguageCode = fields[FieldLanguageCode]
	r.IsPremium, _ = strconv.ParseBool(fields[FieldIsPremium])
	r.Coins = parseInt(fields[FieldCoins])
	r.XP = parseInt(fields[FieldXP])
	r.Level = parseInt(fields[FieldLevel])
	r.DailyStreak = parseInt(fields[FieldDailyStreak])
	r.FarmingMultiplier = parseFloat(fields[FieldFarmingMultiplier])
	r.ReferralMultiplier = parseFloat(fields[FieldReferralMultiplier])
	r.AdsLimitPerDay = parseInt(fields[FieldAdsLimitPerDay])
	r.WithdrawalLimit = parseInt(fields[FieldWithdrawalLimit])
	r.MinWithdrawal = parseInt(fields[FieldMinWithdrawal])
	r.Tier = Tier(fields[FieldTier])
	r.ReferralCount = parseInt(fields[FieldReferralCount])
	r.ReferralEarnings = parseFloat(fields[FieldReferralEarnings])

	if v, ok := fields[FieldWalletAddress]; ok && v != "" {
		r.WalletAddress = &v
	}
	if t := parseTime(fields[FieldCreatedAt]); t != nil {
		r.CreatedAt = t
	}
	if t := parseTime(fields[FieldLastLoginAt]); t != nil {
		r.LastLoginAt = t
	}
	if t := parseTime(fields[FieldVIPExpires]); t != nil {
		r.VIPExpires = t
	}
	return r
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil || t.IsZero() {
		return nil
	}
	return &t
}
