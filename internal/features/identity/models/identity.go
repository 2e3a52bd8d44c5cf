package models

import "time"

// Identity is the normalized user reference resolved from the host
// platform or synthesized for browser sessions. Immutable once resolved;
// ID is the join key across cache, store and referral records.
type Identity struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
	LanguageCode    string `json:"language_code"`
	IsPremium       bool   `json:"is_premium"`

	// Guest marks identities synthesized outside the host platform.
	Guest bool `json:"guest,omitempty"`
}

// CachedIdentity is the cache entry shape. The CachedAt check is
// authoritative for freshness; the storage TTL is only a cleanup aid.
type CachedIdentity struct {
	Identity Identity  `json:"identity"`
	CachedAt time.Time `json:"cached_at"`
}

// Fresh reports whether the entry is still within ttl at now.
func (c *CachedIdentity) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.CachedAt) < ttl
}

// Source carries the ambient host signals taken off an app-open request:
// the raw init data string when the app runs inside the host platform,
// and the browser-persisted device id for the fallback path.
type Source struct {
	InitData string
	DeviceID string
}
