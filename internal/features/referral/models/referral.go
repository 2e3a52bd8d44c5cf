package models

import "time"

// Status is the referral lifecycle state. The only legal transition is
// pending -> confirmed, exactly once; confirmed is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// ReferralRecord tracks one referred user. Created when the user arrives
// via a referral link; confirmed on their first verified app open.
type ReferralRecord struct {
	UserID      string     `json:"user_id"`
	Status      Status     `json:"status"`
	ReferrerID  string     `json:"referrer_id,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// ConfirmedEvent is the payload published to the side channel when a
// referral is credited.
type ConfirmedEvent struct {
	UserID      string    `json:"user_id"`
	ReferrerID  string    `json:"referrer_id"`
	Bonus       int64     `json:"bonus"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
