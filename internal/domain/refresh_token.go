package domain

import "time"

// RefreshToken is one issued refresh credential. The raw secret handed to the
// client is never stored; Fingerprint is the keyed hash used as lookup key.
type RefreshToken struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Fingerprint string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	IssuedAt    time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt   time.Time  `gorm:"index;not null" json:"expires_at"`
	Revoked     bool       `gorm:"not null;default:false" json:"revoked"`
	RevokedAt   *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	ReplacedBy  *string    `gorm:"size:36;index" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Live reports whether the record can still be redeemed at the given instant.
func (t *RefreshToken) Live(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
