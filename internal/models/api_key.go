package models

import "time"

// APIKey lets scripts and tool clients act as a user without a JWT. Only a
// SHA-256 hash of the token is stored; Prefix is kept for display.
type APIKey struct {
	Base
	UserID     string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Name       string     `gorm:"size:100;not null" json:"name"`
	TokenHash  string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Prefix     string     `gorm:"size:16;not null" json:"prefix"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// Passkey is a WebAuthn credential registered by a user. A user has at most
// one passkey.
type Passkey struct {
	Base
	UserID         string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CredentialID   string `gorm:"size:512;not null;uniqueIndex" json:"credential_id"`
	PublicKey      string `gorm:"type:text;not null" json:"-"`
	SignCount      int64  `gorm:"not null;default:0" json:"sign_count"`
	BackupEligible bool   `gorm:"not null;default:false" json:"backup_eligible"`
	BackupState    bool   `gorm:"not null;default:false" json:"backup_state"`
}
