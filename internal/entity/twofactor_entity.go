package entity

import (
	"time"

	"github.com/google/uuid"
)

// TwoFactorConfig holds a user's TOTP state. A row with Enabled=false is a
// pending setup whose secret may still be replaced; Enabled=true requires a
// non-empty secret. Disabling deletes the row entirely.
type TwoFactorConfig struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Secret    string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BackupCode stores only the bcrypt hash of a recovery code. A non-nil
// UsedAt permanently spends the code.
type BackupCode struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	CodeHash  string
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (b *BackupCode) Used() bool {
	return b.UsedAt != nil
}
