package specification

import "gorm.io/gorm"

// Unused keeps only backup codes that have never been consumed.
type Unused struct{}

func (s Unused) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("used_at IS NULL")
}
