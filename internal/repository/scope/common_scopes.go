package scope

import "gorm.io/gorm"

// OrderByCreatedDesc is the default listing order for audit rows
func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}
