package models

import "gorm.io/gorm"

// GroupAdmin marks a user as a registered recipient of trade-lock
// notifications for a group. Set semantics: the pair is either present
// or absent.
type GroupAdmin struct {
	gorm.Model
	GroupID int64 `gorm:"uniqueIndex:idx_group_admin;not null"`
	AdminID int64 `gorm:"uniqueIndex:idx_group_admin;not null"`
}
