package models

// GroupCounter holds the last allocated trade number for a group.
// There is exactly one row per group; the counter only ever increases.
type GroupCounter struct {
	GroupID         int64 `gorm:"primaryKey"`
	LastTradeNumber int64 `gorm:"not null;default:0"`
}
