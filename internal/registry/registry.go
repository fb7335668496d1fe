package registry

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"group-trade-bot/internal/models"
)

// Registry maintains the set of users who receive trade-lock
// notifications for each group. Pure set semantics: inserts and deletes
// are idempotent.
type Registry struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRegistry creates a new admin registry on top of db.
func NewRegistry(db *gorm.DB, logger *zap.Logger) *Registry {
	return &Registry{db: db, logger: logger}
}

// Register adds user to the notification set of group. Registering an
// already-registered user is a no-op.
func (r *Registry) Register(groupID, userID int64) error {
	reg := models.GroupAdmin{GroupID: groupID, AdminID: userID}
	err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&reg).Error
	if err != nil {
		return err
	}

	r.logger.Info("Admin registered", zap.Int64("group_id", groupID), zap.Int64("admin_id", userID))
	return nil
}

// Unregister removes user from the notification set of group. Removing
// an absent user is a no-op.
func (r *Registry) Unregister(groupID, userID int64) error {
	return r.db.Unscoped().
		Where("group_id = ? AND admin_id = ?", groupID, userID).
		Delete(&models.GroupAdmin{}).Error
}

// ListMembers returns the user ids registered for group.
func (r *Registry) ListMembers(groupID int64) ([]int64, error) {
	var members []int64
	err := r.db.Model(&models.GroupAdmin{}).
		Where("group_id = ?", groupID).
		Pluck("admin_id", &members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
