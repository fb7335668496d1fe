package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"group-trade-bot/internal/models"
)

func setupRegistry(t *testing.T) *Registry {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.GroupAdmin{})
	assert.NoError(t, err)

	return NewRegistry(db, zap.NewNop())
}

func TestRegister_Idempotent(t *testing.T) {
	r := setupRegistry(t)

	assert.NoError(t, r.Register(100, 55))
	assert.NoError(t, r.Register(100, 55))

	members, err := r.ListMembers(100)
	assert.NoError(t, err)
	assert.Equal(t, []int64{55}, members)
}

func TestUnregister_Idempotent(t *testing.T) {
	r := setupRegistry(t)

	assert.NoError(t, r.Register(100, 55))
	assert.NoError(t, r.Unregister(100, 55))
	// Removing an absent pair is a no-op, not an error.
	assert.NoError(t, r.Unregister(100, 55))

	members, err := r.ListMembers(100)
	assert.NoError(t, err)
	assert.Empty(t, members)
}

func TestRegistrationsAreScopedPerGroup(t *testing.T) {
	r := setupRegistry(t)

	assert.NoError(t, r.Register(100, 55))
	assert.NoError(t, r.Register(100, 56))
	assert.NoError(t, r.Register(200, 55))

	members, err := r.ListMembers(100)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int64{55, 56}, members)

	assert.NoError(t, r.Unregister(200, 55))
	members, err = r.ListMembers(100)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int64{55, 56}, members)
}

func TestReregisterAfterUnregister(t *testing.T) {
	r := setupRegistry(t)

	assert.NoError(t, r.Register(100, 55))
	assert.NoError(t, r.Unregister(100, 55))
	assert.NoError(t, r.Register(100, 55))

	members, err := r.ListMembers(100)
	assert.NoError(t, err)
	assert.Equal(t, []int64{55}, members)
}
