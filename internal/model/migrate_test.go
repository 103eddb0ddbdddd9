package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/consulting-platform/internal/db/dbtest"
	"github.com/Leganyst/consulting-platform/internal/model"
)

func TestAutoMigrateSeedsRolesOnce(t *testing.T) {
	db := dbtest.Open(t)

	// повторная миграция не дублирует роли
	require.NoError(t, model.AutoMigrate(db))

	var codes []string
	require.NoError(t, db.Model(&model.Role{}).Order("code").Pluck("code", &codes).Error)
	assert.Equal(t, []string{"admin", "client", "provider"}, codes)
}
