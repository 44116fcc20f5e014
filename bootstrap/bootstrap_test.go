package bootstrap

import (
	"context"
	"testing"

	"taxqual-backend/internal/config"
	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/infrastructure/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare_SeedsOnce(t *testing.T) {
	db, err := database.Open("sqlite://:memory:")
	require.NoError(t, err)
	cfg := &config.Config{SeedAdminEmail: "admin@example.cl", SeedAdminPassword: "Clave#2024"}

	require.NoError(t, Prepare(context.Background(), cfg, db))
	require.NoError(t, Prepare(context.Background(), cfg, db))

	var users []domain.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Role)
}

func TestPrepare_WithoutSeedConfigIsNotFatal(t *testing.T) {
	db, err := database.Open("sqlite://:memory:")
	require.NoError(t, err)
	assert.NoError(t, Prepare(context.Background(), &config.Config{}, db))
}
