package database

import (
	"testing"
	"time"

	"taxqual-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteAndMigrate(t *testing.T) {
	db, err := Open("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	for _, m := range domain.All() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
}

func TestActiveKeyIndex_AllowsInactiveDuplicates(t *testing.T) {
	db, err := Open("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	mk := func(active bool) *domain.Qualification {
		return &domain.Qualification{
			FiscalYear: 2024, Market: domain.MarketStocks, Instrument: "ABC",
			PaymentDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), EventSequence: 10001,
			Origin: domain.OriginSystem, CreatedByID: uuid.New(), Active: active,
		}
	}
	require.NoError(t, db.Create(mk(true)).Error)
	assert.Error(t, db.Create(mk(true)).Error, "second active row with the same key must be rejected")

	inactive := mk(true)
	inactive.Active = false
	require.NoError(t, db.Create(inactive).Error)
}
