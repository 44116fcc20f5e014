package policies

import (
	"context"
	"testing"

	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/infrastructure/database"
	"taxqual-backend/internal/middleware"
	"taxqual-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPolicyDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func mkUser(t *testing.T, db *gorm.DB, email, role string, active bool) uuid.UUID {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "x", Fullname: "U", Role: role, Active: active}
	require.NoError(t, db.Create(u).Error)
	if !active {
		require.NoError(t, db.Model(u).Update("active", false).Error)
	}
	return u.UserID
}

func boolPtr(b bool) *bool { return &b }

func TestValidateChange_NoGovernedFields(t *testing.T) {
	assert.NoError(t, ValidateChange(setupPolicyDB(t), ChangeParams{ActorUserID: uuid.New(), TargetUserID: uuid.New()}))
}

func TestValidateChange_Self(t *testing.T) {
	db := setupPolicyDB(t)
	id := mkUser(t, db, "a@x.cl", constants.Admin, true)
	assert.Equal(t, ErrUsersCannotModifyTheirOwnRole, ValidateChange(db, ChangeParams{ActorUserID: id, TargetUserID: id, TargetRole: constants.Analyst}))
	assert.Equal(t, ErrUsersCannotDeactivateThemselves, ValidateChange(db, ChangeParams{ActorUserID: id, TargetUserID: id, Active: boolPtr(false)}))
}

func TestValidateChange_TargetUserNotFound(t *testing.T) {
	db := setupPolicyDB(t)
	err := ValidateChange(db, ChangeParams{ActorUserID: uuid.New(), TargetUserID: uuid.New(), TargetRole: constants.Admin})
	assert.Equal(t, ErrTargetUserNotFound, err)
}

func TestValidateChange_LastActiveAdmin(t *testing.T) {
	db := setupPolicyDB(t)
	admin := mkUser(t, db, "a@x.cl", constants.Admin, true)
	mkUser(t, db, "b@x.cl", constants.Admin, false)
	actor := uuid.New()

	assert.Equal(t, ErrMustKeepOneActiveAdmin, ValidateChange(db, ChangeParams{ActorUserID: actor, TargetUserID: admin, TargetRole: constants.Auditor}))
	assert.Equal(t, ErrMustKeepOneActiveAdmin, ValidateChange(db, ChangeParams{ActorUserID: actor, TargetUserID: admin, Active: boolPtr(false)}))
	assert.NoError(t, ValidateChange(db, ChangeParams{ActorUserID: actor, TargetUserID: admin, TargetRole: constants.Admin}))

	mkUser(t, db, "c@x.cl", constants.Admin, true)
	assert.NoError(t, ValidateChange(db, ChangeParams{ActorUserID: actor, TargetUserID: admin, TargetRole: constants.Auditor}))
}

func TestValidateRemoval(t *testing.T) {
	db := setupPolicyDB(t)
	admin := mkUser(t, db, "a@x.cl", constants.Admin, true)
	analyst := mkUser(t, db, "b@x.cl", constants.Analyst, true)

	assert.Equal(t, ErrYouCannotRemoveYourself, ValidateRemoval(db, admin, admin))
	assert.Equal(t, ErrMustKeepOneActiveAdmin, ValidateRemoval(db, analyst, admin))
	assert.NoError(t, ValidateRemoval(db, admin, analyst))
	assert.Equal(t, ErrTargetUserNotFound, ValidateRemoval(db, admin, uuid.New()))
}

func TestDestroyUserSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, middleware.SessionRedisPrefix+"s1", "{}", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.SessionRedisPrefix+"s2", "{}", 0).Err())
	require.NoError(t, rdb.Set(ctx, middleware.SessionRedisPrefix+"other", "{}", 0).Err())
	require.NoError(t, rdb.SAdd(ctx, middleware.UserSessionsPrefix+"u1", "s1", "s2").Err())

	DestroyUserSessions(ctx, rdb, "u1")

	assert.False(t, mr.Exists(middleware.SessionRedisPrefix+"s1"))
	assert.False(t, mr.Exists(middleware.SessionRedisPrefix+"s2"))
	assert.False(t, mr.Exists(middleware.UserSessionsPrefix+"u1"))
	assert.True(t, mr.Exists(middleware.SessionRedisPrefix+"other"))

	DestroyUserSessions(ctx, rdb, "")
	DestroyUserSessions(ctx, nil, "u1")
}
