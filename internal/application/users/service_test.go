package users

import (
	"context"
	"testing"

	policies "taxqual-backend/internal/application/policies/users"
	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/infrastructure/database"
	"taxqual-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return &Service{DB: db}
}

func TestCreateUser(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, CreateUserInput{Email: " Ana@Example.com", Password: "Clave#2024", Fullname: "Ana Rojas"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, constants.Analyst, u.Role)
	assert.True(t, u.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Clave#2024")))

	_, err = s.CreateUser(ctx, CreateUserInput{Email: "ana@example.com", Password: "Clave#2024", Fullname: "Otra"})
	assert.Equal(t, ErrEmailRegistered, err)

	cases := []struct {
		in   CreateUserInput
		want error
	}{
		{CreateUserInput{Email: "bad", Password: "Clave#2024", Fullname: "A"}, ErrInvalidEmail},
		{CreateUserInput{Email: "b@example.com", Password: "short", Fullname: "A"}, ErrInvalidPassword},
		{CreateUserInput{Email: "b@example.com", Password: "Clave#2024", Fullname: "A1"}, ErrInvalidFullname},
		{CreateUserInput{Email: "b@example.com", Password: "Clave#2024", Fullname: "Beto", Role: "root"}, ErrInvalidRole},
	}
	for _, tc := range cases {
		_, err := s.CreateUser(ctx, tc.in)
		assert.Equal(t, tc.want, err, tc.in.Email)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	actor := uuid.New()
	u, err := s.CreateUser(ctx, CreateUserInput{Email: "ana@example.com", Password: "Clave#2024", Fullname: "Ana"})
	require.NoError(t, err)

	got, err := s.UpdateUser(ctx, actor, u.UserID, map[string]interface{}{"role": constants.Auditor, "fullname": " Ana Maria ", "ignored": 1})
	require.NoError(t, err)
	assert.Equal(t, constants.Auditor, got.Role)
	assert.Equal(t, "Ana Maria", got.Fullname)

	_, err = s.UpdateUser(ctx, actor, u.UserID, map[string]interface{}{"role": "root"})
	assert.Equal(t, ErrInvalidRole, err)
	_, err = s.UpdateUser(ctx, actor, u.UserID, map[string]interface{}{"nothing": true})
	assert.Equal(t, ErrMissingFields, err)
	_, err = s.UpdateUser(ctx, actor, uuid.New(), map[string]interface{}{"role": constants.Admin})
	assert.Equal(t, ErrUserNotFound, err)
}

func TestRemoveUser(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	admin, err := s.CreateUser(ctx, CreateUserInput{Email: "admin@example.com", Password: "Clave#2024", Fullname: "Admin", Role: constants.Admin})
	require.NoError(t, err)
	u, err := s.CreateUser(ctx, CreateUserInput{Email: "ana@example.com", Password: "Clave#2024", Fullname: "Ana"})
	require.NoError(t, err)

	assert.Equal(t, policies.ErrYouCannotRemoveYourself, s.RemoveUser(ctx, admin.UserID, admin.UserID))
	require.NoError(t, s.RemoveUser(ctx, admin.UserID, u.UserID))
	assert.Equal(t, ErrUserNotFound, s.RemoveUser(ctx, admin.UserID, u.UserID))

	list, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, admin.UserID, list[0].UserID)

	_, err = s.CreateUser(ctx, CreateUserInput{Email: "ana@example.com", Password: "Clave#2024", Fullname: "Ana"})
	assert.Equal(t, ErrEmailRegistered, err, "removed accounts keep their email")
}

func TestUpdateUser_KeepsOneActiveAdmin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	root, err := s.CreateUser(ctx, CreateUserInput{Email: "root@example.com", Password: "Clave#2024", Fullname: "Root", Role: constants.Admin})
	require.NoError(t, err)
	other, err := s.CreateUser(ctx, CreateUserInput{Email: "otro@example.com", Password: "Clave#2024", Fullname: "Otro", Role: constants.Admin})
	require.NoError(t, err)

	_, err = s.UpdateUser(ctx, root.UserID, root.UserID, map[string]interface{}{"role": constants.Analyst})
	assert.Equal(t, policies.ErrUsersCannotModifyTheirOwnRole, err)
	_, err = s.UpdateUser(ctx, root.UserID, root.UserID, map[string]interface{}{"active": false})
	assert.Equal(t, policies.ErrUsersCannotDeactivateThemselves, err)

	got, err := s.UpdateUser(ctx, root.UserID, other.UserID, map[string]interface{}{"active": false})
	require.NoError(t, err)
	assert.False(t, got.Active)

	// root is now the only active admin
	_, err = s.UpdateUser(ctx, other.UserID, root.UserID, map[string]interface{}{"role": constants.Auditor})
	assert.Equal(t, policies.ErrMustKeepOneActiveAdmin, err)
	assert.Equal(t, policies.ErrMustKeepOneActiveAdmin, s.RemoveUser(ctx, other.UserID, root.UserID))

	_, err = s.UpdateUser(ctx, root.UserID, other.UserID, map[string]interface{}{"fullname": "Otra"})
	assert.NoError(t, err, "edits that keep role and status skip the admin check")
}

func TestSeedAdmin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.SeedAdmin(ctx, "", "")
	assert.Equal(t, ErrSeedNotConfigured, err)

	u, err := s.SeedAdmin(ctx, "root@example.com", "Clave#2024")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, constants.Admin, u.Role)

	again, err := s.SeedAdmin(ctx, "other@example.com", "Clave#2024")
	require.NoError(t, err)
	assert.Nil(t, again)

	var n int64
	require.NoError(t, s.DB.Model(&domain.User{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
