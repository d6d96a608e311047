package users_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/internal/dbtest"
	"github.com/petfinder-app/petfinder-backend/internal/users"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
)

func TestRepositoryFindByEmailIsCaseInsensitive(t *testing.T) {
	client := dbtest.Open(t)
	repo := users.NewRepository(client.DB())
	ctx := context.Background()

	created, err := repo.Create(ctx, users.CreateUserDTO{Name: " Ana ", Email: " Ana@Example.COM ", PasswordHash: "h"})
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", created.Email)
	require.Equal(t, "Ana", created.Name)

	found, err := repo.FindByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
}

func TestUpdateProfilePatchesOnlyGivenFields(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := users.NewService(users.NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	u := dbtest.User(t, client.DB(), func(u *models.User) {
		u.City = dbtest.Ptr("Bogotá")
		u.Phone = dbtest.Ptr("+57 300")
	})

	got, err := svc.UpdateProfile(ctx, u.ID, users.UpdateProfileDTO{
		Name:        dbtest.Ptr("Renamed"),
		Phone:       dbtest.Ptr(""),
		WhatsappURL: dbtest.Ptr("https://wa.me/57300"),
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)
	require.Nil(t, got.Phone)
	require.Equal(t, "Bogotá", *got.City)
	require.Equal(t, "https://wa.me/57300", *got.WhatsappURL)
}

func TestGetMissingUser(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := users.NewService(users.NewRepository(client.DB()))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.UpdateProfile(context.Background(), uuid.New(), users.UpdateProfileDTO{Name: dbtest.Ptr("x")})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
