package bnb_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/internal/bnb"
	"github.com/petfinder-app/petfinder-backend/internal/dbtest"
	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

type fixture struct {
	client *db.Client
	svc    bnb.Service
	sitter *bnb.SitterDTO
	host   *models.User
	owner  *models.User
	pet    *models.Pet
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := bnb.NewService(bnb.ServiceParams{Repo: bnb.NewRepository(client.DB()), Tx: client})
	require.NoError(t, err)

	host := dbtest.User(t, client.DB())
	owner := dbtest.User(t, client.DB())
	sitter, err := svc.UpsertSitter(context.Background(), host.ID, bnb.SitterInput{
		Headline:         "Cuido perros en Medellín",
		City:             "Medellín",
		NightlyRateCents: 60000,
		Currency:         enums.CurrencyCOP,
		AcceptsSpecies:   []string{"Dog", "dog", " cat "},
	})
	require.NoError(t, err)
	return fixture{
		client: client,
		svc:    svc,
		sitter: sitter,
		host:   host,
		owner:  owner,
		pet:    dbtest.Pet(t, client.DB(), owner),
	}
}

func codeOf(err error) pkgerrors.Code {
	return pkgerrors.As(err).Code()
}

func (f fixture) request(t *testing.T, start, end string) *bnb.BookingDTO {
	t.Helper()
	b, err := f.svc.RequestBooking(context.Background(), f.owner.ID, bnb.BookingInput{
		SitterID:  f.sitter.ID,
		PetID:     f.pet.ID,
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	return b
}

func TestUpsertSitterNormalizesAndUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.Equal(t, []string{"dog", "cat"}, f.sitter.AcceptsSpecies)
	require.True(t, f.sitter.IsActive)

	again, err := f.svc.UpsertSitter(ctx, f.host.ID, bnb.SitterInput{
		Headline:         "Nuevo titular",
		City:             "Bogotá",
		NightlyRateCents: 80000,
		Currency:         enums.CurrencyCOP,
	})
	require.NoError(t, err)
	require.Equal(t, f.sitter.ID, again.ID)
	require.Equal(t, "Bogotá", again.City)
	require.Empty(t, again.AcceptsSpecies)

	_, err = f.svc.UpsertSitter(ctx, f.host.ID, bnb.SitterInput{Headline: "x", City: "y", Currency: "GBP"})
	require.Equal(t, pkgerrors.CodeValidation, codeOf(err))
}

func TestListSittersByCityAndSpecies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := dbtest.User(t, f.client.DB())
	_, err := f.svc.UpsertSitter(ctx, other.ID, bnb.SitterInput{
		Headline: "Solo gatos", City: "medellín", NightlyRateCents: 40000, Currency: enums.CurrencyCOP,
		AcceptsSpecies: []string{"cat"},
	})
	require.NoError(t, err)

	all, err := f.svc.ListSitters(ctx, bnb.SitterFilter{City: "MEDELLÍN"})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)

	dogs, err := f.svc.ListSitters(ctx, bnb.SitterFilter{City: "Medellín", Species: "dog"})
	require.NoError(t, err)
	require.Len(t, dogs.Items, 1)
	require.Equal(t, f.sitter.ID, dogs.Items[0].ID)

	none, err := f.svc.ListSitters(ctx, bnb.SitterFilter{City: "Cali"})
	require.NoError(t, err)
	require.Empty(t, none.Items)
}

func TestRequestBookingPricesNights(t *testing.T) {
	f := newFixture(t)
	b := f.request(t, "2026-07-01", "2026-07-04")
	require.Equal(t, 3, b.Nights)
	require.EqualValues(t, 180000, b.TotalCents)
	require.Equal(t, enums.CurrencyCOP, b.Currency)
	require.Equal(t, enums.BookingStatusRequested, b.Status)
	require.Equal(t, "2026-07-01", b.StartDate)
}

func TestRequestBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger := dbtest.User(t, f.client.DB())
	parrot := dbtest.Pet(t, f.client.DB(), f.owner, func(p *models.Pet) { p.Species = "parrot" })
	hostPet := dbtest.Pet(t, f.client.DB(), f.host)

	cases := []struct {
		name  string
		user  uuid.UUID
		input bnb.BookingInput
		code  pkgerrors.Code
	}{
		{"end before start", f.owner.ID, bnb.BookingInput{SitterID: f.sitter.ID, PetID: f.pet.ID, StartDate: "2026-07-04", EndDate: "2026-07-04"}, pkgerrors.CodeValidation},
		{"bad date", f.owner.ID, bnb.BookingInput{SitterID: f.sitter.ID, PetID: f.pet.ID, StartDate: "07/01/2026", EndDate: "2026-07-04"}, pkgerrors.CodeValidation},
		{"someone else's pet", stranger.ID, bnb.BookingInput{SitterID: f.sitter.ID, PetID: f.pet.ID, StartDate: "2026-07-01", EndDate: "2026-07-02"}, pkgerrors.CodeForbidden},
		{"species not accepted", f.owner.ID, bnb.BookingInput{SitterID: f.sitter.ID, PetID: parrot.ID, StartDate: "2026-07-01", EndDate: "2026-07-02"}, pkgerrors.CodeValidation},
		{"self booking", f.host.ID, bnb.BookingInput{SitterID: f.sitter.ID, PetID: hostPet.ID, StartDate: "2026-07-01", EndDate: "2026-07-02"}, pkgerrors.CodeValidation},
		{"unknown sitter", f.owner.ID, bnb.BookingInput{SitterID: uuid.New(), PetID: f.pet.ID, StartDate: "2026-07-01", EndDate: "2026-07-02"}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RequestBooking(ctx, tc.user, tc.input)
			require.Equal(t, tc.code, codeOf(err))
		})
	}
}

func TestBookingLifecycleAndReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.request(t, "2026-08-10", "2026-08-12")

	_, err := f.svc.AcceptBooking(ctx, f.owner.ID, b.ID)
	require.Equal(t, pkgerrors.CodeForbidden, codeOf(err), "owners cannot accept")

	_, err = f.svc.CreateReview(ctx, f.owner.ID, bnb.ReviewInput{BookingID: b.ID, Rating: 5})
	require.Equal(t, pkgerrors.CodeStateConflict, codeOf(err), "review needs a completed booking")

	accepted, err := f.svc.AcceptBooking(ctx, f.host.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusAccepted, accepted.Status)

	done, err := f.svc.CompleteBooking(ctx, f.host.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusCompleted, done.Status)

	_, err = f.svc.CancelBooking(ctx, f.owner.ID, b.ID)
	require.Equal(t, pkgerrors.CodeStateConflict, codeOf(err))

	_, err = f.svc.CreateReview(ctx, f.host.ID, bnb.ReviewInput{BookingID: b.ID, Rating: 5})
	require.Equal(t, pkgerrors.CodeForbidden, codeOf(err))

	review, err := f.svc.CreateReview(ctx, f.owner.ID, bnb.ReviewInput{BookingID: b.ID, Rating: 4, Comment: dbtest.Ptr("great")})
	require.NoError(t, err)
	require.Equal(t, f.sitter.ID, review.SitterID)

	_, err = f.svc.CreateReview(ctx, f.owner.ID, bnb.ReviewInput{BookingID: b.ID, Rating: 1})
	require.Equal(t, pkgerrors.CodeConflict, codeOf(err))

	second := f.request(t, "2026-09-01", "2026-09-02")
	_, err = f.svc.AcceptBooking(ctx, f.host.ID, second.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteBooking(ctx, f.host.ID, second.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateReview(ctx, f.owner.ID, bnb.ReviewInput{BookingID: second.ID, Rating: 5})
	require.NoError(t, err)

	sitter, err := f.svc.GetSitter(ctx, f.sitter.ID)
	require.NoError(t, err)
	require.Equal(t, 2, sitter.ReviewCount)
	require.InDelta(t, 4.5, sitter.AverageRating, 0.001)

	reviews, err := f.svc.ListReviews(ctx, f.sitter.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
}

func TestAcceptRejectsOverlappingStays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.request(t, "2026-10-01", "2026-10-05")
	overlapping := f.request(t, "2026-10-04", "2026-10-06")
	adjacent := f.request(t, "2026-10-05", "2026-10-07")

	_, err := f.svc.AcceptBooking(ctx, f.host.ID, first.ID)
	require.NoError(t, err)
	_, err = f.svc.AcceptBooking(ctx, f.host.ID, overlapping.ID)
	require.Equal(t, pkgerrors.CodeStateConflict, codeOf(err))
	_, err = f.svc.AcceptBooking(ctx, f.host.ID, adjacent.ID)
	require.NoError(t, err, "checkout day may be the next check-in")

	declined, err := f.svc.DeclineBooking(ctx, f.host.ID, overlapping.ID)
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusDeclined, declined.Status)
}

func TestListBookingsByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.request(t, "2026-11-01", "2026-11-02")
	f.request(t, "2026-11-03", "2026-11-04")

	mine, err := f.svc.ListBookings(ctx, f.owner.ID, bnb.RoleOwner, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 2)

	incoming, err := f.svc.ListBookings(ctx, f.host.ID, bnb.RoleSitter, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, incoming.Items, 1)
	require.NotEmpty(t, incoming.NextCursor)

	none, err := f.svc.ListBookings(ctx, f.owner.ID, bnb.RoleSitter, pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, none.Items)

	_, err = f.svc.ListBookings(ctx, f.owner.ID, "admin", pagination.Params{})
	require.Equal(t, pkgerrors.CodeValidation, codeOf(err))
}
