package integration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/internal/repository/postgres"
	"github.com/campusbook/scheduling-engine/pkg/testutil"
)

func TestResourceRepository(t *testing.T) {
	s := SetupSuite(t)
	defer TeardownSuite(t)
	s.ResetDatabase(t)

	ctx := s.GetContext(t)
	repo := postgres.NewResourceRepository(s.DB.DB)
	fixtures := testutil.NewFixtureBuilder()

	resource := fixtures.Resource()
	require.NoError(t, repo.CreateResource(ctx, resource))

	t.Run("get roundtrip", func(t *testing.T) {
		got, err := repo.GetResource(ctx, resource.ID)
		require.NoError(t, err)
		assert.Equal(t, resource.Name, got.Name)
		assert.Equal(t, resource.ResourceType, got.ResourceType)
		assert.Equal(t, resource.Rules.MaxDurationMinutes, got.Rules.MaxDurationMinutes)
		assert.True(t, got.Enabled)
	})

	t.Run("list with type filter", func(t *testing.T) {
		lab := fixtures.Resource(func(r *models.Resource) {
			r.ResourceType = "lab"
		})
		require.NoError(t, repo.CreateResource(ctx, lab))

		labType := "lab"
		resources, total, err := repo.ListResources(ctx, &labType, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, resources, 1)
		assert.Equal(t, lab.ID, resources[0].ID)

		types, err := repo.ListResourceTypes(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"meeting_room", "lab"}, types)
	})

	t.Run("set enabled", func(t *testing.T) {
		require.NoError(t, repo.SetEnabled(ctx, []uuid.UUID{resource.ID}, false))

		got, err := repo.GetResource(ctx, resource.ID)
		require.NoError(t, err)
		assert.False(t, got.Enabled)
	})
}

func TestReservationRepository(t *testing.T) {
	s := SetupSuite(t)
	defer TeardownSuite(t)
	s.ResetDatabase(t)

	ctx := s.GetContext(t)
	resourceRepo := postgres.NewResourceRepository(s.DB.DB)
	reservationRepo := postgres.NewReservationRepository(s.DB.DB)
	userRepo := postgres.NewUserRepository(s.DB.DB)
	fixtures := testutil.NewFixtureBuilder()

	user := &models.User{
		Username:     "integration-requester",
		Email:        "requester@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, userRepo.Create(ctx, user))

	resource := fixtures.Resource()
	require.NoError(t, resourceRepo.CreateResource(ctx, resource))

	reservation := fixtures.Reservation(resource.ID, func(r *models.Reservation) {
		r.RequesterID = user.ID
	})
	require.NoError(t, reservationRepo.SaveReservation(ctx, reservation))

	t.Run("get roundtrip", func(t *testing.T) {
		got, err := reservationRepo.GetReservation(ctx, reservation.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.ResourceID, got.ResourceID)
		assert.Equal(t, models.ReservationStatusConfirmed, got.Status)
		assert.WithinDuration(t, reservation.Window.Start, got.Window.Start, time.Second)
	})

	t.Run("list by resource window", func(t *testing.T) {
		window := models.TimeWindow{
			Start: reservation.Window.Start.Add(-time.Hour),
			End:   reservation.Window.End.Add(time.Hour),
		}
		reservations, err := reservationRepo.ListByResource(ctx, resource.ID, window)
		require.NoError(t, err)
		require.Len(t, reservations, 1)
		assert.Equal(t, reservation.ID, reservations[0].ID)
	})

	t.Run("list by requester", func(t *testing.T) {
		reservations, total, err := reservationRepo.ListByRequester(ctx, user.ID, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, reservations, 1)
	})

	t.Run("status transition and due scan", func(t *testing.T) {
		past := fixtures.Reservation(resource.ID, func(r *models.Reservation) {
			r.RequesterID = user.ID
			r.Window = models.TimeWindow{
				Start: time.Now().Add(-2 * time.Hour),
				End:   time.Now().Add(-time.Hour),
			}
		})
		require.NoError(t, reservationRepo.SaveReservation(ctx, past))

		due, err := reservationRepo.ListDueForTransition(ctx, time.Now(), 100)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, past.ID, due[0].ID)

		require.NoError(t, reservationRepo.UpdateReservationStatus(ctx, past.ID, models.ReservationStatusCompleted))

		due, err = reservationRepo.ListDueForTransition(ctx, time.Now(), 100)
		require.NoError(t, err)
		assert.Empty(t, due)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, reservationRepo.DeleteReservation(ctx, reservation.ID))

		_, err := reservationRepo.GetReservation(ctx, reservation.ID)
		assert.Error(t, err)
	})
}

func TestFlowRepository(t *testing.T) {
	s := SetupSuite(t)
	defer TeardownSuite(t)
	s.ResetDatabase(t)

	ctx := s.GetContext(t)
	repo := postgres.NewFlowRepository(s.DB.DB)
	fixtures := testutil.NewFixtureBuilder()

	flow := fixtures.ApprovalFlow()
	require.NoError(t, repo.CreateFlow(ctx, flow))

	t.Run("get roundtrip", func(t *testing.T) {
		got, err := repo.GetFlow(ctx, flow.ID)
		require.NoError(t, err)
		assert.Equal(t, flow.Name, got.Name)
		require.Len(t, got.Steps, 1)
		assert.Equal(t, []string{"facility_manager"}, got.Steps[0].ApproverRoles)
	})

	t.Run("find by resource type", func(t *testing.T) {
		got, err := repo.FindFlowForResourceType(ctx, "meeting_room")
		require.NoError(t, err)
		assert.Equal(t, flow.ID, got.ID)

		_, err = repo.FindFlowForResourceType(ctx, "boat")
		assert.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteFlow(ctx, flow.ID))

		_, err := repo.GetFlow(ctx, flow.ID)
		assert.Error(t, err)
	})
}
