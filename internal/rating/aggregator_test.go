package rating

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideshare/internal/domain"
)

func TestApply_RunningMean(t *testing.T) {
	t.Parallel()

	values := []int{5, 3, 4, 1, 2, 5, 5, 4}
	agg := domain.RatingAggregate{Subject: domain.Subject{Kind: domain.SubjectUser, ID: "driver-1"}}

	var total int
	for i, v := range values {
		next, err := Apply(agg, v)
		require.NoError(t, err)
		total += v

		assert.Equal(t, i+1, next.Count)
		assert.InDelta(t, float64(total)/float64(i+1), next.Average, 1e-9)
		assert.Greater(t, next.Count, agg.Count)
		agg = next
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	agg := domain.RatingAggregate{Average: 4, Count: 2}
	next, err := Apply(agg, 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, next.Average)
	assert.Equal(t, domain.RatingAggregate{Average: 4, Count: 2}, agg)
}

func TestApply_RejectsOutOfRange(t *testing.T) {
	t.Parallel()

	for _, v := range []int{-1, 0, 6, 10} {
		agg := domain.RatingAggregate{Average: 4, Count: 2}
		got, err := Apply(agg, v)
		assert.True(t, errors.Is(err, domain.ErrInvalidRating), v)
		assert.True(t, errors.Is(err, domain.ErrValidation), v)
		assert.Equal(t, agg, got)
	}
}

func completedRide() *domain.Ride {
	return &domain.Ride{
		ID:        "ride-1",
		Status:    domain.RideStatusCompleted,
		DriverID:  "driver-1",
		VehicleID: "vehicle-1",
		Passengers: []domain.Passenger{
			{ID: "p1", UserID: "user-1"},
			{ID: "p2", UserID: "user-2"},
		},
	}
}

func TestSubjects(t *testing.T) {
	t.Parallel()

	r := completedRide()
	assert.Equal(t, []domain.Subject{
		{Kind: domain.SubjectUser, ID: "driver-1"},
		{Kind: domain.SubjectVehicle, ID: "vehicle-1"},
	}, Subjects(r, "driver-1"))
	assert.Equal(t, []domain.Subject{{Kind: domain.SubjectUser, ID: "user-1"}}, Subjects(r, "user-1"))
}

func TestCheckEligible(t *testing.T) {
	t.Parallel()

	r := completedRide()
	assert.NoError(t, CheckEligible(r, "user-1", "driver-1"))
	assert.NoError(t, CheckEligible(r, "driver-1", "user-2"))

	assert.True(t, errors.Is(CheckEligible(r, "user-1", "user-1"), domain.ErrSelfRating))
	assert.True(t, errors.Is(CheckEligible(r, "stranger", "driver-1"), domain.ErrUnauthorized))
	assert.True(t, errors.Is(CheckEligible(r, "user-1", "stranger"), domain.ErrValidation))

	r.Ratings = append(r.Ratings, domain.Rating{RaterID: "user-1", TargetID: "driver-1", RideID: r.ID, Value: 5})
	err := CheckEligible(r, "user-1", "driver-1")
	assert.True(t, errors.Is(err, domain.ErrDuplicateRating))
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))

	r.Status = domain.RideStatusInProgress
	assert.True(t, errors.Is(CheckEligible(r, "user-2", "driver-1"), domain.ErrIllegalTransition))
}
