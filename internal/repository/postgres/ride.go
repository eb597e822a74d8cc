package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"rideshare/internal/domain"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
// Passengers, ratings and cancellation live in JSONB columns of the ride row so the
// whole aggregate is written by one versioned UPDATE.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `id, type, status, vehicle_id, vehicle_type, driver_id, created_by, group_id,
	passengers, ratings, cancellation, scheduled_time, start_time, end_time,
	total_fare, currency, version, created_at, updated_at`

// Create persists a new ride at version 1.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	docs, err := encodeDocuments(ride)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		ride.ID,
		ride.Type,
		ride.Status,
		ride.VehicleID,
		ride.VehicleType,
		ride.DriverID,
		nullString(ride.CreatedBy),
		nullString(ride.GroupID),
		docs.passengers,
		docs.ratings,
		docs.cancellation,
		nullTime(ride.ScheduledTime),
		nullTime(ride.StartTime),
		nullTime(ride.EndTime),
		ride.TotalFare,
		ride.Currency,
		1,
		ride.CreatedAt,
		ride.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ride %s", domain.ErrAlreadyExists, ride.ID)
		}
		return domain.Unavailable("create ride", err)
	}
	ride.Version = 1
	return nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRideNotFound
		}
		return nil, domain.Unavailable("get ride", err)
	}
	return ride, nil
}

// Save writes the full aggregate if the stored version equals expectedVersion.
func (r *RideRepository) Save(ctx context.Context, ride *domain.Ride, expectedVersion int) error {
	query := `
		UPDATE rides
		SET status = $1, driver_id = $2, passengers = $3, ratings = $4, cancellation = $5,
			start_time = $6, end_time = $7, total_fare = $8, updated_at = $9, version = version + 1
		WHERE id = $10 AND version = $11
	`

	docs, err := encodeDocuments(ride)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, query,
		ride.Status,
		ride.DriverID,
		docs.passengers,
		docs.ratings,
		docs.cancellation,
		nullTime(ride.StartTime),
		nullTime(ride.EndTime),
		ride.TotalFare,
		ride.UpdatedAt,
		ride.ID,
		expectedVersion,
	)
	if err != nil {
		return domain.Unavailable("save ride", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Unavailable("save ride", err)
	}
	if rows == 0 {
		return r.missOrConflict(ctx, ride.ID, expectedVersion)
	}
	ride.Version = expectedVersion + 1
	return nil
}

func (r *RideRepository) missOrConflict(ctx context.Context, id string, expectedVersion int) error {
	var version int
	err := r.q.QueryRowContext(ctx, `SELECT version FROM rides WHERE id = $1`, id).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrRideNotFound
		}
		return domain.Unavailable("save ride", err)
	}
	return fmt.Errorf("%w: ride %s at version %d, expected %d", domain.ErrVersionConflict, id, version, expectedVersion)
}

// List retrieves the most recently created rides.
func (r *RideRepository) List(ctx context.Context, limit int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, domain.Unavailable("list rides", err)
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, domain.Unavailable("list rides", err)
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list rides", err)
	}
	return rides, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var createdBy, groupID sql.NullString
	var passengers, ratings, cancellation []byte
	var scheduled, started, ended sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.Type,
		&ride.Status,
		&ride.VehicleID,
		&ride.VehicleType,
		&ride.DriverID,
		&createdBy,
		&groupID,
		&passengers,
		&ratings,
		&cancellation,
		&scheduled,
		&started,
		&ended,
		&ride.TotalFare,
		&ride.Currency,
		&ride.Version,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ride.CreatedBy = createdBy.String
	ride.GroupID = groupID.String
	ride.ScheduledTime = timePtr(scheduled)
	ride.StartTime = timePtr(started)
	ride.EndTime = timePtr(ended)

	if err := decodeDocuments(&ride, passengers, ratings, cancellation); err != nil {
		return nil, err
	}
	return &ride, nil
}

// documents are passed as text; lib/pq would send []byte as bytea, which jsonb rejects.
type documents struct {
	passengers   string
	ratings      string
	cancellation sql.NullString
}

func encodeDocuments(ride *domain.Ride) (documents, error) {
	var docs documents

	passengers := ride.Passengers
	if passengers == nil {
		passengers = []domain.Passenger{}
	}
	b, err := json.Marshal(passengers)
	if err != nil {
		return docs, fmt.Errorf("encode passengers: %w", err)
	}
	docs.passengers = string(b)

	ratings := ride.Ratings
	if ratings == nil {
		ratings = []domain.Rating{}
	}
	if b, err = json.Marshal(ratings); err != nil {
		return docs, fmt.Errorf("encode ratings: %w", err)
	}
	docs.ratings = string(b)

	if ride.Cancellation != nil {
		if b, err = json.Marshal(ride.Cancellation); err != nil {
			return docs, fmt.Errorf("encode cancellation: %w", err)
		}
		docs.cancellation = sql.NullString{String: string(b), Valid: true}
	}
	return docs, nil
}

func decodeDocuments(ride *domain.Ride, passengers, ratings, cancellation []byte) error {
	if len(passengers) > 0 {
		if err := json.Unmarshal(passengers, &ride.Passengers); err != nil {
			return fmt.Errorf("decode passengers: %w", err)
		}
	}
	if len(ratings) > 0 {
		if err := json.Unmarshal(ratings, &ride.Ratings); err != nil {
			return fmt.Errorf("decode ratings: %w", err)
		}
	}
	if len(cancellation) > 0 {
		ride.Cancellation = &domain.Cancellation{}
		if err := json.Unmarshal(cancellation, ride.Cancellation); err != nil {
			return fmt.Errorf("decode cancellation: %w", err)
		}
	}
	return nil
}
