package repo

import (
	"context"
	"fmt"

	"eventtracker/internal/model"
)

func (r *repository) CreateVenue(ctx context.Context, v model.Venue) error {
	query := `
		INSERT INTO venues (id, name, location, capacity, event_id)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, v.ID, v.Name, v.Location, v.Capacity, nullable(v.EventID)); err != nil {
		return fmt.Errorf("failed to insert venue: %w", err)
	}
	return nil
}

func (r *repository) GetAllVenues(ctx context.Context) ([]model.Venue, error) {
	query := `
		SELECT id, name, location, capacity, event_id
		FROM venues
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get venues: %w", err)
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		var row venueRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Location, &row.Capacity, &row.EventID); err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		venues = append(venues, row.toModel())
	}
	return venues, rows.Err()
}

func (r *repository) UpdateVenue(ctx context.Context, v model.Venue) error {
	query := `
		UPDATE venues
		SET name = $2, location = $3, capacity = $4, event_id = $5, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, v.ID, v.Name, v.Location, v.Capacity, nullable(v.EventID))
	if err != nil {
		return fmt.Errorf("failed to update venue: %w", err)
	}
	return expectOne(res, "venue", v.ID)
}

func (r *repository) DeleteVenue(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM venues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete venue: %w", err)
	}
	return expectOne(res, "venue", id)
}
