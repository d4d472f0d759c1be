package repo

import (
	"context"
	"fmt"

	"eventtracker/internal/model"
)

func (r *repository) CreateEvent(ctx context.Context, e model.Event) error {
	query := `
		INSERT INTO events (id, name, description, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6::timestamptz, NOW()))
	`
	if _, err := r.db.ExecContext(ctx, query,
		e.ID, e.Name, nullable(e.Description), e.StartDate, e.EndDate, nullable(e.CreatedAt),
	); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *repository) GetAllEvents(ctx context.Context) ([]model.Event, error) {
	query := `
		SELECT id, name, description, start_date, end_date, created_at
		FROM events
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var row eventRow
		if err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Description,
			&row.StartDate,
			&row.EndDate,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, row.toModel())
	}
	return events, rows.Err()
}

func (r *repository) UpdateEvent(ctx context.Context, e model.Event) error {
	query := `
		UPDATE events
		SET name = $2, description = $3, start_date = $4, end_date = $5, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, e.ID, e.Name, nullable(e.Description), e.StartDate, e.EndDate)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return expectOne(res, "event", e.ID)
}

// DeleteEvent relies on ON DELETE CASCADE for attendance_records.
func (r *repository) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return expectOne(res, "event", id)
}
