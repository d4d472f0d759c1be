package repo

import (
	"context"
	"fmt"

	"eventtracker/internal/model"
)

func (r *repository) CreateAttendance(ctx context.Context, a model.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (id, participant_id, event_id, venue_id, check_in_time, check_out_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		a.ID, nullable(a.ParticipantID), nullable(a.EventID), nullable(a.VenueID),
		nullable(a.CheckInTime), nullable(a.CheckOutTime), string(a.Status),
	); err != nil {
		return fmt.Errorf("failed to insert attendance record: %w", err)
	}
	return nil
}

func (r *repository) GetAllAttendance(ctx context.Context) ([]model.AttendanceRecord, error) {
	query := `
		SELECT id, participant_id, event_id, venue_id, check_in_time, check_out_time, status
		FROM attendance_records
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance records: %w", err)
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		var row attendanceRow
		if err := rows.Scan(
			&row.ID,
			&row.ParticipantID,
			&row.EventID,
			&row.VenueID,
			&row.CheckInTime,
			&row.CheckOutTime,
			&row.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, row.toModel())
	}
	return records, rows.Err()
}

func (r *repository) UpdateAttendance(ctx context.Context, a model.AttendanceRecord) error {
	query := `
		UPDATE attendance_records
		SET status = $2, check_in_time = $3, check_out_time = $4, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, a.ID, string(a.Status), nullable(a.CheckInTime), nullable(a.CheckOutTime))
	if err != nil {
		return fmt.Errorf("failed to update attendance record: %w", err)
	}
	return expectOne(res, "attendance record", a.ID)
}

func (r *repository) DeleteAttendance(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance record: %w", err)
	}
	return expectOne(res, "attendance record", id)
}
