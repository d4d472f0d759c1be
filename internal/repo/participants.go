package repo

import (
	"context"
	"fmt"

	"eventtracker/internal/model"
)

func (r *repository) CreateParticipant(ctx context.Context, p model.Participant) error {
	query := `
		INSERT INTO participants (
			id, participant_id, name, email, phone, department, year_of_studying,
			college_university, city_district, qr_code, registration_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11::timestamptz, NOW()))
	`
	if _, err := r.db.ExecContext(ctx, query,
		p.ID, p.ParticipantID, p.Name, p.Email,
		nullable(p.Phone), nullable(p.Department), nullable(p.YearOfStudying),
		nullable(p.CollegeUniversity), nullable(p.CityDistrict), nullable(p.QRCode),
		nullable(p.RegistrationDate),
	); err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

func (r *repository) GetAllParticipants(ctx context.Context) ([]model.Participant, error) {
	query := `
		SELECT id, participant_id, name, email, phone, department, year_of_studying,
		       college_university, city_district, qr_code, registration_date,
		       created_at, updated_at
		FROM participants
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var row participantRow
		if err := rows.Scan(
			&row.ID,
			&row.ParticipantID,
			&row.Name,
			&row.Email,
			&row.Phone,
			&row.Department,
			&row.YearOfStudying,
			&row.CollegeUniversity,
			&row.CityDistrict,
			&row.QRCode,
			&row.RegistrationDate,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, row.toModel())
	}
	return participants, rows.Err()
}

func (r *repository) UpdateParticipant(ctx context.Context, p model.Participant) error {
	query := `
		UPDATE participants
		SET participant_id = $2, name = $3, email = $4, phone = $5, department = $6,
		    year_of_studying = $7, college_university = $8, city_district = $9,
		    qr_code = $10, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.ParticipantID, p.Name, p.Email,
		nullable(p.Phone), nullable(p.Department), nullable(p.YearOfStudying),
		nullable(p.CollegeUniversity), nullable(p.CityDistrict), nullable(p.QRCode),
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return expectOne(res, "participant", p.ID)
}

func (r *repository) DeleteParticipant(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return expectOne(res, "participant", id)
}
