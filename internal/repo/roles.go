package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"eventtracker/internal/model"
)

func (r *repository) CreateUserRole(ctx context.Context, role model.UserRole) error {
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}
	query := `
		INSERT INTO user_roles (id, email, role, accessible_venues, permissions)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query,
		role.ID, role.Email, string(role.Role), pq.Array(venueList(role.AccessibleVenues)), perms,
	); err != nil {
		return fmt.Errorf("failed to insert user role: %w", err)
	}
	return nil
}

func (r *repository) GetAllUserRoles(ctx context.Context) ([]model.UserRole, error) {
	query := `
		SELECT id, email, role, accessible_venues, permissions
		FROM user_roles
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	defer rows.Close()

	var roles []model.UserRole
	for rows.Next() {
		var row roleRow
		if err := rows.Scan(
			&row.ID,
			&row.Email,
			&row.Role,
			pq.Array(&row.AccessibleVenues),
			&row.Permissions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user role: %w", err)
		}
		role, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("failed to decode permissions of role %s: %w", row.ID, err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *repository) UpdateUserRole(ctx context.Context, role model.UserRole) error {
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}
	query := `
		UPDATE user_roles
		SET email = $2, role = $3, accessible_venues = $4, permissions = $5, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		role.ID, role.Email, string(role.Role), pq.Array(venueList(role.AccessibleVenues)), perms,
	)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return expectOne(res, "user role", role.ID)
}

func (r *repository) DeleteUserRole(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user role: %w", err)
	}
	return expectOne(res, "user role", id)
}

// venueList keeps the NOT NULL column satisfied; pq.Array maps a nil slice to NULL.
func venueList(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
