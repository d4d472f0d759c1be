package repo

import (
	"database/sql"
	"testing"
	"time"

	"eventtracker/internal/model"
)

func TestRowsDefaultMissingFields(t *testing.T) {
	p := participantRow{ID: "p1", ParticipantID: "A100", Name: "Alice", Email: "a@example.com"}.toModel()
	if p.Phone != "" || p.Department != "" || p.QRCode != "" || p.CreatedAt != "" {
		t.Fatalf("participant = %+v, want empty optional fields", p)
	}

	a := attendanceRow{ID: "a1", Status: "absent"}.toModel()
	if a.CheckInTime != "" || a.CheckOutTime != "" || a.ParticipantID != "" || a.Status != model.StatusAbsent {
		t.Fatalf("attendance = %+v", a)
	}

	v := venueRow{ID: "v1", Capacity: 3}.toModel()
	if v.EventID != "" {
		t.Fatalf("venue event = %q, want unassigned", v.EventID)
	}
}

func TestRowsMapWireTimes(t *testing.T) {
	in := time.Date(2024, 5, 1, 11, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	a := attendanceRow{
		ID:          "a1",
		CheckInTime: sql.NullTime{Time: in, Valid: true},
		Status:      "present",
	}.toModel()
	if a.CheckInTime != "2024-05-01T09:00:00Z" {
		t.Fatalf("check-in = %q", a.CheckInTime)
	}

	e := eventRow{
		ID:          "e1",
		StartDate:   "2024-05-01",
		Description: sql.NullString{String: "talks", Valid: true},
	}.toModel()
	if e.StartDate != "2024-05-01" || e.Description != "talks" || e.CreatedAt != "" {
		t.Fatalf("event = %+v", e)
	}
}

func TestRoleRowPermissions(t *testing.T) {
	role, err := roleRow{
		ID:          "r1",
		Email:       "staff@example.com",
		Role:        "staff",
		Permissions: []byte(`{"canTakeAttendance":true}`),
	}.toModel()
	if err != nil {
		t.Fatalf("to model: %v", err)
	}
	if !role.Permissions.CanTakeAttendance || role.Permissions.CanManageUsers {
		t.Fatalf("permissions = %+v", role.Permissions)
	}
	if role.AccessibleVenues == nil {
		t.Fatal("accessible venues should default to empty, not nil")
	}

	if _, err := (roleRow{Permissions: []byte(`{`)}).toModel(); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNullable(t *testing.T) {
	if nullable("") != nil {
		t.Fatal("empty string should map to NULL")
	}
	if nullable("x") != "x" {
		t.Fatal("value should pass through")
	}
}
