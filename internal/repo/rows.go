package repo

import (
	"database/sql"
	"encoding/json"
	"time"

	"eventtracker/internal/model"
)

// Row types mirror the table columns. Nullable columns come back as "" in
// the model.

type eventRow struct {
	ID          string
	Name        string
	Description sql.NullString
	StartDate   string
	EndDate     string
	CreatedAt   sql.NullTime
}

type venueRow struct {
	ID       string
	Name     string
	Location string
	Capacity int
	EventID  sql.NullString
}

type participantRow struct {
	ID                string
	ParticipantID     string
	Name              string
	Email             string
	Phone             sql.NullString
	Department        sql.NullString
	YearOfStudying    sql.NullString
	CollegeUniversity sql.NullString
	CityDistrict      sql.NullString
	QRCode            sql.NullString
	RegistrationDate  sql.NullTime
	CreatedAt         sql.NullTime
	UpdatedAt         sql.NullTime
}

type attendanceRow struct {
	ID            string
	ParticipantID sql.NullString
	EventID       sql.NullString
	VenueID       sql.NullString
	CheckInTime   sql.NullTime
	CheckOutTime  sql.NullTime
	Status        string
}

type roleRow struct {
	ID               string
	Email            string
	Role             string
	AccessibleVenues []string
	Permissions      []byte
}

func str(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func stamp(nt sql.NullTime) string {
	if !nt.Valid {
		return ""
	}
	return nt.Time.UTC().Format(time.RFC3339)
}

// nullable turns "" into SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r eventRow) toModel() model.Event {
	return model.Event{
		ID:          r.ID,
		Name:        r.Name,
		Description: str(r.Description),
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		CreatedAt:   stamp(r.CreatedAt),
	}
}

func (r venueRow) toModel() model.Venue {
	return model.Venue{
		ID:       r.ID,
		Name:     r.Name,
		Location: r.Location,
		Capacity: r.Capacity,
		EventID:  str(r.EventID),
	}
}

func (r participantRow) toModel() model.Participant {
	return model.Participant{
		ID:                r.ID,
		ParticipantID:     r.ParticipantID,
		Name:              r.Name,
		Email:             r.Email,
		Phone:             str(r.Phone),
		Department:        str(r.Department),
		YearOfStudying:    str(r.YearOfStudying),
		CollegeUniversity: str(r.CollegeUniversity),
		CityDistrict:      str(r.CityDistrict),
		QRCode:            str(r.QRCode),
		RegistrationDate:  stamp(r.RegistrationDate),
		CreatedAt:         stamp(r.CreatedAt),
		UpdatedAt:         stamp(r.UpdatedAt),
	}
}

func (r attendanceRow) toModel() model.AttendanceRecord {
	return model.AttendanceRecord{
		ID:            r.ID,
		ParticipantID: str(r.ParticipantID),
		EventID:       str(r.EventID),
		VenueID:       str(r.VenueID),
		CheckInTime:   stamp(r.CheckInTime),
		CheckOutTime:  stamp(r.CheckOutTime),
		Status:        model.Status(r.Status),
	}
}

func (r roleRow) toModel() (model.UserRole, error) {
	role := model.UserRole{
		ID:               r.ID,
		Email:            r.Email,
		Role:             model.Role(r.Role),
		AccessibleVenues: r.AccessibleVenues,
	}
	if role.AccessibleVenues == nil {
		role.AccessibleVenues = []string{}
	}
	if len(r.Permissions) > 0 {
		if err := json.Unmarshal(r.Permissions, &role.Permissions); err != nil {
			return model.UserRole{}, err
		}
	}
	return role, nil
}
