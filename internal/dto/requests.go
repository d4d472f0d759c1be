package dto

import (
	"encoding/json"

	"eventtracker/internal/model"
)

type EventRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	StartDate   string `json:"startDate" validate:"required,isodate"`
	EndDate     string `json:"endDate" validate:"required,isodate"`
}

type VenueRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Location string `json:"location" validate:"required"`
	Capacity int    `json:"capacity" validate:"positive"`
	EventID  string `json:"eventId"`
}

type ParticipantRequest struct {
	ParticipantID     string `json:"participant_id" validate:"required,pid,max=64"`
	Name              string `json:"name" validate:"required,max=255"`
	Email             string `json:"email" validate:"required,email"`
	Phone             string `json:"phone"`
	Department        string `json:"department"`
	YearOfStudying    string `json:"year_of_studying"`
	CollegeUniversity string `json:"college_university"`
	CityDistrict      string `json:"city_district"`
}

type AttendanceRequest struct {
	ParticipantID string       `json:"participantId" validate:"required"`
	EventID       string       `json:"eventId" validate:"required"`
	VenueID       string       `json:"venueId" validate:"required"`
	Status        model.Status `json:"status" validate:"required,status"`
}

type CheckOutRequest struct {
	ParticipantID string `json:"participantId" validate:"required"`
	EventID       string `json:"eventId" validate:"required"`
	VenueID       string `json:"venueId" validate:"required"`
}

// ScanRequest carries a decoded QR payload, i.e. a participant_id.
type ScanRequest struct {
	Code    string `json:"code" validate:"required"`
	EventID string `json:"eventId" validate:"required"`
	VenueID string `json:"venueId" validate:"required"`
}

type RoleRequest struct {
	Email            string            `json:"email" validate:"required,email"`
	Role             model.Role        `json:"role" validate:"required,role"`
	AccessibleVenues []string          `json:"accessibleVenues"`
	Permissions      model.Permissions `json:"permissions"`
}

type SessionResponse struct {
	User    model.AppUser `json:"user"`
	Created bool          `json:"created"`
}

// MirrorMessage is one best-effort write to the backing store.
type MirrorMessage struct {
	Op      string          `json:"op"`
	Kind    string          `json:"kind"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"

	KindEvent       = "event"
	KindVenue       = "venue"
	KindParticipant = "participant"
	KindAttendance  = "attendance"
	KindRole        = "role"
)
