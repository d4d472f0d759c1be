package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"eventtracker/internal/model"
	"eventtracker/internal/store"
)

var ErrInvalidFormat = errors.New("invalid data format")

// Document is the export/import file. Venues and UserRoles are optional on
// import; the other three collections are required.
type Document struct {
	Events            []model.Event            `json:"events"`
	Venues            []model.Venue            `json:"venues,omitempty"`
	Participants      []model.Participant      `json:"participants"`
	AttendanceRecords []model.AttendanceRecord `json:"attendanceRecords"`
	UserRoles         []model.UserRole         `json:"userRoles,omitempty"`
	ExportDate        string                   `json:"exportDate"`
}

func Export(s store.State, now time.Time) Document {
	return Document{
		Events:            nonNil(s.Events),
		Venues:            s.Venues,
		Participants:      nonNil(s.Participants),
		AttendanceRecords: nonNil(s.AttendanceRecords),
		UserRoles:         s.UserRoles,
		ExportDate:        now.UTC().Format(time.RFC3339),
	}
}

func Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Decode reads a document and checks the required keys are present.
func Decode(r io.Reader) (Document, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	for _, key := range []string{"events", "participants", "attendanceRecords"} {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			return Document{}, fmt.Errorf("%w: missing %q", ErrInvalidFormat, key)
		}
	}

	var doc Document
	fields := map[string]any{
		"events":            &doc.Events,
		"venues":            &doc.Venues,
		"participants":      &doc.Participants,
		"attendanceRecords": &doc.AttendanceRecords,
		"userRoles":         &doc.UserRoles,
		"exportDate":        &doc.ExportDate,
	}
	for key, dst := range fields {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return Document{}, fmt.Errorf("%w: field %q: %v", ErrInvalidFormat, key, err)
		}
	}
	return doc, nil
}

// Load turns a document into a wholesale replacement. Venues and roles are
// only replaced when the document carries them.
func (d Document) Load() store.BulkLoad {
	events := nonNil(d.Events)
	participants := nonNil(d.Participants)
	records := nonNil(d.AttendanceRecords)
	cmd := store.BulkLoad{
		Events:            &events,
		Participants:      &participants,
		AttendanceRecords: &records,
	}
	if d.Venues != nil {
		venues := d.Venues
		cmd.Venues = &venues
	}
	if d.UserRoles != nil {
		roles := d.UserRoles
		cmd.UserRoles = &roles
	}
	return cmd
}

// Clear empties events, participants and attendance.
func Clear() store.BulkLoad {
	return Document{}.Load()
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
