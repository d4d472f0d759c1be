package repo

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"eventtracker/internal/model"
)

// memoryRepository backs local runs without PostgreSQL. It keeps insertion
// order and reproduces the table-level cascades of the SQL schema.
type memoryRepository struct {
	mu           sync.Mutex
	events       []model.Event
	venues       []model.Venue
	participants []model.Participant
	attendance   []model.AttendanceRecord
	roles        []model.UserRole
}

func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (m *memoryRepository) MigrateUp(string) error   { return nil }
func (m *memoryRepository) MigrateDown(string) error { return nil }

func memCreate[T any](mu *sync.Mutex, rows *[]T, v T, id func(T) string, kind string) error {
	mu.Lock()
	defer mu.Unlock()
	if slices.ContainsFunc(*rows, func(x T) bool { return id(x) == id(v) }) {
		return fmt.Errorf("%s %s already exists", kind, id(v))
	}
	*rows = append(*rows, v)
	return nil
}

func memUpdate[T any](mu *sync.Mutex, rows *[]T, v T, id func(T) string, kind string) error {
	mu.Lock()
	defer mu.Unlock()
	i := slices.IndexFunc(*rows, func(x T) bool { return id(x) == id(v) })
	if i < 0 {
		return fmt.Errorf("%s %s: %w", kind, id(v), ErrNotFound)
	}
	(*rows)[i] = v
	return nil
}

func memList[T any](mu *sync.Mutex, rows *[]T) []T {
	mu.Lock()
	defer mu.Unlock()
	return append([]T(nil), (*rows)...)
}

func memDelete[T any](rows *[]T, match func(T) bool) int {
	before := len(*rows)
	*rows = slices.DeleteFunc(*rows, match)
	return before - len(*rows)
}

func eventID(e model.Event) string { return e.ID }
func venueID(v model.Venue) string { return v.ID }
func participantID(p model.Participant) string { return p.ID }
func attendanceID(a model.AttendanceRecord) string { return a.ID }
func roleID(r model.UserRole) string { return r.ID }

func (m *memoryRepository) CreateEvent(_ context.Context, e model.Event) error {
	return memCreate(&m.mu, &m.events, e, eventID, "event")
}

func (m *memoryRepository) GetAllEvents(context.Context) ([]model.Event, error) {
	return memList(&m.mu, &m.events), nil
}

func (m *memoryRepository) UpdateEvent(_ context.Context, e model.Event) error {
	return memUpdate(&m.mu, &m.events, e, eventID, "event")
}

func (m *memoryRepository) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if memDelete(&m.events, func(e model.Event) bool { return e.ID == id }) == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	memDelete(&m.attendance, func(a model.AttendanceRecord) bool { return a.EventID == id })
	return nil
}

func (m *memoryRepository) CreateVenue(_ context.Context, v model.Venue) error {
	return memCreate(&m.mu, &m.venues, v, venueID, "venue")
}

func (m *memoryRepository) GetAllVenues(context.Context) ([]model.Venue, error) {
	return memList(&m.mu, &m.venues), nil
}

func (m *memoryRepository) UpdateVenue(_ context.Context, v model.Venue) error {
	return memUpdate(&m.mu, &m.venues, v, venueID, "venue")
}

func (m *memoryRepository) DeleteVenue(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if memDelete(&m.venues, func(v model.Venue) bool { return v.ID == id }) == 0 {
		return fmt.Errorf("venue %s: %w", id, ErrNotFound)
	}
	memDelete(&m.attendance, func(a model.AttendanceRecord) bool { return a.VenueID == id })
	return nil
}

func (m *memoryRepository) CreateParticipant(_ context.Context, p model.Participant) error {
	return memCreate(&m.mu, &m.participants, p, participantID, "participant")
}

func (m *memoryRepository) GetAllParticipants(context.Context) ([]model.Participant, error) {
	return memList(&m.mu, &m.participants), nil
}

func (m *memoryRepository) UpdateParticipant(_ context.Context, p model.Participant) error {
	return memUpdate(&m.mu, &m.participants, p, participantID, "participant")
}

func (m *memoryRepository) DeleteParticipant(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if memDelete(&m.participants, func(p model.Participant) bool { return p.ID == id }) == 0 {
		return fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	memDelete(&m.attendance, func(a model.AttendanceRecord) bool { return a.ParticipantID == id })
	return nil
}

func (m *memoryRepository) CreateAttendance(_ context.Context, a model.AttendanceRecord) error {
	return memCreate(&m.mu, &m.attendance, a, attendanceID, "attendance record")
}

func (m *memoryRepository) GetAllAttendance(context.Context) ([]model.AttendanceRecord, error) {
	return memList(&m.mu, &m.attendance), nil
}

func (m *memoryRepository) UpdateAttendance(_ context.Context, a model.AttendanceRecord) error {
	return memUpdate(&m.mu, &m.attendance, a, attendanceID, "attendance record")
}

func (m *memoryRepository) DeleteAttendance(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if memDelete(&m.attendance, func(a model.AttendanceRecord) bool { return a.ID == id }) == 0 {
		return fmt.Errorf("attendance record %s: %w", id, ErrNotFound)
	}
	return nil
}

func (m *memoryRepository) CreateUserRole(_ context.Context, r model.UserRole) error {
	return memCreate(&m.mu, &m.roles, r, roleID, "user role")
}

func (m *memoryRepository) GetAllUserRoles(context.Context) ([]model.UserRole, error) {
	return memList(&m.mu, &m.roles), nil
}

func (m *memoryRepository) UpdateUserRole(_ context.Context, r model.UserRole) error {
	return memUpdate(&m.mu, &m.roles, r, roleID, "user role")
}

func (m *memoryRepository) DeleteUserRole(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if memDelete(&m.roles, func(r model.UserRole) bool { return r.ID == id }) == 0 {
		return fmt.Errorf("user role %s: %w", id, ErrNotFound)
	}
	return nil
}
