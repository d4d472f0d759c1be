package model

type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	CreatedAt   string `json:"createdAt"`
}

// Venue belongs to at most one event. An empty EventID means unassigned.
type Venue struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Capacity int    `json:"capacity"`
	EventID  string `json:"eventId"`
}

type Participant struct {
	ID                string `json:"id"`
	ParticipantID     string `json:"participant_id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Department        string `json:"department"`
	YearOfStudying    string `json:"year_of_studying"`
	CollegeUniversity string `json:"college_university"`
	CityDistrict      string `json:"city_district"`
	QRCode            string `json:"qr_code,omitempty"`
	RegistrationDate  string `json:"registration_date"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// AttendanceRecord is keyed by the (ParticipantID, EventID, VenueID) triple.
// Times hold RFC 3339 timestamps or "" when unset.
type AttendanceRecord struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participantId"`
	EventID       string `json:"eventId"`
	VenueID       string `json:"venueId"`
	CheckInTime   string `json:"checkInTime"`
	CheckOutTime  string `json:"checkOutTime,omitempty"`
	Status        Status `json:"status"`
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleViewer:
		return true
	}
	return false
}

type Permission string

const (
	CanCreateEvents       Permission = "canCreateEvents"
	CanManageParticipants Permission = "canManageParticipants"
	CanTakeAttendance     Permission = "canTakeAttendance"
	CanViewReports        Permission = "canViewReports"
	CanManageUsers        Permission = "canManageUsers"
)

var AllPermissions = []Permission{
	CanCreateEvents,
	CanManageParticipants,
	CanTakeAttendance,
	CanViewReports,
	CanManageUsers,
}

type Permissions struct {
	CanCreateEvents       bool `json:"canCreateEvents"`
	CanManageParticipants bool `json:"canManageParticipants"`
	CanTakeAttendance     bool `json:"canTakeAttendance"`
	CanViewReports        bool `json:"canViewReports"`
	CanManageUsers        bool `json:"canManageUsers"`
}

// Get returns the named flag. Unknown names report false.
func (p Permissions) Get(name Permission) bool {
	switch name {
	case CanCreateEvents:
		return p.CanCreateEvents
	case CanManageParticipants:
		return p.CanManageParticipants
	case CanTakeAttendance:
		return p.CanTakeAttendance
	case CanViewReports:
		return p.CanViewReports
	case CanManageUsers:
		return p.CanManageUsers
	}
	return false
}

type UserRole struct {
	ID               string      `json:"id"`
	Email            string      `json:"email"`
	Role             Role        `json:"role"`
	AccessibleVenues []string    `json:"accessibleVenues"`
	Permissions      Permissions `json:"permissions"`
}

// AppUser is derived on sign-in and never persisted.
type AppUser struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
}
