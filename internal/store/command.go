package store

import "eventtracker/internal/model"

// Command is the closed set of mutations the store accepts.
type Command interface {
	command()
}

type (
	AddEvent    struct{ Event model.Event }
	UpdateEvent struct{ Event model.Event }
	DeleteEvent struct{ ID string }

	AddVenue    struct{ Venue model.Venue }
	UpdateVenue struct{ Venue model.Venue }
	DeleteVenue struct{ ID string }

	AddParticipant    struct{ Participant model.Participant }
	UpdateParticipant struct{ Participant model.Participant }
	DeleteParticipant struct{ ID string }

	AddAttendance    struct{ Record model.AttendanceRecord }
	UpdateAttendance struct{ Record model.AttendanceRecord }
	DeleteAttendance struct{ ID string }

	AddUserRole    struct{ Role model.UserRole }
	UpdateUserRole struct{ Role model.UserRole }
	DeleteUserRole struct{ ID string }

	SetCurrentUser struct{ User *model.AppUser }
	SelectEvent    struct{ ID string }
	SelectVenue    struct{ ID string }

	// BulkLoad replaces every non-nil collection wholesale. It never merges.
	BulkLoad struct {
		Events            *[]model.Event
		Venues            *[]model.Venue
		Participants      *[]model.Participant
		AttendanceRecords *[]model.AttendanceRecord
		UserRoles         *[]model.UserRole
	}
)

func (AddEvent) command()          {}
func (UpdateEvent) command()       {}
func (DeleteEvent) command()       {}
func (AddVenue) command()          {}
func (UpdateVenue) command()       {}
func (DeleteVenue) command()       {}
func (AddParticipant) command()    {}
func (UpdateParticipant) command() {}
func (DeleteParticipant) command() {}
func (AddAttendance) command()     {}
func (UpdateAttendance) command()  {}
func (DeleteAttendance) command()  {}
func (AddUserRole) command()       {}
func (UpdateUserRole) command()    {}
func (DeleteUserRole) command()    {}
func (SetCurrentUser) command()    {}
func (SelectEvent) command()       {}
func (SelectVenue) command()       {}
func (BulkLoad) command()          {}
