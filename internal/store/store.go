package store

import (
	"sync"

	"github.com/rs/zerolog"
)

// Store owns the current State. Dispatch is the only write path; every
// reader gets a copy.
type Store struct {
	mu    sync.Mutex
	state State
	log   *zerolog.Logger
}

func New(log *zerolog.Logger) *Store {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Store{log: log}
}

// Dispatch runs cmd to completion before any other command is accepted and
// returns a copy of the resulting state.
func (s *Store) Dispatch(cmd Command) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, cmd)
	s.log.Debug().Str("command", commandName(cmd)).Msg("store command applied")
	return s.state.Clone()
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func commandName(cmd Command) string {
	switch cmd.(type) {
	case AddEvent:
		return "add_event"
	case UpdateEvent:
		return "update_event"
	case DeleteEvent:
		return "delete_event"
	case AddVenue:
		return "add_venue"
	case UpdateVenue:
		return "update_venue"
	case DeleteVenue:
		return "delete_venue"
	case AddParticipant:
		return "add_participant"
	case UpdateParticipant:
		return "update_participant"
	case DeleteParticipant:
		return "delete_participant"
	case AddAttendance:
		return "add_attendance"
	case UpdateAttendance:
		return "update_attendance"
	case DeleteAttendance:
		return "delete_attendance"
	case AddUserRole:
		return "add_user_role"
	case UpdateUserRole:
		return "update_user_role"
	case DeleteUserRole:
		return "delete_user_role"
	case SetCurrentUser:
		return "set_current_user"
	case SelectEvent:
		return "select_event"
	case SelectVenue:
		return "select_venue"
	case BulkLoad:
		return "bulk_load"
	}
	return "unknown"
}
