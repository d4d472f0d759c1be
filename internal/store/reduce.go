package store

import "eventtracker/internal/model"

// Reduce applies cmd to s and returns the next state. The input state is
// left untouched: every changed collection is rebuilt into a fresh slice.
func Reduce(s State, cmd Command) State {
	switch c := cmd.(type) {
	case AddEvent:
		s.Events = appendCopy(s.Events, c.Event)
	case UpdateEvent:
		s.Events = replaceByID(s.Events, c.Event, func(e model.Event) string { return e.ID })
	case DeleteEvent:
		s.Events = removeWhere(s.Events, func(e model.Event) bool { return e.ID == c.ID })
		s.AttendanceRecords = removeWhere(s.AttendanceRecords, func(r model.AttendanceRecord) bool { return r.EventID == c.ID })
		if s.SelectedEventID == c.ID {
			s.SelectedEventID = ""
		}

	case AddVenue:
		s.Venues = appendCopy(s.Venues, c.Venue)
	case UpdateVenue:
		s.Venues = replaceByID(s.Venues, c.Venue, func(v model.Venue) string { return v.ID })
	case DeleteVenue:
		s.Venues = removeWhere(s.Venues, func(v model.Venue) bool { return v.ID == c.ID })
		s.AttendanceRecords = removeWhere(s.AttendanceRecords, func(r model.AttendanceRecord) bool { return r.VenueID == c.ID })
		if s.SelectedVenueID == c.ID {
			s.SelectedVenueID = ""
		}

	case AddParticipant:
		s.Participants = appendCopy(s.Participants, c.Participant)
	case UpdateParticipant:
		s.Participants = replaceByID(s.Participants, c.Participant, func(p model.Participant) string { return p.ID })
	case DeleteParticipant:
		s.Participants = removeWhere(s.Participants, func(p model.Participant) bool { return p.ID == c.ID })
		s.AttendanceRecords = removeWhere(s.AttendanceRecords, func(r model.AttendanceRecord) bool { return r.ParticipantID == c.ID })

	case AddAttendance:
		s.AttendanceRecords = appendCopy(s.AttendanceRecords, c.Record)
	case UpdateAttendance:
		s.AttendanceRecords = replaceByID(s.AttendanceRecords, c.Record, func(r model.AttendanceRecord) string { return r.ID })
	case DeleteAttendance:
		s.AttendanceRecords = removeWhere(s.AttendanceRecords, func(r model.AttendanceRecord) bool { return r.ID == c.ID })

	case AddUserRole:
		s.UserRoles = appendCopy(s.UserRoles, cloneRole(c.Role))
	case UpdateUserRole:
		s.UserRoles = replaceByID(s.UserRoles, cloneRole(c.Role), func(r model.UserRole) string { return r.ID })
	case DeleteUserRole:
		s.UserRoles = removeWhere(s.UserRoles, func(r model.UserRole) bool { return r.ID == c.ID })

	case SetCurrentUser:
		if c.User == nil {
			s.CurrentUser = nil
		} else {
			u := *c.User
			u.Role = cloneRole(u.Role)
			s.CurrentUser = &u
		}
	case SelectEvent:
		s.SelectedEventID = c.ID
	case SelectVenue:
		s.SelectedVenueID = c.ID

	case BulkLoad:
		if c.Events != nil {
			s.Events = append([]model.Event(nil), (*c.Events)...)
		}
		if c.Venues != nil {
			s.Venues = append([]model.Venue(nil), (*c.Venues)...)
		}
		if c.Participants != nil {
			s.Participants = append([]model.Participant(nil), (*c.Participants)...)
		}
		if c.AttendanceRecords != nil {
			s.AttendanceRecords = append([]model.AttendanceRecord(nil), (*c.AttendanceRecords)...)
		}
		if c.UserRoles != nil {
			roles := make([]model.UserRole, len(*c.UserRoles))
			for i, r := range *c.UserRoles {
				roles[i] = cloneRole(r)
			}
			s.UserRoles = roles
		}
	}
	return s
}

func appendCopy[T any](in []T, item T) []T {
	out := make([]T, len(in), len(in)+1)
	copy(out, in)
	return append(out, item)
}

// replaceByID returns in unchanged when no element carries item's id.
func replaceByID[T any](in []T, item T, id func(T) string) []T {
	want := id(item)
	idx := -1
	for i, v := range in {
		if id(v) == want {
			idx = i
			break
		}
	}
	if idx < 0 {
		return in
	}
	out := make([]T, len(in))
	copy(out, in)
	out[idx] = item
	return out
}

func removeWhere[T any](in []T, match func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if !match(v) {
			out = append(out, v)
		}
	}
	return out
}
