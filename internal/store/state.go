package store

import "eventtracker/internal/model"

// State is a snapshot of every collection the store owns. Reduce never
// mutates a State in place; it always returns a new one.
type State struct {
	Events            []model.Event
	Venues            []model.Venue
	Participants      []model.Participant
	AttendanceRecords []model.AttendanceRecord
	UserRoles         []model.UserRole

	CurrentUser     *model.AppUser
	SelectedEventID string
	SelectedVenueID string
}

// Clone returns a deep copy so callers can hold it without aliasing the store.
func (s State) Clone() State {
	out := State{
		Events:            append([]model.Event(nil), s.Events...),
		Venues:            append([]model.Venue(nil), s.Venues...),
		Participants:      append([]model.Participant(nil), s.Participants...),
		AttendanceRecords: append([]model.AttendanceRecord(nil), s.AttendanceRecords...),
		UserRoles:         make([]model.UserRole, len(s.UserRoles)),
		SelectedEventID:   s.SelectedEventID,
		SelectedVenueID:   s.SelectedVenueID,
	}
	for i, r := range s.UserRoles {
		out.UserRoles[i] = cloneRole(r)
	}
	if s.CurrentUser != nil {
		u := *s.CurrentUser
		u.Role = cloneRole(u.Role)
		out.CurrentUser = &u
	}
	return out
}

func cloneRole(r model.UserRole) model.UserRole {
	r.AccessibleVenues = append([]string(nil), r.AccessibleVenues...)
	return r
}

func (s State) Event(id string) (model.Event, bool) {
	for _, e := range s.Events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

func (s State) Venue(id string) (model.Venue, bool) {
	for _, v := range s.Venues {
		if v.ID == id {
			return v, true
		}
	}
	return model.Venue{}, false
}

func (s State) Participant(id string) (model.Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return model.Participant{}, false
}

// ParticipantByExternalID looks a participant up by the user-supplied participant_id.
func (s State) ParticipantByExternalID(participantID string) (model.Participant, bool) {
	for _, p := range s.Participants {
		if p.ParticipantID == participantID {
			return p, true
		}
	}
	return model.Participant{}, false
}

func (s State) AttendanceRecord(id string) (model.AttendanceRecord, bool) {
	for _, r := range s.AttendanceRecords {
		if r.ID == id {
			return r, true
		}
	}
	return model.AttendanceRecord{}, false
}

func (s State) UserRole(id string) (model.UserRole, bool) {
	for _, r := range s.UserRoles {
		if r.ID == id {
			return cloneRole(r), true
		}
	}
	return model.UserRole{}, false
}

func (s State) VenuesForEvent(eventID string) []model.Venue {
	var out []model.Venue
	for _, v := range s.Venues {
		if v.EventID == eventID {
			out = append(out, v)
		}
	}
	return out
}

// AttendanceFor filters records by event and venue. Empty arguments match everything.
func (s State) AttendanceFor(eventID, venueID string) []model.AttendanceRecord {
	var out []model.AttendanceRecord
	for _, r := range s.AttendanceRecords {
		if eventID != "" && r.EventID != eventID {
			continue
		}
		if venueID != "" && r.VenueID != venueID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FindAttendance returns the record for the composite key, if any.
func (s State) FindAttendance(participantID, eventID, venueID string) (model.AttendanceRecord, bool) {
	for _, r := range s.AttendanceRecords {
		if r.ParticipantID == participantID && r.EventID == eventID && r.VenueID == venueID {
			return r, true
		}
	}
	return model.AttendanceRecord{}, false
}
