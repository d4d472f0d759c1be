package store

import (
	"time"

	"eventtracker/internal/model"
)

// TimeLayout is the encoding of CheckInTime / CheckOutTime.
const TimeLayout = time.RFC3339

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// MarkAttendance builds the command that records status for the triple.
// A missing record is created with newID; an existing one is updated in place.
//
// present/late keep an existing check-in time and leave check-out alone.
// absent keeps an existing check-in time but clears check-out.
func MarkAttendance(s State, participantID, eventID, venueID string, status model.Status, now time.Time, newID func() string) Command {
	stamp := FormatTime(now)

	existing, ok := s.FindAttendance(participantID, eventID, venueID)
	if !ok {
		rec := model.AttendanceRecord{
			ID:            newID(),
			ParticipantID: participantID,
			EventID:       eventID,
			VenueID:       venueID,
			Status:        status,
		}
		if status != model.StatusAbsent {
			rec.CheckInTime = stamp
		}
		return AddAttendance{Record: rec}
	}

	rec := existing
	rec.Status = status
	switch status {
	case model.StatusPresent, model.StatusLate:
		if rec.CheckInTime == "" {
			rec.CheckInTime = stamp
		}
	case model.StatusAbsent:
		rec.CheckOutTime = ""
	}
	return UpdateAttendance{Record: rec}
}

// CheckOut returns the update that stamps a check-out time. It reports false
// unless a present record without a check-out time exists for the triple.
func CheckOut(s State, participantID, eventID, venueID string, now time.Time) (Command, bool) {
	existing, ok := s.FindAttendance(participantID, eventID, venueID)
	if !ok || existing.Status != model.StatusPresent || existing.CheckOutTime != "" {
		return nil, false
	}
	existing.CheckOutTime = FormatTime(now)
	return UpdateAttendance{Record: existing}, true
}
