package report

import (
	"eventtracker/internal/model"
	"eventtracker/internal/store"
)

type Breakdown struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	EventName      string  `json:"event_name,omitempty"`
	TotalRecords   int     `json:"total_records"`
	PresentCount   int     `json:"present_count"`
	AttendanceRate float64 `json:"attendance_rate"`
}

type Summary struct {
	TotalAttendance int         `json:"total_attendance"`
	PresentCount    int         `json:"present_count"`
	AbsentCount     int         `json:"absent_count"`
	LateCount       int         `json:"late_count"`
	AttendanceRate  float64     `json:"attendance_rate"`
	LateRate        float64     `json:"late_rate"`
	Events          []Breakdown `json:"events"`
	Venues          []Breakdown `json:"venues"`
}

type DashboardStats struct {
	TotalEvents       int           `json:"total_events"`
	TotalParticipants int           `json:"total_participants"`
	TotalVenues       int           `json:"total_venues"`
	TotalAttendance   int           `json:"total_attendance"`
	AttendanceRate    int           `json:"attendance_rate"`
	RecentEvents      []model.Event `json:"recent_events"`
}

const recentEvents = 3

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func countStatus(records []model.AttendanceRecord, status model.Status) int {
	n := 0
	for _, r := range records {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Summarize computes the report totals over records of eventID, or over all
// records when eventID is empty. Breakdowns always cover every event and venue.
func Summarize(s store.State, eventID string) Summary {
	records := s.AttendanceFor(eventID, "")
	sum := Summary{
		TotalAttendance: len(records),
		PresentCount:    countStatus(records, model.StatusPresent),
		AbsentCount:     countStatus(records, model.StatusAbsent),
		LateCount:       countStatus(records, model.StatusLate),
	}
	sum.AttendanceRate = rate(sum.PresentCount, sum.TotalAttendance)
	sum.LateRate = rate(sum.LateCount, sum.TotalAttendance)

	for _, e := range s.Events {
		recs := s.AttendanceFor(e.ID, "")
		present := countStatus(recs, model.StatusPresent)
		sum.Events = append(sum.Events, Breakdown{
			ID:             e.ID,
			Name:           e.Name,
			TotalRecords:   len(recs),
			PresentCount:   present,
			AttendanceRate: rate(present, len(recs)),
		})
	}

	for _, v := range s.Venues {
		recs := s.AttendanceFor("", v.ID)
		present := countStatus(recs, model.StatusPresent)
		b := Breakdown{
			ID:             v.ID,
			Name:           v.Name,
			TotalRecords:   len(recs),
			PresentCount:   present,
			AttendanceRate: rate(present, len(recs)),
		}
		if e, ok := s.Event(v.EventID); ok {
			b.EventName = e.Name
		}
		sum.Venues = append(sum.Venues, b)
	}
	return sum
}

func Dashboard(s store.State) DashboardStats {
	total := len(s.AttendanceRecords)
	present := countStatus(s.AttendanceRecords, model.StatusPresent)

	recent := s.Events
	if len(recent) > recentEvents {
		recent = recent[len(recent)-recentEvents:]
	}
	return DashboardStats{
		TotalEvents:       len(s.Events),
		TotalParticipants: len(s.Participants),
		TotalVenues:       len(s.Venues),
		TotalAttendance:   total,
		AttendanceRate:    int(rate(present, total) + 0.5),
		RecentEvents:      append([]model.Event(nil), recent...),
	}
}
