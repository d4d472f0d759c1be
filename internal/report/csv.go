package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"eventtracker/internal/store"
)

const csvTimeLayout = "2006-01-02 15:04:05"

var ErrNoData = errors.New("no data to export")

var csvHeader = []string{"Participant Name", "Email", "Event", "Venue", "Status", "Check In", "Check Out"}

// WriteCSV writes one row per attendance record of eventID (all events when
// empty). Every data value is quoted; the header row is not.
func WriteCSV(w io.Writer, s store.State, eventID string, loc *time.Location) error {
	records := s.AttendanceFor(eventID, "")
	if len(records) == 0 {
		return ErrNoData
	}
	if loc == nil {
		loc = time.UTC
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(csvHeader, ",")); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range records {
		name, email, eventName, venueName := "Unknown", "Unknown", "Unknown", "Unknown"
		if p, ok := s.Participant(r.ParticipantID); ok {
			name = p.Name
			if p.Email != "" {
				email = p.Email
			}
		}
		if e, ok := s.Event(r.EventID); ok && e.Name != "" {
			eventName = e.Name
		}
		if v, ok := s.Venue(r.VenueID); ok && v.Name != "" {
			venueName = v.Name
		}

		row := []string{
			name, email, eventName, venueName, string(r.Status),
			formatCSVTime(r.CheckInTime, loc),
			formatCSVTime(r.CheckOutTime, loc),
		}
		for i, v := range row {
			row[i] = quote(v)
		}
		if _, err := bw.WriteString("\n" + strings.Join(row, ",")); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	return bw.Flush()
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func formatCSVTime(v string, loc *time.Location) string {
	if v == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return v
	}
	return t.In(loc).Format(csvTimeLayout)
}
