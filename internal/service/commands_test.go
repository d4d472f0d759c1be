package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"eventtracker/internal/backup"
	"eventtracker/internal/dto"
	"eventtracker/internal/model"
	"eventtracker/internal/store"
)

type recordingMirror struct {
	mu   sync.Mutex
	msgs []dto.MirrorMessage
}

func (m *recordingMirror) Publish(msg dto.MirrorMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
}

func (m *recordingMirror) Flush() {}

func (m *recordingMirror) ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.msgs))
	for i, msg := range m.msgs {
		out[i] = msg.Op + " " + msg.Kind + " " + msg.ID
	}
	return out
}

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestCommands(t *testing.T) (*Commands, *recordingMirror) {
	t.Helper()
	log := zerolog.Nop()
	mirror := &recordingMirror{}
	c := NewCommands(store.New(&log), mirror, nil, &log)
	c.now = func() time.Time { return testNow }
	n := 0
	c.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return c, mirror
}

func participantReq(pid string) dto.ParticipantRequest {
	return dto.ParticipantRequest{ParticipantID: pid, Name: "Ann", Email: "ann@example.com"}
}

// seed creates one event, one venue and one participant: id-1, id-2, id-3.
func seed(t *testing.T, c *Commands) {
	t.Helper()
	ctx := context.Background()
	if _, err := c.CreateEvent(ctx, dto.EventRequest{Name: "Conf", StartDate: "2024-03-01", EndDate: "2024-03-02"}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if _, err := c.CreateVenue(ctx, dto.VenueRequest{Name: "Hall", Location: "B1", Capacity: 50, EventID: "id-1"}); err != nil {
		t.Fatalf("CreateVenue: %v", err)
	}
	if _, err := c.CreateParticipant(ctx, participantReq("A100")); err != nil {
		t.Fatalf("CreateParticipant: %v", err)
	}
}

func TestCreateEventValidation(t *testing.T) {
	c, mirror := newTestCommands(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  dto.EventRequest
	}{
		{"missing name", dto.EventRequest{StartDate: "2024-03-01", EndDate: "2024-03-02"}},
		{"bad date", dto.EventRequest{Name: "x", StartDate: "March 1", EndDate: "2024-03-02"}},
		{"end before start", dto.EventRequest{Name: "x", StartDate: "2024-03-02", EndDate: "2024-03-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateEvent(ctx, tt.req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
	if n := len(c.store.State().Events); n != 0 {
		t.Fatalf("events = %d, want 0", n)
	}
	if ops := mirror.ops(); len(ops) != 0 {
		t.Fatalf("mirror ops = %v, want none", ops)
	}
}

func TestCreateVenueRejectsUnknownEventAndCapacity(t *testing.T) {
	c, _ := newTestCommands(t)
	ctx := context.Background()

	if _, err := c.CreateVenue(ctx, dto.VenueRequest{Name: "Hall", Location: "B1", Capacity: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("capacity 0: err = %v, want ErrValidation", err)
	}
	if _, err := c.CreateVenue(ctx, dto.VenueRequest{Name: "Hall", Location: "B1", Capacity: 5, EventID: "nope"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown event: err = %v, want ErrValidation", err)
	}
	v, err := c.CreateVenue(ctx, dto.VenueRequest{Name: "Hall", Location: "B1", Capacity: 5})
	if err != nil {
		t.Fatalf("unassigned venue: %v", err)
	}
	if v.EventID != "" {
		t.Fatalf("EventID = %q, want empty", v.EventID)
	}
}

func TestParticipantIDUniqueness(t *testing.T) {
	c, _ := newTestCommands(t)
	ctx := context.Background()

	first, err := c.CreateParticipant(ctx, participantReq("A100"))
	if err != nil {
		t.Fatalf("CreateParticipant: %v", err)
	}
	if !strings.HasPrefix(first.QRCode, "data:image/png;base64,") {
		t.Fatalf("QRCode = %.30q, want data URL", first.QRCode)
	}
	if first.RegistrationDate != "2024-03-01T09:00:00Z" {
		t.Fatalf("RegistrationDate = %q", first.RegistrationDate)
	}

	_, err = c.CreateParticipant(ctx, participantReq("A100"))
	if !errors.Is(err, ErrDuplicate) || !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want duplicate validation error", err)
	}

	second, err := c.CreateParticipant(ctx, participantReq("A200"))
	if err != nil {
		t.Fatalf("CreateParticipant: %v", err)
	}
	if _, err := c.UpdateParticipant(ctx, second.ID, participantReq("A100")); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("update to taken id: err = %v, want ErrDuplicate", err)
	}
	// keeping its own participant_id is not a conflict
	if _, err := c.UpdateParticipant(ctx, second.ID, participantReq("A200")); err != nil {
		t.Fatalf("update keeping id: %v", err)
	}
}

func TestUpdateParticipantRegeneratesQROnlyOnIDChange(t *testing.T) {
	c, _ := newTestCommands(t)
	ctx := context.Background()

	p, err := c.CreateParticipant(ctx, participantReq("A100"))
	if err != nil {
		t.Fatalf("CreateParticipant: %v", err)
	}

	req := participantReq("A100")
	req.Name = "Ann B."
	same, err := c.UpdateParticipant(ctx, p.ID, req)
	if err != nil {
		t.Fatalf("UpdateParticipant: %v", err)
	}
	if same.QRCode != p.QRCode || same.Name != "Ann B." {
		t.Fatalf("update without id change altered QR or lost name: %+v", same)
	}

	changed, err := c.UpdateParticipant(ctx, p.ID, participantReq("B200"))
	if err != nil {
		t.Fatalf("UpdateParticipant: %v", err)
	}
	if changed.QRCode == p.QRCode {
		t.Fatalf("QR code not regenerated after participant_id change")
	}
	if changed.RegistrationDate != p.RegistrationDate {
		t.Fatalf("RegistrationDate changed on update")
	}

	if _, err := c.UpdateParticipant(ctx, "missing", participantReq("C1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMarkAttendanceAndCheckOut(t *testing.T) {
	c, mirror := newTestCommands(t)
	ctx := context.Background()
	seed(t, c)

	req := dto.AttendanceRequest{ParticipantID: "id-3", EventID: "id-1", VenueID: "id-2", Status: model.StatusPresent}
	rec, err := c.MarkAttendance(ctx, req)
	if err != nil {
		t.Fatalf("MarkAttendance: %v", err)
	}
	if rec.CheckInTime != "2024-03-01T09:00:00Z" {
		t.Fatalf("CheckInTime = %q", rec.CheckInTime)
	}

	c.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	out, err := c.CheckOut(ctx, dto.CheckOutRequest{ParticipantID: "id-3", EventID: "id-1", VenueID: "id-2"})
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if out.CheckOutTime != "2024-03-01T11:00:00Z" || out.ID != rec.ID {
		t.Fatalf("CheckOut = %+v", out)
	}
	if _, err := c.CheckOut(ctx, dto.CheckOutRequest{ParticipantID: "id-3", EventID: "id-1", VenueID: "id-2"}); !errors.Is(err, ErrCannotCheckOut) {
		t.Fatalf("second CheckOut: err = %v, want ErrCannotCheckOut", err)
	}

	ops := mirror.ops()
	want := []string{"create attendance " + rec.ID, "update attendance " + rec.ID}
	if got := ops[len(ops)-2:]; got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("mirror tail = %v, want %v", got, want)
	}
	if n := len(c.store.State().AttendanceRecords); n != 1 {
		t.Fatalf("records = %d, want 1", n)
	}
}

func TestMarkAttendanceRequiresExistingRefs(t *testing.T) {
	c, _ := newTestCommands(t)
	ctx := context.Background()
	seed(t, c)

	tests := []dto.AttendanceRequest{
		{ParticipantID: "nope", EventID: "id-1", VenueID: "id-2", Status: model.StatusPresent},
		{ParticipantID: "id-3", EventID: "nope", VenueID: "id-2", Status: model.StatusPresent},
		{ParticipantID: "id-3", EventID: "id-1", VenueID: "nope", Status: model.StatusPresent},
		{ParticipantID: "id-3", EventID: "id-1", VenueID: "id-2", Status: "excused"},
	}
	for i, req := range tests {
		if _, err := c.MarkAttendance(ctx, req); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: err = %v, want ErrValidation", i, err)
		}
	}
}

func TestScanMarksPresentByParticipantID(t *testing.T) {
	c, _ := newTestCommands(t)
	ctx := context.Background()
	seed(t, c)

	rec, p, err := c.Scan(ctx, dto.ScanRequest{Code: " A100 ", EventID: "id-1", VenueID: "id-2"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if p.ID != "id-3" || rec.ParticipantID != "id-3" || rec.Status != model.StatusPresent {
		t.Fatalf("Scan = %+v, %+v", rec, p)
	}

	if _, _, err := c.Scan(ctx, dto.ScanRequest{Code: "Z9", EventID: "id-1", VenueID: "id-2"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown code: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteParticipantCascadesAndMirrors(t *testing.T) {
	c, mirror := newTestCommands(t)
	ctx := context.Background()
	seed(t, c)

	if _, err := c.MarkAttendance(ctx, dto.AttendanceRequest{ParticipantID: "id-3", EventID: "id-1", VenueID: "id-2", Status: model.StatusLate}); err != nil {
		t.Fatalf("MarkAttendance: %v", err)
	}
	if err := c.DeleteParticipant(ctx, "id-3"); err != nil {
		t.Fatalf("DeleteParticipant: %v", err)
	}
	if n := len(c.store.State().AttendanceRecords); n != 0 {
		t.Fatalf("records = %d, want 0", n)
	}
	ops := mirror.ops()
	if last := ops[len(ops)-1]; last != "delete participant id-3" {
		t.Fatalf("last mirror op = %q", last)
	}
	if err := c.DeleteParticipant(ctx, "id-3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRoleEmailUniqueness(t *testing.T) {
	c, _ := newTestCommands(t)
	ctx := context.Background()

	r, err := c.CreateRole(ctx, dto.RoleRequest{Email: "Staff@Example.com", Role: model.RoleStaff})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if r.Email != "staff@example.com" {
		t.Fatalf("Email = %q, want lower-cased", r.Email)
	}
	if r.AccessibleVenues == nil {
		t.Fatalf("AccessibleVenues = nil, want empty slice")
	}

	if _, err := c.CreateRole(ctx, dto.RoleRequest{Email: "STAFF@example.com", Role: model.RoleViewer}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if _, err := c.CreateRole(ctx, dto.RoleRequest{Email: "x@example.com", Role: "owner"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown role: err = %v, want ErrValidation", err)
	}

	updated, err := c.UpdateRole(ctx, r.ID, dto.RoleRequest{
		Email:            "staff@example.com",
		Role:             model.RoleStaff,
		AccessibleVenues: []string{"v1"},
		Permissions:      model.Permissions{CanTakeAttendance: true},
	})
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if !updated.Permissions.CanTakeAttendance || len(updated.AccessibleVenues) != 1 {
		t.Fatalf("UpdateRole = %+v", updated)
	}
}

func TestImportReplacesAndMirrors(t *testing.T) {
	c, mirror := newTestCommands(t)
	ctx := context.Background()
	seed(t, c)

	doc := backup.Document{
		Events:            []model.Event{{ID: "e9", Name: "Restored"}},
		Participants:      []model.Participant{{ID: "p9", ParticipantID: "R1"}},
		AttendanceRecords: []model.AttendanceRecord{},
	}
	before := len(mirror.ops())
	if err := c.Import(ctx, doc); err != nil {
		t.Fatalf("Import: %v", err)
	}

	s := c.store.State()
	if len(s.Events) != 1 || s.Events[0].ID != "e9" {
		t.Fatalf("events = %+v", s.Events)
	}
	if len(s.Venues) != 1 {
		t.Fatalf("venues = %d, want untouched 1", len(s.Venues))
	}

	got := mirror.ops()[before:]
	want := []string{
		"delete participant id-3",
		"delete event id-1",
		"create event e9",
		"create participant p9",
	}
	if len(got) != len(want) {
		t.Fatalf("mirror ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mirror ops = %v, want %v", got, want)
		}
	}
}

func TestClearAll(t *testing.T) {
	c, _ := newTestCommands(t)
	ctx := context.Background()
	seed(t, c)

	if err := c.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	s := c.store.State()
	if len(s.Events) != 0 || len(s.Participants) != 0 || len(s.AttendanceRecords) != 0 {
		t.Fatalf("state not cleared: %+v", s)
	}
}
