package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"eventtracker/internal/auth"
	"eventtracker/internal/dto"
	"eventtracker/internal/model"
	"eventtracker/internal/service"
	"eventtracker/internal/store"
)

const testSecret = "test-secret-test-secret-test-secret"

type envelope struct {
	Status string          `json:"status"`
	Error  *dto.Error      `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type harness struct {
	t      *testing.T
	app    *ginext.Engine
	tokens *auth.TokenParser
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	cmds := service.NewCommands(store.New(&log), nil, nil, &log)
	session := service.NewSession(cmds, &log)
	tokens := auth.NewTokenParser(testSecret, "")
	app := NewRouters(&Routers{
		Service: service.NewService(cmds, session, &log, time.UTC),
		Tokens:  tokens,
	})
	return &harness{t: t, app: app, tokens: tokens}
}

func (h *harness) token(id, email string) string {
	h.t.Helper()
	tok, err := h.tokens.Issue(auth.Identity{ID: id, PrimaryEmail: email}, time.Hour)
	if err != nil {
		h.t.Fatalf("Issue: %v", err)
	}
	return tok
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.app.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data %q: %v", env.Data, err)
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || env.Error == nil {
		t.Fatalf("expected error envelope, got %q", rec.Body.String())
	}
	return env.Error.Code
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

// setup signs the super admin in and creates an event, a venue and a participant.
func setup(h *harness) (admin string, ev model.Event, venue model.Venue, p model.Participant) {
	t := h.t
	admin = h.token("admin-1", "pranneethpersonal@gmail.com")
	expectStatus(t, h.do(http.MethodPost, "/v1/session", admin, nil), http.StatusOK)

	rec := h.do(http.MethodPost, "/v1/events", admin, dto.EventRequest{Name: "Conf", StartDate: "2024-03-01", EndDate: "2024-03-02"})
	expectStatus(t, rec, http.StatusCreated)
	ev = decode[model.Event](t, rec)

	rec = h.do(http.MethodPost, "/v1/venues", admin, dto.VenueRequest{Name: "Hall", Location: "B1", Capacity: 50, EventID: ev.ID})
	expectStatus(t, rec, http.StatusCreated)
	venue = decode[model.Venue](t, rec)

	rec = h.do(http.MethodPost, "/v1/participants", admin, dto.ParticipantRequest{ParticipantID: "A100", Name: "Ann", Email: "ann@example.com"})
	expectStatus(t, rec, http.StatusCreated)
	p = decode[model.Participant](t, rec)
	return admin, ev, venue, p
}

func TestAuthentication(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/v1/events", "", nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = h.do(http.MethodGet, "/v1/events", "not-a-token", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
	if code := errorCode(t, rec); code != dto.Unauthorized {
		t.Fatalf("code = %q, want %q", code, dto.Unauthorized)
	}

	other := auth.NewTokenParser("another-secret-another-secret-xx", "")
	forged, err := other.Issue(auth.Identity{ID: "x", PrimaryEmail: "pranneethpersonal@gmail.com"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	expectStatus(t, h.do(http.MethodPost, "/v1/events", forged, dto.EventRequest{}), http.StatusUnauthorized)
}

func TestSessionAndMe(t *testing.T) {
	h := newHarness(t)
	tok := h.token("u1", "viewer@example.com")

	rec := h.do(http.MethodPost, "/v1/session", tok, nil)
	expectStatus(t, rec, http.StatusOK)
	sess := decode[dto.SessionResponse](t, rec)
	if !sess.Created || sess.User.Role.Role != model.RoleViewer {
		t.Fatalf("session = %+v", sess)
	}

	rec = h.do(http.MethodPost, "/v1/session", tok, nil)
	if decode[dto.SessionResponse](t, rec).Created {
		t.Fatalf("second sign-in created another role")
	}

	rec = h.do(http.MethodGet, "/v1/me", tok, nil)
	expectStatus(t, rec, http.StatusOK)
	if me := decode[model.AppUser](t, rec); me.Email != "viewer@example.com" {
		t.Fatalf("me = %+v", me)
	}
}

func TestAdminFlow(t *testing.T) {
	h := newHarness(t)
	admin, ev, venue, p := setup(h)

	rec := h.do(http.MethodPost, "/v1/participants", admin, dto.ParticipantRequest{ParticipantID: "A100", Name: "Bob", Email: "bob@example.com"})
	expectStatus(t, rec, http.StatusConflict)

	rec = h.do(http.MethodPost, "/v1/attendance", admin, dto.AttendanceRequest{
		ParticipantID: p.ID, EventID: ev.ID, VenueID: venue.ID, Status: model.StatusPresent,
	})
	expectStatus(t, rec, http.StatusOK)
	if r := decode[model.AttendanceRecord](t, rec); r.CheckInTime == "" {
		t.Fatalf("record = %+v, want check-in time", r)
	}

	rec = h.do(http.MethodPost, "/v1/attendance/checkout", admin, dto.CheckOutRequest{ParticipantID: p.ID, EventID: ev.ID, VenueID: venue.ID})
	expectStatus(t, rec, http.StatusOK)
	rec = h.do(http.MethodPost, "/v1/attendance/checkout", admin, dto.CheckOutRequest{ParticipantID: p.ID, EventID: ev.ID, VenueID: venue.ID})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = h.do(http.MethodGet, "/v1/attendance?event="+ev.ID, admin, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]model.AttendanceRecord](t, rec); len(got) != 1 {
		t.Fatalf("attendance = %+v", got)
	}

	rec = h.do(http.MethodGet, "/v1/reports/summary?event="+ev.ID, admin, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = h.do(http.MethodGet, "/v1/reports/attendance.csv", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.HasPrefix(rec.Body.String(), "Participant Name,Email,Event,Venue,Status,Check In,Check Out\n") {
		t.Fatalf("csv = %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attendance-report-") {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	rec = h.do(http.MethodGet, "/v1/participants/"+p.ID+"/qr?size=128", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("qr route did not return a PNG")
	}

	rec = h.do(http.MethodGet, "/v1/participants?q=ann", admin, nil)
	if got := decode[[]model.Participant](t, rec); len(got) != 1 {
		t.Fatalf("search = %+v", got)
	}

	// deleting the event drops its attendance but keeps the venue
	expectStatus(t, h.do(http.MethodDelete, "/v1/events/"+ev.ID, admin, nil), http.StatusOK)
	rec = h.do(http.MethodGet, "/v1/attendance", admin, nil)
	if got := decode[[]model.AttendanceRecord](t, rec); len(got) != 0 {
		t.Fatalf("attendance after event delete = %+v", got)
	}
	rec = h.do(http.MethodGet, "/v1/venues", admin, nil)
	if got := decode[[]model.Venue](t, rec); len(got) != 1 {
		t.Fatalf("venues after event delete = %+v", got)
	}
	expectStatus(t, h.do(http.MethodDelete, "/v1/events/"+ev.ID, admin, nil), http.StatusNotFound)
}

func TestPermissionGating(t *testing.T) {
	h := newHarness(t)
	admin, ev, venue, p := setup(h)

	viewer := h.token("v1", "viewer@example.com")
	expectStatus(t, h.do(http.MethodPost, "/v1/events", viewer, dto.EventRequest{Name: "X", StartDate: "2024-01-01", EndDate: "2024-01-01"}), http.StatusForbidden)
	expectStatus(t, h.do(http.MethodGet, "/v1/roles", viewer, nil), http.StatusForbidden)
	expectStatus(t, h.do(http.MethodGet, "/v1/reports/summary", viewer, nil), http.StatusOK)

	rec := h.do(http.MethodGet, "/v1/events", viewer, nil)
	if got := decode[[]model.Event](t, rec); len(got) != 0 {
		t.Fatalf("viewer events = %+v, want none", got)
	}

	rec = h.do(http.MethodPost, "/v1/venues", admin, dto.VenueRequest{Name: "Annex", Location: "C2", Capacity: 10, EventID: ev.ID})
	other := decode[model.Venue](t, rec)

	rec = h.do(http.MethodPost, "/v1/roles", admin, dto.RoleRequest{
		Email:            "staff@example.com",
		Role:             model.RoleStaff,
		AccessibleVenues: []string{venue.ID},
		Permissions:      model.Permissions{CanTakeAttendance: true, CanViewReports: true},
	})
	expectStatus(t, rec, http.StatusCreated)

	staff := h.token("s1", "Staff@Example.com")
	mark := func(venueID string) *httptest.ResponseRecorder {
		return h.do(http.MethodPost, "/v1/attendance", staff, dto.AttendanceRequest{
			ParticipantID: p.ID, EventID: ev.ID, VenueID: venueID, Status: model.StatusLate,
		})
	}
	expectStatus(t, mark(venue.ID), http.StatusOK)
	expectStatus(t, mark(other.ID), http.StatusForbidden)

	rec = h.do(http.MethodGet, "/v1/venues", staff, nil)
	if got := decode[[]model.Venue](t, rec); len(got) != 1 || got[0].ID != venue.ID {
		t.Fatalf("staff venues = %+v", got)
	}
	rec = h.do(http.MethodGet, "/v1/events", staff, nil)
	if got := decode[[]model.Event](t, rec); len(got) != 1 {
		t.Fatalf("staff events = %+v", got)
	}
	expectStatus(t, h.do(http.MethodGet, "/v1/attendance?venue="+other.ID, staff, nil), http.StatusForbidden)
	expectStatus(t, h.do(http.MethodDelete, "/v1/participants/"+p.ID, staff, nil), http.StatusForbidden)
}

func TestScanRoute(t *testing.T) {
	h := newHarness(t)
	admin, ev, venue, p := setup(h)

	rec := h.do(http.MethodPost, "/v1/attendance/scan", admin, dto.ScanRequest{Code: "A100", EventID: ev.ID, VenueID: venue.ID})
	expectStatus(t, rec, http.StatusOK)
	got := decode[struct {
		Record      model.AttendanceRecord `json:"record"`
		Participant model.Participant      `json:"participant"`
	}](t, rec)
	if got.Participant.ID != p.ID || got.Record.Status != model.StatusPresent {
		t.Fatalf("scan = %+v", got)
	}

	rec = h.do(http.MethodPost, "/v1/attendance/scan", admin, dto.ScanRequest{Code: "NOPE", EventID: ev.ID, VenueID: venue.ID})
	expectStatus(t, rec, http.StatusNotFound)
}

func TestBackupRoutes(t *testing.T) {
	h := newHarness(t)
	admin, _, _, _ := setup(h)

	rec := h.do(http.MethodGet, "/v1/backup", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	exported := rec.Body.String()
	if !strings.Contains(exported, `"exportDate"`) {
		t.Fatalf("export = %s", exported)
	}

	rec = h.do(http.MethodPost, "/v1/backup", admin, `{"events": []}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if code := errorCode(t, rec); code != dto.InvalidBackup {
		t.Fatalf("code = %q, want %q", code, dto.InvalidBackup)
	}

	expectStatus(t, h.do(http.MethodDelete, "/v1/backup", admin, nil), http.StatusOK)
	rec = h.do(http.MethodGet, "/v1/participants", admin, nil)
	if got := decode[[]model.Participant](t, rec); len(got) != 0 {
		t.Fatalf("participants after clear = %+v", got)
	}
	rec = h.do(http.MethodGet, "/v1/reports/attendance.csv", admin, nil)
	expectStatus(t, rec, http.StatusNotFound)
	if code := errorCode(t, rec); code != dto.NoData {
		t.Fatalf("code = %q, want %q", code, dto.NoData)
	}

	expectStatus(t, h.do(http.MethodPost, "/v1/backup", admin, exported), http.StatusOK)
	rec = h.do(http.MethodGet, "/v1/participants", admin, nil)
	if got := decode[[]model.Participant](t, rec); len(got) != 1 {
		t.Fatalf("participants after restore = %+v", got)
	}
}

func TestListSearch(t *testing.T) {
	h := newHarness(t)
	admin, ev, venue, _ := setup(h)

	rec := h.do(http.MethodPost, "/v1/events", admin, dto.EventRequest{
		Name: "Workshop", Description: "Hands-on Go", StartDate: "2024-04-01", EndDate: "2024-04-01",
	})
	expectStatus(t, rec, http.StatusCreated)
	workshop := decode[model.Event](t, rec)

	rec = h.do(http.MethodPost, "/v1/venues", admin, dto.VenueRequest{Name: "Annex", Location: "North Wing", Capacity: 10, EventID: ev.ID})
	expectStatus(t, rec, http.StatusCreated)
	annex := decode[model.Venue](t, rec)

	events := func(q string) []model.Event {
		rec := h.do(http.MethodGet, "/v1/events"+q, admin, nil)
		expectStatus(t, rec, http.StatusOK)
		return decode[[]model.Event](t, rec)
	}
	if got := events(""); len(got) != 2 {
		t.Fatalf("events = %+v, want 2", got)
	}
	if got := events("?q=HANDS-ON"); len(got) != 1 || got[0].ID != workshop.ID {
		t.Fatalf("events matching description = %+v", got)
	}
	if got := events("?q=conf"); len(got) != 1 || got[0].ID != ev.ID {
		t.Fatalf("events matching name = %+v", got)
	}
	if got := events("?q=nothing"); len(got) != 0 {
		t.Fatalf("events = %+v, want none", got)
	}

	venues := func(q string) []model.Venue {
		rec := h.do(http.MethodGet, "/v1/venues"+q, admin, nil)
		expectStatus(t, rec, http.StatusOK)
		return decode[[]model.Venue](t, rec)
	}
	if got := venues("?q=north"); len(got) != 1 || got[0].ID != annex.ID {
		t.Fatalf("venues matching location = %+v", got)
	}
	if got := venues("?q=hall"); len(got) != 1 || got[0].ID != venue.ID {
		t.Fatalf("venues matching name = %+v", got)
	}
	if got := venues("?q=%20"); len(got) != 2 {
		t.Fatalf("blank search = %+v, want every venue", got)
	}
}

func TestDeleteAttendanceChecksVenue(t *testing.T) {
	h := newHarness(t)
	admin, ev, venue, p := setup(h)

	rec := h.do(http.MethodPost, "/v1/venues", admin, dto.VenueRequest{Name: "Annex", Location: "C2", Capacity: 10, EventID: ev.ID})
	other := decode[model.Venue](t, rec)

	mark := func(venueID string) model.AttendanceRecord {
		rec := h.do(http.MethodPost, "/v1/attendance", admin, dto.AttendanceRequest{
			ParticipantID: p.ID, EventID: ev.ID, VenueID: venueID, Status: model.StatusPresent,
		})
		expectStatus(t, rec, http.StatusOK)
		return decode[model.AttendanceRecord](t, rec)
	}
	own := mark(venue.ID)
	foreign := mark(other.ID)

	rec = h.do(http.MethodPost, "/v1/roles", admin, dto.RoleRequest{
		Email:            "staff@example.com",
		Role:             model.RoleStaff,
		AccessibleVenues: []string{venue.ID},
		Permissions:      model.Permissions{CanTakeAttendance: true},
	})
	expectStatus(t, rec, http.StatusCreated)
	staff := h.token("s1", "staff@example.com")

	expectStatus(t, h.do(http.MethodDelete, "/v1/attendance/"+foreign.ID, staff, nil), http.StatusForbidden)
	expectStatus(t, h.do(http.MethodDelete, "/v1/attendance/"+own.ID, staff, nil), http.StatusOK)
	expectStatus(t, h.do(http.MethodDelete, "/v1/attendance/missing", staff, nil), http.StatusNotFound)

	rec = h.do(http.MethodGet, "/v1/attendance", admin, nil)
	if got := decode[[]model.AttendanceRecord](t, rec); len(got) != 1 || got[0].ID != foreign.ID {
		t.Fatalf("attendance = %+v, want only the record at the other venue", got)
	}
}
