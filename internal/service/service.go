package service

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"eventtracker/internal/auth"
	"eventtracker/internal/backup"
	"eventtracker/internal/dto"
	"eventtracker/internal/model"
	"eventtracker/internal/qr"
	"eventtracker/internal/report"
)

type Service interface {
	SignIn(ctx *ginext.Context)
	SignOut(ctx *ginext.Context)
	Me(ctx *ginext.Context)

	GetEvents(ctx *ginext.Context)
	CreateEvent(ctx *ginext.Context)
	UpdateEvent(ctx *ginext.Context)
	DeleteEvent(ctx *ginext.Context)
	GetEventVenues(ctx *ginext.Context)

	GetVenues(ctx *ginext.Context)
	CreateVenue(ctx *ginext.Context)
	UpdateVenue(ctx *ginext.Context)
	DeleteVenue(ctx *ginext.Context)

	GetParticipants(ctx *ginext.Context)
	CreateParticipant(ctx *ginext.Context)
	UpdateParticipant(ctx *ginext.Context)
	DeleteParticipant(ctx *ginext.Context)
	GetParticipantQR(ctx *ginext.Context)

	GetAttendance(ctx *ginext.Context)
	MarkAttendance(ctx *ginext.Context)
	CheckOut(ctx *ginext.Context)
	Scan(ctx *ginext.Context)
	DeleteAttendance(ctx *ginext.Context)

	GetRoles(ctx *ginext.Context)
	CreateRole(ctx *ginext.Context)
	UpdateRole(ctx *ginext.Context)
	DeleteRole(ctx *ginext.Context)

	Summary(ctx *ginext.Context)
	AttendanceCSV(ctx *ginext.Context)
	Dashboard(ctx *ginext.Context)

	ExportBackup(ctx *ginext.Context)
	ImportBackup(ctx *ginext.Context)
	ClearData(ctx *ginext.Context)
}

type service struct {
	cmds    *Commands
	session *Session
	log     *zerolog.Logger
	loc     *time.Location
}

// NewService builds the HTTP handlers. loc is the zone report times are shown in.
func NewService(cmds *Commands, session *Session, logger *zerolog.Logger, loc *time.Location) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		cmds:    cmds,
		session: session,
		log:     logger,
		loc:     loc,
	}
}

func identity(ctx *ginext.Context) (auth.Identity, bool) {
	v, ok := ctx.Get(auth.ContextKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

func (s *service) user(ctx *ginext.Context) (*model.AppUser, bool) {
	id, ok := identity(ctx)
	if !ok {
		dto.UnauthorizedError(ctx, "Sign in required")
		return nil, false
	}
	u := s.session.UserFor(id)
	return &u, true
}

func (s *service) authorize(ctx *ginext.Context, perm model.Permission) (*model.AppUser, bool) {
	u, ok := s.user(ctx)
	if !ok {
		return nil, false
	}
	if !auth.HasPermission(u, perm) {
		s.log.Warn().Str("email", u.Email).Str("permission", string(perm)).Msg("permission denied")
		dto.ForbiddenError(ctx, "Missing permission "+string(perm))
		return nil, false
	}
	return u, true
}

func (s *service) venueAccess(ctx *ginext.Context, u *model.AppUser, venueID string) bool {
	if auth.HasVenueAccess(u, venueID) {
		return true
	}
	dto.ForbiddenError(ctx, "No access to venue "+venueID)
	return false
}

func (s *service) bind(ctx *ginext.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse request body")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return false
	}
	return true
}

func (s *service) fail(ctx *ginext.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrDuplicate):
		dto.DuplicateError(ctx, err.Error())
	case errors.As(err, &verr):
		s.log.Error().Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Msg)
	case errors.Is(err, ErrNotFound):
		dto.NotFoundError(ctx, err.Error())
	case errors.Is(err, ErrCannotCheckOut):
		dto.BadResponseError(ctx, dto.FieldIncorrect, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		dto.InternalServerError(ctx)
	}
}

func (s *service) SignIn(ctx *ginext.Context) {
	id, ok := identity(ctx)
	if !ok {
		dto.UnauthorizedError(ctx, "Sign in required")
		return
	}
	user, created := s.session.SignIn(ctx.Request.Context(), id)
	dto.SuccessResponse(ctx, dto.SessionResponse{User: user, Created: created})
}

func (s *service) SignOut(ctx *ginext.Context) {
	s.session.SignOut()
	dto.SuccessResponse(ctx, nil)
}

func (s *service) Me(ctx *ginext.Context) {
	u, ok := s.user(ctx)
	if !ok {
		return
	}
	dto.SuccessResponse(ctx, u)
}

func (s *service) GetEvents(ctx *ginext.Context) {
	u, ok := s.user(ctx)
	if !ok {
		return
	}
	term := searchTerm(ctx)
	state := s.cmds.store.State()
	out := []model.Event{}
	for _, e := range auth.AccessibleEvents(u, state.Events, state.Venues) {
		if matches(term, e.Name, e.Description) {
			out = append(out, e)
		}
	}
	dto.SuccessResponse(ctx, out)
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanCreateEvents); !ok {
		return
	}
	var req dto.EventRequest
	if !s.bind(ctx, &req) {
		return
	}
	e, err := s.cmds.CreateEvent(ctx.Request.Context(), req)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, e)
}

func (s *service) UpdateEvent(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanCreateEvents); !ok {
		return
	}
	var req dto.EventRequest
	if !s.bind(ctx, &req) {
		return
	}
	e, err := s.cmds.UpdateEvent(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, e)
}

func (s *service) DeleteEvent(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanCreateEvents); !ok {
		return
	}
	if err := s.cmds.DeleteEvent(ctx.Request.Context(), ctx.Param("id")); err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, nil)
}

func (s *service) GetEventVenues(ctx *ginext.Context) {
	u, ok := s.user(ctx)
	if !ok {
		return
	}
	state := s.cmds.store.State()
	eventID := ctx.Param("id")
	if _, ok := state.Event(eventID); !ok {
		dto.NotFoundError(ctx, "event "+eventID+" not found")
		return
	}
	dto.SuccessResponse(ctx, nonNil(auth.AccessibleVenues(u, state.VenuesForEvent(eventID))))
}

func (s *service) GetVenues(ctx *ginext.Context) {
	u, ok := s.user(ctx)
	if !ok {
		return
	}
	term := searchTerm(ctx)
	out := []model.Venue{}
	for _, v := range auth.AccessibleVenues(u, s.cmds.store.State().Venues) {
		if matches(term, v.Name, v.Location) {
			out = append(out, v)
		}
	}
	dto.SuccessResponse(ctx, out)
}

func (s *service) CreateVenue(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanCreateEvents); !ok {
		return
	}
	var req dto.VenueRequest
	if !s.bind(ctx, &req) {
		return
	}
	v, err := s.cmds.CreateVenue(ctx.Request.Context(), req)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, v)
}

func (s *service) UpdateVenue(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanCreateEvents); !ok {
		return
	}
	var req dto.VenueRequest
	if !s.bind(ctx, &req) {
		return
	}
	v, err := s.cmds.UpdateVenue(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, v)
}

func (s *service) DeleteVenue(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanCreateEvents); !ok {
		return
	}
	if err := s.cmds.DeleteVenue(ctx.Request.Context(), ctx.Param("id")); err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, nil)
}

// GetParticipants filters by ?q= against name, e-mail and participant_id.
func (s *service) GetParticipants(ctx *ginext.Context) {
	if _, ok := s.user(ctx); !ok {
		return
	}
	term := searchTerm(ctx)
	participants := s.cmds.store.State().Participants
	out := make([]model.Participant, 0, len(participants))
	for _, p := range participants {
		if matches(term, p.Name, p.Email, p.ParticipantID) {
			out = append(out, p)
		}
	}
	dto.SuccessResponse(ctx, out)
}

// searchTerm is the lower-cased ?q= list filter.
func searchTerm(ctx *ginext.Context) string {
	return strings.ToLower(strings.TrimSpace(ctx.Query("q")))
}

func matches(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func (s *service) CreateParticipant(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanManageParticipants); !ok {
		return
	}
	var req dto.ParticipantRequest
	if !s.bind(ctx, &req) {
		return
	}
	p, err := s.cmds.CreateParticipant(ctx.Request.Context(), req)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, p)
}

func (s *service) UpdateParticipant(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanManageParticipants); !ok {
		return
	}
	var req dto.ParticipantRequest
	if !s.bind(ctx, &req) {
		return
	}
	p, err := s.cmds.UpdateParticipant(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, p)
}

func (s *service) DeleteParticipant(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanManageParticipants); !ok {
		return
	}
	if err := s.cmds.DeleteParticipant(ctx.Request.Context(), ctx.Param("id")); err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, nil)
}

func (s *service) GetParticipantQR(ctx *ginext.Context) {
	if _, ok := s.user(ctx); !ok {
		return
	}
	id := ctx.Param("id")
	p, ok := s.cmds.store.State().Participant(id)
	if !ok {
		dto.NotFoundError(ctx, "participant "+id+" not found")
		return
	}
	size := 0
	if raw := ctx.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 2048 {
			dto.FieldBadFormatError(ctx, "size")
			return
		}
		size = n
	}
	png, err := qr.PNG(p.ParticipantID, size)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}

// GetAttendance lists records filtered by ?event= and ?venue=. Non-admins
// only see venues they were granted.
func (s *service) GetAttendance(ctx *ginext.Context) {
	u, ok := s.user(ctx)
	if !ok {
		return
	}
	venueID := ctx.Query("venue")
	if venueID != "" && !s.venueAccess(ctx, u, venueID) {
		return
	}
	records := s.cmds.store.State().AttendanceFor(ctx.Query("event"), venueID)
	out := make([]model.AttendanceRecord, 0, len(records))
	for _, r := range records {
		if auth.HasVenueAccess(u, r.VenueID) {
			out = append(out, r)
		}
	}
	dto.SuccessResponse(ctx, out)
}

func (s *service) MarkAttendance(ctx *ginext.Context) {
	u, ok := s.authorize(ctx, model.CanTakeAttendance)
	if !ok {
		return
	}
	var req dto.AttendanceRequest
	if !s.bind(ctx, &req) {
		return
	}
	if !s.venueAccess(ctx, u, req.VenueID) {
		return
	}
	rec, err := s.cmds.MarkAttendance(ctx.Request.Context(), req)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, rec)
}

func (s *service) CheckOut(ctx *ginext.Context) {
	u, ok := s.authorize(ctx, model.CanTakeAttendance)
	if !ok {
		return
	}
	var req dto.CheckOutRequest
	if !s.bind(ctx, &req) {
		return
	}
	if !s.venueAccess(ctx, u, req.VenueID) {
		return
	}
	rec, err := s.cmds.CheckOut(ctx.Request.Context(), req)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, rec)
}

type scanResponse struct {
	Record      model.AttendanceRecord `json:"record"`
	Participant model.Participant      `json:"participant"`
}

func (s *service) Scan(ctx *ginext.Context) {
	u, ok := s.authorize(ctx, model.CanTakeAttendance)
	if !ok {
		return
	}
	var req dto.ScanRequest
	if !s.bind(ctx, &req) {
		return
	}
	if !s.venueAccess(ctx, u, req.VenueID) {
		return
	}
	rec, p, err := s.cmds.Scan(ctx.Request.Context(), req)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, scanResponse{Record: rec, Participant: p})
}

func (s *service) DeleteAttendance(ctx *ginext.Context) {
	u, ok := s.authorize(ctx, model.CanTakeAttendance)
	if !ok {
		return
	}
	id := ctx.Param("id")
	rec, found := s.cmds.store.State().AttendanceRecord(id)
	if !found {
		dto.NotFoundError(ctx, "attendance "+id+" not found")
		return
	}
	if !s.venueAccess(ctx, u, rec.VenueID) {
		return
	}
	if err := s.cmds.DeleteAttendance(ctx.Request.Context(), id); err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, nil)
}

func (s *service) GetRoles(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanManageUsers); !ok {
		return
	}
	dto.SuccessResponse(ctx, nonNil(s.cmds.store.State().UserRoles))
}

func (s *service) CreateRole(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanManageUsers); !ok {
		return
	}
	var req dto.RoleRequest
	if !s.bind(ctx, &req) {
		return
	}
	r, err := s.cmds.CreateRole(ctx.Request.Context(), req)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, r)
}

func (s *service) UpdateRole(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanManageUsers); !ok {
		return
	}
	var req dto.RoleRequest
	if !s.bind(ctx, &req) {
		return
	}
	r, err := s.cmds.UpdateRole(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, r)
}

func (s *service) DeleteRole(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanManageUsers); !ok {
		return
	}
	if err := s.cmds.DeleteRole(ctx.Request.Context(), ctx.Param("id")); err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, nil)
}

func (s *service) Summary(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanViewReports); !ok {
		return
	}
	dto.SuccessResponse(ctx, report.Summarize(s.cmds.store.State(), ctx.Query("event")))
}

func (s *service) AttendanceCSV(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanViewReports); !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, s.cmds.store.State(), ctx.Query("event"), s.loc); err != nil {
		if errors.Is(err, report.ErrNoData) {
			dto.NoDataError(ctx, "No data to export")
			return
		}
		s.fail(ctx, err)
		return
	}
	name := fmt.Sprintf("attendance-report-%s.csv", time.Now().In(s.loc).Format("2006-01-02"))
	ctx.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *service) Dashboard(ctx *ginext.Context) {
	if _, ok := s.user(ctx); !ok {
		return
	}
	dto.SuccessResponse(ctx, report.Dashboard(s.cmds.store.State()))
}

func (s *service) ExportBackup(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanManageUsers); !ok {
		return
	}
	now := time.Now()
	doc := backup.Export(s.cmds.store.State(), now)
	name := fmt.Sprintf("eventtracker-backup-%s.json", now.UTC().Format("2006-01-02"))
	var buf bytes.Buffer
	if err := backup.Write(&buf, doc); err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	ctx.Data(http.StatusOK, "application/json", buf.Bytes())
}

func (s *service) ImportBackup(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanManageUsers); !ok {
		return
	}
	doc, err := backup.Decode(ctx.Request.Body)
	if err != nil {
		s.log.Error().Err(err).Msg("rejected backup document")
		dto.BadResponseError(ctx, dto.InvalidBackup, "Invalid data format. Please select a valid backup file.")
		return
	}
	if err := s.cmds.Import(ctx.Request.Context(), doc); err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, nil)
}

func (s *service) ClearData(ctx *ginext.Context) {
	if _, ok := s.authorize(ctx, model.CanManageUsers); !ok {
		return
	}
	if err := s.cmds.ClearAll(ctx.Request.Context()); err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, nil)
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
