package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"eventtracker/internal/backup"
	"eventtracker/internal/dto"
	"eventtracker/internal/model"
	"eventtracker/internal/qr"
	"eventtracker/internal/store"
	"eventtracker/pkg/validator"
)

// Notifier is told about newly registered participants.
type Notifier interface {
	ParticipantRegistered(p model.Participant) error
}

// Commands is the only outside caller of Store.Dispatch. Every method
// validates first, dispatches, then hands the change to the mirror.
//
// mu makes check-then-dispatch atomic, so uniqueness checks can't race.
type Commands struct {
	mu       sync.Mutex
	store    *store.Store
	mirror   Mirror
	notifier Notifier
	log      *zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewCommands(st *store.Store, mirror Mirror, notifier Notifier, log *zerolog.Logger) *Commands {
	return &Commands{
		store:    st,
		mirror:   mirror,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

func (c *Commands) validate(ctx context.Context, req any) error {
	if err := validator.Validate(ctx, req); err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	return nil
}

func (c *Commands) publish(op, kind, id string, v any) {
	if c.mirror == nil {
		return
	}
	msg, err := mirrorMessage(op, kind, id, v)
	if err != nil {
		c.log.Error().Err(err).Str("kind", kind).Str("id", id).Msg("failed to encode mirror payload")
		return
	}
	c.mirror.Publish(msg)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func checkEventDates(req dto.EventRequest) error {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return invalid("Invalid format: startDate")
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return invalid("Invalid format: endDate")
	}
	if end.Before(start) {
		return invalid("endDate is before startDate")
	}
	return nil
}

func (c *Commands) CreateEvent(ctx context.Context, req dto.EventRequest) (model.Event, error) {
	if err := c.validate(ctx, req); err != nil {
		return model.Event{}, err
	}
	if err := checkEventDates(req); err != nil {
		return model.Event{}, err
	}

	e := model.Event{
		ID:          c.newID(),
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedAt:   store.FormatTime(c.now()),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Dispatch(store.AddEvent{Event: e})
	c.publish(dto.OpCreate, dto.KindEvent, e.ID, e)

	c.log.Info().Str("event_id", e.ID).Msg("event created")
	return e, nil
}

func (c *Commands) UpdateEvent(ctx context.Context, id string, req dto.EventRequest) (model.Event, error) {
	if err := c.validate(ctx, req); err != nil {
		return model.Event{}, err
	}
	if err := checkEventDates(req); err != nil {
		return model.Event{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.store.State().Event(id)
	if !ok {
		return model.Event{}, notFound("event", id)
	}
	e.Name = req.Name
	e.Description = req.Description
	e.StartDate = req.StartDate
	e.EndDate = req.EndDate

	c.store.Dispatch(store.UpdateEvent{Event: e})
	c.publish(dto.OpUpdate, dto.KindEvent, e.ID, e)
	return e, nil
}

// DeleteEvent removes the event and its attendance. Venues stay, still
// pointing at the deleted id.
func (c *Commands) DeleteEvent(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.store.State().Event(id); !ok {
		return notFound("event", id)
	}
	c.store.Dispatch(store.DeleteEvent{ID: id})
	c.publish(dto.OpDelete, dto.KindEvent, id, nil)

	c.log.Info().Str("event_id", id).Msg("event deleted")
	return nil
}

func (c *Commands) checkVenueEvent(s store.State, eventID string) error {
	if eventID == "" {
		return nil
	}
	if _, ok := s.Event(eventID); !ok {
		return invalid("event %s does not exist: eventId", eventID)
	}
	return nil
}

func (c *Commands) CreateVenue(ctx context.Context, req dto.VenueRequest) (model.Venue, error) {
	if err := c.validate(ctx, req); err != nil {
		return model.Venue{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkVenueEvent(c.store.State(), req.EventID); err != nil {
		return model.Venue{}, err
	}
	v := model.Venue{
		ID:       c.newID(),
		Name:     req.Name,
		Location: req.Location,
		Capacity: req.Capacity,
		EventID:  req.EventID,
	}
	c.store.Dispatch(store.AddVenue{Venue: v})
	c.publish(dto.OpCreate, dto.KindVenue, v.ID, v)

	c.log.Info().Str("venue_id", v.ID).Str("event_id", v.EventID).Msg("venue created")
	return v, nil
}

func (c *Commands) UpdateVenue(ctx context.Context, id string, req dto.VenueRequest) (model.Venue, error) {
	if err := c.validate(ctx, req); err != nil {
		return model.Venue{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.store.State()
	v, ok := s.Venue(id)
	if !ok {
		return model.Venue{}, notFound("venue", id)
	}
	if req.EventID != v.EventID {
		if err := c.checkVenueEvent(s, req.EventID); err != nil {
			return model.Venue{}, err
		}
	}
	v.Name = req.Name
	v.Location = req.Location
	v.Capacity = req.Capacity
	v.EventID = req.EventID

	c.store.Dispatch(store.UpdateVenue{Venue: v})
	c.publish(dto.OpUpdate, dto.KindVenue, v.ID, v)
	return v, nil
}

func (c *Commands) DeleteVenue(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.store.State().Venue(id); !ok {
		return notFound("venue", id)
	}
	c.store.Dispatch(store.DeleteVenue{ID: id})
	c.publish(dto.OpDelete, dto.KindVenue, id, nil)

	c.log.Info().Str("venue_id", id).Msg("venue deleted")
	return nil
}

func (c *Commands) CreateParticipant(ctx context.Context, req dto.ParticipantRequest) (model.Participant, error) {
	if err := c.validate(ctx, req); err != nil {
		return model.Participant{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.store.State().ParticipantByExternalID(req.ParticipantID); taken {
		return model.Participant{}, duplicate("A participant with this ID already exists: participant_id")
	}
	code, err := qr.DataURL(req.ParticipantID)
	if err != nil {
		return model.Participant{}, err
	}

	now := store.FormatTime(c.now())
	p := model.Participant{
		ID:                c.newID(),
		ParticipantID:     req.ParticipantID,
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Department:        req.Department,
		YearOfStudying:    req.YearOfStudying,
		CollegeUniversity: req.CollegeUniversity,
		CityDistrict:      req.CityDistrict,
		QRCode:            code,
		RegistrationDate:  now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	c.store.Dispatch(store.AddParticipant{Participant: p})
	c.publish(dto.OpCreate, dto.KindParticipant, p.ID, p)
	c.log.Info().Str("participant_id", p.ParticipantID).Msg("participant registered")

	if c.notifier != nil {
		go func() {
			if err := c.notifier.ParticipantRegistered(p); err != nil {
				c.log.Warn().Err(err).Str("participant_id", p.ParticipantID).Msg("Failed to send registration e-mail")
			}
		}()
	}
	return p, nil
}

// UpdateParticipant regenerates the QR code only when participant_id changes.
func (c *Commands) UpdateParticipant(ctx context.Context, id string, req dto.ParticipantRequest) (model.Participant, error) {
	if err := c.validate(ctx, req); err != nil {
		return model.Participant{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.store.State()
	p, ok := s.Participant(id)
	if !ok {
		return model.Participant{}, notFound("participant", id)
	}
	if other, taken := s.ParticipantByExternalID(req.ParticipantID); taken && other.ID != id {
		return model.Participant{}, duplicate("A participant with this ID already exists: participant_id")
	}
	if req.ParticipantID != p.ParticipantID || p.QRCode == "" {
		code, err := qr.DataURL(req.ParticipantID)
		if err != nil {
			return model.Participant{}, err
		}
		p.QRCode = code
	}

	p.ParticipantID = req.ParticipantID
	p.Name = req.Name
	p.Email = req.Email
	p.Phone = req.Phone
	p.Department = req.Department
	p.YearOfStudying = req.YearOfStudying
	p.CollegeUniversity = req.CollegeUniversity
	p.CityDistrict = req.CityDistrict
	p.UpdatedAt = store.FormatTime(c.now())

	c.store.Dispatch(store.UpdateParticipant{Participant: p})
	c.publish(dto.OpUpdate, dto.KindParticipant, p.ID, p)
	return p, nil
}

func (c *Commands) DeleteParticipant(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.store.State().Participant(id); !ok {
		return notFound("participant", id)
	}
	c.store.Dispatch(store.DeleteParticipant{ID: id})
	c.publish(dto.OpDelete, dto.KindParticipant, id, nil)

	c.log.Info().Str("participant", id).Msg("participant deleted")
	return nil
}

func checkAttendanceRefs(s store.State, participantID, eventID, venueID string) error {
	if _, ok := s.Participant(participantID); !ok {
		return invalid("participant %s does not exist: participantId", participantID)
	}
	if _, ok := s.Event(eventID); !ok {
		return invalid("event %s does not exist: eventId", eventID)
	}
	if _, ok := s.Venue(venueID); !ok {
		return invalid("venue %s does not exist: venueId", venueID)
	}
	return nil
}

// mark must be called with mu held.
func (c *Commands) mark(s store.State, participantID, eventID, venueID string, status model.Status) model.AttendanceRecord {
	cmd := store.MarkAttendance(s, participantID, eventID, venueID, status, c.now(), c.newID)
	c.store.Dispatch(cmd)

	var (
		rec model.AttendanceRecord
		op  string
	)
	switch cmd := cmd.(type) {
	case store.AddAttendance:
		rec, op = cmd.Record, dto.OpCreate
	case store.UpdateAttendance:
		rec, op = cmd.Record, dto.OpUpdate
	}
	c.publish(op, dto.KindAttendance, rec.ID, rec)

	c.log.Info().
		Str("participant", participantID).
		Str("event_id", eventID).
		Str("venue_id", venueID).
		Str("status", string(status)).
		Msg("attendance marked")
	return rec
}

func (c *Commands) MarkAttendance(ctx context.Context, req dto.AttendanceRequest) (model.AttendanceRecord, error) {
	if err := c.validate(ctx, req); err != nil {
		return model.AttendanceRecord{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.store.State()
	if err := checkAttendanceRefs(s, req.ParticipantID, req.EventID, req.VenueID); err != nil {
		return model.AttendanceRecord{}, err
	}
	return c.mark(s, req.ParticipantID, req.EventID, req.VenueID, req.Status), nil
}

// Scan marks the participant behind a decoded QR payload present.
func (c *Commands) Scan(ctx context.Context, req dto.ScanRequest) (model.AttendanceRecord, model.Participant, error) {
	if err := c.validate(ctx, req); err != nil {
		return model.AttendanceRecord{}, model.Participant{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.store.State()
	p, ok := s.ParticipantByExternalID(strings.TrimSpace(req.Code))
	if !ok {
		return model.AttendanceRecord{}, model.Participant{}, notFound("participant", req.Code)
	}
	if err := checkAttendanceRefs(s, p.ID, req.EventID, req.VenueID); err != nil {
		return model.AttendanceRecord{}, model.Participant{}, err
	}
	return c.mark(s, p.ID, req.EventID, req.VenueID, model.StatusPresent), p, nil
}

func (c *Commands) CheckOut(ctx context.Context, req dto.CheckOutRequest) (model.AttendanceRecord, error) {
	if err := c.validate(ctx, req); err != nil {
		return model.AttendanceRecord{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cmd, ok := store.CheckOut(c.store.State(), req.ParticipantID, req.EventID, req.VenueID, c.now())
	if !ok {
		return model.AttendanceRecord{}, ErrCannotCheckOut
	}
	c.store.Dispatch(cmd)
	rec := cmd.(store.UpdateAttendance).Record
	c.publish(dto.OpUpdate, dto.KindAttendance, rec.ID, rec)
	return rec, nil
}

func (c *Commands) DeleteAttendance(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.ContainsFunc(c.store.State().AttendanceRecords, func(r model.AttendanceRecord) bool { return r.ID == id }) {
		return notFound("attendance record", id)
	}
	c.store.Dispatch(store.DeleteAttendance{ID: id})
	c.publish(dto.OpDelete, dto.KindAttendance, id, nil)
	return nil
}

func emailTaken(roles []model.UserRole, email, exceptID string) bool {
	return slices.ContainsFunc(roles, func(r model.UserRole) bool {
		return r.ID != exceptID && strings.EqualFold(r.Email, email)
	})
}

func roleFromRequest(id string, req dto.RoleRequest) model.UserRole {
	venues := req.AccessibleVenues
	if venues == nil {
		venues = []string{}
	}
	return model.UserRole{
		ID:               id,
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		Role:             req.Role,
		AccessibleVenues: venues,
		Permissions:      req.Permissions,
	}
}

func (c *Commands) CreateRole(ctx context.Context, req dto.RoleRequest) (model.UserRole, error) {
	if err := c.validate(ctx, req); err != nil {
		return model.UserRole{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	role := roleFromRequest(c.newID(), req)
	if emailTaken(c.store.State().UserRoles, role.Email, "") {
		return model.UserRole{}, duplicate("A user with this e-mail already exists: email")
	}
	c.addRoleLocked(role)
	return role, nil
}

func (c *Commands) addRoleLocked(role model.UserRole) {
	c.store.Dispatch(store.AddUserRole{Role: role})
	c.publish(dto.OpCreate, dto.KindRole, role.ID, role)
	c.log.Info().Str("email", role.Email).Str("role", string(role.Role)).Msg("user role created")
}

func (c *Commands) UpdateRole(ctx context.Context, id string, req dto.RoleRequest) (model.UserRole, error) {
	if err := c.validate(ctx, req); err != nil {
		return model.UserRole{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.store.State()
	if _, ok := s.UserRole(id); !ok {
		return model.UserRole{}, notFound("user role", id)
	}
	role := roleFromRequest(id, req)
	if emailTaken(s.UserRoles, role.Email, id) {
		return model.UserRole{}, duplicate("A user with this e-mail already exists: email")
	}
	c.store.Dispatch(store.UpdateUserRole{Role: role})
	c.publish(dto.OpUpdate, dto.KindRole, role.ID, role)
	return role, nil
}

func (c *Commands) DeleteRole(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.store.State().UserRole(id); !ok {
		return notFound("user role", id)
	}
	c.store.Dispatch(store.DeleteUserRole{ID: id})
	c.publish(dto.OpDelete, dto.KindRole, id, nil)
	return nil
}

// Import replaces the stored collections with the document's. The mirror
// gets deletes for everything replaced followed by creates for the new rows.
func (c *Commands) Import(_ context.Context, doc backup.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(doc.Load())
	c.log.Info().
		Int("events", len(doc.Events)).
		Int("participants", len(doc.Participants)).
		Int("attendance", len(doc.AttendanceRecords)).
		Msg("backup imported")
	return nil
}

// ClearAll empties events, participants and attendance.
func (c *Commands) ClearAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(backup.Clear())
	c.log.Warn().Msg("all data cleared")
	return nil
}

// replaceLocked must be called with mu held. Deletes go out children
// first and creates parents first, matching the table references.
func (c *Commands) replaceLocked(cmd store.BulkLoad) {
	before := c.store.State()
	c.store.Dispatch(cmd)

	if cmd.AttendanceRecords != nil {
		publishDeletes(c, dto.KindAttendance, before.AttendanceRecords, attendanceKey)
	}
	if cmd.Participants != nil {
		publishDeletes(c, dto.KindParticipant, before.Participants, participantKey)
	}
	if cmd.Venues != nil {
		publishDeletes(c, dto.KindVenue, before.Venues, venueKey)
	}
	if cmd.Events != nil {
		publishDeletes(c, dto.KindEvent, before.Events, eventKey)
	}
	if cmd.UserRoles != nil {
		publishDeletes(c, dto.KindRole, before.UserRoles, roleKey)
	}

	if cmd.Events != nil {
		publishCreates(c, dto.KindEvent, *cmd.Events, eventKey)
	}
	if cmd.Venues != nil {
		publishCreates(c, dto.KindVenue, *cmd.Venues, venueKey)
	}
	if cmd.Participants != nil {
		publishCreates(c, dto.KindParticipant, *cmd.Participants, participantKey)
	}
	if cmd.AttendanceRecords != nil {
		publishCreates(c, dto.KindAttendance, *cmd.AttendanceRecords, attendanceKey)
	}
	if cmd.UserRoles != nil {
		publishCreates(c, dto.KindRole, *cmd.UserRoles, roleKey)
	}
}

func publishDeletes[T any](c *Commands, kind string, rows []T, id func(T) string) {
	for _, row := range rows {
		c.publish(dto.OpDelete, kind, id(row), nil)
	}
}

func publishCreates[T any](c *Commands, kind string, rows []T, id func(T) string) {
	for _, row := range rows {
		c.publish(dto.OpCreate, kind, id(row), row)
	}
}

func eventKey(e model.Event) string { return e.ID }
func venueKey(v model.Venue) string { return v.ID }
func participantKey(p model.Participant) string { return p.ID }
func attendanceKey(a model.AttendanceRecord) string { return a.ID }
func roleKey(r model.UserRole) string { return r.ID }
