package auth

import (
	"slices"
	"strings"

	"eventtracker/internal/model"
)

const (
	superAdminEmail = "pranneethpersonal@gmail.com"
	appOwnerEmail   = "admin@pranneethdk.com"
)

// Identity is what the identity provider hands over once sign-in completes.
type Identity struct {
	ID             string
	PrimaryEmail   string
	FallbackEmails []string
	DisplayName    string
}

// NormalizedEmail picks the primary address, else the first fallback, and
// lower-cases it. An identity without any address yields "".
func (i Identity) NormalizedEmail() string {
	email := i.PrimaryEmail
	if email == "" && len(i.FallbackEmails) > 0 {
		email = i.FallbackEmails[0]
	}
	return strings.ToLower(email)
}

func IsPrivileged(email string) bool {
	email = strings.ToLower(email)
	return email == superAdminEmail || email == appOwnerEmail
}

// Resolve finds the role bound to the identity's email or synthesises a new
// one. created reports whether the caller must persist the returned role.
//
// An identity without email resolves against the "" key, so every such
// identity shares one role record.
func Resolve(id Identity, roles []model.UserRole) (model.UserRole, bool) {
	email := id.NormalizedEmail()
	for _, r := range roles {
		if strings.ToLower(r.Email) == email {
			return r, false
		}
	}

	admin := IsPrivileged(email)
	role := model.RoleViewer
	if admin {
		role = model.RoleAdmin
	}
	roleID := id.ID
	if roleID == "" {
		roleID = email
	}
	return model.UserRole{
		ID:               roleID,
		Email:            email,
		Role:             role,
		AccessibleVenues: []string{},
		Permissions: model.Permissions{
			CanCreateEvents:       admin,
			CanManageParticipants: admin,
			CanTakeAttendance:     admin,
			CanViewReports:        true,
			CanManageUsers:        admin,
		},
	}, true
}

func NewAppUser(id Identity, role model.UserRole) model.AppUser {
	email := id.NormalizedEmail()
	userID := id.ID
	if userID == "" {
		userID = email
	}
	name := id.DisplayName
	if name == "" {
		name = email
	}
	return model.AppUser{ID: userID, Email: email, Name: name, Role: role}
}

func isAdmin(u *model.AppUser) bool {
	return u != nil && u.Role.Role == model.RoleAdmin
}

// HasPermission is always true for admins regardless of stored flags.
func HasPermission(u *model.AppUser, p model.Permission) bool {
	if u == nil {
		return false
	}
	if isAdmin(u) {
		return true
	}
	return u.Role.Permissions.Get(p)
}

func HasVenueAccess(u *model.AppUser, venueID string) bool {
	if u == nil {
		return false
	}
	if isAdmin(u) {
		return true
	}
	return slices.Contains(u.Role.AccessibleVenues, venueID)
}

func AccessibleVenues(u *model.AppUser, venues []model.Venue) []model.Venue {
	if u == nil {
		return nil
	}
	if isAdmin(u) {
		return append([]model.Venue(nil), venues...)
	}
	var out []model.Venue
	for _, v := range venues {
		if slices.Contains(u.Role.AccessibleVenues, v.ID) {
			out = append(out, v)
		}
	}
	return out
}

// AccessibleEvents keeps the events owning at least one accessible venue.
func AccessibleEvents(u *model.AppUser, events []model.Event, venues []model.Venue) []model.Event {
	if u == nil {
		return nil
	}
	if isAdmin(u) {
		return append([]model.Event(nil), events...)
	}
	visible := make(map[string]bool)
	for _, v := range AccessibleVenues(u, venues) {
		if v.EventID != "" {
			visible[v.EventID] = true
		}
	}
	var out []model.Event
	for _, e := range events {
		if visible[e.ID] {
			out = append(out, e)
		}
	}
	return out
}
