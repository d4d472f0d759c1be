package service

import (
	"context"

	"github.com/rs/zerolog"

	"eventtracker/internal/auth"
	"eventtracker/internal/model"
	"eventtracker/internal/repo"
	"eventtracker/internal/store"
)

// IdentityHook runs after a sign-in switches the current user.
type IdentityHook func(ctx context.Context, user model.AppUser)

type Session struct {
	cmds  *Commands
	hooks []IdentityHook
	log   *zerolog.Logger
}

func NewSession(cmds *Commands, log *zerolog.Logger, hooks ...IdentityHook) *Session {
	return &Session{cmds: cmds, hooks: hooks, log: log}
}

// OnIdentityResolved registers another hook.
func (s *Session) OnIdentityResolved(h IdentityHook) {
	s.hooks = append(s.hooks, h)
}

// SignIn resolves the identity's role, persisting a new one when no role
// matches its email, and makes the resulting user current. created reports
// whether a role was added.
func (s *Session) SignIn(ctx context.Context, id auth.Identity) (model.AppUser, bool) {
	c := s.cmds
	c.mu.Lock()
	state := c.store.State()
	role, created := auth.Resolve(id, state.UserRoles)
	if created {
		c.addRoleLocked(role)
	}
	user := auth.NewAppUser(id, role)
	switched := state.CurrentUser == nil || state.CurrentUser.ID != user.ID
	c.store.Dispatch(store.SetCurrentUser{User: &user})
	c.mu.Unlock()

	s.log.Info().
		Str("email", user.Email).
		Str("role", string(user.Role.Role)).
		Bool("created", created).
		Msg("user signed in")

	if switched {
		for _, h := range s.hooks {
			h(ctx, user)
		}
	}
	return user, created
}

func (s *Session) SignOut() {
	s.cmds.mu.Lock()
	defer s.cmds.mu.Unlock()
	s.cmds.store.Dispatch(store.SetCurrentUser{User: nil})
}

// UserFor resolves the identity against the stored roles without creating one.
// Unknown identities get the default role they would receive on sign-in.
func (s *Session) UserFor(id auth.Identity) model.AppUser {
	role, _ := auth.Resolve(id, s.cmds.store.State().UserRoles)
	return auth.NewAppUser(id, role)
}

// Reconcile returns the hook that refreshes events, venues, participants and
// attendance from r once a user signs in. Roles are left alone so the role
// just created by SignIn survives.
//
// Commands stay blocked while m drains, so the snapshot already holds every
// write made in memory and the reload can't drop one. Only mirrors that can
// be drained get this hook; a broker-backed mirror loads r once at startup.
func Reconcile(r repo.Repository, c *Commands, m Flusher, log *zerolog.Logger) IdentityHook {
	return func(ctx context.Context, user model.AppUser) {
		c.mu.Lock()
		defer c.mu.Unlock()

		m.Flush()
		snap, err := repo.LoadSnapshot(ctx, r)
		if err != nil {
			log.Error().Err(err).Str("email", user.Email).Msg("failed to reconcile with the database")
			return
		}
		c.store.Dispatch(store.BulkLoad{
			Events:            &snap.Events,
			Venues:            &snap.Venues,
			Participants:      &snap.Participants,
			AttendanceRecords: &snap.AttendanceRecords,
		})
		log.Debug().
			Int("events", len(snap.Events)).
			Int("participants", len(snap.Participants)).
			Msg("state reconciled with the database")
	}
}
