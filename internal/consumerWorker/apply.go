package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"eventtracker/internal/dto"
	"eventtracker/internal/model"
	"eventtracker/internal/repo"
)

var ErrUnknownOperation = errors.New("unknown mirror operation")

// Apply performs msg against the repository.
func Apply(ctx context.Context, r repo.Repository, msg dto.MirrorMessage) error {
	switch msg.Kind {
	case dto.KindEvent:
		return applyKind(ctx, msg,
			func(e model.Event) error { return r.CreateEvent(ctx, e) },
			func(e model.Event) error { return r.UpdateEvent(ctx, e) },
			r.DeleteEvent)
	case dto.KindVenue:
		return applyKind(ctx, msg,
			func(v model.Venue) error { return r.CreateVenue(ctx, v) },
			func(v model.Venue) error { return r.UpdateVenue(ctx, v) },
			r.DeleteVenue)
	case dto.KindParticipant:
		return applyKind(ctx, msg,
			func(p model.Participant) error { return r.CreateParticipant(ctx, p) },
			func(p model.Participant) error { return r.UpdateParticipant(ctx, p) },
			r.DeleteParticipant)
	case dto.KindAttendance:
		return applyKind(ctx, msg,
			func(a model.AttendanceRecord) error { return r.CreateAttendance(ctx, a) },
			func(a model.AttendanceRecord) error { return r.UpdateAttendance(ctx, a) },
			r.DeleteAttendance)
	case dto.KindRole:
		return applyKind(ctx, msg,
			func(u model.UserRole) error { return r.CreateUserRole(ctx, u) },
			func(u model.UserRole) error { return r.UpdateUserRole(ctx, u) },
			r.DeleteUserRole)
	}
	return fmt.Errorf("%w: kind %q", ErrUnknownOperation, msg.Kind)
}

func applyKind[T any](ctx context.Context, msg dto.MirrorMessage, create, update func(T) error, del func(context.Context, string) error) error {
	if msg.Op == dto.OpDelete {
		return del(ctx, msg.ID)
	}

	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.Kind, err)
	}
	switch msg.Op {
	case dto.OpCreate:
		return create(v)
	case dto.OpUpdate:
		return update(v)
	}
	return fmt.Errorf("%w: op %q", ErrUnknownOperation, msg.Op)
}
