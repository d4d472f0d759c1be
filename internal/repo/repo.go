package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"eventtracker/internal/model"
)

var ErrNotFound = errors.New("record not found")

// Repository is the backing store mirrored by the in-memory state. Every
// kind offers create / getAll / update / delete keyed by id.
type Repository interface {
	CreateEvent(ctx context.Context, e model.Event) error
	GetAllEvents(ctx context.Context) ([]model.Event, error)
	UpdateEvent(ctx context.Context, e model.Event) error
	DeleteEvent(ctx context.Context, id string) error

	CreateVenue(ctx context.Context, v model.Venue) error
	GetAllVenues(ctx context.Context) ([]model.Venue, error)
	UpdateVenue(ctx context.Context, v model.Venue) error
	DeleteVenue(ctx context.Context, id string) error

	CreateParticipant(ctx context.Context, p model.Participant) error
	GetAllParticipants(ctx context.Context) ([]model.Participant, error)
	UpdateParticipant(ctx context.Context, p model.Participant) error
	DeleteParticipant(ctx context.Context, id string) error

	CreateAttendance(ctx context.Context, r model.AttendanceRecord) error
	GetAllAttendance(ctx context.Context) ([]model.AttendanceRecord, error)
	UpdateAttendance(ctx context.Context, r model.AttendanceRecord) error
	DeleteAttendance(ctx context.Context, id string) error

	CreateUserRole(ctx context.Context, r model.UserRole) error
	GetAllUserRoles(ctx context.Context) ([]model.UserRole, error)
	UpdateUserRole(ctx context.Context, r model.UserRole) error
	DeleteUserRole(ctx context.Context, id string) error

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		if err := r.execFile(file); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	for _, file := range files {
		if err := r.execFile(file); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

func (r *repository) execFile(file string) error {
	sqlBytes, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(context.Background(), string(sqlBytes))
	return err
}

// expectOne maps a zero-row update or delete to ErrNotFound.
func expectOne(res interface{ RowsAffected() (int64, error) }, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

// Snapshot is every collection as currently stored.
type Snapshot struct {
	Events            []model.Event
	Venues            []model.Venue
	Participants      []model.Participant
	AttendanceRecords []model.AttendanceRecord
	UserRoles         []model.UserRole
}

// LoadSnapshot reads every collection through repo.
func LoadSnapshot(ctx context.Context, repo Repository) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.Events, err = repo.GetAllEvents(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Venues, err = repo.GetAllVenues(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Participants, err = repo.GetAllParticipants(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.AttendanceRecords, err = repo.GetAllAttendance(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.UserRoles, err = repo.GetAllUserRoles(ctx); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
