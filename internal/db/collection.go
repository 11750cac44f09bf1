package db

import (
	"context"
	"errors"

	"github.com/campusnet/campusnet/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// LocationCollection defines the interface for bus location records. One
// record per bus, last write wins.
type LocationCollection interface {
	Upsert(ctx context.Context, rec models.LocationRecord) error
	StopTracking(ctx context.Context, busID string) error
	FindByBus(ctx context.Context, busID string) (*models.LocationRecord, error)
}

// CollegeCollection defines the interface for tenant records.
type CollegeCollection interface {
	Insert(ctx context.Context, college models.College) error
	FindByCode(ctx context.Context, code string) (*models.College, error)
}

// MemberCollection defines the interface for one role collection
// (administrators, teachers, students or drivers).
type MemberCollection interface {
	Insert(ctx context.Context, member models.Member) error
	FindByUID(ctx context.Context, uid string) (*models.Member, error)
	// FindByIdentifier matches the identifier against the member's uid or
	// login handle, and for administrator collections also the display name.
	FindByIdentifier(ctx context.Context, collegeID, identifier string) (*models.Member, error)
}

// AccountCollection defines the interface for login credentials.
type AccountCollection interface {
	Insert(ctx context.Context, account models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Delete(ctx context.Context, email string) error
}

// BusCollection defines the interface for bus records.
type BusCollection interface {
	Insert(ctx context.Context, bus models.Bus) (string, error)
	FindByID(ctx context.Context, id string) (*models.Bus, error)
	FindByCollege(ctx context.Context, collegeID string) ([]models.Bus, error)
	FindByDriver(ctx context.Context, driverUID string) (*models.Bus, error)
	Update(ctx context.Context, id string, bus models.Bus) error
	Delete(ctx context.Context, id string) error
	AssignDriver(ctx context.Context, id, driverUID string) error
}

// SettingCollection defines the interface for per-college module settings.
type SettingCollection interface {
	Get(ctx context.Context, collegeID string) (*models.ModuleSetting, error)
	Set(ctx context.Context, collegeID string, enabled bool) error
}
