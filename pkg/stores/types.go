package stores

import (
	"context"
	"errors"
	"time"

	"github.com/openfroyo/rendercaps/pkg/caps"
)

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("profile not found")

// Profile is a stored capability profile.
type Profile struct {
	Name      string    `json:"name"`
	Source    string    `json:"source"`   // where the profile was imported from
	Script    string    `json:"script"`   // encoded single-block script
	Checksum  string    `json:"checksum"` // SHA256 of Script
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Import records one import of a source into the store.
type Import struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Loaded      int       `json:"loaded"`
	Failed      int       `json:"failed"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store defines the interface for the profile persistence layer.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	SaveSet(ctx context.Context, name, source string, set *caps.Set) (*Profile, error)
	LoadSet(ctx context.Context, name string) (*caps.Set, error)
	GetProfile(ctx context.Context, name string) (*Profile, error)
	ListProfiles(ctx context.Context, sourcePrefix string, limit, offset int) ([]*Profile, error)
	DeleteProfile(ctx context.Context, name string) error

	RecordImport(ctx context.Context, imp *Import) error
	ListImports(ctx context.Context, limit, offset int) ([]*Import, error)

	HealthCheck(ctx context.Context) error
}
