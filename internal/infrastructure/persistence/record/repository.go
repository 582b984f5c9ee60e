package record

import (
	"context"
	"time"

	"github.com/alem-hub/offline-quest/internal/domain/progression"
	"github.com/alem-hub/offline-quest/internal/domain/shared"
	"github.com/alem-hub/offline-quest/pkg/timeutil"
)

// DefaultProfileKey is the key of the single profile record.
const DefaultProfileKey = "offline-quest:profile"

// ProfileRepository implements progression.Repository over a KeyValueStore.
type ProfileRepository struct {
	kv    progression.KeyValueStore
	key   string
	loc   *time.Location
	clock timeutil.Clock
}

// RepositoryConfig configures a ProfileRepository.
type RepositoryConfig struct {
	// Key under which the profile is stored (default: DefaultProfileKey)
	Key string

	// Location for calendar days (default: time.Local)
	Location *time.Location

	// Clock for defaults of missing fields (default: time.Now)
	Clock timeutil.Clock
}

// NewProfileRepository creates a repository over kv.
func NewProfileRepository(kv progression.KeyValueStore, cfg RepositoryConfig) *ProfileRepository {
	if cfg.Key == "" {
		cfg.Key = DefaultProfileKey
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock()
	}
	return &ProfileRepository{
		kv:    kv,
		key:   cfg.Key,
		loc:   cfg.Location,
		clock: cfg.Clock,
	}
}

// Load reads and decodes the profile.
func (r *ProfileRepository) Load(ctx context.Context) (*progression.UserProfile, error) {
	data, err := r.kv.Get(ctx, r.key)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, shared.ErrPersistenceFailure.Wrap(err)
	}
	return Decode(data, r.loc, r.clock())
}

// Save encodes and writes the profile.
func (r *ProfileRepository) Save(ctx context.Context, p *progression.UserProfile) error {
	data, err := Encode(p)
	if err != nil {
		return shared.WrapError("storage", "Encode", shared.ErrInvalidFormat, "encode profile", err)
	}
	if err := r.kv.Set(ctx, r.key, data); err != nil {
		return shared.ErrPersistenceFailure.Wrap(err)
	}
	return nil
}

// Remove deletes the stored profile.
func (r *ProfileRepository) Remove(ctx context.Context) error {
	if err := r.kv.Remove(ctx, r.key); err != nil {
		return shared.ErrPersistenceFailure.Wrap(err)
	}
	return nil
}
