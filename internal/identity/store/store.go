// Package store reads, writes and reconciles the device identifier across
// three independent tiers, any of which may fail or be cleared.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"attendance/internal/identity/models"
	dErrors "attendance/pkg/domain-errors"
	"attendance/pkg/platform/sentinel"
)

// Tier is one key/value storage mechanism.
type Tier interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store fans identity reads and writes out over the durable, session and
// redundant tiers. The durable tier also keeps the _timestamp, _version and
// _created_version side-keys; the session tier keeps _timestamp; the
// redundant tier keeps only the identifier.
type Store struct {
	key    string
	tiers  map[models.TierName]Tier
	logger *slog.Logger
	clock  clockwork.Clock
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New builds a store. A nil tier behaves as permanently empty and unwritable.
func New(durable, session, redundant Tier, opts ...Option) *Store {
	s := &Store{
		key: models.DefaultKey,
		tiers: map[models.TierName]Tier{
			models.TierDurable:   durable,
			models.TierSession:   session,
			models.TierRedundant: redundant,
		},
		logger: slog.Default(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the logical identifier key.
func (s *Store) Key() string {
	return s.key
}

// Read returns what each tier holds. Tier failures read as empty.
func (s *Store) Read(ctx context.Context) models.Snapshot {
	return models.Snapshot{
		Durable:   s.get(ctx, models.TierDurable, s.key),
		Session:   s.get(ctx, models.TierSession, s.key),
		Redundant: s.get(ctx, models.TierRedundant, s.key),
	}
}

// Identity returns the identifier with its creation metadata from tier.
func (s *Store) Identity(ctx context.Context, tier models.TierName) (models.DeviceIdentity, bool) {
	id := s.get(ctx, tier, s.key)
	if id == "" {
		return models.DeviceIdentity{}, false
	}
	ident := models.DeviceIdentity{ID: id}
	if ms, err := strconv.ParseInt(s.get(ctx, tier, s.key+models.TimestampSuffix), 10, 64); err == nil {
		ident.CreatedAt = time.UnixMilli(ms).UTC()
	}
	ident.AppVersionAtCreation = s.get(ctx, tier, s.key+models.CreatedVersionSuffix)
	if ident.AppVersionAtCreation == "" {
		// written before the creation version had its own key
		ident.AppVersionAtCreation = s.get(ctx, tier, s.key+models.VersionSuffix)
	}
	return ident, true
}

// Write stores ident in the given tiers (all tiers when none are named). It
// succeeds when at least one tier accepted the identifier, and returns the
// tiers that did.
func (s *Store) Write(ctx context.Context, ident models.DeviceIdentity, tiers ...models.TierName) ([]models.TierName, error) {
	if len(tiers) == 0 {
		tiers = []models.TierName{models.TierDurable, models.TierSession, models.TierRedundant}
	}
	ts := strconv.FormatInt(ident.CreatedAt.UnixMilli(), 10)

	var written []models.TierName
	var errs []error
	for _, name := range tiers {
		if err := s.set(ctx, name, s.key, ident.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		written = append(written, name)

		switch name {
		case models.TierDurable:
			s.setQuietly(ctx, name, s.key+models.TimestampSuffix, ts)
			s.setQuietly(ctx, name, s.key+models.CreatedVersionSuffix, ident.AppVersionAtCreation)
			if s.get(ctx, name, s.key+models.VersionSuffix) == "" {
				s.setQuietly(ctx, name, s.key+models.VersionSuffix, ident.AppVersionAtCreation)
			}
		case models.TierSession:
			s.setQuietly(ctx, name, s.key+models.TimestampSuffix, ts)
		}
	}

	if len(written) == 0 {
		return nil, dErrors.Wrap(errors.Join(errs...), dErrors.CodeInternal, "device id could not be stored in any tier")
	}
	return written, nil
}

// Reconcile makes every tier agree. The durable tier is ground truth; when it
// is empty the redundant tier, then the session tier, is promoted. The durable
// _version side-key is refreshed when appVersion differs; the creation
// metadata of the adopted identity is never rewritten.
func (s *Store) Reconcile(ctx context.Context, appVersion string) (models.Report, error) {
	snap := s.Read(ctx)
	report := models.Report{Before: snap}

	source := models.TierDurable
	switch {
	case snap.Durable != "":
	case snap.Redundant != "":
		source = models.TierRedundant
	case snap.Session != "":
		source = models.TierSession
	default:
		return report, nil
	}

	ident, _ := s.Identity(ctx, source)
	if ident.CreatedAt.IsZero() {
		if durable, ok := s.Identity(ctx, models.TierDurable); ok {
			ident.CreatedAt = durable.CreatedAt
		}
	}
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = s.clock.Now().UTC()
	}
	if source != models.TierDurable || ident.AppVersionAtCreation == "" {
		ident.AppVersionAtCreation = appVersion
	}
	report.Adopted = ident.ID
	report.Source = source

	var stale []models.TierName
	for _, name := range []models.TierName{models.TierDurable, models.TierSession, models.TierRedundant} {
		if snap.Value(name) != ident.ID {
			stale = append(stale, name)
		}
	}
	if len(stale) > 0 {
		written, err := s.Write(ctx, ident, stale...)
		report.Repaired = written
		if err != nil {
			return report, err
		}
	}

	if s.get(ctx, models.TierDurable, s.key+models.CreatedVersionSuffix) == "" && ident.AppVersionAtCreation != "" {
		s.setQuietly(ctx, models.TierDurable, s.key+models.CreatedVersionSuffix, ident.AppVersionAtCreation)
	}
	if appVersion != "" && s.get(ctx, models.TierDurable, s.key+models.VersionSuffix) != appVersion {
		if err := s.set(ctx, models.TierDurable, s.key+models.VersionSuffix, appVersion); err == nil {
			report.VersionSet = true
		}
	}
	return report, nil
}

// Clear removes the identifier and its side-keys from tier.
func (s *Store) Clear(ctx context.Context, tier models.TierName) error {
	t := s.tiers[tier]
	if t == nil {
		return nil
	}
	for _, k := range []string{s.key, s.key + models.TimestampSuffix, s.key + models.VersionSuffix, s.key + models.CreatedVersionSuffix} {
		if err := t.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) get(ctx context.Context, tier models.TierName, key string) string {
	t := s.tiers[tier]
	if t == nil {
		return ""
	}
	v, err := t.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "identity tier read failed", "tier", tier, "key", key, "error", err)
		}
		return ""
	}
	return v
}

func (s *Store) set(ctx context.Context, tier models.TierName, key, value string) error {
	t := s.tiers[tier]
	if t == nil {
		return sentinel.ErrUnavailable
	}
	if err := t.Set(ctx, key, value); err != nil {
		s.logger.WarnContext(ctx, "identity tier write failed", "tier", tier, "key", key, "error", err)
		return err
	}
	return nil
}

func (s *Store) setQuietly(ctx context.Context, tier models.TierName, key, value string) {
	_ = s.set(ctx, tier, key, value)
}
