// Package identity resolves a stable device identifier that survives the
// loss of any single storage tier.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"attendance/internal/identity/fingerprint"
	"attendance/internal/identity/metrics"
	"attendance/internal/identity/models"
	"attendance/internal/identity/store"
	"attendance/pkg/platform/audit"
)

const DefaultConsistencyInterval = 30 * time.Second

var resolutionOrder = []models.TierName{models.TierDurable, models.TierSession, models.TierRedundant}

// AuditSink receives an event whenever stored identifiers are repaired.
type AuditSink interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Resolver produces the device identifier. Resolution is serialized so two
// concurrent first resolutions cannot mint two identifiers.
type Resolver struct {
	mu         sync.Mutex
	store      *store.Store
	profile    fingerprint.Profile
	ip         fingerprint.IPSource
	hash       fingerprint.Hasher
	appVersion string
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *metrics.Metrics
	audit      AuditSink
}

type Option func(*Resolver)

func WithProfile(p fingerprint.Profile) Option {
	return func(r *Resolver) {
		r.profile = p
	}
}

func WithIPSource(ip fingerprint.IPSource) Option {
	return func(r *Resolver) {
		r.ip = ip
	}
}

func WithHasher(h fingerprint.Hasher) Option {
	return func(r *Resolver) {
		r.hash = h
	}
}

func WithAppVersion(v string) Option {
	return func(r *Resolver) {
		r.appVersion = v
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(r *Resolver) {
		r.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func WithAudit(sink AuditSink) Option {
	return func(r *Resolver) {
		r.audit = sink
	}
}

func NewResolver(st *store.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:   st,
		ip:      fingerprint.IPLookup{},
		hash:    fingerprint.SHA256Hex,
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default(),
		profile: fingerprint.HostProfile(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Profile returns the device profile used for fingerprinting.
func (r *Resolver) Profile() fingerprint.Profile {
	return r.profile
}

// IP returns the device's public address, or "unknown".
func (r *Resolver) IP(ctx context.Context) string {
	return r.ip.LookupIP(ctx)
}

// GetDeviceID returns the stored identifier, checking the durable, session
// and redundant tiers in that order and repairing the others from the first
// hit. With nothing stored it fingerprints the device, persists the result to
// every tier and returns it.
func (r *Resolver) GetDeviceID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.store.Read(ctx)
	for _, tier := range resolutionOrder {
		id := snap.Value(tier)
		if id == "" {
			continue
		}
		r.metrics.IncrementResolution(string(tier))
		r.propagate(ctx, tier, id, snap, false)
		return id, nil
	}

	id, fromFingerprint := fingerprint.Compute(r.profile, r.ip.LookupIP(ctx), r.hash)
	source := "fingerprint"
	if !fromFingerprint {
		source = "random"
	}
	r.metrics.IncrementResolution(source)

	ident := models.DeviceIdentity{
		ID:                   id,
		CreatedAt:            r.clock.Now().UTC(),
		AppVersionAtCreation: r.appVersion,
	}
	if _, err := r.store.Write(ctx, ident); err != nil {
		r.logger.WarnContext(ctx, "new device id not persisted", "error", err)
	}
	r.logger.InfoContext(ctx, "device id created", "source", source)
	return id, nil
}

// Identity returns the resolved identifier with its creation metadata.
func (r *Resolver) Identity(ctx context.Context) (models.DeviceIdentity, error) {
	id, err := r.GetDeviceID(ctx)
	if err != nil {
		return models.DeviceIdentity{}, err
	}
	for _, tier := range resolutionOrder {
		if ident, ok := r.store.Identity(ctx, tier); ok && ident.ID == id {
			return ident, nil
		}
	}
	return models.DeviceIdentity{ID: id}, nil
}

// ValidateStoredIDs re-adopts the durable tier's value as ground truth and
// rewrites disagreeing tiers. An empty durable tier is refilled from whichever
// other tier holds a value.
func (r *Resolver) ValidateStoredIDs(ctx context.Context) (models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, err := r.store.Reconcile(ctx, r.appVersion)
	for _, tier := range report.Repaired {
		r.metrics.IncrementRepair(string(tier))
	}
	if len(report.Repaired) > 0 {
		r.recordRepair(ctx, report.Adopted, report.Source, report.Repaired)
	}
	if report.Changed() {
		r.logger.InfoContext(ctx, "device id tiers reconciled",
			"source", report.Source,
			"repaired", report.Repaired,
			"version_refreshed", report.VersionSet,
		)
	}
	return report, err
}

// RecoverDeviceID rewrites every tier from the first tier that still holds an
// identifier. It reports false when no tier holds one.
func (r *Resolver) RecoverDeviceID(ctx context.Context) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.store.Read(ctx)
	for _, tier := range resolutionOrder {
		if id := snap.Value(tier); id != "" {
			r.propagate(ctx, tier, id, snap, true)
			r.logger.InfoContext(ctx, "device id recovered", "source", tier)
			return id, true
		}
	}
	return "", false
}

// RunConsistencySweep validates the tiers every interval until ctx ends.
func (r *Resolver) RunConsistencySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultConsistencyInterval
	}
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if _, err := r.ValidateStoredIDs(ctx); err != nil {
				r.logger.WarnContext(ctx, "consistency sweep failed", "error", err)
			}
		}
	}
}

// propagate writes id into every tier whose snapshot value differs, or into
// every tier when rewriteAll is set, keeping the creation metadata of the
// source tier. Only tiers that actually held a different value are audited.
func (r *Resolver) propagate(ctx context.Context, source models.TierName, id string, snap models.Snapshot, rewriteAll bool) {
	var stale []models.TierName
	for _, tier := range resolutionOrder {
		if rewriteAll || snap.Value(tier) != id {
			stale = append(stale, tier)
		}
	}
	if len(stale) == 0 {
		return
	}

	ident, _ := r.store.Identity(ctx, source)
	ident.ID = id
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = r.clock.Now().UTC()
	}
	if ident.AppVersionAtCreation == "" {
		ident.AppVersionAtCreation = r.appVersion
	}

	written, err := r.store.Write(ctx, ident, stale...)
	if err != nil {
		r.logger.WarnContext(ctx, "device id repair failed", "source", source, "error", err)
		return
	}
	var repaired []models.TierName
	for _, tier := range written {
		if snap.Value(tier) != id {
			repaired = append(repaired, tier)
			r.metrics.IncrementRepair(string(tier))
		}
	}
	if len(repaired) > 0 {
		r.recordRepair(ctx, id, source, repaired)
	}
}

func (r *Resolver) recordRepair(ctx context.Context, id string, source models.TierName, tiers []models.TierName) {
	if r.audit == nil {
		return
	}
	names := make([]string, 0, len(tiers))
	for _, t := range tiers {
		names = append(names, string(t))
	}
	event := audit.Event{
		Action:   audit.ActionIDRepair,
		DeviceID: id,
		Message:  fmt.Sprintf("repaired %s from %s", strings.Join(names, ", "), source),
	}
	if err := r.audit.Emit(context.WithoutCancel(ctx), event); err != nil {
		r.logger.WarnContext(ctx, "audit event dropped", "action", event.Action, "error", err)
	}
}
