// Package conflict detects and, where possible, auto-resolves divergence
// between an incoming write and the last known version of the same
// logical entity. Draft-shaped payloads get a field-level merge; anything
// else in conflict is reported as unresolved for manual handling.
//
// A merged draft always carries a generalInfo object, all-empty if
// neither side had one, so merge output never preserves the nil-means-
// untouched distinction the rest of the codebase reads into
// DraftData.GeneralInfo.
package conflict

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"hrdhat-backend/internal/domain"
	apperrors "hrdhat-backend/internal/errors"
	"hrdhat-backend/internal/storage"
)

// VersionedData wraps a stored entity with its version counter. Versions
// are monotonically increasing per key and are only created or bumped
// here.
type VersionedData struct {
	Version   int             `json:"version"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// payloadKind tags a payload at the boundary where it enters the
// resolver, so resolution switches on a known variant instead of
// re-sniffing shapes.
type payloadKind int

const (
	kindOpaque payloadKind = iota
	kindDraft
)

// Payload is a tagged entity handed to the resolver.
type Payload struct {
	kind  payloadKind
	draft domain.Draft
	raw   json.RawMessage
}

// DraftPayload tags a draft for resolution.
func DraftPayload(d domain.Draft) Payload {
	return Payload{kind: kindDraft, draft: d}
}

// OpaquePayload tags a non-draft entity. Conflicting opaque payloads are
// never auto-merged.
func OpaquePayload(raw json.RawMessage) Payload {
	return Payload{kind: kindOpaque, raw: raw}
}

func (p Payload) marshal() ([]byte, error) {
	if p.kind == kindDraft {
		return json.Marshal(p.draft)
	}
	return json.Marshal(p.raw)
}

// Resolution is the outcome of a version check.
type Resolution struct {
	Resolved bool
	// Draft carries the accepted or merged draft for draft payloads.
	Draft *domain.Draft
	// Reason explains an unresolved conflict.
	Reason string
}

// Resolver keeps the per-key version map, mirrored to local persistence
// on every mutation.
type Resolver struct {
	mu       sync.Mutex
	store    storage.BlobStore
	sink     apperrors.Sink
	logger   *zap.Logger
	clock    func() time.Time
	versions map[string]VersionedData
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the resolver's clock.
func WithClock(clock func() time.Time) Option {
	return func(r *Resolver) { r.clock = clock }
}

// NewResolver creates a resolver, loading any persisted version map. A
// corrupt or unreadable version blob is reported and treated as empty.
func NewResolver(ctx context.Context, store storage.BlobStore, sink apperrors.Sink, logger *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		sink:     sink,
		logger:   logger,
		clock:    time.Now,
		versions: make(map[string]VersionedData),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.loadVersions(ctx)
	return r
}

func (r *Resolver) loadVersions(ctx context.Context) {
	raw, ok, err := r.store.Get(ctx, storage.KeyVersions)
	if err != nil {
		r.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityMedium,
			Operation: "conflict.loadVersions",
		})
		return
	}
	if !ok {
		return
	}
	var loaded map[string]VersionedData
	if err := json.Unmarshal(raw, &loaded); err != nil {
		r.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityMedium,
			Operation: "conflict.loadVersions",
		})
		return
	}
	r.versions = loaded
}

// saveVersions mirrors the version map to storage. Failures are recorded
// but do not fail the resolution; the in-memory map stays authoritative
// for this process.
func (r *Resolver) saveVersions(ctx context.Context) {
	raw, err := json.Marshal(r.versions)
	if err == nil {
		err = r.store.Set(ctx, storage.KeyVersions, raw)
	}
	if err != nil {
		r.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityMedium,
			Operation: "conflict.saveVersions",
		})
	}
}

// CheckVersion runs the resolution algorithm for one incoming write:
//
//  1. no prior version: store as version 1, resolved.
//  2. payload deep-equal to the stored version: resolved, no-op.
//  3. draft payload in genuine conflict: field-level merge, bump version.
//  4. anything else in conflict: unresolved, caller handles manually.
func (r *Resolver) CheckVersion(ctx context.Context, key string, p Payload) Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()

	incoming, err := p.marshal()
	if err != nil {
		r.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityHigh,
			Operation: "conflict.checkVersion",
		})
		return Resolution{Resolved: false, Reason: "Failed to inspect incoming data"}
	}

	current, exists := r.versions[key]
	if !exists {
		r.versions[key] = VersionedData{
			Version:   1,
			Timestamp: domain.FormatTimestamp(r.clock()),
			Data:      incoming,
		}
		r.saveVersions(ctx)
		return r.acceptedResolution(p)
	}

	if jsonEqual(current.Data, incoming) {
		return r.acceptedResolution(p)
	}

	if p.kind == kindDraft {
		return r.resolveDraftConflict(ctx, key, current, p.draft)
	}

	return Resolution{
		Resolved: false,
		Reason:   "Version conflict detected. Manual resolution required.",
	}
}

func (r *Resolver) acceptedResolution(p Payload) Resolution {
	if p.kind == kindDraft {
		d := p.draft.Clone()
		return Resolution{Resolved: true, Draft: &d}
	}
	return Resolution{Resolved: true}
}

// resolveDraftConflict merges a conflicting draft write against the
// stored version. General info merges field by field: a present incoming
// value wins, an empty one falls back to the stored value. Every other
// module key is a shallow incoming-wins overwrite; the asymmetry is
// deliberate and pinned by tests.
func (r *Resolver) resolveDraftConflict(ctx context.Context, key string, current VersionedData, incoming domain.Draft) Resolution {
	var stored domain.Draft
	if err := json.Unmarshal(current.Data, &stored); err != nil {
		r.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityHigh,
			Operation: "conflict.resolveDraftConflict",
		})
		return Resolution{Resolved: false, Reason: "Failed to auto-resolve conflict"}
	}

	merged := incoming.Clone()

	merged.Data.Modules = nil
	if stored.Data.Modules != nil || incoming.Data.Modules != nil {
		merged.Data.Modules = make(map[string]json.RawMessage)
		for name, payload := range stored.Data.Modules {
			merged.Data.Modules[name] = payload
		}
		for name, payload := range incoming.Data.Modules {
			merged.Data.Modules[name] = payload
		}
	}

	var storedInfo, incomingInfo domain.GeneralInfoData
	if stored.Data.GeneralInfo != nil {
		storedInfo = *stored.Data.GeneralInfo
	}
	if incoming.Data.GeneralInfo != nil {
		incomingInfo = *incoming.Data.GeneralInfo
	}
	mergedInfo := domain.GeneralInfoData{}
	for _, name := range domain.GeneralInfoFieldNames() {
		value := incomingInfo.Field(name)
		if value == "" {
			value = storedInfo.Field(name)
		}
		mergedInfo.SetField(name, value)
	}
	merged.Data.GeneralInfo = &mergedInfo

	merged.UpdatedAt = domain.FormatTimestamp(r.clock())

	mergedRaw, err := json.Marshal(merged)
	if err != nil {
		r.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityHigh,
			Operation: "conflict.resolveDraftConflict",
		})
		return Resolution{Resolved: false, Reason: "Failed to auto-resolve conflict"}
	}

	r.versions[key] = VersionedData{
		Version:   current.Version + 1,
		Timestamp: merged.UpdatedAt,
		Data:      mergedRaw,
	}
	r.saveVersions(ctx)

	r.logger.Info("draft conflict auto-resolved",
		zap.String("key", key),
		zap.Int("version", current.Version+1),
	)

	return Resolution{Resolved: true, Draft: &merged}
}

// Version returns the current version for key, zero when untracked.
func (r *Resolver) Version(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.versions[key].Version
}

// ClearVersion drops the version entry for key.
func (r *Resolver) ClearVersion(ctx context.Context, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.versions, key)
	r.saveVersions(ctx)
}

// ClearAllVersions drops every version entry.
func (r *Resolver) ClearAllVersions(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions = make(map[string]VersionedData)
	r.saveVersions(ctx)
}

// jsonEqual compares two JSON documents by canonical serialized form.
func jsonEqual(a, b json.RawMessage) bool {
	ca, errA := canonicalJSON(a)
	cb, errB := canonicalJSON(b)
	if errA != nil || errB != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca, cb)
}

func canonicalJSON(raw json.RawMessage) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
