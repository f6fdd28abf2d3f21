// Package store implements the local draft store: durable CRUD over
// drafts kept as a single serialized map in local storage.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hrdhat-backend/internal/domain"
	apperrors "hrdhat-backend/internal/errors"
	"hrdhat-backend/internal/storage"
	"hrdhat-backend/internal/validation"
)

// DefaultTitle is the title given to drafts created without one.
const DefaultTitle = "Untitled"

// DraftStore persists drafts under a single storage key. Operations that
// fail on storage or validation record to the error sink; only SaveDraft
// and CreateNewDraft also raise, since their callers must know the write
// did not happen.
type DraftStore struct {
	mu        sync.Mutex
	blobs     storage.BlobStore
	validator *validation.Validator
	sink      apperrors.Sink
	logger    *zap.Logger
	clock     func() time.Time
	onReset   func()
}

// Option configures a DraftStore.
type Option func(*DraftStore)

// WithClock overrides the store's clock.
func WithClock(clock func() time.Time) Option {
	return func(s *DraftStore) { s.clock = clock }
}

// WithResetHook registers a callback invoked each time corrupted draft
// storage is reset.
func WithResetHook(fn func()) Option {
	return func(s *DraftStore) { s.onReset = fn }
}

// NewDraftStore creates a draft store.
func NewDraftStore(blobs storage.BlobStore, validator *validation.Validator, sink apperrors.Sink, logger *zap.Logger, opts ...Option) *DraftStore {
	s := &DraftStore{
		blobs:     blobs,
		validator: validator,
		sink:      sink,
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAllDrafts returns the stored draft map. A corrupted blob is reported
// once and storage is reset to an empty map: availability over data
// preservation.
func (s *DraftStore) GetAllDrafts(ctx context.Context) map[string]domain.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAllLocked(ctx)
}

func (s *DraftStore) getAllLocked(ctx context.Context) map[string]domain.Draft {
	raw, ok, err := s.blobs.Get(ctx, storage.KeyDrafts)
	if err != nil {
		s.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityMedium,
			Operation: "draftStore.getAllDrafts",
		})
		return map[string]domain.Draft{}
	}
	if !ok {
		return map[string]domain.Draft{}
	}

	var drafts map[string]domain.Draft
	if err := json.Unmarshal(raw, &drafts); err != nil {
		s.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityHigh,
			Operation: "draftStore.getAllDrafts",
		})
		s.logger.Warn("draft storage corrupted, resetting to empty map")
		if resetErr := s.blobs.Set(ctx, storage.KeyDrafts, []byte("{}")); resetErr != nil {
			s.logger.Error("failed to reset corrupted draft storage", zap.Error(resetErr))
		}
		if s.onReset != nil {
			s.onReset()
		}
		return map[string]domain.Draft{}
	}
	if drafts == nil {
		return map[string]domain.Draft{}
	}
	return drafts
}

func (s *DraftStore) persistLocked(ctx context.Context, drafts map[string]domain.Draft) error {
	raw, err := json.Marshal(drafts)
	if err != nil {
		return err
	}
	return s.blobs.Set(ctx, storage.KeyDrafts, raw)
}

// ListDrafts returns drafts ordered by updatedAt descending. Exact
// timestamp ties break on ID descending, which approximates creation
// recency since IDs embed their creation time.
func (s *DraftStore) ListDrafts(ctx context.Context) []domain.Draft {
	drafts := s.GetAllDrafts(ctx)
	out := make([]domain.Draft, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// LoadDraft returns the draft for id, or ErrNotFound. A stored draft that
// fails structural validation is reported and treated as not found rather
// than returned malformed.
func (s *DraftStore) LoadDraft(ctx context.Context, id string) (domain.Draft, error) {
	drafts := s.GetAllDrafts(ctx)
	draft, ok := drafts[id]
	if !ok {
		return domain.Draft{}, apperrors.ErrNotFound
	}
	if res := s.validator.ValidateDraftStructure(draft); !res.IsValid {
		s.sink.Record(fmt.Errorf("stored draft %s failed validation: %s", id, formatErrors(res.Errors)), apperrors.Context{
			Type:      apperrors.TypeValidation,
			Severity:  apperrors.SeverityMedium,
			Operation: "draftStore.loadDraft",
		})
		return domain.Draft{}, apperrors.ErrNotFound
	}
	return draft, nil
}

// SaveDraft validates and persists a draft under id. The stored updatedAt
// is always rewritten to the current time regardless of the caller's
// value. Validation and storage failures are recorded and raised.
func (s *DraftStore) SaveDraft(ctx context.Context, id string, draft domain.Draft) (domain.Draft, error) {
	if res := s.validator.ValidateDraftStructure(draft); !res.IsValid {
		err := apperrors.NewValidation("draftStore.saveDraft",
			"draft failed validation: "+formatErrors(res.Errors))
		s.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeValidation,
			Severity:  apperrors.SeverityMedium,
			Operation: "draftStore.saveDraft",
		})
		return domain.Draft{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	drafts := s.getAllLocked(ctx)
	saved := draft.Clone()
	saved.UpdatedAt = domain.FormatTimestamp(s.clock())
	drafts[id] = saved

	if err := s.persistLocked(ctx, drafts); err != nil {
		wrapped := apperrors.NewSystem("draftStore.saveDraft", "failed to persist draft", err)
		s.sink.Record(wrapped, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityHigh,
			Operation: "draftStore.saveDraft",
		})
		return domain.Draft{}, wrapped
	}
	return saved, nil
}

// CreateNewDraft allocates a fresh draft with a unique ID, persists the
// empty skeleton and returns it. IDs embed the creation time for recency
// ordering; a random suffix removes the same-tick collision window.
func (s *DraftStore) CreateNewDraft(ctx context.Context, title string) (domain.Draft, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	now := s.clock()
	timestamp := domain.FormatTimestamp(now)
	draft := domain.Draft{
		ID:        fmt.Sprintf("draft_%d_%s", now.UnixMilli(), uuid.New().String()[:8]),
		Title:     title,
		CreatedAt: timestamp,
		UpdatedAt: timestamp,
		Data:      domain.DraftData{},
	}
	return s.SaveDraft(ctx, draft.ID, draft)
}

// DeleteDraft removes a draft. Deleting a nonexistent ID is not an error;
// storage failures are recorded, not raised.
func (s *DraftStore) DeleteDraft(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts := s.getAllLocked(ctx)
	if _, ok := drafts[id]; !ok {
		return
	}
	delete(drafts, id)
	if err := s.persistLocked(ctx, drafts); err != nil {
		s.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityMedium,
			Operation: "draftStore.deleteDraft",
		})
	}
}

// ClearAll wipes the draft map and the error log together.
func (s *DraftStore) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.Delete(ctx, storage.KeyDrafts); err != nil {
		s.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityMedium,
			Operation: "draftStore.clearAll",
		})
		return
	}
	s.sink.ClearAll()
}

func formatErrors(errs []validation.FieldError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}
