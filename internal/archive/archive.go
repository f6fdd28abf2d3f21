// Package archive persists submitted forms. Archived forms are immutable
// snapshots: once a draft is submitted it leaves the draft store and its
// archived copy is never edited again.
package archive

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"hrdhat-backend/internal/domain"
	apperrors "hrdhat-backend/internal/errors"
	"hrdhat-backend/internal/storage"
)

// Service stores archived forms under a single storage key.
type Service struct {
	mu      sync.Mutex
	blobs   storage.BlobStore
	sink    apperrors.Sink
	logger  *zap.Logger
	clock   func() time.Time
	onReset func()
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithResetHook registers a callback invoked each time corrupted archive
// storage is reset.
func WithResetHook(fn func()) Option {
	return func(s *Service) { s.onReset = fn }
}

// NewService creates an archive service.
func NewService(blobs storage.BlobStore, sink apperrors.Sink, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		blobs:  blobs,
		sink:   sink,
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) getAllLocked(ctx context.Context) map[string]domain.ArchivedForm {
	raw, ok, err := s.blobs.Get(ctx, storage.KeyArchive)
	if err != nil {
		s.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityMedium,
			Operation: "archive.getArchive",
		})
		return map[string]domain.ArchivedForm{}
	}
	if !ok {
		return map[string]domain.ArchivedForm{}
	}

	var forms map[string]domain.ArchivedForm
	if err := json.Unmarshal(raw, &forms); err != nil {
		s.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityHigh,
			Operation: "archive.getArchive",
		})
		s.logger.Warn("archive storage corrupted, resetting to empty map")
		if resetErr := s.blobs.Set(ctx, storage.KeyArchive, []byte("{}")); resetErr != nil {
			s.logger.Error("failed to reset corrupted archive storage", zap.Error(resetErr))
		}
		if s.onReset != nil {
			s.onReset()
		}
		return map[string]domain.ArchivedForm{}
	}
	if forms == nil {
		return map[string]domain.ArchivedForm{}
	}
	return forms
}

func (s *Service) persistLocked(ctx context.Context, forms map[string]domain.ArchivedForm) error {
	raw, err := json.Marshal(forms)
	if err != nil {
		return err
	}
	return s.blobs.Set(ctx, storage.KeyArchive, raw)
}

// ArchiveForm snapshots a draft into the archive with the submission type
// and the current time as the submission stamp. The returned form is the
// stored copy.
func (s *Service) ArchiveForm(ctx context.Context, draft domain.Draft, submissionType domain.SubmissionType) (domain.ArchivedForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	form := domain.ArchivedForm{
		Draft:          draft.Clone(),
		SubmittedAt:    domain.FormatTimestamp(s.clock()),
		SubmissionType: submissionType,
	}

	forms := s.getAllLocked(ctx)
	forms[form.ID] = form
	if err := s.persistLocked(ctx, forms); err != nil {
		wrapped := apperrors.NewSystem("archive.archiveForm", "failed to persist archived form", err)
		s.sink.Record(wrapped, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityHigh,
			Operation: "archive.archiveForm",
		})
		return domain.ArchivedForm{}, wrapped
	}

	s.logger.Info("form archived",
		zap.String("formId", form.ID),
		zap.String("submissionType", string(submissionType)))
	return form, nil
}

// GetArchive returns archived forms ordered by submittedAt descending,
// ties broken on ID descending.
func (s *Service) GetArchive(ctx context.Context) []domain.ArchivedForm {
	s.mu.Lock()
	forms := s.getAllLocked(ctx)
	s.mu.Unlock()

	out := make([]domain.ArchivedForm, 0, len(forms))
	for _, f := range forms {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt != out[j].SubmittedAt {
			return out[i].SubmittedAt > out[j].SubmittedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// GetForm returns the archived form for id, or ErrNotFound.
func (s *Service) GetForm(ctx context.Context, id string) (domain.ArchivedForm, error) {
	s.mu.Lock()
	forms := s.getAllLocked(ctx)
	s.mu.Unlock()

	form, ok := forms[id]
	if !ok {
		return domain.ArchivedForm{}, apperrors.ErrNotFound
	}
	return form, nil
}

// DeleteFromArchive removes an archived form. Deleting a nonexistent ID is
// not an error; storage failures are recorded, not raised.
func (s *Service) DeleteFromArchive(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	forms := s.getAllLocked(ctx)
	if _, ok := forms[id]; !ok {
		return
	}
	delete(forms, id)
	if err := s.persistLocked(ctx, forms); err != nil {
		s.sink.Record(err, apperrors.Context{
			Type:      apperrors.TypeSystem,
			Severity:  apperrors.SeverityMedium,
			Operation: "archive.deleteFromArchive",
		})
	}
}
