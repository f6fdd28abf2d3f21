// Package form composes the draft store, conflict resolver, validator,
// archive and remote mirror into the form lifecycle service. Local
// storage is authoritative; the remote backend is refreshed
// opportunistically and every remote failure degrades to local-only
// operation instead of failing the caller.
package form

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"hrdhat-backend/internal/archive"
	"hrdhat-backend/internal/conflict"
	"hrdhat-backend/internal/domain"
	apperrors "hrdhat-backend/internal/errors"
	"hrdhat-backend/internal/observability"
	"hrdhat-backend/internal/remote"
	"hrdhat-backend/internal/store"
	"hrdhat-backend/internal/validation"
)

// MaxActiveDrafts caps concurrent drafts per user.
const MaxActiveDrafts = 5

// ErrConflict marks a save refused by unresolved version conflict.
var ErrConflict = errors.New("version conflict")

// Service orchestrates the form lifecycle.
type Service struct {
	drafts    *store.DraftStore
	archive   *archive.Service
	resolver  *conflict.Resolver
	validator *validation.Validator
	remote    remote.Store
	sink      apperrors.Sink
	metrics   *observability.Metrics
	logger    *zap.Logger

	mu     sync.Mutex
	online bool
}

// NewService creates the form service. A nil remote store keeps the
// service permanently offline.
func NewService(
	drafts *store.DraftStore,
	arch *archive.Service,
	resolver *conflict.Resolver,
	validator *validation.Validator,
	remoteStore remote.Store,
	sink apperrors.Sink,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		drafts:    drafts,
		archive:   arch,
		resolver:  resolver,
		validator: validator,
		remote:    remoteStore,
		sink:      sink,
		metrics:   metrics,
		logger:    logger,
		online:    remoteStore != nil,
	}
}

// Online reports whether remote sync is currently attempted. An open
// circuit breaker on the remote store counts as offline.
func (s *Service) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online && s.remote != nil && s.remote.Available()
}

// SetOnline flips connectivity. Coming back online pushes all local
// drafts to the remote mirror.
func (s *Service) SetOnline(ctx context.Context, userID string, online bool) {
	s.mu.Lock()
	wasOnline := s.online
	s.online = online
	s.mu.Unlock()

	if online && !wasOnline && s.remote != nil {
		s.syncAll(ctx, userID)
	}
}

func (s *Service) syncAll(ctx context.Context, userID string) {
	for _, draft := range s.drafts.ListDrafts(ctx) {
		err := s.remote.UpsertForm(ctx, userID, draft)
		s.metrics.RecordSync("upsert", err)
		if err != nil {
			s.recordRemoteFailure("form.syncAll", err)
			return
		}
	}
	s.logger.Info("local drafts synced to remote", zap.String("userId", userID))
}

// recordRemoteFailure reports a remote error without failing the caller.
func (s *Service) recordRemoteFailure(operation string, err error) {
	s.sink.Record(err, apperrors.Context{
		Type:      apperrors.TypeNetwork,
		Severity:  apperrors.SeverityMedium,
		Operation: operation,
		Retry:     true,
	})
}

// NewDraft creates a fresh draft, enforcing the active-draft cap.
func (s *Service) NewDraft(ctx context.Context, userID, title string) (domain.Draft, error) {
	if len(s.drafts.ListDrafts(ctx)) >= MaxActiveDrafts {
		err := apperrors.NewValidation("form.newDraft", "maximum number of active drafts reached")
		s.metrics.RecordOperation("newDraft", err)
		return domain.Draft{}, err
	}

	draft, err := s.drafts.CreateNewDraft(ctx, title)
	s.metrics.RecordOperation("newDraft", err)
	if err != nil {
		return domain.Draft{}, err
	}
	s.pushRemote(ctx, userID, draft)
	return draft, nil
}

func (s *Service) pushRemote(ctx context.Context, userID string, draft domain.Draft) {
	if !s.Online() {
		return
	}
	err := s.remote.UpsertForm(ctx, userID, draft)
	s.metrics.RecordSync("upsert", err)
	if err != nil {
		s.recordRemoteFailure("form.pushRemote", err)
	}
}

// SaveForm runs the incoming draft through conflict resolution, persists
// the accepted or merged result locally and mirrors it to the remote
// backend. An unresolved conflict refuses the write.
func (s *Service) SaveForm(ctx context.Context, userID string, draft domain.Draft) (domain.Draft, error) {
	res := s.resolver.CheckVersion(ctx, draft.ID, conflict.DraftPayload(draft))
	if !res.Resolved {
		s.metrics.Conflicts.WithLabelValues("unresolved").Inc()
		err := &apperrors.AppError{
			Type:      apperrors.TypeValidation,
			Severity:  apperrors.SeverityMedium,
			Operation: "form.saveForm",
			Message:   res.Reason,
			Cause:     ErrConflict,
		}
		s.metrics.RecordOperation("saveForm", err)
		return domain.Draft{}, err
	}
	s.metrics.Conflicts.WithLabelValues("resolved").Inc()

	accepted := draft
	if res.Draft != nil {
		accepted = *res.Draft
	}

	saved, err := s.drafts.SaveDraft(ctx, accepted.ID, accepted)
	s.metrics.RecordOperation("saveForm", err)
	if err != nil {
		return domain.Draft{}, err
	}
	s.pushRemote(ctx, userID, saved)
	return saved, nil
}

// GetForms lists drafts, refreshing the local store from the remote
// backend first when online. Reads never fail on remote errors.
func (s *Service) GetForms(ctx context.Context, userID string) []domain.Draft {
	s.refreshFromRemote(ctx, userID)
	return s.drafts.ListDrafts(ctx)
}

func (s *Service) refreshFromRemote(ctx context.Context, userID string) {
	if !s.Online() {
		return
	}
	remoteForms, err := s.remote.FetchForms(ctx, userID)
	s.metrics.RecordSync("fetch", err)
	if err != nil {
		s.recordRemoteFailure("form.refreshFromRemote", err)
		return
	}

	local := s.drafts.GetAllDrafts(ctx)
	for _, rf := range remoteForms {
		if existing, ok := local[rf.ID]; ok && existing.UpdatedAt >= rf.UpdatedAt {
			continue
		}
		if _, err := s.drafts.SaveDraft(ctx, rf.ID, rf); err != nil {
			s.logger.Warn("skipping remote form that failed local save",
				zap.String("formId", rf.ID), zap.Error(err))
		}
	}
}

// GetFormByID loads one draft, falling back to the local copy when the
// remote lookup fails.
func (s *Service) GetFormByID(ctx context.Context, userID, formID string) (domain.Draft, error) {
	if s.Online() {
		rf, err := s.remote.FetchForm(ctx, userID, formID)
		s.metrics.RecordSync("fetch", err)
		switch {
		case err == nil:
			if local, localErr := s.drafts.LoadDraft(ctx, formID); localErr == nil && local.UpdatedAt >= rf.UpdatedAt {
				return local, nil
			}
			if _, saveErr := s.drafts.SaveDraft(ctx, rf.ID, rf); saveErr != nil {
				s.logger.Warn("failed to cache remote form locally",
					zap.String("formId", rf.ID), zap.Error(saveErr))
			}
			return rf, nil
		case apperrors.IsNotFound(err):
			// Fall through: the draft may exist only locally.
		default:
			s.recordRemoteFailure("form.getFormByID", err)
		}
	}
	return s.drafts.LoadDraft(ctx, formID)
}

// DeleteForm removes a draft everywhere: local store, version tracking
// and the remote mirror. Missing drafts delete cleanly.
func (s *Service) DeleteForm(ctx context.Context, userID, formID string) {
	s.drafts.DeleteDraft(ctx, formID)
	s.resolver.ClearVersion(ctx, formID)
	s.metrics.RecordOperation("deleteForm", nil)

	if !s.Online() {
		return
	}
	err := s.remote.DeleteForm(ctx, userID, formID)
	s.metrics.RecordSync("delete", err)
	if err != nil {
		s.recordRemoteFailure("form.deleteForm", err)
	}
}

// SubmitForm archives a draft and retires it from active editing. A
// validated submission refuses drafts that fail full validation; an as-is
// submission archives whatever state the draft is in.
func (s *Service) SubmitForm(ctx context.Context, userID, formID string, submissionType domain.SubmissionType) (domain.ArchivedForm, error) {
	draft, err := s.drafts.LoadDraft(ctx, formID)
	if err != nil {
		s.metrics.RecordOperation("submitForm", err)
		return domain.ArchivedForm{}, err
	}

	if submissionType == domain.SubmissionValidated {
		if res := s.validator.ValidateDraft(draft); !res.IsValid {
			err := apperrors.NewValidation("form.submitForm",
				"draft failed validation: "+joinFieldErrors(res.Errors))
			s.metrics.RecordOperation("submitForm", err)
			return domain.ArchivedForm{}, err
		}
	}

	form, err := s.archive.ArchiveForm(ctx, draft, submissionType)
	s.metrics.RecordOperation("submitForm", err)
	if err != nil {
		return domain.ArchivedForm{}, err
	}

	s.drafts.DeleteDraft(ctx, formID)
	s.resolver.ClearVersion(ctx, formID)

	if s.Online() {
		remoteErr := s.remote.DeleteForm(ctx, userID, formID)
		s.metrics.RecordSync("delete", remoteErr)
		if remoteErr != nil {
			s.recordRemoteFailure("form.submitForm", remoteErr)
		}
	}

	s.logger.Info("form submitted",
		zap.String("formId", formID),
		zap.String("submissionType", string(submissionType)))
	return form, nil
}

// GetArchive lists archived forms, newest submission first.
func (s *Service) GetArchive(ctx context.Context) []domain.ArchivedForm {
	return s.archive.GetArchive(ctx)
}

// GetArchivedForm loads one archived form.
func (s *Service) GetArchivedForm(ctx context.Context, formID string) (domain.ArchivedForm, error) {
	return s.archive.GetForm(ctx, formID)
}

// DeleteArchivedForm removes one archived form.
func (s *Service) DeleteArchivedForm(ctx context.Context, formID string) {
	s.archive.DeleteFromArchive(ctx, formID)
}

// ClearAll wipes drafts, version tracking and the error log together.
func (s *Service) ClearAll(ctx context.Context) {
	s.drafts.ClearAll(ctx)
	s.resolver.ClearAllVersions(ctx)
}

func joinFieldErrors(errs []validation.FieldError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}
