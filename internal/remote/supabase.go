package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"hrdhat-backend/internal/domain"
	apperrors "hrdhat-backend/internal/errors"
)

const formsTable = "forms"

// formRow is the wire shape of a form in the Supabase forms table. The
// draft's module data travels as an opaque JSON column.
type formRow struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

func rowFromDraft(userID string, d domain.Draft) (formRow, error) {
	data, err := json.Marshal(d.Data)
	if err != nil {
		return formRow{}, err
	}
	return formRow{
		ID:        d.ID,
		UserID:    userID,
		Title:     d.Title,
		Data:      data,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func (r formRow) toDraft() (domain.Draft, error) {
	d := domain.Draft{
		ID:        r.ID,
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, &d.Data); err != nil {
			return domain.Draft{}, fmt.Errorf("malformed form data for %s: %w", r.ID, err)
		}
	}
	return d, nil
}

// SupabaseStore mirrors forms into a Supabase postgrest table. Every call
// is bounded by the store's timeout on top of the caller's context.
type SupabaseStore struct {
	client  *supabase.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewSupabaseStore connects to the Supabase project.
func NewSupabaseStore(url, anonKey string, timeout time.Duration, logger *zap.Logger) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, anonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SupabaseStore{client: client, timeout: timeout, logger: logger}, nil
}

func (s *SupabaseStore) execute(ctx context.Context, op string, call func() ([]byte, error)) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return execute(ctx, op, call)
}

// execute runs a postgrest call on a goroutine so the context deadline is
// honored; the underlying client does not take a context.
func execute(ctx context.Context, op string, call func() ([]byte, error)) ([]byte, error) {
	type result struct {
		raw []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		raw, err := call()
		ch <- result{raw, err}
	}()
	select {
	case <-ctx.Done():
		return nil, apperrors.NewNetwork(op, "remote call timed out", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return nil, apperrors.NewNetwork(op, "remote call failed", res.err)
		}
		return res.raw, nil
	}
}

// Available always reports true; the bare store has no failure tracking.
// Wrap with NewBreakerStore for that.
func (s *SupabaseStore) Available() bool { return true }

func (s *SupabaseStore) UpsertForm(ctx context.Context, userID string, draft domain.Draft) error {
	row, err := rowFromDraft(userID, draft)
	if err != nil {
		return apperrors.NewSystem("remote.upsertForm", "encode form row", err)
	}
	_, err = s.execute(ctx, "remote.upsertForm", func() ([]byte, error) {
		raw, _, execErr := s.client.From(formsTable).
			Upsert(row, "id", "", "").
			Execute()
		return raw, execErr
	})
	if err != nil {
		return err
	}
	s.logger.Debug("form upserted remotely", zap.String("formId", draft.ID))
	return nil
}

func (s *SupabaseStore) DeleteForm(ctx context.Context, userID, formID string) error {
	_, err := s.execute(ctx, "remote.deleteForm", func() ([]byte, error) {
		raw, _, execErr := s.client.From(formsTable).
			Delete("", "").
			Eq("user_id", userID).
			Eq("id", formID).
			Execute()
		return raw, execErr
	})
	return err
}

func (s *SupabaseStore) FetchForms(ctx context.Context, userID string) ([]domain.Draft, error) {
	raw, err := s.execute(ctx, "remote.fetchForms", func() ([]byte, error) {
		raw, _, execErr := s.client.From(formsTable).
			Select("*", "", false).
			Eq("user_id", userID).
			Execute()
		return raw, execErr
	})
	if err != nil {
		return nil, err
	}

	var rows []formRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, apperrors.NewSystem("remote.fetchForms", "decode form rows", err)
	}
	drafts := make([]domain.Draft, 0, len(rows))
	for _, row := range rows {
		d, err := row.toDraft()
		if err != nil {
			// One malformed remote row must not block the rest.
			s.logger.Warn("skipping malformed remote form", zap.String("formId", row.ID), zap.Error(err))
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func (s *SupabaseStore) FetchForm(ctx context.Context, userID, formID string) (domain.Draft, error) {
	raw, err := s.execute(ctx, "remote.fetchForm", func() ([]byte, error) {
		raw, _, execErr := s.client.From(formsTable).
			Select("*", "", false).
			Eq("user_id", userID).
			Eq("id", formID).
			Execute()
		return raw, execErr
	})
	if err != nil {
		return domain.Draft{}, err
	}

	var rows []formRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return domain.Draft{}, apperrors.NewSystem("remote.fetchForm", "decode form row", err)
	}
	if len(rows) == 0 {
		return domain.Draft{}, apperrors.ErrNotFound
	}
	return rows[0].toDraft()
}
