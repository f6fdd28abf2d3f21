// Package remote synchronizes forms with the hosted Supabase backend.
// Local storage stays authoritative; the remote copy is a best-effort
// mirror and every call here must tolerate the backend being unreachable.
package remote

import (
	"context"

	"hrdhat-backend/internal/domain"
)

// Store is the remote form mirror. Rows are scoped per user. Available
// reports whether calls are currently admitted; an open circuit breaker
// reports false so callers can treat the mirror as offline without
// issuing a doomed call first.
type Store interface {
	UpsertForm(ctx context.Context, userID string, draft domain.Draft) error
	DeleteForm(ctx context.Context, userID, formID string) error
	FetchForms(ctx context.Context, userID string) ([]domain.Draft, error)
	FetchForm(ctx context.Context, userID, formID string) (domain.Draft, error)
	Available() bool
}
