package remote

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"hrdhat-backend/internal/domain"
	apperrors "hrdhat-backend/internal/errors"
)

// ErrUnavailable is returned while the circuit is open. Callers treat it
// like any other network failure and fall back to local storage.
var ErrUnavailable = errors.New("remote backend unavailable")

// BreakerStore wraps a Store with a circuit breaker so a flapping backend
// fails fast instead of stalling every save on a timeout.
type BreakerStore struct {
	inner  Store
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreakerStore wraps inner with a circuit breaker. The breaker opens
// after five consecutive failures and probes again after 30 seconds.
func NewBreakerStore(inner Store, logger *zap.Logger) *BreakerStore {
	b := &BreakerStore{inner: inner, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "supabase",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// A lookup miss is a healthy backend answering.
			return err == nil || apperrors.IsNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("remote circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return b
}

// Available reports whether the breaker currently admits calls.
func (b *BreakerStore) Available() bool {
	return b.cb.State() != gobreaker.StateOpen
}

func (b *BreakerStore) execute(op string, call func() (interface{}, error)) (interface{}, error) {
	out, err := b.cb.Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.NewNetwork(op, "remote backend unavailable", ErrUnavailable)
	}
	return out, err
}

func (b *BreakerStore) UpsertForm(ctx context.Context, userID string, draft domain.Draft) error {
	_, err := b.execute("remote.upsertForm", func() (interface{}, error) {
		return nil, b.inner.UpsertForm(ctx, userID, draft)
	})
	return err
}

func (b *BreakerStore) DeleteForm(ctx context.Context, userID, formID string) error {
	_, err := b.execute("remote.deleteForm", func() (interface{}, error) {
		return nil, b.inner.DeleteForm(ctx, userID, formID)
	})
	return err
}

func (b *BreakerStore) FetchForms(ctx context.Context, userID string) ([]domain.Draft, error) {
	out, err := b.execute("remote.fetchForms", func() (interface{}, error) {
		return b.inner.FetchForms(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.Draft), nil
}

func (b *BreakerStore) FetchForm(ctx context.Context, userID, formID string) (domain.Draft, error) {
	out, err := b.execute("remote.fetchForm", func() (interface{}, error) {
		return b.inner.FetchForm(ctx, userID, formID)
	})
	if err != nil {
		return domain.Draft{}, err
	}
	return out.(domain.Draft), nil
}
