package errors

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MaxRetries caps how many retry attempts the aggregator will track for a
// single error before declaring the operation terminally failed.
const MaxRetries = 3

// DefaultDisplayWindow is how long non-critical errors remain active
// before they expire. Critical errors never expire.
const DefaultDisplayWindow = 30 * time.Second

// Context classifies one failed operation for the sink.
type Context struct {
	Type      Type
	Severity  Severity
	Operation string
	Retry     bool
}

// Entry is one tracked failure.
type Entry struct {
	ID         string
	Type       Type
	Severity   Severity
	Operation  string
	Retry      bool
	RetryCount int
	Message    string
	RecordedAt time.Time
}

// Sink is the injectable error-reporting boundary. Services record
// failures here instead of reaching into process-wide state, which keeps
// the log assertable in tests.
type Sink interface {
	Record(err error, ctx Context) string
	Active() []Entry
	Clear(id string)
	ClearAll()
}

// Aggregator is a passive, append-only (until cleared) log of operation
// failures. It tracks retry eligibility and count but never executes the
// failed operation itself; actual retries are the caller's responsibility.
type Aggregator struct {
	mu      sync.Mutex
	logger  *zap.Logger
	clock   func() time.Time
	window  time.Duration
	entries map[string]*Entry
	retries map[string]int
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithClock overrides the aggregator's clock.
func WithClock(clock func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.clock = clock }
}

// WithDisplayWindow overrides the expiry window for non-critical errors.
func WithDisplayWindow(window time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.window = window }
}

// NewAggregator creates an error aggregator.
func NewAggregator(logger *zap.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		logger:  logger,
		clock:   time.Now,
		window:  DefaultDisplayWindow,
		entries: make(map[string]*Entry),
		retries: make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record logs one failure and returns its ID. The ID is derived from the
// error type, operation and timestamp; a retryable failure recorded again
// under the same ID bumps its retry counter up to MaxRetries.
func (a *Aggregator) Record(err error, ctx Context) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock()
	id := fmt.Sprintf("%s_%s_%d", ctx.Type, ctx.Operation, now.UnixMilli())

	entry, exists := a.entries[id]
	if !exists {
		entry = &Entry{
			ID:         id,
			Type:       ctx.Type,
			Severity:   ctx.Severity,
			Operation:  ctx.Operation,
			Retry:      ctx.Retry,
			RecordedAt: now,
		}
		a.entries[id] = entry
	}
	if err != nil {
		entry.Message = err.Error()
	}

	a.logger.Error("application error",
		zap.String("errorId", id),
		zap.String("type", string(ctx.Type)),
		zap.String("severity", string(ctx.Severity)),
		zap.String("operation", ctx.Operation),
		zap.Bool("retry", ctx.Retry),
		zap.Error(err),
	)

	if ctx.Retry {
		count := a.retries[id]
		if count < MaxRetries {
			a.retries[id] = count + 1
			entry.RetryCount = count + 1
			a.logger.Info("operation eligible for retry",
				zap.String("operation", ctx.Operation),
				zap.Int("attempt", count+1),
				zap.Int("maxAttempts", MaxRetries),
			)
		} else {
			a.logger.Error("max retries reached",
				zap.String("operation", ctx.Operation),
				zap.String("errorId", id),
			)
		}
	}

	return id
}

// Active returns a snapshot of currently tracked errors. Non-critical
// errors past the display window are dropped on read.
func (a *Aggregator) Active() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock()
	out := make([]Entry, 0, len(a.entries))
	for id, entry := range a.entries {
		if entry.Severity != SeverityCritical && now.Sub(entry.RecordedAt) > a.window {
			delete(a.entries, id)
			delete(a.retries, id)
			continue
		}
		out = append(out, *entry)
	}
	return out
}

// RetryEligible reports whether the error may still be retried.
func (a *Aggregator) RetryEligible(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.retries[id] < MaxRetries
}

// Clear removes one error and its retry counter.
func (a *Aggregator) Clear(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, id)
	delete(a.retries, id)
}

// ClearAll removes every tracked error.
func (a *Aggregator) ClearAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = make(map[string]*Entry)
	a.retries = make(map[string]int)
}
