package summarize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ragnotes/internal/metrics"
	"ragnotes/internal/models"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxAttempts is the retry budget per unit of work
	DefaultMaxAttempts = 10
	// DefaultInterval is the pause before each attempt after the first
	DefaultInterval = time.Second
)

// ErrRetriesExhausted is matched by every error returned when a budget runs out
var ErrRetriesExhausted = errors.New("retries exhausted")

// Status tags the result of one generation attempt
type Status int

const (
	Success Status = iota
	Retryable
	Terminal
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	default:
		return "terminal"
	}
}

// Outcome is the tagged result of one attempt
type Outcome struct {
	Status Status
	Notes  *models.Notes
	Err    error
}

// Classify maps a generator result to an Outcome. Missing notes and every
// error are retryable except context cancellation, which is terminal.
func Classify(notes *models.Notes, err error) Outcome {
	switch {
	case err == nil && notes != nil:
		return Outcome{Status: Success, Notes: notes}
	case err == nil:
		return Outcome{Status: Retryable, Err: errors.New("no result")}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Outcome{Status: Terminal, Err: err}
	default:
		return Outcome{Status: Retryable, Err: err}
	}
}

// ExhaustedError reports a unit whose retry budget ran out. It matches both
// ErrRetriesExhausted and the last attempt's error.
type ExhaustedError struct {
	Unit     string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed to generate %s after %d attempts: %v", e.Unit, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Last}
}

// Attempt performs one generation try
type Attempt func(ctx context.Context) Outcome

// RetryController runs an Attempt until it succeeds, fails terminally or the
// budget is spent, pausing a fixed Interval before every attempt after the first.
type RetryController struct {
	MaxAttempts int
	Interval    time.Duration
	// Sleep waits between attempts; tests replace it
	Sleep func(ctx context.Context, d time.Duration) error

	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewRetryController creates a controller; zero values select the defaults
// and a negative interval disables the pause. m may be nil.
func NewRetryController(maxAttempts int, interval time.Duration, log zerolog.Logger, m *metrics.Metrics) *RetryController {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if interval == 0 {
		interval = DefaultInterval
	}
	return &RetryController{
		MaxAttempts: maxAttempts,
		Interval:    interval,
		Sleep:       sleepContext,
		log:         log,
		metrics:     m,
	}
}

// Run executes attempt for the named unit. kind labels metrics ("chapter", "aggregate").
func (r *RetryController) Run(ctx context.Context, kind, name string, attempt Attempt) (*models.Notes, error) {
	var last error
	for n := 1; n <= r.MaxAttempts; n++ {
		if n > 1 && r.Interval > 0 {
			if err := r.Sleep(ctx, r.Interval); err != nil {
				return nil, err
			}
		}

		out := attempt(ctx)
		if r.metrics != nil {
			r.metrics.GenerationAttemptsTotal.WithLabelValues(kind, out.Status.String()).Inc()
		}

		switch out.Status {
		case Success:
			return out.Notes, nil
		case Terminal:
			return nil, fmt.Errorf("%s %q: %w", kind, name, out.Err)
		}

		last = out.Err
		r.log.Warn().Err(out.Err).
			Str("unit", kind).
			Str("name", name).
			Int("attempt", n).
			Int("max_attempts", r.MaxAttempts).
			Msg("generation attempt failed")
	}

	if r.metrics != nil {
		r.metrics.GenerationExhaustedTotal.WithLabelValues(kind).Inc()
	}
	r.log.Error().Err(last).Str("unit", kind).Str("name", name).Int("attempts", r.MaxAttempts).Msg("retry budget exhausted")
	return nil, &ExhaustedError{Unit: fmt.Sprintf("%s %q", kind, name), Attempts: r.MaxAttempts, Last: last}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
