package assessor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"personashield/internal/domain"
	"personashield/internal/port"
)

// backoff tracks the rate-limit window of a single assessor.
type backoff struct {
	mu    sync.RWMutex
	until time.Time
}

func (b *backoff) active(now time.Time) (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.until, !b.until.IsZero() && now.Before(b.until)
}

func (b *backoff) set(until time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until = until
}

// FallbackAssessor tries assessors in order, skipping any that is still
// inside a rate-limit window. It implements port.RiskAssessor.
type FallbackAssessor struct {
	assessors []port.RiskAssessor
	backoffs  []*backoff
	names     []string
	now       func() time.Time
}

// NewFallbackAssessor creates a FallbackAssessor from an ordered list of
// assessors and their names.
func NewFallbackAssessor(assessors []port.RiskAssessor, names []string) *FallbackAssessor {
	backoffs := make([]*backoff, len(assessors))
	for i := range backoffs {
		backoffs[i] = &backoff{}
	}
	return &FallbackAssessor{
		assessors: assessors,
		backoffs:  backoffs,
		names:     names,
		now:       time.Now,
	}
}

func (f *FallbackAssessor) Assess(ctx context.Context, input port.AssessInput) (*domain.Assessment, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliest time.Time

	for i, a := range f.assessors {
		if until, ok := f.backoffs[i].active(now); ok {
			log.Printf("assessor.FallbackAssessor: skipping %s (rate limited until %s)", f.names[i], until.Format(time.RFC3339))
			earliest = earlier(earliest, until)
			continue
		}

		out, err := a.Assess(ctx, input)
		if err == nil {
			return out, nil
		}

		log.Printf("assessor.FallbackAssessor: %s failed: %v", f.names[i], err)
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			until := now.Add(rlErr.RetryAfter)
			f.backoffs[i].set(until)
			earliest = earlier(earliest, until)
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := earliest.Sub(f.now())
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all assessors rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all assessors failed: %w", lastErr)
}

func earlier(current, candidate time.Time) time.Time {
	if current.IsZero() || candidate.Before(current) {
		return candidate
	}
	return current
}
