// Package retry runs operations with exponential backoff.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/etlerr"
)

type Settings struct {
	InitialBackoff time.Duration
	Multiplier     int
	MaxBackoff     time.Duration
	// MaxRetries is the number of attempts. Zero retries forever.
	MaxRetries int
}

func (s Settings) Verify() error {
	if s.InitialBackoff <= 0 {
		return etlerr.NewConfigurationErrorf("initial backoff must be set to >= 0, got %s", s.InitialBackoff)
	}
	if s.Multiplier < 1 {
		return etlerr.NewConfigurationErrorf("multiplier must be >= 1, got %d", s.Multiplier)
	}
	if s.MaxBackoff > 0 && s.InitialBackoff > s.MaxBackoff {
		return etlerr.NewConfigurationErrorf(
			"initial backoff (%s) must be less than max backoff (%s)",
			s.InitialBackoff,
			s.MaxBackoff,
		)
	}
	return nil
}

// DefaultSettings suit local file system operations.
func DefaultSettings() Settings {
	return Settings{
		InitialBackoff: 50 * time.Millisecond,
		Multiplier:     2,
		MaxBackoff:     time.Second,
		MaxRetries:     3,
	}
}

// Backoff tracks the schedule of attempts.
type Backoff struct {
	Attempt   int
	StartTime time.Time
	NextRetry time.Time

	settings Settings
}

func NewBackoff(t time.Time, settings Settings) (*Backoff, error) {
	if err := settings.Verify(); err != nil {
		return nil, err
	}
	return &Backoff{
		Attempt:   1,
		StartTime: t,
		NextRetry: t.Add(settings.InitialBackoff),
		settings:  settings,
	}, nil
}

func (b *Backoff) ShouldContinue() bool {
	if b.settings.MaxRetries == 0 {
		return true
	}
	return b.Attempt < b.settings.MaxRetries
}

func (b *Backoff) Next() {
	d := b.settings.InitialBackoff * time.Duration(math.Pow(float64(b.settings.Multiplier), float64(b.Attempt)))
	if b.settings.MaxBackoff > 0 && d > b.settings.MaxBackoff {
		d = b.settings.MaxBackoff
	}
	b.Attempt++
	b.NextRetry = b.NextRetry.Add(d)
}

type permanentError struct {
	cause error
}

func (e *permanentError) Error() string { return e.cause.Error() }
func (e *permanentError) Unwrap() error { return e.cause }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return &permanentError{cause: err}
}

// Do calls fn until it succeeds, returns a Permanent error, or the attempts
// of settings run out. The last error is returned.
func Do(ctx context.Context, settings Settings, fn func() error) error {
	b, err := NewBackoff(time.Now(), settings)
	if err != nil {
		return err
	}
	for {
		err := fn()
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.cause
		}
		if !b.ShouldContinue() {
			return errors.Wrapf(err, "giving up after %d attempts", b.Attempt)
		}
		t := time.NewTimer(time.Until(b.NextRetry))
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.WithSecondaryError(ctx.Err(), err)
		case <-t.C:
		}
		b.Next()
	}
}
