package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DelayStrategy returns the pause after the given zero-based failed attempt.
type DelayStrategy func(attempt int) time.Duration

func FixedDelay(delay time.Duration) DelayStrategy {
	return func(int) time.Duration {
		return delay
	}
}

// ExponentialDelay doubles base on every attempt and caps it at max.
func ExponentialDelay(base time.Duration, max time.Duration) DelayStrategy {
	return func(attempt int) time.Duration {
		delay := base * time.Duration(1<<attempt)
		if max > 0 && (delay > max || delay <= 0) {
			delay = max
		}
		return delay
	}
}

// Probe is a bounded retry budget. It blocks the caller for at most
// Attempts-1 delays and is never cancelled mid-flight.
type Probe struct {
	Name     string
	Attempts int
	Delay    DelayStrategy
	Sleep    func(time.Duration)
}

func NewProbe(name string, attempts int, delay DelayStrategy) Probe {
	return Probe{
		Name:     name,
		Attempts: attempts,
		Delay:    delay,
		Sleep:    time.Sleep,
	}
}

// Check runs a boolean check until it returns true. When the budget is
// exhausted the last result is returned; no error is raised.
func (p Probe) Check(ctx context.Context, check func(context.Context) bool) bool {
	ok, _ := retryUntil(ctx, p, func(ctx context.Context) (bool, error) {
		return check(ctx), nil
	}, func(ok bool, _ error) bool {
		return !ok
	})
	return ok
}

// Retry runs call until it succeeds or fails with an error retryable does
// not accept. On exhaustion the last error is returned to the caller.
func Retry[T any](ctx context.Context, p Probe, retryable func(error) bool, call func(context.Context) (T, error)) (T, error) {
	return retryUntil(ctx, p, call, func(_ T, err error) bool {
		return err != nil && retryable != nil && retryable(err)
	})
}

func retryUntil[T any](ctx context.Context, p Probe, call func(context.Context) (T, error), again func(T, error) bool) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var value T
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		value, err = call(ctx)
		if !again(value, err) {
			return value, err
		}
		if attempt == attempts-1 {
			break
		}
		delay := p.delay(attempt)
		log.Ctx(ctx).Debug().
			Str("probe", p.Name).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("probe not satisfied, retrying")
		p.sleep(delay)
	}
	log.Ctx(ctx).Warn().Str("probe", p.Name).Int("attempts", attempts).Msg("probe budget exhausted")
	return value, err
}

func (p Probe) delay(attempt int) time.Duration {
	if p.Delay == nil {
		return 0
	}
	return p.Delay(attempt)
}

func (p Probe) sleep(delay time.Duration) {
	if delay <= 0 {
		return
	}
	if p.Sleep == nil {
		time.Sleep(delay)
		return
	}
	p.Sleep(delay)
}
