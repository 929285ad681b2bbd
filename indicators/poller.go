package indicators

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// PollConfig bounds a readiness-polling loop. Sleep and Rand are injectable
// so tests run without real delays; nil values fall back to time.Sleep and
// the global rand source.
type PollConfig struct {
	Attempts   int
	BackoffMin time.Duration
	BackoffMax time.Duration

	Sleep func(time.Duration)
	Rand  *rand.Rand
}

func (c PollConfig) backoff() time.Duration {
	if c.BackoffMax <= c.BackoffMin {
		return c.BackoffMin
	}
	span := int64(c.BackoffMax - c.BackoffMin)
	var jitter int64
	if c.Rand != nil {
		jitter = c.Rand.Int63n(span + 1)
	} else {
		jitter = rand.Int63n(span + 1)
	}
	return c.BackoffMin + time.Duration(jitter)
}

func (c PollConfig) sleep(d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}
	time.Sleep(d)
}

// PollValue polls the provider until the indicator reports ready, then reads
// its most recent value. It makes at most cfg.Attempts readiness checks with
// randomized backoff between them and gives up deterministically, returning
// ErrNotReady so the caller can fall back to degraded behavior.
func PollValue(ctx context.Context, p Provider, h Handle, cfg PollConfig) (float64, error) {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 5
	}

	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if attempt > 0 {
			cfg.sleep(cfg.backoff())
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		ready, err := p.Ready(ctx, h)
		if err != nil {
			return 0, fmt.Errorf("poll indicator: %w", err)
		}
		if !ready {
			continue
		}

		vals, err := p.Values(ctx, h, 1)
		if err == ErrNotReady {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("poll indicator: %w", err)
		}
		return vals[0], nil
	}

	return 0, ErrNotReady
}
