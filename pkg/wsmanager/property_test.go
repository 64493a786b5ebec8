package wsmanager

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestBackoffDoublingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	properties.Property("backoff after N retries is initial * 2^N", prop.ForAll(
		func(initialMS, retries int) bool {
			initial := time.Duration(initialMS) * time.Millisecond
			h := newHarness(t, Config{URL: "ws://example/test", ResumeDelay: initial})

			c := h.dialer.Next(t)
			for n := range retries {
				c.Drop()
				timer := h.clock.next(t)
				if timer.delay != initial<<n {
					t.Logf("retry %d waited %s, want %s", n+1, timer.delay, initial<<n)
					return false
				}
				timer.fire()
				c = h.dialer.Next(t)
			}

			h.cancel()
			h.wait(t)
			return h.m.Backoff() == initial<<retries && h.rec.count(EventFatal) == 0
		},
		gen.IntRange(1, 5000),
		gen.IntRange(0, 12),
	))

	properties.TestingRun(t)
}

func TestRetryCeilingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("fatal fires on exactly the K-th retry", prop.ForAll(
		func(limit int) bool {
			h := newHarness(t, Config{URL: "ws://example/test", ResumeDelay: time.Millisecond, MaxResume: limit})

			c := h.dialer.Next(t)
			for attempt := 1; attempt < limit; attempt++ {
				c = h.cycle(t, c)
				if h.rec.count(EventFatal) != 0 {
					t.Logf("fatal before retry %d of %d", attempt, limit)
					return false
				}
			}

			c.Drop()
			h.clock.next(t).fire()
			err := h.wait(t)

			h.dialer.ExpectNone(t, 5*time.Millisecond)
			return errors.Is(err, ErrRetryLimit) &&
				h.m.Retries() == limit &&
				h.dialer.Opened() == limit &&
				h.rec.count(EventFatal) == 1
		},
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}

func TestUnlimitedRetriesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 10
	properties := gopter.NewProperties(parameters)

	properties.Property("without MaxResume no retry-count fatal happens", prop.ForAll(
		func(drops int) bool {
			h := newHarness(t, Config{URL: "ws://example/test", ResumeDelay: time.Millisecond})

			c := h.dialer.Next(t)
			for range drops {
				c = h.cycle(t, c)
			}
			h.barrier(t)

			return h.rec.count(EventFatal) == 0 &&
				h.rec.count(EventDisconnect) == drops &&
				h.m.Retries() == 0 &&
				h.dialer.Opened() == drops+1
		},
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}
