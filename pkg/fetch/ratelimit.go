package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimiter manages request timing per host for politeness
type RateLimiter struct {
	hostLastRequest   map[string]time.Time // hostname -> last request attempt time
	hostLastRequestMu sync.Mutex           // Protects hostLastRequest map
	defaultDelay      time.Duration        // Fallback delay if specific delay is invalid
	log               *logrus.Logger
}

// NewRateLimiter creates a RateLimiter
func NewRateLimiter(defaultDelay time.Duration, log *logrus.Logger) *RateLimiter {
	return &RateLimiter{
		hostLastRequest: make(map[string]time.Time),
		defaultDelay:    defaultDelay,
		log:             log,
	}
}

// ApplyDelay sleeps if the time since the last request to the host is less than minDelay
// Includes jitter (+/- 10%) to desynchronize requests. Returns early if ctx is cancelled
func (rl *RateLimiter) ApplyDelay(ctx context.Context, host string, minDelay time.Duration) {
	if minDelay <= 0 {
		minDelay = rl.defaultDelay
	}
	if minDelay <= 0 {
		return
	}

	rl.hostLastRequestMu.Lock()
	lastReqTime, exists := rl.hostLastRequest[host]
	rl.hostLastRequestMu.Unlock() // Unlock before potentially sleeping

	if exists {
		elapsed := time.Since(lastReqTime)
		if elapsed < minDelay {
			sleepDuration := minDelay - elapsed

			// Jitter: +/- 10% of sleepDuration
			var jitter time.Duration
			if sleepDuration > 0 {
				jitterRange := int64(sleepDuration) / 5
				if jitterRange > 0 {
					jitter = time.Duration(rand.Int63n(jitterRange)) - (sleepDuration / 10)
				}
			}

			finalSleep := sleepDuration + jitter
			if finalSleep < 0 {
				finalSleep = 0
			}

			if finalSleep > 0 {
				rl.log.WithFields(logrus.Fields{
					"host": host, "sleep": finalSleep, "required_delay": minDelay, "elapsed": elapsed,
				}).Debug("Rate limit applying sleep")

				timer := time.NewTimer(finalSleep)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					rl.log.Debugf("Rate limit sleep for %s interrupted: %v", host, ctx.Err())
				}
			}
		}
	}
}

// UpdateLastRequestTime records the current time as the last request attempt time for the host
// Call this *after* an HTTP request attempt to the host
func (rl *RateLimiter) UpdateLastRequestTime(host string) {
	rl.hostLastRequestMu.Lock()
	rl.hostLastRequest[host] = time.Now()
	rl.hostLastRequestMu.Unlock()
}
