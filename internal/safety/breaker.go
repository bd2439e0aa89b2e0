package safety

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"trade-guard/internal/alert"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

// Breaker trips after a run of consecutive order-submission failures and
// blocks further submissions until a success is recorded. Gateway rejections
// do not count as failures; only transport-level errors do. A nil Breaker is
// a no-op.
type Breaker struct {
	enabled bool
	logger  *zap.Logger

	mu          sync.Mutex
	maxFailures int
	failures    int
	open        bool
	openErr     error
	openedAt    time.Time

	alerter alert.Alerter
}

func NewBreaker(enabled bool, maxFailures int, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		enabled:     enabled,
		maxFailures: maxFailures,
		logger:      logger,
	}
}

func (b *Breaker) SetAlerter(alerter alert.Alerter) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.alerter = alerter
	b.mu.Unlock()
}

// Allow reports whether a submission may proceed.
func (b *Breaker) Allow() error {
	if b == nil || !b.enabled {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return b.openErr
	}
	return nil
}

// Record feeds a submission result into the circuit. A nil err closes the
// circuit and resets the failure run; a non-nil err counts toward the trip
// threshold.
func (b *Breaker) Record(err error) error {
	if b == nil || !b.enabled {
		return nil
	}

	b.mu.Lock()
	if b.maxFailures < 1 {
		b.mu.Unlock()
		return nil
	}

	if err == nil {
		recovered := b.open || b.failures > 0
		prevFailures := b.failures
		b.open = false
		b.openErr = nil
		b.openedAt = time.Time{}
		b.failures = 0
		alerter := b.alerter
		b.mu.Unlock()
		if recovered {
			b.logger.Info("submission circuit recovered",
				zap.Int("previous_consecutive_failures", prevFailures))
			if alerter != nil {
				alerter.Important("circuit_breaker_recovered", map[string]string{
					"previous_consecutive_failures": strconv.Itoa(prevFailures),
				})
			}
		}
		return nil
	}

	if b.open {
		openErr := b.openErr
		b.mu.Unlock()
		return openErr
	}

	b.failures++
	failures := b.failures
	limit := b.maxFailures
	alerter := b.alerter
	if failures < limit {
		b.mu.Unlock()
		b.logger.Warn("submission failure",
			zap.Int("consecutive_failures", failures),
			zap.Int("threshold", limit),
			zap.Error(err))
		return nil
	}

	openErr := fmt.Errorf("%w: %d consecutive submission failures, last: %v", ErrCircuitOpen, failures, err)
	b.open = true
	b.openErr = openErr
	b.openedAt = time.Now().UTC()
	b.mu.Unlock()

	b.logger.Error("submission circuit tripped",
		zap.Int("consecutive_failures", failures),
		zap.Int("threshold", limit),
		zap.Error(err))
	if alerter != nil {
		alerter.Important("circuit_breaker_trip", map[string]string{
			"consecutive_failures": strconv.Itoa(failures),
			"threshold":            strconv.Itoa(limit),
			"last_error":           err.Error(),
		})
	}
	return openErr
}

// Reset closes the circuit regardless of state.
func (b *Breaker) Reset() {
	if b == nil {
		return
	}
	_ = b.Record(nil)
}
