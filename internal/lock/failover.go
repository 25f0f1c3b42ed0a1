package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const primaryRetryInterval = time.Minute

// FailoverLocker takes the local lock first and the primary lease second,
// releasing both together. While the primary errors only the local lock is
// held; the primary is retried once per interval.
type FailoverLocker struct {
	primary Locker
	local   Locker
	logger  *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

// NewFailoverLocker layers primary (usually a RedisLocker) over local.
func NewFailoverLocker(primary, local Locker, logger *zerolog.Logger) *FailoverLocker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverLocker{
		primary: primary,
		local:   local,
		logger:  logger,
	}
}

func (l *FailoverLocker) shouldTryPrimary() bool {
	if !l.isDown.Load() {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.lastCheck) > primaryRetryInterval {
		l.lastCheck = time.Now()
		return true
	}
	return false
}

func (l *FailoverLocker) markDown(err error) {
	if !l.isDown.Swap(true) {
		l.logger.Warn().Err(err).Msg("primary locker failed, switching to local locks")
	}
	l.mu.Lock()
	l.lastCheck = time.Now()
	l.mu.Unlock()
}

func (l *FailoverLocker) Lock(ctx context.Context, key string) (func(), error) {
	releaseLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	if !l.shouldTryPrimary() {
		return releaseLocal, nil
	}

	releasePrimary, err := l.primary.Lock(ctx, key)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			releaseLocal()
			return nil, err
		}
		l.markDown(err)
		return releaseLocal, nil
	}
	if l.isDown.Swap(false) {
		l.logger.Info().Msg("primary locker recovered")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releasePrimary()
			releaseLocal()
		})
	}, nil
}

// Degraded reports whether only the local locker is in use.
func (l *FailoverLocker) Degraded() bool {
	return l.isDown.Load()
}
