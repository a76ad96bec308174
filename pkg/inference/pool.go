package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

const DefaultAcquireTimeout = 60 * time.Second

// modelSession bundles a session with the tensors bound to it. A session is
// owned by exactly one caller between Acquire and Release, which makes
// "fill input, run, read output" atomic per request.
type modelSession struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (m *modelSession) Destroy() {
	if m.session != nil {
		m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
}

type PoolStats struct {
	InUse           int
	TotalAcquired   int64
	TotalReleased   int64
	AcquireFailures int64
	WaitTime        time.Duration
}

type sessionPool struct {
	sessions       chan *modelSession
	size           int
	acquireTimeout time.Duration

	mu     sync.Mutex
	closed bool

	statsMu sync.RWMutex
	stats   PoolStats
}

func newSessionPool(size int, acquireTimeout time.Duration, factory func() (*modelSession, error)) (*sessionPool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}

	pool := &sessionPool{
		sessions:       make(chan *modelSession, size),
		size:           size,
		acquireTimeout: acquireTimeout,
	}

	for i := 0; i < size; i++ {
		s, err := factory()
		if err != nil {
			pool.Destroy()
			return nil, fmt.Errorf("failed to initialize session %d: %w", i, err)
		}
		pool.sessions <- s
	}

	return pool, nil
}

func (p *sessionPool) Acquire(ctx context.Context) (*modelSession, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	start := time.Now()
	defer func() {
		p.statsMu.Lock()
		p.stats.WaitTime += time.Since(start)
		p.statsMu.Unlock()
	}()

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case s, ok := <-p.sessions:
		if !ok {
			return nil, ErrPoolClosed
		}
		p.statsMu.Lock()
		p.stats.InUse++
		p.stats.TotalAcquired++
		p.statsMu.Unlock()
		return s, nil
	case <-timer.C:
		p.statsMu.Lock()
		p.stats.AcquireFailures++
		p.statsMu.Unlock()
		return nil, fmt.Errorf("timeout waiting for available session")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *sessionPool) Release(s *modelSession) {
	p.statsMu.Lock()
	p.stats.InUse--
	p.stats.TotalReleased++
	p.statsMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		s.Destroy()
		return
	}
	p.sessions <- s
}

func (p *sessionPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.sessions)

	for s := range p.sessions {
		s.Destroy()
	}
}

func (p *sessionPool) Stats() PoolStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

func logPoolStats(logger *logrus.Logger, stats PoolStats) {
	logger.WithFields(logrus.Fields{
		"acquired":         stats.TotalAcquired,
		"released":         stats.TotalReleased,
		"acquire_failures": stats.AcquireFailures,
		"wait_ms":          stats.WaitTime.Milliseconds(),
	}).Info("Inference pool closed")
}
