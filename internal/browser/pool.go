package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("browser pool closed")

// PageFactory opens a fresh browsing context. Browser.NewPage satisfies it;
// tests substitute fakes.
type PageFactory func(ctx context.Context) (Page, error)

// PoolConfig controls pool sizing and handle hygiene.
type PoolConfig struct {
	// Capacity is the hard ceiling on simultaneously busy handles.
	Capacity int
	// Prewarm is the number of idle handles opened up front.
	Prewarm int
	// PollInterval is the sleep between acquisition attempts at capacity.
	PollInterval time.Duration
	// ReaperInterval is how often excess idle and stale busy handles are
	// collected. Zero disables the reaper.
	ReaperInterval time.Duration
	// IdleFloor is the number of idle handles the reaper retains.
	IdleFloor int
	// StaleAfter force-closes busy handles checked out longer than this.
	StaleAfter time.Duration
	// ValidateTimeout bounds the blank-navigation used to validate handles.
	ValidateTimeout time.Duration
}

func (c *PoolConfig) applyDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = 10
	}
	if c.Prewarm < 0 {
		c.Prewarm = 0
	}
	if c.Prewarm > c.Capacity {
		c.Prewarm = c.Capacity
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.IdleFloor < 0 {
		c.IdleFloor = 0
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 5 * time.Minute
	}
	if c.ValidateTimeout <= 0 {
		c.ValidateTimeout = 5 * time.Second
	}
}

// Pool lends out browsing contexts up to a capacity ceiling. Acquisition at
// capacity spin-polls rather than queueing, which is adequate for the
// moderate worker counts the queue runs with.
type Pool struct {
	cfg     PoolConfig
	factory PageFactory
	logger  *zap.Logger

	mu       sync.Mutex
	idle     []Page
	busy     map[Page]time.Time
	creating int
	closed   bool

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// NewPool builds a pool over the factory and pre-warms Prewarm idle
// handles. A prewarm failure is fatal: if the browser cannot open a page
// now, the run cannot proceed.
func NewPool(cfg PoolConfig, factory PageFactory, logger *zap.Logger) (*Pool, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		cfg:     cfg,
		factory: factory,
		logger:  logger,
		busy:    make(map[Page]time.Time),
	}
	for i := 0; i < cfg.Prewarm; i++ {
		page, err := factory(context.Background())
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("prewarm page %d: %w", i+1, err)
		}
		p.idle = append(p.idle, page)
	}
	if cfg.ReaperInterval > 0 {
		p.reaperStop = make(chan struct{})
		p.reaperDone = make(chan struct{})
		go p.reap()
	}
	return p, nil
}

// Acquire returns a validated page, blocking while the pool is at capacity.
// Handle creation failures propagate to the caller.
func (p *Pool) Acquire(ctx context.Context) (Page, error) {
	for {
		page, created, err := p.tryAcquire(ctx)
		if err != nil {
			return nil, err
		}
		if page != nil {
			return page, nil
		}
		if created {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire page: %w", ctx.Err())
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

// tryAcquire makes one pass over the idle list and the capacity budget.
// The second return reports that progress was made (a corrupted idle handle
// was discarded) so the caller retries without sleeping.
func (p *Pool) tryAcquire(ctx context.Context) (Page, bool, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, false, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		page := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		if err := p.validate(page); err != nil {
			p.logger.Debug("discarding corrupted idle page", zap.Error(err))
			_ = page.Close()
			return nil, true, nil
		}
		p.checkout(page)
		return page, false, nil
	}
	if len(p.busy)+p.creating < p.cfg.Capacity {
		p.creating++
		p.mu.Unlock()
		page, err := p.factory(ctx)
		p.mu.Lock()
		p.creating--
		if err != nil {
			p.mu.Unlock()
			return nil, false, fmt.Errorf("create page: %w", err)
		}
		if p.closed {
			p.mu.Unlock()
			_ = page.Close()
			return nil, false, ErrPoolClosed
		}
		p.busy[page] = time.Now()
		p.mu.Unlock()
		return page, false, nil
	}
	p.mu.Unlock()
	return nil, false, nil
}

// Release returns a page to the pool after blanking it. A handle that fails
// to reset is closed and dropped rather than recycled.
func (p *Pool) Release(page Page) {
	if page == nil {
		return
	}
	p.mu.Lock()
	_, wasBusy := p.busy[page]
	delete(p.busy, page)
	closed := p.closed
	p.mu.Unlock()
	if closed || !wasBusy {
		_ = page.Close()
		return
	}
	if err := p.validate(page); err != nil {
		p.logger.Debug("dropping page that failed reset", zap.Error(err))
		_ = page.Close()
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = page.Close()
		return
	}
	p.idle = append(p.idle, page)
	p.mu.Unlock()
}

// Close drains the pool and closes every handle. Idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	busy := make([]Page, 0, len(p.busy))
	for page := range p.busy {
		busy = append(busy, page)
	}
	p.busy = make(map[Page]time.Time)
	p.mu.Unlock()

	if p.reaperStop != nil {
		close(p.reaperStop)
		<-p.reaperDone
	}
	for _, page := range idle {
		_ = page.Close()
	}
	for _, page := range busy {
		_ = page.Close()
	}
}

// Stats reports current idle and busy counts.
func (p *Pool) Stats() (idle, busy int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), len(p.busy)
}

func (p *Pool) checkout(page Page) {
	p.mu.Lock()
	p.busy[page] = time.Now()
	p.mu.Unlock()
}

func (p *Pool) validate(page Page) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ValidateTimeout)
	defer cancel()
	return page.Reset(ctx)
}

// reap periodically closes idle handles beyond the retained floor and
// force-closes busy handles that have been checked out past StaleAfter,
// recovering from audits that hang.
func (p *Pool) reap() {
	defer close(p.reaperDone)
	ticker := time.NewTicker(p.cfg.ReaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.reaperStop:
			return
		case <-ticker.C:
			p.reapOnce(time.Now())
		}
	}
}

func (p *Pool) reapOnce(now time.Time) {
	p.mu.Lock()
	var victims []Page
	for len(p.idle) > p.cfg.IdleFloor {
		n := len(p.idle)
		victims = append(victims, p.idle[n-1])
		p.idle = p.idle[:n-1]
	}
	for page, checkedOut := range p.busy {
		if now.Sub(checkedOut) > p.cfg.StaleAfter {
			victims = append(victims, page)
			delete(p.busy, page)
		}
	}
	p.mu.Unlock()
	for _, page := range victims {
		p.logger.Debug("reaper closing page handle")
		_ = page.Close()
	}
}
