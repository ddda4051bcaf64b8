package pattern

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/KOMKZ/go-yogan-cache/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// refreshTask is the single pending refresh of one key. A fired timer only
// runs if its generation is still the one stored in the task map.
type refreshTask[T any] struct {
	key        string
	loader     Loader[T]
	opts       cache.Options
	timer      *time.Timer
	generation uint64
}

// RefreshAhead reloads entries shortly before they expire so hot keys do
// not fall through to the loader on the read path.
type RefreshAhead[T any] struct {
	cache  cache.Cache
	cfg    RefreshAheadConfig
	logger *logger.CtxZapLogger
	pool   *ants.Pool

	mu         sync.Mutex
	tasks      map[string]*refreshTask[T]
	generation uint64
	closed     bool

	inflight sync.WaitGroup
}

func NewRefreshAhead[T any](c cache.Cache, cfg RefreshAheadConfig, log *logger.CtxZapLogger) (*RefreshAhead[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetLogger(ModuleName)
	}

	pool, err := ants.NewPool(cfg.Workers,
		ants.WithLogger(log),
		ants.WithPanicHandler(func(p any) {
			log.Error("refresh-ahead worker panic", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, ErrPool.Wrap(err)
	}

	return &RefreshAhead[T]{
		cache:  c,
		cfg:    cfg,
		logger: log,
		pool:   pool,
		tasks:  make(map[string]*refreshTask[T]),
	}, nil
}

// Get serves from cache and makes sure a refresh is scheduled. On miss the
// loader runs synchronously and its error is returned.
func (p *RefreshAhead[T]) Get(ctx context.Context, key string, loader Loader[T], opts cache.Options) (T, error) {
	var zero T
	if loader == nil {
		return zero, ErrNilCallback
	}
	logical, err := cache.LogicalKey(key, opts.Namespace)
	if err != nil {
		return zero, err
	}

	v, ok, err := cache.GetValue[T](ctx, p.cache, key, opts)
	if err != nil && !errors.Is(err, cache.ErrDeserialize) {
		return zero, err
	}
	if ok {
		p.mu.Lock()
		if _, scheduled := p.tasks[logical]; !scheduled {
			p.armLocked(logical, key, loader, opts)
		}
		p.mu.Unlock()
		return v, nil
	}

	v, err = loader(ctx)
	if err != nil {
		return zero, err
	}
	if err := cache.SetValue(ctx, p.cache, key, v, opts); err != nil {
		p.logger.WarnCtx(ctx, "refresh-ahead set failed",
			zap.String("key", logical), zap.Error(err))
	}

	p.mu.Lock()
	p.armLocked(logical, key, loader, opts)
	p.mu.Unlock()
	return v, nil
}

// Delay is how long after a write the refresh fires.
func (p *RefreshAhead[T]) Delay(opts cache.Options) time.Duration {
	return time.Duration(float64(p.cache.TTL(opts)) * p.cfg.Threshold)
}

// armLocked replaces any pending refresh of logical with a fresh timer.
func (p *RefreshAhead[T]) armLocked(logical, key string, loader Loader[T], opts cache.Options) {
	if p.closed {
		return
	}
	if old, ok := p.tasks[logical]; ok {
		old.timer.Stop()
	}

	p.generation++
	gen := p.generation
	task := &refreshTask[T]{
		key:        key,
		loader:     loader,
		opts:       opts,
		generation: gen,
	}
	task.timer = time.AfterFunc(p.Delay(opts), func() {
		p.fire(logical, gen)
	})
	p.tasks[logical] = task
}

func (p *RefreshAhead[T]) fire(logical string, gen uint64) {
	p.mu.Lock()
	task, ok := p.tasks[logical]
	if !ok || task.generation != gen || p.closed {
		p.mu.Unlock()
		return
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	err := p.pool.Submit(func() {
		defer p.inflight.Done()
		p.refresh(logical, task)
	})
	if err != nil {
		p.inflight.Done()
		p.logger.Warn("refresh-ahead submit failed",
			zap.String("key", logical), zap.Error(err))
	}
}

func (p *RefreshAhead[T]) refresh(logical string, task *refreshTask[T]) {
	ctx := context.Background()

	v, err := task.loader(ctx)
	if err != nil {
		p.logger.WarnCtx(ctx, "refresh-ahead loader failed",
			zap.String("key", logical), zap.Error(err))
	} else if err := cache.SetValue(ctx, p.cache, task.key, v, task.opts); err != nil {
		p.logger.WarnCtx(ctx, "refresh-ahead set failed",
			zap.String("key", logical), zap.Error(err))
	}

	// rearm only if nobody cancelled or replaced the task meanwhile
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.tasks[logical]; ok && cur.generation == task.generation {
		p.armLocked(logical, task.key, task.loader, task.opts)
	}
}

// CancelRefresh drops the pending refresh of key, if any.
func (p *RefreshAhead[T]) CancelRefresh(key, namespace string) {
	logical, err := cache.LogicalKey(key, namespace)
	if err != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if task, ok := p.tasks[logical]; ok {
		task.timer.Stop()
		delete(p.tasks, logical)
	}
}

// Scheduled counts keys with a pending refresh.
func (p *RefreshAhead[T]) Scheduled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// IsScheduled reports whether key has a pending refresh.
func (p *RefreshAhead[T]) IsScheduled(key, namespace string) bool {
	logical, err := cache.LogicalKey(key, namespace)
	if err != nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tasks[logical]
	return ok
}

// Shutdown cancels every timer and waits for running refreshes.
func (p *RefreshAhead[T]) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for logical, task := range p.tasks {
		task.timer.Stop()
		delete(p.tasks, logical)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.pool.Release()
		p.logger.InfoCtx(ctx, "refresh-ahead stopped")
		return nil
	case <-ctx.Done():
		p.pool.Release()
		return ctx.Err()
	}
}
