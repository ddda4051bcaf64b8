package pattern

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/KOMKZ/go-yogan-cache/logger"
	"github.com/cespare/xxhash/v2"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const writeBehindStripes = 64

// PendingWrite is a value accepted by the cache but not yet persisted.
type PendingWrite[T any] struct {
	Key        string
	Namespace  string
	Value      T
	EnqueuedAt time.Time
	Attempts   int

	writer Writer[T]
}

// WriteBehind caches writes immediately and persists them in periodic
// batches. The newest pending value per key wins; failed writes are retried
// on the next flush unless superseded.
type WriteBehind[T any] struct {
	cache  cache.Cache
	cfg    WriteBehindConfig
	logger *logger.CtxZapLogger

	// gate is held shared by Write and exclusively by Shutdown, so no write
	// lands in the cache after the final drain without being queued
	gate   sync.RWMutex
	closed bool

	// keyLocks make the cache update and the enqueue of one key a single step
	keyLocks [writeBehindStripes]sync.Mutex

	mu      sync.Mutex
	pending map[string]*PendingWrite[T]

	// flushMu keeps scheduled and manual drains from overlapping
	flushMu   sync.Mutex
	pool      *ants.Pool
	scheduler gocron.Scheduler
}

// NewWriteBehind starts the flush scheduler.
func NewWriteBehind[T any](c cache.Cache, cfg WriteBehindConfig, log *logger.CtxZapLogger) (*WriteBehind[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetLogger(ModuleName)
	}

	w := &WriteBehind[T]{
		cache:   c,
		cfg:     cfg,
		logger:  log,
		pending: make(map[string]*PendingWrite[T]),
	}

	pool, err := ants.NewPool(cfg.FlushWorkers,
		ants.WithLogger(log),
		ants.WithPanicHandler(func(p any) {
			log.Error("write-behind worker panic", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, ErrPool.Wrap(err)
	}
	w.pool = pool

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(log.ForScheduler()))
	if err != nil {
		pool.Release()
		return nil, fmt.Errorf("create write-behind scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.FlushInterval),
		gocron.NewTask(func() {
			_ = w.flush(context.Background())
		}),
		gocron.WithName("write-behind-flush"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		pool.Release()
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("register write-behind flush job: %w", err)
	}
	scheduler.Start()
	w.scheduler = scheduler

	return w, nil
}

// Write updates the cache and queues data for writer.
func (w *WriteBehind[T]) Write(ctx context.Context, key string, data T, writer Writer[T], opts cache.Options) error {
	if writer == nil {
		return ErrNilCallback
	}
	logical, err := cache.LogicalKey(key, opts.Namespace)
	if err != nil {
		return err
	}

	w.gate.RLock()
	defer w.gate.RUnlock()
	if w.closed {
		return ErrClosed
	}

	kl := &w.keyLocks[xxhash.Sum64String(logical)%writeBehindStripes]
	kl.Lock()
	defer kl.Unlock()

	if err := cache.SetValue(ctx, w.cache, key, data, opts); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[logical] = &PendingWrite[T]{
		Key:        key,
		Namespace:  opts.Namespace,
		Value:      data,
		EnqueuedAt: time.Now(),
		writer:     writer,
	}
	return nil
}

// Pending counts queued writes.
func (w *WriteBehind[T]) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Snapshot copies the pending queue.
func (w *WriteBehind[T]) Snapshot() []PendingWrite[T] {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]PendingWrite[T], 0, len(w.pending))
	for _, pw := range w.pending {
		out = append(out, *pw)
	}
	return out
}

// Flush drains the queue now and waits for every writer.
func (w *WriteBehind[T]) Flush(ctx context.Context) error {
	return w.flush(ctx)
}

func (w *WriteBehind[T]) flush(ctx context.Context) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]*PendingWrite[T])
	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed = make(map[string]*PendingWrite[T])
		errs   []error
	)
	for logical, pw := range batch {
		task := func() {
			defer wg.Done()
			err := runWriter(ctx, pw)
			if err == nil {
				return
			}
			failMu.Lock()
			failed[logical] = pw
			errs = append(errs, fmt.Errorf("%s: %w", logical, err))
			failMu.Unlock()
		}

		wg.Add(1)
		if err := w.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	if len(failed) == 0 {
		w.logger.DebugCtx(ctx, "write-behind flushed", zap.Int("count", len(batch)))
		return nil
	}

	now := time.Now()
	w.mu.Lock()
	for logical, pw := range failed {
		if _, newer := w.pending[logical]; newer {
			continue
		}
		pw.Attempts++
		pw.EnqueuedAt = now
		w.pending[logical] = pw
	}
	w.mu.Unlock()

	err := errors.Join(errs...)
	w.logger.WarnCtx(ctx, "write-behind flush had failures",
		zap.Int("count", len(batch)),
		zap.Int("failed", len(failed)),
		zap.Error(err))
	return ErrWriteBehindFlush.Wrap(err)
}

func runWriter[T any](ctx context.Context, pw *PendingWrite[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("writer panic: %v", r)
		}
	}()
	_, err = pw.writer(ctx, pw.Value)
	return err
}

// Shutdown waits for in-flight writes, rejects new ones, stops the
// scheduler and drains once more. Writes that still fail stay queued and
// are reported in the error.
func (w *WriteBehind[T]) Shutdown(ctx context.Context) error {
	w.gate.Lock()
	if w.closed {
		w.gate.Unlock()
		return nil
	}
	w.closed = true
	w.gate.Unlock()

	if err := w.scheduler.Shutdown(); err != nil {
		w.logger.WarnCtx(ctx, "write-behind scheduler shutdown", zap.Error(err))
	}

	err := w.flush(ctx)
	w.pool.Release()

	if err != nil {
		w.logger.ErrorCtx(ctx, "write-behind final flush incomplete",
			zap.Int("pending", w.Pending()), zap.Error(err))
		return err
	}
	w.logger.InfoCtx(ctx, "write-behind stopped")
	return nil
}
