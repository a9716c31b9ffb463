package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	"go.uber.org/zap"

	"github.com/ChristianF88/realtyx/ingestor"
)

// maxCachedModels bounds the memo within one scope.
const maxCachedModels = 32

// Engine recomputes RenderModels off the caller's goroutine. Every Submit gets
// a sequence number; a result is delivered only if no newer one was delivered
// before it.
type Engine struct {
	ds      *ingestor.Dataset
	deliver func(RenderModel)
	logger  *zap.Logger

	seq  atomic.Uint64
	memo *haxmap.Map[string, RenderModel]

	// memoMu guards the memo's scope and insertion order. The memo only
	// holds models of memoScope; a new scope clears it.
	memoMu    sync.Mutex
	memoScope string
	memoOrder []string

	mu        sync.Mutex
	delivered uint64
	wg        sync.WaitGroup

	// compute is Run by default; tests replace it to control timing.
	compute func(ViewState) RenderModel
}

// NewEngine returns an Engine over ds calling deliver with fresh results.
// deliver runs on a worker goroutine and must not block for long.
func NewEngine(ds *ingestor.Dataset, deliver func(RenderModel), logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		ds:      ds,
		deliver: deliver,
		logger:  logger,
		memo:    haxmap.New[string, RenderModel](64),
	}
	e.compute = func(v ViewState) RenderModel { return RunDataset(e.ds, v) }
	return e
}

// Submit schedules v for computation and returns its sequence number.
func (e *Engine) Submit(v ViewState) uint64 {
	seq := e.seq.Add(1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(seq, v)
	}()
	return seq
}

// Latest returns the most recently assigned sequence number.
func (e *Engine) Latest() uint64 {
	return e.seq.Load()
}

// Wait blocks until every submitted computation has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Cached returns the number of memoized models.
func (e *Engine) Cached() int {
	return int(e.memo.Len())
}

func (e *Engine) run(seq uint64, v ViewState) {
	key := v.Fingerprint()
	model, hit := e.memo.Get(key)
	if !hit {
		start := time.Now()
		model = e.compute(v)
		e.remember(v.scope(), key, model)
		e.logger.Debug("view computed",
			zap.Uint64("seq", seq),
			zap.Int("groups", len(model.Groups)),
			zap.Int("filtered", model.Filtered),
			zap.Duration("took", time.Since(start)))
	}
	model.Seq = seq
	model.View = v

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq <= e.delivered {
		e.logger.Debug("stale result dropped", zap.Uint64("seq", seq), zap.Uint64("delivered", e.delivered))
		return
	}
	e.delivered = seq
	if e.deliver != nil {
		e.deliver(model)
	}
}

// remember memoizes model under key. Models of another scope are dropped and
// the oldest entry is evicted once maxCachedModels is reached.
func (e *Engine) remember(scope, key string, model RenderModel) {
	e.memoMu.Lock()
	defer e.memoMu.Unlock()

	if scope != e.memoScope {
		if len(e.memoOrder) > 0 {
			e.logger.Debug("memo cleared", zap.Int("entries", len(e.memoOrder)))
		}
		e.memo.Clear()
		e.memoOrder = e.memoOrder[:0]
		e.memoScope = scope
	}
	if _, ok := e.memo.Get(key); ok {
		return
	}
	if len(e.memoOrder) >= maxCachedModels {
		e.memo.Del(e.memoOrder[0])
		e.memoOrder = e.memoOrder[1:]
	}
	e.memo.Set(key, model)
	e.memoOrder = append(e.memoOrder, key)
}
