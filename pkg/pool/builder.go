package pool

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/AlvaroMS25/fast-pool/internal/logging"
	"github.com/AlvaroMS25/fast-pool/internal/shared"
	"github.com/AlvaroMS25/fast-pool/internal/stats"
	"github.com/AlvaroMS25/fast-pool/internal/task"
	"github.com/AlvaroMS25/fast-pool/internal/worker"
)

// Builder configures and then constructs a Pool, mirroring fast_pool's
// builder: a handful of fluent With* options feeding a single Build call.
type Builder struct {
	threads   int
	stackSize int
	name      string
	nameFunc  func(id int) string

	onStart func(id int)
	onStop  func(id int)
	before  func(id int)
	after   func(id int)

	logger   *zap.Logger
	observer task.Observer
}

// NewBuilder returns a Builder defaulting to 2x logical CPUs, per the
// PoolConfig default.
func NewBuilder() *Builder {
	return &Builder{threads: DefaultThreads()}
}

// DefaultThreads returns the default worker count used when a Builder or a
// config.Config does not specify one: 2x the current GOMAXPROCS value.
func DefaultThreads() int {
	return 2 * runtime.GOMAXPROCS(0)
}

// WithThreads sets how many worker goroutines the pool runs. n <= 0 is
// clamped to 1.
func (b *Builder) WithThreads(n int) *Builder {
	b.threads = n
	return b
}

// WithStackSize is accepted for parity with fast_pool's builder contract.
// Go's runtime grows goroutine stacks on demand and exposes no per-goroutine
// stack-size knob, so this value is stored but otherwise unused; see
// DESIGN.md for the Open Question this resolves.
func (b *Builder) WithStackSize(bytes int) *Builder {
	b.stackSize = bytes
	return b
}

// WithName sets a fixed name recorded against every worker. Mutually
// exclusive with WithNameFunc. Like WithStackSize, Go has no OS-level
// thread-naming facility for goroutines; the name is stored on the Pool but
// not otherwise used, and no log field carries it.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithNameFunc sets a per-worker naming function, keyed by worker index.
// Mutually exclusive with WithName.
func (b *Builder) WithNameFunc(fn func(id int) string) *Builder {
	b.nameFunc = fn
	return b
}

// WithOnStart registers a hook run once by each worker goroutine before it
// begins waiting for tasks.
func (b *Builder) WithOnStart(fn func(id int)) *Builder {
	b.onStart = fn
	return b
}

// WithOnStop registers a hook run once by each worker goroutine as it
// returns from its loop.
func (b *Builder) WithOnStop(fn func(id int)) *Builder {
	b.onStop = fn
	return b
}

// WithBefore registers a hook run by a worker immediately before every task
// it executes. Panics in this hook are not recovered.
func (b *Builder) WithBefore(fn func(id int)) *Builder {
	b.before = fn
	return b
}

// WithAfter registers a hook run by a worker immediately after every task
// it executes. Panics in this hook are not recovered.
func (b *Builder) WithAfter(fn func(id int)) *Builder {
	b.after = fn
	return b
}

// WithLogger attaches a structured logger; defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetrics installs a task.Observer (typically a *metrics.Collector) that
// is notified of every task's dispatch, completion, panic, and periodic-run
// outcome. A *metrics.Collector already satisfies task.Observer directly.
// Since the observer is a single package-level hook in internal/task, only
// one pool per process should be built with metrics enabled at a time.
func (b *Builder) WithMetrics(o task.Observer) *Builder {
	b.observer = o
	return b
}

// Build starts the configured worker goroutines and returns the running
// Pool.
func (b *Builder) Build() (*Pool, error) {
	if b.name != "" && b.nameFunc != nil {
		return nil, ErrNameConflict
	}

	threads := b.threads
	if threads <= 0 {
		threads = 1
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Nop()
	}

	if b.observer != nil {
		task.SetObserver(b.observer)
	}

	sh := shared.New()
	st := stats.New()
	p := &Pool{
		sh:        sh,
		stats:     st,
		logger:    logger,
		stackSize: b.stackSize,
		name:      b.name,
		nameFunc:  b.nameFunc,
	}

	userBefore, userAfter := b.before, b.after
	hooks := worker.Hooks{
		OnStart: b.onStart,
		OnStop:  b.onStop,
		Before: func(id int) {
			st.RecordDispatchStart()
			if userBefore != nil {
				userBefore(id)
			}
		},
		After: func(id int) {
			st.RecordDispatchEnd()
			if userAfter != nil {
				userAfter(id)
			}
		},
	}

	p.wg = &sync.WaitGroup{}
	p.wg.Add(threads)
	for i := 0; i < threads; i++ {
		w := worker.New(i, sh, hooks, logger)
		go func() {
			defer p.wg.Done()
			w.Run()
		}()
	}

	return p, nil
}
