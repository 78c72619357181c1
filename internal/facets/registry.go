package facets

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultMaxAttempts = 3
	defaultTimeout     = 30 * time.Second
)

// Loader fetches facets whose options live on the remote site. Returned facets
// replace base facets with the same key; unknown keys are appended.
type Loader func(ctx context.Context) ([]Facet, error)

type Options struct {
	Name        string
	MaxAttempts int
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Registry serves a facet list that may be upgraded once remote options arrive.
// Describe never blocks. Population runs on one background goroutine at a time
// and gives up after MaxAttempts failures until Invalidate grants a new budget.
type Registry struct {
	name    string
	base    []Facet
	loader  Loader
	timeout time.Duration
	logger  *slog.Logger
	budget  int64

	live     atomic.Pointer[[]Facet]
	stale    atomic.Bool
	inFlight atomic.Bool
	attempts atomic.Int64
	limit    atomic.Int64
	wg       sync.WaitGroup
}

func NewRegistry(base []Facet, loader Loader, opts Options) *Registry {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		name:    opts.Name,
		base:    append([]Facet(nil), base...),
		loader:  loader,
		timeout: timeout,
		logger:  logger,
		budget:  int64(maxAttempts),
	}
	r.limit.Store(int64(maxAttempts))
	return r
}

// Describe returns the live facets when population succeeded and the base set
// (static defaults and placeholders) otherwise.
func (r *Registry) Describe() []Facet {
	if live := r.live.Load(); live != nil {
		return append([]Facet(nil), (*live)...)
	}
	return append([]Facet(nil), r.base...)
}

// TriggerPopulate starts a background fetch and reports whether it did. It is a
// no-op while another fetch runs, after success, and once the attempt budget is
// spent.
func (r *Registry) TriggerPopulate() bool {
	if r.loader == nil {
		return false
	}
	if r.live.Load() != nil && !r.stale.Load() {
		return false
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		return false
	}
	if r.attempts.Load() >= r.limit.Load() {
		r.inFlight.Store(false)
		return false
	}
	attempt := r.attempts.Add(1)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.inFlight.Store(false)
		r.populate(attempt)
	}()
	return true
}

func (r *Registry) populate(attempt int64) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	loaded, err := r.loader(ctx)
	if err != nil {
		r.logger.Debug("filter populate failed", "connector", r.name, "attempt", attempt, "error", err)
		return
	}

	merged := merge(r.base, loaded)
	r.live.Store(&merged)
	r.stale.Store(false)
	r.logger.Debug("filters populated", "connector", r.name, "attempt", attempt, "facets", len(merged))
}

// Invalidate marks the current options stale and grants a fresh attempt budget.
// Live options keep being served until a new fetch succeeds.
func (r *Registry) Invalidate() {
	r.stale.Store(true)
	r.limit.Store(r.attempts.Load() + r.budget)
}

// Attempts is the number of fetches started so far. It never decreases.
func (r *Registry) Attempts() int {
	return int(r.attempts.Load())
}

func (r *Registry) Populated() bool {
	return r.live.Load() != nil
}

// Wait blocks until in-flight fetches finish.
func (r *Registry) Wait() {
	r.wg.Wait()
}

func merge(base []Facet, loaded []Facet) []Facet {
	byKey := make(map[string]Facet, len(loaded))
	for _, facet := range loaded {
		byKey[facet.Key] = facet
	}

	merged := make([]Facet, 0, len(base)+len(loaded))
	used := make(map[string]bool, len(loaded))
	for _, facet := range base {
		if replacement, ok := byKey[facet.Key]; ok {
			merged = append(merged, replacement)
			used[facet.Key] = true
			continue
		}
		merged = append(merged, facet)
	}
	for _, facet := range loaded {
		if !used[facet.Key] {
			merged = append(merged, facet)
			used[facet.Key] = true
		}
	}
	return merged
}
