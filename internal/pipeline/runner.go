// Package pipeline shortens many genes concurrently and emits the results in
// input order.
package pipeline

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-isoforms/internal/duckdb"
	"github.com/inodb/vibe-isoforms/internal/shorten"
	"github.com/inodb/vibe-isoforms/internal/table"
)

// Result holds the rescaled table of one gene.
type Result struct {
	Seq    int
	Gene   string
	Table  *table.Table
	Cached bool
	Err    error
}

// Runner shortens gene tables with a bounded pool of workers.
type Runner struct {
	opts    shorten.Options
	workers int
	logger  *zap.Logger

	store   *duckdb.Store
	storeMu sync.Mutex
}

// NewRunner creates a runner. If workers is 0, runtime.NumCPU() is used.
func NewRunner(opts shorten.Options, workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		opts:    opts,
		workers: workers,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger passed on to every shortener.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// SetCache enables the rescaled-table cache. Entries are keyed by the
// content of each gene table and the shortening options.
func (r *Runner) SetCache(store *duckdb.Store) {
	r.store = store
}

// Run shortens every group. Results are sent to the returned channel in
// arrival order; use OrderedCollect to consume them in input order. Failures
// of individual genes are reported in Result.Err. The channel is closed once
// all groups are done or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, groups []table.Group) <-chan Result {
	results := make(chan Result, 2*r.workers)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	go func() {
		defer close(results)
		for i, grp := range groups {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				res := r.shortenGene(grp)
				res.Seq = i
				select {
				case results <- res:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}
		if err := g.Wait(); err != nil {
			r.logger.Debug("run cancelled", zap.Error(err))
		}
	}()

	return results
}

func (r *Runner) shortenGene(grp table.Group) Result {
	res := Result{Gene: grp.Key}
	log := r.logger.With(zap.String("gene", grp.Key))

	var key string
	if r.store != nil {
		key = duckdb.CacheKey{
			Content:            duckdb.TableDigest(grp.Table),
			Gene:               grp.Key,
			TranscriptIDColumn: r.opts.TranscriptIDColumn,
			TargetGapWidth:     r.opts.TargetGapWidth,
		}.String()

		t, ok, err := r.store.LookupRescaled(key)
		if err != nil {
			log.Warn("cache lookup failed", zap.Error(err))
		} else if ok {
			log.Debug("cache hit", zap.String("key", key))
			res.Table, res.Cached = t, true
			return res
		}
	}

	s := shorten.NewShortener(r.opts)
	s.SetLogger(log)
	res.Table, res.Err = s.Shorten(grp.Table)
	if res.Err != nil || r.store == nil {
		return res
	}

	// Concurrent appends to rescaled_features conflict.
	r.storeMu.Lock()
	defer r.storeMu.Unlock()
	if err := r.store.WriteRescaled(key, grp.Key, r.opts.TranscriptIDColumn, res.Table); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}
	return res
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan Result, fn func(Result) error) error {
	pending := make(map[int]Result)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
