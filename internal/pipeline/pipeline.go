// Package pipeline wires planner, range aggregator and merger into a single
// parallel pass over a file.
//
// A run moves through Planning, Dispatching, Awaiting and Merging to Done.
// Any failure moves it to Failed and no partial result is returned.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/miku/brcchunk/internal/brc"
	"github.com/miku/brcchunk/internal/chunk"
	"github.com/miku/brcchunk/internal/config"
	"github.com/miku/brcchunk/internal/merge"
	"github.com/miku/brcchunk/internal/scan"
)

// State is the phase a Runner is in.
type State int32

const (
	Idle State = iota
	Planning
	Dispatching
	Awaiting
	Merging
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Planning:
		return "planning"
	case Dispatching:
		return "dispatching"
	case Awaiting:
		return "awaiting"
	case Merging:
		return "merging"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Runner aggregates a file with a fixed number of workers. A Runner is meant
// for a single Run.
type Runner struct {
	workers   int
	chunkSize int64
	logger    *slog.Logger
	state     atomic.Int32
}

// New returns a runner for cfg. A nil logger discards all output.
func New(cfg config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		workers:   max(cfg.Workers, 1),
		chunkSize: int64(cfg.ChunkSize),
		logger:    logger,
	}
}

// State returns the current phase.
func (r *Runner) State() State { return State(r.state.Load()) }

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
	r.logger.Debug("state", "state", s.String())
}

// Run computes min, max and mean per key of the file at path. It blocks
// until all workers have finished. Cancelling ctx stops the run; mapped
// views and file handles are released before Run returns.
func (r *Runner) Run(ctx context.Context, path string) (brc.Result, error) {
	started := time.Now()
	result, err := r.run(ctx, path)
	if err != nil {
		r.setState(Failed)
		r.logger.Error("run failed", "path", path, "err", err)
		return nil, err
	}
	r.setState(Done)
	r.logger.Info("run done", "path", path, "keys", len(result), "elapsed", time.Since(started))
	return result, nil
}

func (r *Runner) run(ctx context.Context, path string) (brc.Result, error) {
	r.setState(Planning)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ranges, err := chunk.PlanFile(path, r.chunkSize)
	if err != nil {
		return nil, err
	}
	r.logger.Info("planned",
		"path", path,
		"size", humanize.Bytes(uint64(ranges[len(ranges)-1].End)),
		"chunks", len(ranges),
		"workers", min(r.workers, len(ranges)))
	partials, err := r.dispatch(ctx, path, ranges)
	if err != nil {
		return nil, err
	}
	r.setState(Merging)
	return merge.Merge(partials)
}

// dispatch aggregates every range and returns the partials in range order.
// The first failing worker cancels the others.
func (r *Runner) dispatch(ctx context.Context, path string, ranges []brc.Range) ([]brc.Partial, error) {
	r.setState(Dispatching)
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	var (
		queue    = make(chan int)
		partials = make([]brc.Partial, len(ranges))
		wg       sync.WaitGroup
	)
	for w := 0; w < min(r.workers, len(ranges)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.worker(ctx, path, ranges, queue, partials); err != nil {
				cancel(err)
			}
		}()
	}
feed:
	for i := range ranges {
		select {
		case queue <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	r.setState(Awaiting)
	wg.Wait()
	if err := context.Cause(ctx); err != nil {
		return nil, err
	}
	return partials, nil
}

// worker opens its own handle to the file and aggregates ranges from the
// queue until it is closed. Each index is written by exactly one worker.
func (r *Runner) worker(ctx context.Context, path string, ranges []brc.Range, queue <-chan int, partials []brc.Partial) error {
	f, err := os.Open(path)
	if err != nil {
		return &brc.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	for i := range queue {
		if ctx.Err() != nil {
			return nil
		}
		p, err := scan.Aggregate(f, i, ranges[i])
		if err != nil {
			return err
		}
		partials[i] = p
		r.logger.Debug("chunk done", "chunk", i, "range", ranges[i].String(), "keys", len(p))
	}
	return nil
}
