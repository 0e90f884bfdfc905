package arbor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jward/arbor/internal/analysis"
)

// ErrAnalysisPanic wraps a panic recovered while analyzing one file.
var ErrAnalysisPanic = errors.New("arbor: analysis panicked")

// Analyze returns one FileAnalysis per distinct path, ordered by path. It
// runs as a three-phase pipeline:
//
//	Phase A (serial):   Sort, dedupe and look up cached analyses.
//	Phase B (parallel): Analyze the remaining files on a bounded pool.
//	Phase C (serial):   Save fresh analyses to the cache.
//
// Cancellation is checked before each file starts; a started analysis
// always completes. The int result counts cache hits.
func (e *Engine) Analyze(ctx context.Context, files []SourceFile) ([]*FileAnalysis, int, error) {
	files = uniqueByPath(files)
	results := make([]*FileAnalysis, len(files))
	prog := newProgress(e.progress, len(files))

	// ---- Phase A: Serial cache lookup ----
	var pending []int
	cached := 0
	for i := range files {
		if fa := e.cachedAnalysis(files[i]); fa != nil {
			results[i] = fa
			cached++
			prog.done(fa.Path)
			continue
		}
		pending = append(pending, i)
	}

	// ---- Phase B: Parallel analysis ----
	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, i := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = e.analyzeFile(files[i])
			prog.done(files[i].Path)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, cached, fmt.Errorf("arbor: analyze: %w", err)
	}

	// ---- Phase C: Serial cache save ----
	if e.store != nil && len(pending) > 0 {
		fresh := make([]*FileAnalysis, 0, len(pending))
		for _, i := range pending {
			fresh = append(fresh, results[i])
		}
		if err := e.store.SaveAnalyses(fresh, e.queryHash); err != nil {
			e.log.WithError(err).Warn("cache save failed")
		}
	}

	return results, cached, nil
}

// analyzeFile converts a panic into that file's failed analysis.
func (e *Engine) analyzeFile(src SourceFile) (fa *FileAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			fa = analysis.Failed(src, fmt.Errorf("%w: %v", ErrAnalysisPanic, r))
		}
	}()
	return e.analyzer.Analyze(src)
}

func (e *Engine) cachedAnalysis(src SourceFile) *FileAnalysis {
	if e.store == nil {
		return nil
	}
	fa, ok, err := e.store.LoadAnalysis(src.Path, src.Hash, e.queryHash)
	if err != nil {
		e.log.WithError(err).WithField("file", src.Path).Debug("cache lookup failed")
		return nil
	}
	if !ok || fa.Language != src.Language {
		return nil
	}
	return fa
}

// uniqueByPath sorts files by path and keeps the first entry per path.
// Hashes are recomputed from content so a missing or stale caller-supplied
// hash can never select a cached analysis of different bytes.
func uniqueByPath(files []SourceFile) []SourceFile {
	sorted := make([]SourceFile, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	out := sorted[:0]
	for _, f := range sorted {
		if len(out) > 0 && f.Path == out[len(out)-1].Path {
			continue
		}
		f.Hash = analysis.ContentHash(f.Content)
		out = append(out, f)
	}
	return out
}

type progress struct {
	mu    sync.Mutex
	fn    ProgressFunc
	total int
	n     int
}

func newProgress(fn ProgressFunc, total int) *progress {
	return &progress{fn: fn, total: total}
}

func (p *progress) done(path string) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	p.fn(p.n, p.total, path)
}
