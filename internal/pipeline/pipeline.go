package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/codelens/internal/aggregate"
	"github.com/dshills/codelens/internal/analysis"
	"github.com/dshills/codelens/internal/logging"
	"github.com/dshills/codelens/internal/redact"
	"github.com/dshills/codelens/internal/source"
)

// Analyzer produces the outcome of one (file, kind) analysis.
type Analyzer interface {
	Analyze(ctx context.Context, unit source.Unit, kind analysis.Kind) analysis.Outcome
}

// Options configures a Pipeline.
type Options struct {
	Kinds       []analysis.Kind
	Concurrency int
	Redactor    *redact.Redactor
	Logger      hclog.Logger
}

// Pipeline schedules analyses over a set of source units.
type Pipeline struct {
	analyzer    Analyzer
	kinds       []analysis.Kind
	concurrency int
	redactor    *redact.Redactor
	logger      hclog.Logger
}

// New creates a Pipeline. Without kinds, security and quality are analyzed.
func New(a Analyzer, opts Options) *Pipeline {
	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = []analysis.Kind{analysis.KindSecurity, analysis.KindQuality}
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		analyzer:    a,
		kinds:       kinds,
		concurrency: concurrency,
		redactor:    opts.Redactor,
		logger:      logger,
	}
}

type job struct {
	index int
	unit  source.Unit
	kind  analysis.Kind
}

type outcome struct {
	path    string
	kind    analysis.Kind
	outcome analysis.Outcome
}

// Run analyzes every unit with every configured kind. If ctx is cancelled,
// jobs already started finish, no new job starts, and the partial results
// are returned together with the context error.
func (p *Pipeline) Run(ctx context.Context, units []source.Unit) (aggregate.Results, error) {
	jobs := make([]job, 0, len(units)*len(p.kinds))
	for _, u := range units {
		redacted, n := p.redactor.Unit(u)
		if n > 0 {
			p.logger.Info("redacted content before analysis", "path", u.Path, "redactions", n)
		}
		for _, k := range p.kinds {
			jobs = append(jobs, job{index: len(jobs), unit: redacted, kind: k})
		}
	}
	total := len(jobs)

	queue := make(chan job)
	out := make(chan outcome)

	var wg sync.WaitGroup
	for w := 0; w < p.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				if ctx.Err() != nil {
					continue
				}
				p.logger.Info("analyzing", "path", j.unit.Path, "kind", string(j.kind), "job", j.index+1, "of", total)
				out <- outcome{
					path:    j.unit.Path,
					kind:    j.kind,
					outcome: p.analyzer.Analyze(ctx, j.unit, j.kind),
				}
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, j := range jobs {
			if ctx.Err() != nil {
				return
			}
			select {
			case queue <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := aggregate.Results{}
	var recordErr error
	for o := range out {
		next, err := aggregate.Record(results, o.path, o.kind, o.outcome)
		if err != nil {
			if recordErr == nil {
				recordErr = fmt.Errorf("recording outcome: %w", err)
			}
			continue
		}
		results = next
	}

	if recordErr != nil {
		return results, recordErr
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
