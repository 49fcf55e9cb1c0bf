package batch

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/raymyers/qualcheck/pkg/qualconv"
)

// Result pairs a check with its verdict
type Result struct {
	Check   Check
	Verdict qualconv.Verdict
}

// Mismatch reports whether the check carried an expectation that failed
func (r Result) Mismatch() bool {
	return r.Check.Expect != nil && *r.Check.Expect != r.Verdict.Convertible
}

// Runner evaluates checks on a fixed pool of goroutines
type Runner struct {
	Workers int          // defaults to runtime.NumCPU()
	Logger  *slog.Logger // defaults to discarding everything
}

// Run evaluates every check and returns the results in input order. It stops
// handing out work once ctx is done and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, checks []Check) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(len(checks), 1))

	results := make([]Result, len(checks))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := checks[i]
				v := qualconv.Explain(c.From, c.To)
				results[i] = Result{Check: c, Verdict: v}
				logger.Debug("check",
					"index", i,
					"name", c.Name,
					"from", c.From,
					"to", c.To,
					"convertible", v.Convertible,
					"reason", v.Reason.String())
			}
		}()
	}

	var err error
dispatch:
	for i := range checks {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	logger.Debug("batch done", "checks", len(checks), "workers", workers)
	return results, nil
}
