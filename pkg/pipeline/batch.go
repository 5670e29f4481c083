package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// ErrDuplicateOutput fails a job whose output path an earlier job in the
// same batch already writes.
var ErrDuplicateOutput = errors.New("output path already used in this batch")

// Job is one input/output pair of a batch.
type Job struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// BatchResult is the outcome of one Job.
type BatchResult struct {
	Job    Job     `json:"job"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// RunBatch runs jobs on up to workers goroutines. A failing job does not
// stop the others. Results come back in job order; progress, if set, is
// called once per finished job from one goroutine at a time. A job that
// would overwrite an earlier job's output fails with ErrDuplicateOutput
// without running.
func (p *Pipeline) RunBatch(ctx context.Context, jobs []Job, workers int, progress func(BatchResult)) []BatchResult {
	results := make([]BatchResult, len(jobs))
	pending := make([]int, 0, len(jobs))
	claimed := make(map[string]int, len(jobs))
	for i, job := range jobs {
		key := filepath.Clean(job.Output)
		if first, ok := claimed[key]; ok {
			results[i] = BatchResult{Job: job, Err: fmt.Errorf("%w: %s is also the output of %s",
				ErrDuplicateOutput, job.Output, jobs[first].Input)}
			if progress != nil {
				progress(results[i])
			}
			continue
		}
		claimed[key] = i
		pending = append(pending, i)
	}

	if workers <= 0 {
		workers = 1
	}
	if workers > len(pending) {
		workers = len(pending)
	}

	queue := make(chan int)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				job := jobs[i]
				res, err := p.Run(ctx, job.Input, job.Output)
				results[i] = BatchResult{Job: job, Result: res, Err: err}
				if progress != nil {
					mu.Lock()
					progress(results[i])
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for n, i := range pending {
		select {
		case queue <- i:
		case <-ctx.Done():
			for _, j := range pending[n:] {
				results[j] = BatchResult{Job: jobs[j], Err: ctx.Err()}
			}
			break feed
		}
	}
	close(queue)
	wg.Wait()
	return results
}
