// Package downloader fetches artifact URLs (PDFs, result pages) into an
// artifact store using a bounded pool of workers.
package downloader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"socialfetch/pkg/httpclient"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/metrics"
	"socialfetch/pkg/ratelimit"
)

// Status is the outcome of one job
type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusExists     Status = "exists"
	StatusError      Status = "error"
)

// Job is a single download task
type Job struct {
	// Index is the job's position in the caller's list; results are matched back by it
	Index int
	URL   string
	// Name is the file name inside the artifact store
	Name string
}

// Result is the outcome of a download job
type Result struct {
	Job         Job
	Status      Status
	Error       error
	Duration    time.Duration
	Size        int64
	ContentType string
}

// Fetcher streams a URL into a save callback
type Fetcher interface {
	Download(ctx context.Context, url string, save httpclient.SaveFunc) (int64, error)
}

// Store persists artifacts
type Store interface {
	ShouldSkip(name string) bool
	Save(name string, r io.Reader) (int64, error)
}

// TypedStore is implemented by stores that treat content differently by media type
type TypedStore interface {
	SaveTyped(name string, r io.Reader, contentType string) (int64, error)
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     Fetcher
	store       Store
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewWorkerPool creates a pool bound to ctx. A nil limiter disables pacing.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	fetcher Fetcher,
	store Store,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	poolCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2), // Buffer size = 2x workers
		resultQueue: make(chan Result, numWorkers),
		ctx:         poolCtx,
		cancel:      cancel,
		fetcher:     fetcher,
		store:       store,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a job
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	defer func() {
		metrics.DownloadsTotal.WithLabelValues(string(result.Status)).Inc()
		logger.LogDownload(wp.logger.WithField("worker_id", workerID), job.URL, job.Name, string(result.Status), result.Error)
	}()

	if wp.store.ShouldSkip(job.Name) {
		result.Status = StatusExists
		result.Duration = time.Since(start)
		return result
	}

	if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
		result.Status = StatusError
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	n, err := wp.fetcher.Download(wp.ctx, job.URL, func(r io.Reader, contentType string) (int64, error) {
		result.ContentType = contentType
		if typed, ok := wp.store.(TypedStore); ok {
			return typed.SaveTyped(job.Name, r, contentType)
		}
		return wp.store.Save(job.Name, r)
	})
	result.Size = n
	result.Duration = time.Since(start)

	if err != nil {
		result.Status = StatusError
		result.Error = fmt.Errorf("download failed: %w", err)
		return result
	}

	result.Status = StatusDownloaded
	return result
}

// GetQueueSize returns the current number of jobs in the queue
func (wp *WorkerPool) GetQueueSize() int {
	return len(wp.jobQueue)
}

// Observer is told about each result as it arrives, in completion order
type Observer interface {
	Observe(r Result)
}

// BatchObserver also wants the job count before the first result
type BatchObserver interface {
	Observer
	Begin(total int)
}

// Run downloads every job and returns results in job order. Jobs that never
// ran because ctx was cancelled are reported as errors.
func Run(ctx context.Context, numWorkers int, fetcher Fetcher, store Store, limiter ratelimit.Limiter, log logger.Logger, jobs []Job) []Result {
	return RunObserved(ctx, numWorkers, fetcher, store, limiter, log, nil, jobs)
}

// RunObserved is Run with a progress observer; obs may be nil
func RunObserved(ctx context.Context, numWorkers int, fetcher Fetcher, store Store, limiter ratelimit.Limiter, log logger.Logger, obs Observer, jobs []Job) []Result {
	for i := range jobs {
		jobs[i].Index = i
	}
	if b, ok := obs.(BatchObserver); ok {
		b.Begin(len(jobs))
	}

	pool := NewWorkerPool(ctx, numWorkers, fetcher, store, limiter, log)
	pool.Start()

	go func() {
		for _, job := range jobs {
			if err := pool.Submit(job); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	results := make([]Result, len(jobs))
	seen := make([]bool, len(jobs))
	for r := range pool.Results() {
		results[r.Job.Index] = r
		seen[r.Job.Index] = true
		if obs != nil {
			obs.Observe(r)
		}
	}

	for i, ok := range seen {
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("job not processed")
			}
			results[i] = Result{Job: jobs[i], Status: StatusError, Error: err}
		}
	}
	return results
}

// Summary counts results by status
func Summary(results []Result) map[Status]int {
	counts := make(map[Status]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}
