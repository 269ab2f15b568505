package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"theagentvikram/resumatch/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(resumeID uuid.UUID)
}

type WorkerOptions struct {
	Concurrency       int
	RetryInitialDelay time.Duration
	PollInterval      time.Duration
	StaleAfter        time.Duration
}

type worker struct {
	resumeRepo repositories.ResumeRepository
	indexer    Indexer
	queue      JobQueue
	opts       WorkerOptions
	wg         sync.WaitGroup
	stopChan   chan struct{}
	cancel     context.CancelFunc
	stopOnce   sync.Once
}

func NewWorker(
	resumeRepo repositories.ResumeRepository,
	indexer Indexer,
	queue JobQueue,
	opts WorkerOptions,
) Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.RetryInitialDelay <= 0 {
		opts.RetryInitialDelay = 2 * time.Second
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}

	return &worker{
		resumeRepo: resumeRepo,
		indexer:    indexer,
		queue:      queue,
		opts:       opts,
		stopChan:   make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	log.Printf("🚀 Starting worker with %d concurrent workers\n", w.opts.Concurrency)

	ctx, w.cancel = context.WithCancel(ctx)

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs(ctx)

	log.Println("✅ Worker started successfully")
}

// Stop implements Worker. In-flight jobs finish before it returns.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		log.Println("🛑 Stopping worker...")
		close(w.stopChan)
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
		log.Println("✅ Worker stopped")
	})
}

// EnqueueJob implements Worker.
func (w *worker) EnqueueJob(resumeID uuid.UUID) {
	select {
	case <-w.stopChan:
		log.Printf("⚠️  Worker stopped, cannot enqueue job %s\n", resumeID)
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.queue.Enqueue(ctx, resumeID); err != nil {
		// the poller picks queued résumés up later
		log.Printf("⚠️  Failed to enqueue job %s: %v\n", resumeID, err)
		return
	}
	log.Printf("📥 Job %s enqueued\n", resumeID)
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log.Printf("🚀 Worker %d started processing jobs\n", workerID)

	for {
		resumeID, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				log.Printf("👷 Worker #%d stopped\n", workerID)
				return
			}
			log.Printf("⚠️  Worker #%d failed to dequeue: %v\n", workerID, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		log.Printf("👷 Worker #%d processing job %s\n", workerID, resumeID)
		// a job already running finishes even if Stop is called
		err = w.indexer.IndexResume(context.WithoutCancel(ctx), resumeID)

		var retry *RetryableError
		switch {
		case err == nil:
			log.Printf("✅ Worker #%d completed job %s\n", workerID, resumeID)
		case errors.As(err, &retry):
			delay := w.opts.RetryInitialDelay * time.Duration(1<<(max(retry.Attempt, 1)-1))
			log.Printf("🔁 Worker #%d retrying job %s in %s\n", workerID, resumeID, delay)
			if err := w.queue.EnqueueAfter(ctx, resumeID, delay); err != nil {
				log.Printf("⚠️  Failed to schedule retry for %s: %v\n", resumeID, err)
			}
		default:
			log.Printf("❌ Worker #%d failed to process job %s: %v\n", workerID, resumeID, err)
		}
	}
}

func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	log.Println("🔄 Starting pending jobs poller")

	for {
		select {
		case <-w.stopChan:
			log.Println("🔄 Pending jobs poller stopped")
			return
		case <-ctx.Done():
			log.Println("🔄 Pending jobs poller stopped, context done")
			return
		case <-ticker.C:
			if moved, err := w.queue.PromoteDelayed(ctx); err != nil {
				log.Printf("⚠️  Failed to promote delayed jobs: %v\n", err)
			} else if moved > 0 {
				log.Printf("📋 Promoted %d delayed jobs\n", moved)
			}

			now := time.Now()
			pending, err := w.resumeRepo.FindPendingIndexing(ctx, now.Add(-w.opts.PollInterval), now.Add(-w.opts.StaleAfter), 10)
			if err != nil {
				log.Printf("⚠️  Failed to fetch pending jobs: %v\n", err)
				continue
			}

			if len(pending) > 0 {
				log.Printf("📋 Found %d pending jobs\n", len(pending))
			}

			for _, resume := range pending {
				w.EnqueueJob(resume.ID)
			}
		}
	}
}
