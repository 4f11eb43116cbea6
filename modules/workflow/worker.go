package workflow

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"product-imagery-server/modules/common/redisqueue"
	"product-imagery-server/modules/progress"
)

// Job - one queued generation request. Exactly one of ProductID, Tranche,
// or Class should be set; Limit bounds tranche/class batches (0 = all).
type Job struct {
	JobID      string `json:"job_id"`
	ProductID  string `json:"product_id,omitempty"`
	Tranche    string `json:"tranche,omitempty"`
	Class      string `json:"class,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	SkipVision bool   `json:"skip_vision,omitempty"`
}

// Worker - blocking consumer of the generation job queue.
type Worker struct {
	rdb          *redis.Client
	orchestrator *Orchestrator
	hub          *progress.Hub
}

// NewWorker - queue worker bound to an orchestrator.
func NewWorker(rdb *redis.Client, orchestrator *Orchestrator, hub *progress.Hub) *Worker {
	return &Worker{rdb: rdb, orchestrator: orchestrator, hub: hub}
}

// Enqueue - push a job onto the queue.
func (w *Worker) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return w.rdb.LPush(ctx, redisqueue.JobQueue, payload).Err()
}

// QueueDepth - number of jobs waiting.
func (w *Worker) QueueDepth(ctx context.Context) int64 {
	depth, err := w.rdb.LLen(ctx, redisqueue.JobQueue).Result()
	if err != nil {
		return 0
	}
	return depth
}

// Run - BRPOP loop. Blocks until ctx is cancelled; run it in a goroutine.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("🚀 Queue worker started on %s", redisqueue.JobQueue)

	for {
		if err := ctx.Err(); err != nil {
			log.Printf("📤 Queue worker stopping: %v", err)
			return
		}

		result, err := w.rdb.BRPop(ctx, 5*time.Second, redisqueue.JobQueue).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("❌ Queue pop failed: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("❌ Dropping malformed job payload: %v", err)
			continue
		}

		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	log.Printf("🔍 Processing job %s (product: %q, tranche: %q, class: %q)", job.JobID, job.ProductID, job.Tranche, job.Class)
	w.publish(progress.Event{Type: "job_started", JobID: job.JobID, ProductID: job.ProductID, Tranche: job.Tranche})

	opts := Options{SkipVerification: job.SkipVision}

	switch {
	case job.ProductID != "":
		if _, err := w.orchestrator.Run(ctx, job.ProductID, opts); err != nil {
			log.Printf("❌ Job %s failed: %v", job.JobID, err)
			w.publish(progress.Event{Type: "job_failed", JobID: job.JobID, ProductID: job.ProductID, Error: err.Error()})
			return
		}

	case job.Tranche != "":
		batch := w.orchestrator.RunByTranche(ctx, job.Tranche, job.Limit, opts)
		w.publish(progress.Event{Type: "job_batch_done", JobID: job.JobID, Tranche: job.Tranche, Completed: batch.Succeeded, Total: batch.Requested})

	case job.Class != "":
		batch := w.orchestrator.RunByClass(ctx, job.Class, job.Limit, opts)
		w.publish(progress.Event{Type: "job_batch_done", JobID: job.JobID, Completed: batch.Succeeded, Total: batch.Requested})

	default:
		log.Printf("⚠️  Job %s names no product, tranche, or class; dropping", job.JobID)
		return
	}

	w.publish(progress.Event{Type: "job_completed", JobID: job.JobID, ProductID: job.ProductID, Tranche: job.Tranche})
}

func (w *Worker) publish(event progress.Event) {
	if w.hub != nil {
		w.hub.Publish(event)
	}
}
