package scheduler

import (
	"context"
	"sync"

	"github.com/jmylchreest/camvault/internal/models"
)

// CancelRegistry tracks the context.CancelFunc for every job currently
// executing in this process, grounded on spec.md §9's framing of the
// job-cancel registry as the only process-wide mutable state besides
// internal/libctx's open-library slot.
//
// A running job is cancelled by calling its context's CancelFunc, which
// unblocks any context-aware work inside the handler (copy loops, ffprobe
// invocations, rescan walks) and lets Executor.Execute observe ctx.Err()
// and mark the job failed through the normal error path. A
// pending (not yet acquired) job has no entry here and is cancelled
// directly by the caller via JobRepository.Update with MarkCancelled.
type CancelRegistry struct {
	mu      sync.Mutex
	cancels map[models.ULID]context.CancelFunc
}

// NewCancelRegistry creates an empty registry.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{cancels: make(map[models.ULID]context.CancelFunc)}
}

// Register records the cancel func for a job that is about to run and
// returns a release func the caller must defer to remove the entry once
// the job finishes.
func (r *CancelRegistry) Register(jobID models.ULID, cancel context.CancelFunc) (release func()) {
	r.mu.Lock()
	r.cancels[jobID] = cancel
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.cancels, jobID)
		r.mu.Unlock()
	}
}

// Cancel requests cancellation of a running job's context. It returns
// false if no job with that ID is currently registered as running, in
// which case the caller should fall back to cancelling a pending job
// directly through the job repository.
func (r *CancelRegistry) Cancel(jobID models.ULID) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[jobID]
	r.mu.Unlock()

	if !ok {
		return false
	}
	cancel()
	return true
}

// IsRunning reports whether jobID is currently registered as executing.
func (r *CancelRegistry) IsRunning(jobID models.ULID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cancels[jobID]
	return ok
}
