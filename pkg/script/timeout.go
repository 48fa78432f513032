package script

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/tessera/pkg/job"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when an evaluation runs past its timeout.
	ErrTimeout = errors.New("script: evaluation timed out")
	// ErrSuperseded is returned when a newer evaluation started while
	// this one was running.
	ErrSuperseded = errors.New("script: evaluation superseded by newer request")
)

type evalResult struct {
	job    *job.Job
	errors []EvalError
	err    error
}

// waitWithTimeout returns the result from ch unless timeout elapses
// first or a newer evaluation has started since gen was issued. A timed
// out goroutine keeps running; its late result is dropped with ch.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	timeout time.Duration,
	mu *sync.Mutex,
	currentGen *uint64,
) (*job.Job, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()
		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.job, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
