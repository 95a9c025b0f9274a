// Package workerpool runs a bounded number of error-returning jobs concurrently.
package workerpool

import (
	"fmt"
	"strings"
	"sync"
)

// MultiErr collects the errors of every failed job.
type MultiErr []error

func (m MultiErr) Error() string {
	msgs := make([]string, len(m))
	for i, err := range m {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d job(s) failed: %s", len(m), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (m MultiErr) Unwrap() []error {
	return m
}

// WorkerPool runs at most concurrency jobs at a time. A concurrency of zero
// or less means unbounded.
type WorkerPool struct {
	tickets chan struct{}
	wg      sync.WaitGroup

	mu   sync.Mutex
	errs MultiErr
}

// New returns a pool that runs at most concurrency jobs at once.
func New(concurrency int) *WorkerPool {
	w := &WorkerPool{}
	if concurrency > 0 {
		w.tickets = make(chan struct{}, concurrency)
	}
	return w
}

// Go schedules f, blocking while the pool is full.
func (w *WorkerPool) Go(f func() error) {
	if w.tickets != nil {
		w.tickets <- struct{}{}
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		err := f()
		if w.tickets != nil {
			<-w.tickets
		}
		if err != nil {
			w.mu.Lock()
			w.errs = append(w.errs, err)
			w.mu.Unlock()
		}
	}()
}

// Wait blocks until every scheduled job has returned and reports their errors
// as a MultiErr, or nil if all succeeded.
func (w *WorkerPool) Wait() error {
	w.wg.Wait()
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.errs) == 0 {
		return nil
	}
	return w.errs
}
