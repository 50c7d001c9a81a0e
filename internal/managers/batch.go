package managers

import (
	"context"
	"fmt"
	"strings"
)

// BatchStatus represents result of single batch item.
type BatchStatus int

const (
	BatchSucceeded BatchStatus = iota
	BatchFailed
	// BatchSkipped means item was not attempted.
	BatchSkipped
)

func (s BatchStatus) String() string {
	switch s {
	case BatchSucceeded:
		return "succeeded"
	case BatchFailed:
		return "failed"
	case BatchSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// BatchResult represents result of single batch item.
type BatchResult struct {
	ID     string
	Status BatchStatus
	Err    error
}

// BatchResults contains one result per batch item in original order.
type BatchResults []BatchResult

// Succeeded returns amount of succeeded items.
func (r BatchResults) Succeeded() int {
	return r.count(BatchSucceeded)
}

// Failed returns amount of failed items.
func (r BatchResults) Failed() int {
	return r.count(BatchFailed)
}

// Skipped returns amount of skipped items.
func (r BatchResults) Skipped() int {
	return r.count(BatchSkipped)
}

func (r BatchResults) count(status BatchStatus) int {
	n := 0
	for _, result := range r {
		if result.Status == status {
			n++
		}
	}
	return n
}

// Err returns BatchError if any item was not succeeded.
func (r BatchResults) Err() error {
	if r.Succeeded() == len(r) {
		return nil
	}
	return &BatchError{Results: r}
}

// BatchError represents partially applied batch.
//
// Already applied items are not rolled back.
type BatchError struct {
	Results BatchResults
}

func (e *BatchError) Error() string {
	var failures []string
	for _, result := range e.Results {
		if result.Status == BatchFailed {
			failures = append(failures, fmt.Sprintf(
				"%s: %s", result.ID, ErrorMessage(result.Err, result.Err.Error()),
			))
		}
	}
	message := fmt.Sprintf(
		"%d of %d operations succeeded",
		e.Results.Succeeded(), len(e.Results),
	)
	if skipped := e.Results.Skipped(); skipped > 0 {
		message += fmt.Sprintf(", %d skipped", skipped)
	}
	if len(failures) > 0 {
		message += " (" + strings.Join(failures, "; ") + ")"
	}
	return message
}

type batchOptions struct {
	continueOnError bool
}

type BatchOption func(*batchOptions)

// ContinueOnError makes batch attempt all items after failure.
func ContinueOnError() BatchOption {
	return func(o *batchOptions) {
		o.continueOnError = true
	}
}

// RunBatch sequentially calls fn for every id.
//
// By default batch stops at first failure and remaining items are
// reported as skipped. Canceled context skips remaining items.
func RunBatch(
	ctx context.Context, ids []string,
	fn func(ctx context.Context, id string) error,
	options ...BatchOption,
) BatchResults {
	var opts batchOptions
	for _, option := range options {
		option(&opts)
	}
	results := make(BatchResults, len(ids))
	stopped := false
	for i, id := range ids {
		results[i].ID = id
		if stopped {
			results[i].Status = BatchSkipped
			continue
		}
		if err := ctx.Err(); err != nil {
			results[i].Status, results[i].Err = BatchSkipped, err
			stopped = true
			continue
		}
		if err := fn(ctx, id); err != nil {
			results[i].Status, results[i].Err = BatchFailed, err
			stopped = !opts.continueOnError
			continue
		}
		results[i].Status = BatchSucceeded
	}
	return results
}
