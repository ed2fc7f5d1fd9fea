package replicate

import (
	"context"
	"time"
)

// JobStatus is the lifecycle state reported by the job service.
type JobStatus string

const (
	StatusStarting   JobStatus = "starting"
	StatusProcessing JobStatus = "processing"
	StatusSucceeded  JobStatus = "succeeded"
	StatusFailed     JobStatus = "failed"
	StatusCanceled   JobStatus = "canceled"
)

// Terminal reports whether the job will not change status again.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Decision is the next step of the poll loop.
type Decision int

const (
	DecisionContinue Decision = iota
	DecisionSucceed
	DecisionFail
)

func (d Decision) String() string {
	switch d {
	case DecisionContinue:
		return "continue"
	case DecisionSucceed:
		return "succeed"
	case DecisionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Decide maps the latest status and the number of polls already issued to
// the next step. A non-terminal job fails once polls reaches maxAttempts.
func Decide(status JobStatus, polls int, maxAttempts int) Decision {
	switch status {
	case StatusSucceeded:
		return DecisionSucceed
	case StatusFailed, StatusCanceled:
		return DecisionFail
	}
	if polls >= maxAttempts {
		return DecisionFail
	}
	return DecisionContinue
}

// WaitFunc blocks between polls.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
