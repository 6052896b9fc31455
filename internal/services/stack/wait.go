package stack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/domain"
)

const (
	// eventSkew widens the event window to tolerate clock drift between
	// this machine and the engine.
	eventSkew = time.Minute

	// eventPageSize is how many recent events each poll inspects.
	eventPageSize = 25
)

// Progress is one observation made while waiting.
type Progress struct {
	Stack *domain.Stack
	// Events are the events not seen before, oldest first.
	Events []domain.StackEvent
}

// Observer receives progress while an operation is awaited.
type Observer func(Progress)

// TextObserver prints status transitions and new events to w.
func TextObserver(w io.Writer) Observer {
	var lastStatus string
	return func(p Progress) {
		for _, e := range p.Events {
			line := fmt.Sprintf("  %s  %-20s %s", e.Timestamp.Local().Format("15:04:05"), e.LogicalID, e.Status)
			if e.Reason != "" {
				line += "  " + e.Reason
			}
			fmt.Fprintln(w, line)
		}
		if p.Stack != nil && p.Stack.Status != lastStatus {
			lastStatus = p.Stack.Status
			fmt.Fprintf(w, "  Status: %s\n", lastStatus)
		}
	}
}

// Await polls the stack until op settles, reporting progress to observe.
// It returns the final stack (nil once a deleted stack is gone).
//
// A failed or rolled-back operation returns an error wrapping
// domain.ErrStackFailed carrying the first failure reason. Exceeding the
// configured timeout returns an error wrapping domain.ErrTimeout. When ctx
// is cancelled the record stays pending so the wait can be resumed.
func (s *Service) Await(ctx context.Context, op *Operation, observe Observer) (*domain.Stack, error) {
	stack, err := s.await(ctx, op, observe)
	if errors.Is(err, context.Canceled) {
		return stack, err
	}

	status := ""
	if stack != nil {
		status = stack.Status
	} else if err == nil {
		status = domain.StatusDeleteComplete
	}
	s.finalize(op.Record, status, err)
	return stack, err
}

func (s *Service) await(ctx context.Context, op *Operation, observe Observer) (*domain.Stack, error) {
	timeout := s.timeouts.Deploy
	if op.Kind == domain.OperationDelete {
		timeout = s.timeouts.Delete
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// A deleted stack can only be described by its ID.
	ident := op.StackName
	if op.StackID != "" {
		ident = op.StackID
	}

	seen := make(map[string]struct{})
	since := op.StartedAt.Add(-eventSkew)
	var consecutiveErrors int

	for {
		stack, err := s.provider.GetStack(waitCtx, ident)
		switch {
		case err == nil:
			consecutiveErrors = 0
		case op.Kind == domain.OperationDelete && errors.Is(err, domain.ErrNotFound):
			return nil, nil
		case waitCtx.Err() != nil:
			return nil, waitError(ctx, waitCtx, op, timeout)
		case errors.Is(err, domain.ErrRateLimited), errors.Is(err, domain.ErrUnauthorized):
			return nil, fmt.Errorf("polling stopped: %w", err)
		default:
			consecutiveErrors++
			if consecutiveErrors >= MaxTransientErrors {
				return nil, fmt.Errorf("error polling stack status (after %d consecutive failures): %w", consecutiveErrors, err)
			}
		}

		if stack != nil {
			events := s.newEvents(waitCtx, ident, since, seen)
			if observe != nil {
				observe(Progress{Stack: stack, Events: events})
			}

			if !stack.IsInProgress() {
				return stack, s.outcome(waitCtx, op, ident, since, stack)
			}
		}

		select {
		case <-waitCtx.Done():
			return stack, waitError(ctx, waitCtx, op, timeout)
		case <-time.After(s.timeouts.PollInterval):
		}
	}
}

// outcome classifies a settled stack.
func (s *Service) outcome(ctx context.Context, op *Operation, ident string, since time.Time, stack *domain.Stack) error {
	failed := stack.IsFailed()
	if op.Kind == domain.OperationDelete {
		failed = stack.Status != domain.StatusDeleteComplete
	}
	if !failed {
		return nil
	}

	reason := s.firstFailure(ctx, ident, since)
	if reason == "" {
		reason = stack.StatusReason
	}
	if reason == "" {
		return fmt.Errorf("stack %s is %s: %w", op.StackName, stack.Status, domain.ErrStackFailed)
	}
	return fmt.Errorf("stack %s is %s: %w: %s", op.StackName, stack.Status, domain.ErrStackFailed, reason)
}

// newEvents returns unseen events after since, oldest first. Event errors
// are ignored; the status poll is authoritative.
func (s *Service) newEvents(ctx context.Context, ident string, since time.Time, seen map[string]struct{}) []domain.StackEvent {
	events, err := s.provider.ListStackEvents(ctx, ident, eventPageSize)
	if err != nil {
		return nil
	}

	var fresh []domain.StackEvent
	for _, e := range events {
		if e.Timestamp.Before(since) {
			continue
		}
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		fresh = append(fresh, e)
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Timestamp.Before(fresh[j].Timestamp)
	})
	return fresh
}

// firstFailure returns the reason of the earliest failed resource event
// after since. Cancellations caused by another failure are skipped.
func (s *Service) firstFailure(ctx context.Context, ident string, since time.Time) string {
	events, err := s.provider.ListStackEvents(ctx, ident, 100)
	if err != nil {
		return ""
	}

	var first *domain.StackEvent
	for i := range events {
		e := &events[i]
		if !e.IsFailure() || e.Timestamp.Before(since) || isCancellation(e.Reason) {
			continue
		}
		if first == nil || e.Timestamp.Before(first.Timestamp) {
			first = e
		}
	}
	if first == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s): %s", first.LogicalID, first.ResourceType, first.Reason)
}

func isCancellation(reason string) bool {
	return reason == "Resource creation cancelled" || reason == "Resource update cancelled"
}

func waitError(parent, waitCtx context.Context, op *Operation, timeout time.Duration) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s of stack %s did not finish within %s: %w", op.Kind, op.StackName, timeout, domain.ErrTimeout)
	}
	return waitCtx.Err()
}
