package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wl-portal/internal/metrics"
)

const defaultTimeout = 10 * time.Second

// Async runs a Dispatcher in the background. Its methods return immediately,
// and failures or panics are logged and counted, never propagated.
type Async struct {
	dispatcher Dispatcher
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// NewAsync wraps d. timeout bounds each background delivery.
func NewAsync(d Dispatcher, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Async {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{dispatcher: d, timeout: timeout, metrics: m, logger: logger}
}

// Reviewed announces a review result and syncs the applicant's role concurrently
func (a *Async) Reviewed(r Result, ra RoleAssignment) {
	a.run(func(ctx context.Context) {
		var g errgroup.Group
		g.Go(func() error {
			return a.deliver(ctx, "result", r.ApplicationID, func(ctx context.Context) error {
				return a.dispatcher.NotifyResult(ctx, r)
			})
		})
		g.Go(func() error {
			return a.deliver(ctx, "role", r.ApplicationID, func(ctx context.Context) error {
				return a.dispatcher.AssignRole(ctx, ra)
			})
		})
		_ = g.Wait()
	})
}

// Submitted announces a new application to staff
func (a *Async) Submitted(s Submission) {
	a.run(func(ctx context.Context) {
		_ = a.deliver(ctx, "submitted", s.ApplicationID, func(ctx context.Context) error {
			return a.dispatcher.NotifySubmitted(ctx, s)
		})
	})
}

// Wait blocks until in-flight deliveries finish or ctx is done
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) run(fn func(ctx context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (a *Async) deliver(ctx context.Context, kind string, applicationID int64, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("notification panicked: %v", rec)
		}
		a.metrics.IncNotification(kind, err)
		if err != nil {
			a.logger.Error("Notification failed",
				"kind", kind,
				"application_id", applicationID,
				"error", err,
			)
		}
	}()
	return fn(ctx)
}
