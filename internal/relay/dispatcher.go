// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ferrywire/ferrywire/internal/domain"
	"github.com/ferrywire/ferrywire/internal/metrics"
)

const (
	defaultMaxAttempts    = 5
	defaultAttemptTimeout = 10 * time.Second
	defaultRetryBase      = 500 * time.Millisecond
	defaultRetryCap       = 10 * time.Second
)

type DispatcherDeps struct {
	Queue          *Queue
	Sink           DeadLetterSink
	HTTPClient     *http.Client
	Logger         *slog.Logger
	CallbackURL    string
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryBase      time.Duration
	RetryCap       time.Duration
}

// Dispatcher drains the delivery queue and posts each event to the callback
// URL, one in-flight delivery at a time so callback order matches intake
// order. An event moves Pending -> Attempting -> Delivered or DeadLettered;
// a dead-lettered event is skipped, never a head-of-line blocker.
type Dispatcher struct {
	queue          *Queue
	sink           DeadLetterSink
	httpClient     *http.Client
	logger         *slog.Logger
	callbackURL    string
	maxAttempts    int
	attemptTimeout time.Duration
	retryBase      time.Duration
	retryCap       time.Duration
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	l := deps.Logger
	if l == nil {
		l = slog.Default()
	}

	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	maxAtt := deps.MaxAttempts
	if maxAtt <= 0 {
		maxAtt = defaultMaxAttempts
	}

	timeout := deps.AttemptTimeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}

	base := deps.RetryBase
	if base <= 0 {
		base = defaultRetryBase
	}

	capSleep := deps.RetryCap
	if capSleep <= 0 {
		capSleep = defaultRetryCap
	}

	sink := deps.Sink
	if sink == nil {
		sink = &LogSink{Logger: l}
	}

	return &Dispatcher{
		queue:          deps.Queue,
		sink:           sink,
		httpClient:     client,
		logger:         l,
		callbackURL:    deps.CallbackURL,
		maxAttempts:    maxAtt,
		attemptTimeout: timeout,
		retryBase:      base,
		retryCap:       capSleep,
	}
}

// Run drains the queue until it is closed and empty. If the context is
// canceled first (drain grace expired), everything still queued is
// dead-lettered so no event vanishes silently.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		ev, err := d.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrQueueClosed) {
				d.logger.Info("delivery queue drained")
				return nil
			}
			d.deadLetterRemaining()
			return nil
		}

		d.dispatch(ctx, ev)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev domain.Event) {
	if d.callbackURL == "" {
		// Documented default: without a callback the relay logs and
		// discards inbound messages.
		metrics.IncEventsDiscarded()
		d.logger.Info("no callback configured - discarding event",
			"seq", ev.Seq,
			"kind", ev.Kind,
			"sender", ev.Payload.Sender,
		)
		return
	}

	body, err := json.Marshal(ev)
	if err != nil {
		d.logger.Error("event marshal failed", "seq", ev.Seq, "error", err)
		d.deadLetter(ctx, ev, nil, domain.DeadLetterRejected)
		return
	}

	attempts := make([]domain.DeliveryAttempt, 0, d.maxAttempts)

	for n := 1; n <= d.maxAttempts; n++ {
		att := d.attempt(ctx, n, body)
		attempts = append(attempts, att)
		metrics.ObserveDeliveryDuration(att.Duration)

		switch {
		case att.StatusCode >= http.StatusOK && att.StatusCode < http.StatusMultipleChoices:
			metrics.IncDeliveryAttempt("success")
			metrics.IncEventsDelivered()
			d.logger.Info("event delivered",
				"seq", ev.Seq,
				"attempt", n,
				"response_status", att.StatusCode,
			)
			return

		case att.StatusCode >= http.StatusBadRequest && att.StatusCode < http.StatusInternalServerError:
			// 4xx is a permanent rejection: the callback saw the event
			// and refused it, retrying cannot change that.
			metrics.IncDeliveryAttempt("rejected")
			d.logger.Warn("callback rejected event",
				"seq", ev.Seq,
				"attempt", n,
				"response_status", att.StatusCode,
			)
			d.deadLetter(ctx, ev, attempts, domain.DeadLetterRejected)
			return

		default:
			metrics.IncDeliveryAttempt("retryable")
			d.logger.Warn("delivery attempt failed",
				"seq", ev.Seq,
				"attempt", n,
				"response_status", att.StatusCode,
				"error", att.Error,
			)
		}

		if n < d.maxAttempts {
			wait := fullJitter(d.retryBase, d.retryCap, n)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				d.deadLetter(context.Background(), ev, attempts, domain.DeadLetterShutdown)
				return
			case <-timer.C:
			}
		}
	}

	d.deadLetter(ctx, ev, attempts, domain.DeadLetterExhausted)
}

func (d *Dispatcher) attempt(ctx context.Context, number int, body []byte) domain.DeliveryAttempt {
	att := domain.DeliveryAttempt{
		Number:    number,
		URL:       d.callbackURL,
		StartedAt: time.Now().UTC(),
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, d.callbackURL, bytes.NewReader(body))
	if err != nil {
		att.Error = err.Error()
		att.Duration = time.Since(att.StartedAt)
		return att
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		att.Error = err.Error()
		att.Duration = time.Since(att.StartedAt)
		return att
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	att.StatusCode = resp.StatusCode
	att.Duration = time.Since(att.StartedAt)
	return att
}

func (d *Dispatcher) deadLetter(ctx context.Context, ev domain.Event, attempts []domain.DeliveryAttempt, reason string) {
	metrics.IncEventsDeadLettered(reason)

	dl := domain.DeadLetter{
		Event:     ev,
		Attempts:  attempts,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}

	if err := d.sink.Record(ctx, dl); err != nil {
		d.logger.Error("dead-letter record failed",
			"seq", ev.Seq,
			"reason", reason,
			"error", err,
		)
	}
}

func (d *Dispatcher) deadLetterRemaining() {
	ctx := context.Background()
	remaining := 0

	for {
		ev, ok := d.queue.DropOldest()
		if !ok {
			break
		}
		remaining++
		d.deadLetter(ctx, ev, nil, domain.DeadLetterShutdown)
	}

	if remaining > 0 {
		d.logger.Warn("drain grace expired - dead-lettered queued events", "count", remaining)
	}
}
