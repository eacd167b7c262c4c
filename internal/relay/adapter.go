// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ferrywire/ferrywire/internal/domain"
	"github.com/ferrywire/ferrywire/internal/metrics"
	"github.com/google/uuid"
)

// Receiver is the pull side of the backend connection.
type Receiver interface {
	Receive(ctx context.Context) (domain.Message, error)
}

type AdapterDeps struct {
	Receiver      Receiver
	Queue         *Queue
	Logger        *slog.Logger
	ReconnectBase time.Duration
	ReconnectCap  time.Duration
}

// Adapter pulls messages from the backend, assigns sequence numbers at
// intake and feeds the delivery queue. On transport failure it retries the
// receive with exponential backoff and full jitter; without a resumption
// token from the backend this is at-least-once, so events carry a payload
// hash for consumer-side dedupe.
type Adapter struct {
	receiver      Receiver
	queue         *Queue
	logger        *slog.Logger
	reconnectBase time.Duration
	reconnectCap  time.Duration
	seq           int64
}

func NewAdapter(deps AdapterDeps) *Adapter {
	l := deps.Logger
	if l == nil {
		l = slog.Default()
	}

	base := deps.ReconnectBase
	if base <= 0 {
		base = time.Second
	}

	capSleep := deps.ReconnectCap
	if capSleep <= 0 {
		capSleep = 30 * time.Second
	}

	return &Adapter{
		receiver:      deps.Receiver,
		queue:         deps.Queue,
		logger:        l,
		reconnectBase: base,
		reconnectCap:  capSleep,
	}
}

// Run pulls until the context is canceled or the backend closes.
func (a *Adapter) Run(ctx context.Context) error {
	failures := 0

	for {
		msg, err := a.receiver.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrBackendClosed) {
				a.logger.Info("event source stopped")
				return nil
			}

			failures++
			metrics.IncBackendReconnects()
			wait := fullJitter(a.reconnectBase, a.reconnectCap, failures)
			a.logger.Warn("backend receive failed - reconnecting",
				"failures", failures,
				"wait_ms", wait.Milliseconds(),
				"error", err,
			)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
			continue
		}

		failures = 0
		a.seq++

		ev := domain.Event{
			ID:          uuid.New(),
			Seq:         a.seq,
			Kind:        domain.KindMessage,
			Payload:     msg,
			PayloadHash: msg.Hash(),
			ReceivedAt:  time.Now().UTC(),
		}

		a.enqueue(ev)
	}
}

// enqueue applies the overflow policy: bounded memory wins over perfect
// durability, so a full queue sheds its oldest pending event.
func (a *Adapter) enqueue(ev domain.Event) {
	err := a.queue.Enqueue(ev)
	if errors.Is(err, domain.ErrQueueFull) {
		if dropped, ok := a.queue.DropOldest(); ok {
			metrics.IncEventsDropped()
			a.logger.Warn("delivery queue full - dropped oldest event",
				"dropped_seq", dropped.Seq,
				"incoming_seq", ev.Seq,
			)
		}
		err = a.queue.Enqueue(ev)
	}

	if err != nil {
		a.logger.Error("enqueue failed", "seq", ev.Seq, "error", err)
		return
	}

	metrics.IncEventsIngested()
	a.logger.Debug("event ingested", "seq", ev.Seq, "sender", ev.Payload.Sender)
}
