// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ferrywire/ferrywire/internal/domain"
	"github.com/google/uuid"
)

// scriptedReceiver replays a fixed sequence of receive results, then closes.
type scriptedReceiver struct {
	results []receiveResult
	calls   int
}

type receiveResult struct {
	msg domain.Message
	err error
}

func (r *scriptedReceiver) Receive(ctx context.Context) (domain.Message, error) {
	if r.calls >= len(r.results) {
		return domain.Message{}, domain.ErrBackendClosed
	}
	res := r.results[r.calls]
	r.calls++
	return res.msg, res.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdapterAssignsIncreasingSequenceNumbers(t *testing.T) {
	q := NewQueue(8)
	receiver := &scriptedReceiver{results: []receiveResult{
		{msg: domain.Message{ID: 100, Sender: "a"}},
		{msg: domain.Message{ID: 101, Sender: "b"}},
		{msg: domain.Message{ID: 102, Sender: "c"}},
	}}

	a := NewAdapter(AdapterDeps{Receiver: receiver, Queue: q, Logger: testLogger()})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var last int64
	for i := 0; i < 3; i++ {
		ev, err := q.Dequeue(context.Background())
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if ev.Seq <= last {
			t.Fatalf("expected strictly increasing seq, got %d after %d", ev.Seq, last)
		}
		last = ev.Seq

		if ev.Kind != domain.KindMessage {
			t.Fatalf("expected kind %q got %q", domain.KindMessage, ev.Kind)
		}
		if ev.PayloadHash == "" {
			t.Fatal("expected payload hash to be set")
		}
		if ev.ID == uuid.Nil {
			t.Fatal("expected event id to be set")
		}
	}
}

func TestAdapterReconnectsAfterTransportFailure(t *testing.T) {
	q := NewQueue(8)
	receiver := &scriptedReceiver{results: []receiveResult{
		{msg: domain.Message{ID: 1}},
		{err: errors.New("connection reset")},
		{err: errors.New("connection reset")},
		{msg: domain.Message{ID: 2}},
	}}

	a := NewAdapter(AdapterDeps{
		Receiver:      receiver,
		Queue:         q,
		Logger:        testLogger(),
		ReconnectBase: time.Millisecond,
		ReconnectCap:  2 * time.Millisecond,
	})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if q.Len() != 2 {
		t.Fatalf("expected 2 events after reconnects, got %d", q.Len())
	}

	first, _ := q.Dequeue(context.Background())
	second, _ := q.Dequeue(context.Background())
	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("expected seqs 1,2 got %d,%d", first.Seq, second.Seq)
	}
}

func TestAdapterStopsOnContextCancel(t *testing.T) {
	q := NewQueue(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocked := blockingReceiver{}
	a := NewAdapter(AdapterDeps{Receiver: blocked, Queue: q, Logger: testLogger()})

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("adapter did not stop on context cancel")
	}
}

type blockingReceiver struct{}

func (blockingReceiver) Receive(ctx context.Context) (domain.Message, error) {
	<-ctx.Done()
	return domain.Message{}, ctx.Err()
}

func TestAdapterShedsOldestOnOverflow(t *testing.T) {
	q := NewQueue(2)
	receiver := &scriptedReceiver{results: []receiveResult{
		{msg: domain.Message{ID: 1}},
		{msg: domain.Message{ID: 2}},
		{msg: domain.Message{ID: 3}},
	}}

	a := NewAdapter(AdapterDeps{Receiver: receiver, Queue: q, Logger: testLogger()})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if q.Len() != 2 {
		t.Fatalf("expected queue at capacity 2, got %d", q.Len())
	}

	first, _ := q.Dequeue(context.Background())
	if first.Seq != 2 {
		t.Fatalf("expected oldest event shed, head seq 2, got %d", first.Seq)
	}
}
