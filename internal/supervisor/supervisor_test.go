// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ferrywire/ferrywire/internal/relay"
)

type readyFunc func(ctx context.Context) error

func (f readyFunc) Ready(ctx context.Context) error { return f(ctx) }

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitUntilCanceled is a runner that only returns when its context ends.
var waitUntilCanceled = runnerFunc(func(ctx context.Context) error {
	<-ctx.Done()
	return nil
})

func newTestSupervisor(backend ReadyChecker, adapter, dispatcher Runner, q *relay.Queue, grace time.Duration) *Supervisor {
	return New(Deps{
		Backend:        backend,
		Adapter:        adapter,
		Dispatcher:     dispatcher,
		Queue:          q,
		Logger:         testLogger(),
		StartupTimeout: 50 * time.Millisecond,
		DrainGrace:     grace,
	})
}

func TestSupervisorStartStopTransitions(t *testing.T) {
	q := relay.NewQueue(4)

	drainOnClose := runnerFunc(func(ctx context.Context) error {
		for {
			if _, err := q.Dequeue(ctx); err != nil {
				return nil
			}
		}
	})

	s := newTestSupervisor(
		readyFunc(func(ctx context.Context) error { return nil }),
		waitUntilCanceled,
		drainOnClose,
		q,
		time.Second,
	)

	if s.State() != StateStopped {
		t.Fatalf("expected initial state %s got %s", StateStopped, s.State())
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.Running() {
		t.Fatalf("expected state %s got %s", StateRunning, s.State())
	}

	s.Stop()
	if s.State() != StateStopped {
		t.Fatalf("expected state %s after stop got %s", StateStopped, s.State())
	}
}

func TestSupervisorStartFailsWhenBackendNeverReady(t *testing.T) {
	q := relay.NewQueue(4)

	neverReady := readyFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	s := newTestSupervisor(neverReady, waitUntilCanceled, waitUntilCanceled, q, time.Second)

	err := s.Start(context.Background())
	if err == nil {
		t.Fatal("expected startup error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded in chain, got %v", err)
	}
	if s.State() != StateStopped {
		t.Fatalf("expected state %s after failed start got %s", StateStopped, s.State())
	}
}

func TestSupervisorForcesDispatcherAfterDrainGrace(t *testing.T) {
	q := relay.NewQueue(4)

	// Dispatcher that ignores queue closure and only obeys cancellation.
	stubborn := runnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	s := newTestSupervisor(
		readyFunc(func(ctx context.Context) error { return nil }),
		waitUntilCanceled,
		stubborn,
		q,
		5*time.Millisecond,
	)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not complete after drain grace")
	}

	if s.State() != StateStopped {
		t.Fatalf("expected state %s got %s", StateStopped, s.State())
	}
}

func TestSupervisorStopIsIdempotent(t *testing.T) {
	q := relay.NewQueue(4)

	s := newTestSupervisor(
		readyFunc(func(ctx context.Context) error { return nil }),
		waitUntilCanceled,
		waitUntilCanceled,
		q,
		5*time.Millisecond,
	)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.Stop()
	s.Stop()

	if s.State() != StateStopped {
		t.Fatalf("expected state %s got %s", StateStopped, s.State())
	}
}
