// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ferrywire/ferrywire/internal/relay"
)

type State string

const (
	StateStopped  State = "STOPPED"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
	StateStopping State = "STOPPING"
)

// ReadyChecker reports whether the backend connection is usable.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Runner is a long-running component loop (the adapter or the dispatcher).
type Runner interface {
	Run(ctx context.Context) error
}

const (
	defaultStartupTimeout = 30 * time.Second
	defaultDrainGrace     = 5 * time.Second
)

type Deps struct {
	Backend        ReadyChecker
	Adapter        Runner
	Dispatcher     Runner
	Queue          *relay.Queue
	Logger         *slog.Logger
	StartupTimeout time.Duration
	DrainGrace     time.Duration
}

// Supervisor owns startup and shutdown ordering of the relay:
// Stopped -> Starting -> Running -> Stopping -> Stopped. Starting waits for
// backend readiness within StartupTimeout; Stopping halts intake first, then
// lets the dispatcher drain the queue within DrainGrace before forcing it.
type Supervisor struct {
	backend        ReadyChecker
	adapter        Runner
	dispatcher     Runner
	queue          *relay.Queue
	logger         *slog.Logger
	startupTimeout time.Duration
	drainGrace     time.Duration

	mu    sync.Mutex
	state State

	adapterCancel    context.CancelFunc
	dispatcherCancel context.CancelFunc
	adapterDone      chan struct{}
	dispatcherDone   chan struct{}
	stopOnce         sync.Once
}

func New(deps Deps) *Supervisor {
	l := deps.Logger
	if l == nil {
		l = slog.Default()
	}

	startup := deps.StartupTimeout
	if startup <= 0 {
		startup = defaultStartupTimeout
	}

	grace := deps.DrainGrace
	if grace <= 0 {
		grace = defaultDrainGrace
	}

	return &Supervisor{
		backend:        deps.Backend,
		adapter:        deps.Adapter,
		dispatcher:     deps.Dispatcher,
		queue:          deps.Queue,
		logger:         l,
		startupTimeout: startup,
		drainGrace:     grace,
		state:          StateStopped,
	}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) Running() bool {
	return s.State() == StateRunning
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.logger.Info("supervisor state changed", "state", state)
}

// Start brings the relay to Running or returns a fatal startup error.
func (s *Supervisor) Start(ctx context.Context) error {
	s.setState(StateStarting)

	readyCtx, cancel := context.WithTimeout(ctx, s.startupTimeout)
	defer cancel()

	if err := s.backend.Ready(readyCtx); err != nil {
		s.setState(StateStopped)
		return fmt.Errorf("backend not ready within %s: %w", s.startupTimeout, err)
	}

	adapterCtx, adapterCancel := context.WithCancel(context.Background())
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	s.adapterCancel = adapterCancel
	s.dispatcherCancel = dispatcherCancel
	s.adapterDone = make(chan struct{})
	s.dispatcherDone = make(chan struct{})

	go func() {
		defer close(s.adapterDone)
		if err := s.adapter.Run(adapterCtx); err != nil {
			s.logger.Error("adapter stopped with error", "error", err)
		}
	}()

	go func() {
		defer close(s.dispatcherDone)
		if err := s.dispatcher.Run(dispatcherCtx); err != nil {
			s.logger.Error("dispatcher stopped with error", "error", err)
		}
	}()

	s.setState(StateRunning)
	return nil
}

// Stop halts intake, drains the queue within the grace period and forces the
// dispatcher down if the grace expires. Idempotent.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		s.setState(StateStopping)

		if s.adapterCancel != nil {
			s.adapterCancel()
			<-s.adapterDone
		}

		if s.queue != nil {
			s.queue.Close()
		}

		if s.dispatcherDone != nil {
			timer := time.NewTimer(s.drainGrace)
			select {
			case <-s.dispatcherDone:
				timer.Stop()
			case <-timer.C:
				s.logger.Warn("drain grace expired - forcing dispatcher shutdown",
					"grace", s.drainGrace,
				)
				s.dispatcherCancel()
				<-s.dispatcherDone
			}
		}

		s.setState(StateStopped)
	})
}
