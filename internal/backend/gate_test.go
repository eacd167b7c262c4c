// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ferrywire/ferrywire/internal/domain"
)

type overlapClient struct {
	StubClient
	inFlight int32
	overlap  int32
}

func (c *overlapClient) SendText(ctx context.Context, msg, receiver, aters string) error {
	if atomic.AddInt32(&c.inFlight, 1) > 1 {
		atomic.StoreInt32(&c.overlap, 1)
	}
	time.Sleep(2 * time.Millisecond)
	atomic.AddInt32(&c.inFlight, -1)
	return nil
}

func TestGateSerializesOperations(t *testing.T) {
	inner := &overlapClient{}
	gate := NewGate(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gate.SendText(context.Background(), "hi", "filehelper", ""); err != nil {
				t.Errorf("send text: %v", err)
			}
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&inner.overlap) != 0 {
		t.Fatal("expected gated calls to never overlap")
	}
}

func TestGateReceiveNotBlockedByOperations(t *testing.T) {
	inner := &overlapClient{}
	gate := NewGate(inner)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := gate.Receive(ctx)
		done <- err
	}()

	// Hammer the gate while Receive blocks; Receive must still return as
	// soon as its context expires.
	for i := 0; i < 4; i++ {
		_ = gate.SendText(context.Background(), "hi", "filehelper", "")
	}

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrBackendClosed) {
			t.Fatalf("expected ErrBackendClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("receive did not return after context cancellation")
	}
}
