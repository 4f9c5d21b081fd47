package bridge

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/storage"
	tu "github.com/desertthunder/focusync/internal/testing"
	"github.com/desertthunder/focusync/internal/timer"
)

func newBridge(t *testing.T) (*Server, *timer.Timer, string) {
	t.Helper()
	clock := tu.NewManualClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	tm := timer.New(storage.NewMemoryAdapter(0), nil, timer.Options{Now: clock.Now, Logger: shared.NewLogger(io.Discard)})

	s := NewServer(tm, "", shared.NewLogger(io.Discard))
	s.Run()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Stop()
		ts.Close()
	})

	return s, tm, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ctx context.Context, url string) *Client {
	t.Helper()
	c, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	if msg, err := c.Next(ctx); err != nil || msg.Kind != KindState || msg.Status != string(timer.Idle) {
		t.Fatalf("expected initial idle state, got %+v %v", msg, err)
	}
	return c
}

func TestBridge(t *testing.T) {
	t.Run("Start is relayed to every surface", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, tm, url := newBridge(t)
		a, b := dial(t, ctx, url), dial(t, ctx, url)

		if err := a.Start(ctx, 25*time.Minute, map[string]string{"label": "write"}); err != nil {
			t.Fatalf("failed to send start: %v", err)
		}

		for _, c := range []*Client{a, b} {
			msg, err := c.Next(ctx)
			if err != nil {
				t.Fatalf("failed to read state: %v", err)
			}
			if msg.Status != string(timer.Running) || msg.RemainingSeconds != 1500 || msg.Label != "write" || msg.Deadline.IsZero() {
				t.Errorf("unexpected state %+v", msg)
			}
		}
		if snap := tm.Observe(); snap.Status != timer.Running {
			t.Errorf("expected timer running, got %+v", snap)
		}

		if err := b.Stop(ctx); err != nil {
			t.Fatalf("failed to send stop: %v", err)
		}
		if msg, _ := a.Next(ctx); msg.Status != string(timer.Idle) {
			t.Errorf("expected idle after stop, got %+v", msg)
		}
	})

	t.Run("Invalid commands are answered with an error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, _, url := newBridge(t)
		c := dial(t, ctx, url)

		c.Start(ctx, 0, nil)
		msg, err := c.Next(ctx)
		if err != nil {
			t.Fatalf("failed to read reply: %v", err)
		}
		if msg.Kind != KindError || msg.Error == "" {
			t.Errorf("expected error reply, got %+v", msg)
		}
	})

	t.Run("Local timer changes reach surfaces", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s, tm, url := newBridge(t)
		c := dial(t, ctx, url)
		if s.ClientCount() != 1 {
			t.Errorf("expected one client, got %d", s.ClientCount())
		}

		tm.Start(time.Minute, "")
		if msg, _ := c.Next(ctx); msg.Status != string(timer.Running) || msg.RemainingSeconds != 60 {
			t.Errorf("expected running state, got %+v", msg)
		}
	})
}

func TestNewStateMessage(t *testing.T) {
	msg := NewStateMessage(timer.Snapshot{Status: timer.Completed})
	if msg.Kind != KindState || msg.RemainingSeconds != 0 || !msg.Deadline.IsZero() {
		t.Errorf("unexpected message %+v", msg)
	}
}
