package watcher

import (
	"context"
	"testing"
	"time"
)

func TestDebouncerBatchesBursts(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 50*time.Millisecond, 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"a.py"}, Timestamp: time.Now()}
	input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"b.py"}, Timestamp: time.Now()}

	select {
	case got := <-d.Output():
		if got.Type != ChangeTypeSource {
			t.Errorf("unexpected change type %v", got.Type)
		}
		if len(got.Paths) != 2 {
			t.Errorf("expected both paths in one batch, got %v", got.Paths)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced batch")
	}
}

func TestDebouncerEmitsFindingsBeforeSources(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 50*time.Millisecond, 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"a.py"}, Timestamp: time.Now()}
	input <- ChangeEvent{Type: ChangeTypeFindings, Paths: []string{"semgrep.json"}, Timestamp: time.Now()}

	var order []ChangeType
	for len(order) < 2 {
		select {
		case got := <-d.Output():
			order = append(order, got.Type)
		case <-time.After(time.Second):
			t.Fatalf("timeout after %d batches", len(order))
		}
	}

	if order[0] != ChangeTypeFindings || order[1] != ChangeTypeSource {
		t.Errorf("expected findings batch first, got %v", order)
	}
}

func TestDebouncerFlushesOnInputClose(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeFindings, Paths: []string{"semgrep.json"}, Timestamp: time.Now()}
	close(input)

	// The pending batch is emitted despite the long quiet period, then the
	// output closes.
	select {
	case got, ok := <-d.Output():
		if !ok {
			t.Fatal("output closed before delivering the pending batch")
		}
		if got.Type != ChangeTypeFindings {
			t.Errorf("unexpected change type %v", got.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for final flush")
	}

	select {
	case _, ok := <-d.Output():
		if ok {
			t.Error("expected output to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for output close")
	}
}

func TestDebouncerMaxWaitBoundsLatency(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 100*time.Millisecond, 300*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// Keep the input busy so the quiet period never elapses.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"a.py"}, Timestamp: time.Now()}:
				case <-stop:
					return
				}
			}
		}
	}()

	select {
	case <-d.Output():
	case <-time.After(2 * time.Second):
		t.Fatal("maxWait should force a flush while events keep arriving")
	}
}
