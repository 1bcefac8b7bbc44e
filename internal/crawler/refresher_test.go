package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	err   error

	gotSources []string
}

func (f *fakeRunner) Run(_ context.Context, urls []string, startPage, endPage int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotSources = urls
	return 1, f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRefresher_RunOnce(t *testing.T) {
	runner := &fakeRunner{}
	sources := []string{"https://www.google.com/about/careers/applications/jobs/results/"}
	r := NewRefresher(runner, sources, time.Hour)

	r.RunOnce(context.Background())
	if runner.callCount() != 1 {
		t.Fatalf("expected 1 crawl pass, got %d", runner.callCount())
	}
	if len(runner.gotSources) != 1 || runner.gotSources[0] != sources[0] {
		t.Errorf("sources not forwarded: %v", runner.gotSources)
	}
}

func TestRefresher_RunOnceSwallowsErrors(t *testing.T) {
	runner := &fakeRunner{err: errors.New("site down")}
	r := NewRefresher(runner, nil, time.Hour)

	// Must not panic or propagate; the next tick retries.
	r.RunOnce(context.Background())
	if runner.callCount() != 1 {
		t.Fatalf("expected 1 attempt, got %d", runner.callCount())
	}
}

func TestRefresher_TicksUntilCancelled(t *testing.T) {
	runner := &fakeRunner{}
	r := NewRefresher(runner, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for runner.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatal("refresher did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop on cancel")
	}
}
