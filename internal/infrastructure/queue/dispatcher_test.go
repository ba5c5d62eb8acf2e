package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
)

type recordingTransport struct {
	mu     sync.Mutex
	writes []job
	err    error
}

func (r *recordingTransport) Write(_ context.Context, topic, key string, event domain.LifecycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, job{topic: topic, key: key, event: event})
	return r.err
}

func (r *recordingTransport) all() []job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]job(nil), r.writes...)
}

func stopWithin(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestDispatcher_DeliversAndDrainsOnStop(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDispatcher(3, 64, tr, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 30; i++ {
		email := fmt.Sprintf("user%d@x.com", i)
		d.Publish("user.registration", email, domain.LifecycleEvent{Kind: domain.EventUserRegistered, Email: email})
	}
	stopWithin(t, d)

	if n := len(tr.all()); n != 30 {
		t.Fatalf("expected 30 writes, got %d", n)
	}
}

func TestDispatcher_PreservesPerKeyOrder(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDispatcher(4, 64, tr, zerolog.Nop())
	d.Start(context.Background())

	d.Publish("user.registration", "alice@x.com", domain.LifecycleEvent{Kind: domain.EventUserRegistered})
	d.Publish("user.login", "alice@x.com", domain.LifecycleEvent{Kind: domain.EventUserLoggedIn})
	stopWithin(t, d)

	writes := tr.all()
	if len(writes) != 2 || writes[0].event.Kind != domain.EventUserRegistered || writes[1].event.Kind != domain.EventUserLoggedIn {
		t.Fatalf("unexpected order: %+v", writes)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDispatcher(1, 1, tr, zerolog.Nop())

	// not started yet, so the single slot stays occupied
	d.Publish("user.login", "a@x.com", domain.LifecycleEvent{Kind: domain.EventUserLoggedIn})
	d.Publish("user.login", "a@x.com", domain.LifecycleEvent{Kind: domain.EventUserLoggedIn})

	d.Start(context.Background())
	stopWithin(t, d)

	if n := len(tr.all()); n != 1 {
		t.Fatalf("expected 1 write, got %d", n)
	}
}

func TestDispatcher_FailureIsNotRetried(t *testing.T) {
	tr := &recordingTransport{err: errors.New("broker down")}
	d := NewDispatcher(1, 8, tr, zerolog.Nop())
	d.Start(context.Background())

	d.Publish("user.login", "a@x.com", domain.LifecycleEvent{Kind: domain.EventUserLoggedIn})
	stopWithin(t, d)

	if n := len(tr.all()); n != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", n)
	}
}

func TestDispatcher_PublishAfterStopIsDropped(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDispatcher(2, 8, tr, zerolog.Nop())
	d.Start(context.Background())
	stopWithin(t, d)

	d.Publish("user.login", "a@x.com", domain.LifecycleEvent{Kind: domain.EventUserLoggedIn})
	stopWithin(t, d)

	if n := len(tr.all()); n != 0 {
		t.Fatalf("expected no writes, got %d", n)
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, 1, &recordingTransport{}, zerolog.Nop())
	first := d.shardIndex("alice@x.com")
	for i := 0; i < 10; i++ {
		if d.shardIndex("alice@x.com") != first {
			t.Fatalf("shard index changed")
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("index out of range: %d", first)
	}
}
