package eventbus

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHubDeliversToOwnerOnly(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := h.Subscribe(ctx, "alice", 4)
	bob := h.Subscribe(ctx, "bob", 4)

	h.Publish(Event{Type: TypeMilestoneAchieved, UserID: "alice", Data: map[string]any{"hours": 100}})

	select {
	case evt := <-alice:
		if evt.Type != TypeMilestoneAchieved || evt.ID == "" || evt.Timestamp == 0 {
			t.Fatalf("evt=%+v, want filled milestone event", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("alice did not receive event")
	}

	select {
	case evt := <-bob:
		t.Fatalf("bob received foreign event: %+v", evt)
	default:
	}
}

func TestHubDropsForSlowConsumer(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := h.Subscribe(ctx, "", 1)
	h.Publish(Event{Type: TypeLogCreated})
	h.Publish(Event{Type: TypeLogUpdated}) // 缓冲已满，被丢弃

	evt := <-sub
	if evt.Type != TypeLogCreated {
		t.Fatalf("type=%q, want %q", evt.Type, TypeLogCreated)
	}
	select {
	case extra := <-sub:
		t.Fatalf("unexpected event %+v", extra)
	default:
	}
}

func TestHubUnsubscribeOnCancel(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	sub := h.Subscribe(ctx, "alice", 1)
	if h.Subscribers() != 1 {
		t.Fatalf("subscribers=%d, want 1", h.Subscribers())
	}
	cancel()

	if _, ok := <-sub; ok {
		t.Fatalf("channel should be closed after cancel")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers=%d, want 0", h.Subscribers())
	}

	var nilHub *Hub
	nilHub.Publish(Event{Type: TypeLogDeleted})
}
