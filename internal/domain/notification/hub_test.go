package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitForCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ConnectionCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("connection count = %d, want %d", hub.ConnectionCount(), want)
}

func TestHubSendToUser(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	userID := uuid.New()
	conn := &Connection{UserID: userID, Send: make(chan []byte, 4)}
	hub.Register(conn)
	waitForCount(t, hub, 1)

	if err := hub.SendToUser(userID, map[string]string{"hello": "world"}); err != nil {
		t.Fatalf("SendToUser: %v", err)
	}

	select {
	case data := <-conn.Send:
		var got map[string]string
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got["hello"] != "world" {
			t.Fatalf("payload = %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	// Messages for other users must not reach this connection.
	if err := hub.SendToUser(uuid.New(), "ignored"); err != nil {
		t.Fatalf("SendToUser: %v", err)
	}
	select {
	case data := <-conn.Send:
		t.Fatalf("unexpected delivery: %s", data)
	case <-time.After(100 * time.Millisecond):
	}

	hub.Unregister(conn)
	waitForCount(t, hub, 0)
}

func TestHubFullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	userID := uuid.New()
	conn := &Connection{UserID: userID, Send: make(chan []byte, 1)}
	hub.Register(conn)
	waitForCount(t, hub, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = hub.SendToUser(userID, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SendToUser blocked on full buffer")
	}
}

func TestPublisherNotify(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	userID := uuid.New()
	conn := &Connection{UserID: userID, Send: make(chan []byte, 4)}
	hub.Register(conn)
	waitForCount(t, hub, 1)

	pub := NewPublisher(hub)
	pub.Notify(context.Background(), userID, "payment_success", map[string]string{"reference": "FND-1-abcd"})

	select {
	case data := <-conn.Send:
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Type != "payment_success" {
			t.Fatalf("event type = %q", event.Type)
		}
		if event.CreatedAt.IsZero() {
			t.Fatal("created_at not set")
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	// A nil publisher is a no-op.
	var disabled *Publisher
	disabled.Notify(context.Background(), userID, "payment_failed", nil)
}
