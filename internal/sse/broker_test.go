package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventNodeCreated, Data: map[string]string{"path": "Knowledge/Physics.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: node.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"Knowledge/Physics.md"`) {
			t.Errorf("missing data in %q", s)
		}
		if !strings.Contains(s, "id: ") {
			t.Errorf("missing event id in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishVaultEvent_TreeThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First filing should trigger tree.updated; the second, inside the
	// throttle window, should not.
	b.PublishVaultEvent(EventNoteFiled, "Knowledge/Physics/a.md")
	b.PublishVaultEvent(EventNoteFiled, "Knowledge/Physics/b.md")

	deadline := time.After(time.Second)
	var treeEvents, noteEvents int
	for treeEvents+noteEvents < 3 {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "event: tree.updated") {
				treeEvents++
			}
			if strings.Contains(s, "event: note.filed") {
				noteEvents++
			}
		case <-deadline:
			t.Fatalf("timeout: tree=%d note=%d", treeEvents, noteEvents)
		}
	}
	if noteEvents != 2 {
		t.Errorf("note.filed = %d, want 2", noteEvents)
	}
	if treeEvents != 1 {
		t.Errorf("tree.updated = %d, want 1 (throttled)", treeEvents)
	}
}

func TestIntelligenceEventDoesNotTouchTree(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishVaultEvent(EventIntelligence, "Knowledge/Physics.md")

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: intelligence.updated") {
			t.Errorf("unexpected first event %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}

	select {
	case msg := <-ch:
		t.Errorf("unexpected extra event %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestServeHTTPStreams(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	// Wait for the subscription to land before publishing.
	for i := 0; i < 50 && b.ClientCount() == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	b.Publish(Event{Type: EventNodeReused, Data: map[string]string{"path": "x.md"}})

	buf := make([]byte, 512)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(buf[:n]), "event: node.reused") {
		t.Errorf("stream payload %q", buf[:n])
	}
}

func TestCloseClosesClients(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Close")
	}

	// Operations after Close must not panic or block.
	b.Publish(Event{Type: EventNoteFiled})
	b.PublishVaultEvent(EventNoteFiled, "a.md")
	if b.ClientCount() != 0 {
		t.Error("ClientCount after Close should be 0")
	}
}
