package main

import (
	"bytes"
	"testing"
)

func newTestClient(id string) *Client {
	// No transport and no write pump: sends land in the buffered queue.
	return newClient(id, "abcdef", "ident-"+id, nil)
}

func receivedPayload(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.sendQueue:
		return msg
	default:
		return nil
	}
}

func TestAddIsIdempotent(t *testing.T) {
	registry := NewRoomRegistry()
	client := newTestClient("a")

	registry.Add("abcdef", client)
	registry.Add("abcdef", client)

	rooms, connections := registry.Counts()
	if rooms != 1 || connections != 1 {
		t.Fatalf("expected 1 room / 1 connection, got %d / %d", rooms, connections)
	}
}

func TestRemoveIsSafeAndPrunesRoomKey(t *testing.T) {
	registry := NewRoomRegistry()
	client := newTestClient("a")

	// Removing from an absent room must not panic.
	registry.Remove("abcdef", client)

	registry.Add("abcdef", client)
	registry.Remove("abcdef", client)

	registry.mu.Lock()
	_, exists := registry.rooms["abcdef"]
	registry.mu.Unlock()
	if exists {
		t.Fatal("expected empty room key to be deleted, not left as an empty set")
	}

	// Double removal (e.g. cleanup after a broadcast eviction) is a no-op.
	registry.Remove("abcdef", client)
}

func TestBroadcastExcludesSender(t *testing.T) {
	registry := NewRoomRegistry()
	sender := newTestClient("a")
	peerB := newTestClient("b")
	peerC := newTestClient("c")
	registry.Add("abcdef", sender)
	registry.Add("abcdef", peerB)
	registry.Add("abcdef", peerC)

	payload := []byte(`{"t":"m","body":"hi"}`)
	registry.Broadcast("abcdef", sender, payload)

	if got := receivedPayload(t, sender); got != nil {
		t.Fatalf("expected sender to receive nothing, got %q", got)
	}
	for _, peer := range []*Client{peerB, peerC} {
		got := receivedPayload(t, peer)
		if !bytes.Equal(got, payload) {
			t.Fatalf("expected peer %s to receive %q, got %q", peer.ID, payload, got)
		}
		if extra := receivedPayload(t, peer); extra != nil {
			t.Fatalf("expected peer %s to receive the payload once, got extra %q", peer.ID, extra)
		}
	}
}

func TestBroadcastScopedToRoom(t *testing.T) {
	registry := NewRoomRegistry()
	sender := newTestClient("a")
	outsider := newTestClient("b")
	registry.Add("room-one", sender)
	registry.Add("room-two", outsider)

	registry.Broadcast("room-one", sender, []byte("x"))

	if got := receivedPayload(t, outsider); got != nil {
		t.Fatalf("expected no cross-room delivery, got %q", got)
	}
}

func TestBroadcastEvictsClosedPeer(t *testing.T) {
	registry := NewRoomRegistry()
	sender := newTestClient("a")
	closed := newTestClient("b")
	live := newTestClient("c")
	registry.Add("abcdef", sender)
	registry.Add("abcdef", closed)
	registry.Add("abcdef", live)

	closed.Close()
	registry.Broadcast("abcdef", sender, []byte("x"))

	_, connections := registry.Counts()
	if connections != 2 {
		t.Fatalf("expected closed peer to be evicted, got %d connections", connections)
	}
	if got := receivedPayload(t, live); got == nil {
		t.Fatal("expected live peer to still receive the payload")
	}
}

func TestBroadcastEvictsPeerWithFullQueue(t *testing.T) {
	registry := NewRoomRegistry()
	sender := newTestClient("a")
	stuck := newTestClient("b")
	registry.Add("abcdef", sender)
	registry.Add("abcdef", stuck)

	for i := 0; i < sendQueueSize; i++ {
		if !stuck.Send([]byte("fill")) {
			t.Fatalf("expected fill message %d to be queued", i)
		}
	}

	registry.Broadcast("abcdef", sender, []byte("x"))

	if !stuck.Closed() {
		t.Fatal("expected the unresponsive peer to be closed")
	}
	rooms, connections := registry.Counts()
	if rooms != 1 || connections != 1 {
		t.Fatalf("expected only the sender to remain, got %d rooms / %d connections", rooms, connections)
	}
}

func TestSendOnClosedClientFails(t *testing.T) {
	client := newTestClient("a")
	client.Close()
	client.Close() // idempotent

	if client.Send([]byte("x")) {
		t.Fatal("expected send to a closed client to fail")
	}
	if !client.Closed() {
		t.Fatal("expected client to report closed")
	}
}
