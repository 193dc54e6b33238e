package main

import (
	"log"
	"sync"
)

// RoomRegistry maps room ids to the set of live clients in that room. A
// room with no clients is an absent key, never an empty entry.
type RoomRegistry struct {
	mu    sync.Mutex
	rooms map[string]map[*Client]struct{}
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]map[*Client]struct{})}
}

func (r *RoomRegistry) Add(room string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.rooms[room]
	if !ok {
		set = make(map[*Client]struct{})
		r.rooms[room] = set
	}
	set[client] = struct{}{}
}

// Remove is a no-op for absent rooms or clients, so it is always safe to
// call from cleanup paths.
func (r *RoomRegistry) Remove(room string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(r.rooms, room)
	}
}

// Broadcast delivers payload to every client in the room except sender.
// The member set is snapshotted under the lock; clients whose transport is
// closed or whose queue rejects the send are evicted during the pass.
// Best-effort, unordered across peers.
func (r *RoomRegistry) Broadcast(room string, sender *Client, payload []byte) {
	r.mu.Lock()
	set := r.rooms[room]
	peers := make([]*Client, 0, len(set))
	for peer := range set {
		peers = append(peers, peer)
	}
	r.mu.Unlock()

	for _, peer := range peers {
		if peer.Closed() {
			r.Remove(room, peer)
			continue
		}
		if peer == sender {
			continue
		}
		if !peer.Send(payload) {
			log.Printf("Broadcast send failed, removing peer session %s", peer.ID)
			r.Remove(room, peer)
			peer.Close()
		}
	}
}

// Counts reports the number of rooms and total connections.
func (r *RoomRegistry) Counts() (rooms, connections int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, set := range r.rooms {
		connections += len(set)
	}
	return len(r.rooms), connections
}
