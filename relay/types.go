package main

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Server->client hints sent on soft drops. Never broadcast.
var (
	hintTooBig  = []byte(`{"t":"rate","reason":"too_big"}`)
	hintTooFast = []byte(`{"t":"rate","reason":"too_fast"}`)
)

const sendQueueSize = 32

// Client is one live relay participant. It is owned by the RoomRegistry for
// its lifetime; the session loop and broadcasters only enqueue onto its
// SendQueue, which the write pump drains onto the socket.
type Client struct {
	ID       string
	Room     string
	Identity string
	Conn     *websocket.Conn

	sendQueue chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id, room, identity string, conn *websocket.Conn) *Client {
	return &Client{
		ID:        id,
		Room:      room,
		Identity:  identity,
		Conn:      conn,
		sendQueue: make(chan []byte, sendQueueSize),
		done:      make(chan struct{}),
	}
}

func (c *Client) WritePump() {
	defer c.Close()

	for {
		select {
		case msg := <-c.sendQueue:
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("WritePump error for session %s: %v", c.ID, err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send enqueues without blocking. A closed client or a full queue reports
// failure so the caller can treat the peer as gone.
func (c *Client) Send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.sendQueue <- msg:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	})
}

func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

type TokenRequest struct {
	RoomID string `json:"room_id"`
}

type TokenResponse struct {
	Token string `json:"token"`
	Exp   int64  `json:"exp"`
}

type StatsResponse struct {
	Rooms         int   `json:"rooms"`
	Connections   int   `json:"connections"`
	ActiveBans    int   `json:"active_bans"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}
