package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Close codes sent on handshake rejection, one per cause so clients can
// branch on them.
const (
	CloseBanned          = 4001
	CloseConnectRate     = 4002
	ClosePolicyViolation = 4003
	CloseUnauthorized    = 4004
)

const closeWriteWait = 5 * time.Second

// Origin policy is enforced in the session itself so that rejections carry
// a close code instead of an opaque HTTP 403.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// rejectSocket completes the handshake and immediately closes it with the
// given status. Closing before the upgrade would surface as a bare HTTP
// error and lose the cause.
func rejectSocket(c *gin.Context, code int) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	deadline := time.Now().Add(closeWriteWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
	_ = conn.Close()
}

// HandleSocket runs one connection session: handshake checks, token
// authorization, registration, then the receive loop until disconnect.
func (rl *Relay) HandleSocket(c *gin.Context) {
	room := c.Param("room")
	identity := rl.idents.FromIP(c.ClientIP())

	if rl.limiter.IsBanned(identity) {
		log.Printf("[SECURITY] Connection refused for banned identity %s", identity)
		rejectSocket(c, CloseBanned)
		return
	}
	if !rl.limiter.AllowConnect(identity) {
		rejectSocket(c, CloseConnectRate)
		return
	}
	if !validRoomID(room) {
		rejectSocket(c, ClosePolicyViolation)
		return
	}
	if !originAllowed(c.Request, rl.origins) {
		log.Printf("[SECURITY] WS origin mismatch: %q", c.GetHeader("Origin"))
		rejectSocket(c, ClosePolicyViolation)
		return
	}

	// The join token rides in as the first offered subprotocol.
	var token string
	if offered := websocket.Subprotocols(c.Request); len(offered) > 0 {
		token = offered[0]
	}
	if token == "" || !rl.tokens.Validate(room, token, true) {
		log.Printf("[SECURITY] Missing/invalid room token for room=%s identity=%s", room, identity)
		rejectSocket(c, CloseUnauthorized)
		return
	}

	// Echo the consumed token as the negotiated subprotocol so the client
	// can confirm which token was accepted.
	header := http.Header{}
	header.Set("Sec-WebSocket-Protocol", token)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	conn.SetReadLimit(int64(rl.cfg.MaxMessageBytes) * 2)

	client := newClient(uuid.NewString(), room, identity, conn)
	go client.WritePump()
	rl.rooms.Add(room, client)

	defer func() {
		rl.rooms.Remove(room, client)
		client.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		// Oversize: soft drop, hint, keep the connection.
		if len(msg) > rl.cfg.MaxMessageBytes {
			client.Send(hintTooBig)
			continue
		}

		kind := classifyMessage(msg)
		if !rl.limiter.AllowMessage(identity, kind) {
			log.Printf("[RL] Soft-drop from %s", identity)
			client.Send(hintTooFast)
			continue
		}

		// Chaff/ping is sunk here: it shapes traffic, it is not content.
		if kind == KindBulk {
			continue
		}

		rl.rooms.Broadcast(room, client, msg)
	}
}
