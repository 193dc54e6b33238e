package main

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HandleStats reports live counters. No payloads, rooms or identities are
// exposed, only totals.
func (rl *Relay) HandleStats(c *gin.Context) {
	rooms, connections := rl.rooms.Counts()
	c.JSON(200, StatsResponse{
		Rooms:         rooms,
		Connections:   connections,
		ActiveBans:    rl.limiter.ActiveBans(),
		UptimeSeconds: int64(time.Since(rl.started) / time.Second),
	})
}
