package main

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

type MessageKind int

const (
	KindChat MessageKind = iota
	KindControl
	KindBulk
)

// classifyMessage inspects the "t" discriminator of the envelope. Chaff and
// ping traffic exists only to normalize traffic shape and is bulk; "m" is
// chat; any other parseable envelope is control. Unparsable input falls back
// to chat, the strictest window, so malformed traffic is never exempt.
func classifyMessage(payload []byte) MessageKind {
	var env struct {
		T string `json:"t"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return KindChat
	}
	switch env.T {
	case "chaff", "ping":
		return KindBulk
	case "m":
		return KindChat
	default:
		return KindControl
	}
}

// RateLimiter keeps sliding-window counters per identity for chat, control
// and connect attempts, plus a ban table. Connect-window violations escalate
// straight to a timed ban; message violations are soft.
type RateLimiter struct {
	mu  sync.Mutex
	cfg Config

	chat    map[string][]time.Time
	ctrl    map[string][]time.Time
	connect map[string][]time.Time
	bans    map[string]time.Time

	now func() time.Time
}

func NewRateLimiter(cfg Config) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		chat:    make(map[string][]time.Time),
		ctrl:    make(map[string][]time.Time),
		connect: make(map[string][]time.Time),
		bans:    make(map[string]time.Time),
		now:     time.Now,
	}
}

// pruneAndAdmit drops timestamps that left the window, admits iff the
// remainder is under limit, and appends now only on admission.
func pruneAndAdmit(events []time.Time, limit int, window time.Duration, now time.Time) ([]time.Time, bool) {
	cutoff := now.Add(-window)
	for len(events) > 0 && !events[0].After(cutoff) {
		events = events[1:]
	}
	if len(events) >= limit {
		return events, false
	}
	return append(events, now), true
}

func (l *RateLimiter) IsBanned(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.bans[identity]
	if !ok {
		return false
	}
	if until.After(l.now()) {
		return true
	}
	log.Printf("[SECURITY] Ban expired for %s", identity)
	delete(l.bans, identity)
	return false
}

// AllowConnect applies the connect-attempt window. Exceeding it installs a
// ban immediately: repeated connection attempts are a stronger abuse signal
// than message bursts.
func (l *RateLimiter) AllowConnect(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	events, ok := pruneAndAdmit(l.connect[identity], l.cfg.ConnectLimit, l.cfg.ConnectWindow, now)
	l.connect[identity] = events
	if !ok {
		l.bans[identity] = now.Add(l.cfg.BanDuration)
		log.Printf("[SECURITY] Connect limit exceeded. Banned %s for %s.", identity, l.cfg.BanDuration)
	}
	return ok
}

// AllowMessage applies the class window for the message. Bulk never counts
// and never rejects.
func (l *RateLimiter) AllowMessage(identity string, kind MessageKind) bool {
	if kind == KindBulk {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if kind == KindControl {
		events, ok := pruneAndAdmit(l.ctrl[identity], l.cfg.CtrlLimit, l.cfg.CtrlWindow, now)
		l.ctrl[identity] = events
		return ok
	}
	events, ok := pruneAndAdmit(l.chat[identity], l.cfg.ChatLimit, l.cfg.ChatWindow, now)
	l.chat[identity] = events
	return ok
}

// ActiveBans counts unexpired bans, pruning stale entries.
func (l *RateLimiter) ActiveBans() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for identity, until := range l.bans {
		if !until.After(now) {
			delete(l.bans, identity)
		}
	}
	return len(l.bans)
}
