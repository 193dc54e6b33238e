package main

import (
	"crypto/rand"
	"encoding/base64"
	"regexp"
	"sync"
	"time"
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,64}$`)

func validRoomID(room string) bool {
	return roomIDPattern.MatchString(room)
}

// TokenStore holds short-lived single-use join tokens per room. Rooms exist
// only as keys with at least one live token; expired entries are pruned on
// lookup rather than by a background sweep.
type TokenStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	rooms map[string]map[string]time.Time
	now   func() time.Time
}

func NewTokenStore(ttl time.Duration) *TokenStore {
	return &TokenStore{
		ttl:   ttl,
		rooms: make(map[string]map[string]time.Time),
		now:   time.Now,
	}
}

func newToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("tokens: crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

func (s *TokenStore) Issue(room string) (string, time.Time) {
	token := newToken()
	exp := s.now().Add(s.ttl)

	s.mu.Lock()
	tokens, ok := s.rooms[room]
	if !ok {
		tokens = make(map[string]time.Time)
		s.rooms[room] = tokens
	}
	tokens[token] = exp
	s.mu.Unlock()

	return token, exp
}

// Validate reports whether token is live for room. With consume it is
// removed on success and can never validate again.
func (s *TokenStore) Validate(room, token string, consume bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, ok := s.rooms[room]
	if !ok {
		return false
	}

	now := s.now()
	exp, ok := tokens[token]
	if !ok || !exp.After(now) {
		for t, e := range tokens {
			if !e.After(now) {
				delete(tokens, t)
			}
		}
		if len(tokens) == 0 {
			delete(s.rooms, room)
		}
		return false
	}

	if consume {
		delete(tokens, token)
		if len(tokens) == 0 {
			delete(s.rooms, room)
		}
	}
	return true
}
