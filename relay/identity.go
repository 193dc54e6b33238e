package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// IdentityHasher derives the identity used to key rate-limit and ban tables
// from a client IP via keyed BLAKE2b, so the relay never holds or logs raw
// addresses. The key is random per boot unless pinned via NT_IDENTITY_KEY.
type IdentityHasher struct {
	key []byte
}

func NewIdentityHasher(key string) (*IdentityHasher, error) {
	if key != "" {
		decoded, err := base64.RawURLEncoding.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("identity key is not base64url: %w", err)
		}
		if len(decoded) > 64 {
			return nil, fmt.Errorf("identity key exceeds 64 bytes")
		}
		return &IdentityHasher{key: decoded}, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating identity key: %w", err)
	}
	return &IdentityHasher{key: buf}, nil
}

func (h *IdentityHasher) FromIP(ip string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// Only reachable with an oversize key, which the constructor rejects.
		panic("identity: " + err.Error())
	}
	mac.Write([]byte(ip))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16])
}
