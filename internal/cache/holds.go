// Package cache keeps short-lived tentative reservations of calendar slots.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotHeld      = errors.New("slot is held by another booking")
	ErrHoldNotFound  = errors.New("slot hold not found or expired")
	ErrTokenMismatch = errors.New("slot hold token does not match")
)

// SlotHolds reserves a (date, time) slot for a short time so that the
// availability check and the booking write can be tied together.
type SlotHolds interface {
	// Hold reserves the slot and returns the token needed to confirm it
	Hold(ctx context.Context, date, slot string, ttl time.Duration) (string, error)
	// Confirm consumes a hold; the token must match the one returned by Hold
	Confirm(ctx context.Context, date, slot, token string) error
	// Release drops a hold early
	Release(ctx context.Context, date, slot, token string) error
	// IsHeld reports whether someone currently holds the slot
	IsHeld(ctx context.Context, date, slot string) (bool, error)
}

const holdKeyPrefix = "slot:hold:"

func holdKey(date, slot string) string {
	return fmt.Sprintf("%s%s:%s", holdKeyPrefix, date, slot)
}

type memoryHold struct {
	token     string
	expiresAt time.Time
}

// MemorySlotHolds keeps holds in process memory. It is used when no redis is configured
// and only coordinates requests served by the same instance.
type MemorySlotHolds struct {
	mu    sync.Mutex
	holds map[string]memoryHold
	now   func() time.Time
}

func NewMemorySlotHolds() *MemorySlotHolds {
	return &MemorySlotHolds{holds: make(map[string]memoryHold), now: time.Now}
}

// live returns the unexpired hold for key, dropping it when stale. Callers hold mu.
func (m *MemorySlotHolds) live(key string) (memoryHold, bool) {
	h, ok := m.holds[key]
	if !ok {
		return memoryHold{}, false
	}
	if !m.now().Before(h.expiresAt) {
		delete(m.holds, key)
		return memoryHold{}, false
	}
	return h, true
}

func (m *MemorySlotHolds) Hold(_ context.Context, date, slot string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := holdKey(date, slot)
	if _, ok := m.live(key); ok {
		return "", ErrSlotHeld
	}
	token := uuid.NewString()
	m.holds[key] = memoryHold{token: token, expiresAt: m.now().Add(ttl)}
	return token, nil
}

func (m *MemorySlotHolds) Confirm(_ context.Context, date, slot, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := holdKey(date, slot)
	h, ok := m.live(key)
	if !ok {
		return ErrHoldNotFound
	}
	if h.token != token {
		return ErrTokenMismatch
	}
	delete(m.holds, key)
	return nil
}

func (m *MemorySlotHolds) Release(ctx context.Context, date, slot, token string) error {
	return m.Confirm(ctx, date, slot, token)
}

func (m *MemorySlotHolds) IsHeld(_ context.Context, date, slot string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live(holdKey(date, slot))
	return ok, nil
}
