// Package session keeps short-lived per-user dialog state in Redis.
package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ai-bot/internal/cache"
	"ai-bot/internal/payment"
)

// Wizard is a service dialog waiting for the user's next message.
type Wizard struct {
	Service string            `json:"service"`
	Command string            `json:"command"`
	Draft   map[string]string `json:"draft,omitempty"`
}

// State is everything remembered between two messages of one user.
type State struct {
	Checkout *payment.Checkout `json:"checkout,omitempty"`
	Wizard   *Wizard           `json:"wizard,omitempty"`
}

// Empty reports whether there is nothing to remember.
func (s State) Empty() bool {
	return s.Checkout == nil && s.Wizard == nil
}

// Store persists State with a sliding TTL: every Load and Save restarts it.
type Store struct {
	redis *cache.Redis
	ttl   time.Duration
}

// New returns a Store. A non-positive ttl defaults to 30 minutes.
func New(redis *cache.Redis, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{redis: redis, ttl: ttl}
}

func (s *Store) key(userID int64) string {
	return s.redis.Key("session", strconv.FormatInt(userID, 10))
}

// Load returns the user's state, or an empty State when none is stored.
func (s *Store) Load(ctx context.Context, userID int64) (State, error) {
	var st State
	if _, err := s.redis.TouchJSON(ctx, s.key(userID), &st, s.ttl); err != nil {
		return State{}, fmt.Errorf("load session: %w", err)
	}
	return st, nil
}

// Save stores st and refreshes its TTL. An empty state is deleted.
func (s *Store) Save(ctx context.Context, userID int64, st State) error {
	if st.Empty() {
		return s.Clear(ctx, userID)
	}
	if err := s.redis.SetJSON(ctx, s.key(userID), st, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear discards the user's state.
func (s *Store) Clear(ctx context.Context, userID int64) error {
	if err := s.redis.Delete(ctx, s.key(userID)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
