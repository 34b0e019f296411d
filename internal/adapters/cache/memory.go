package cache

import (
	"context"
	"sync"
	"time"

	"github.com/imagelens/backend/internal/ports"
)

// MemoryChallengeStore keeps challenges in a mutex-guarded map. It is the
// default store for single-instance deployments; multi-instance setups use
// the Redis variant so validation can land on any replica.
type MemoryChallengeStore struct {
	mu      sync.Mutex
	entries map[string]*challengeEntry
	ttl     time.Duration
	now     func() time.Time
}

type challengeEntry struct {
	answer   int
	attempts int
	issuedAt time.Time
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		entries: make(map[string]*challengeEntry),
		ttl:     challengeTTLSeconds * time.Second,
		now:     time.Now,
	}
}

func (s *MemoryChallengeStore) Issue(_ context.Context) (ports.Challenge, error) {
	gen, err := newMathChallenge()
	if err != nil {
		return ports.Challenge{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	s.entries[gen.challenge.Token] = &challengeEntry{
		answer:   gen.answer,
		issuedAt: now,
	}
	return gen.challenge, nil
}

func (s *MemoryChallengeStore) Validate(_ context.Context, token string, answer int) (ports.ChallengeValidation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return ports.ChallengeValidation{Outcome: ports.ChallengeNotFoundOrExpired}, nil
	}
	if s.now().Sub(entry.issuedAt) > s.ttl {
		delete(s.entries, token)
		return ports.ChallengeValidation{Outcome: ports.ChallengeNotFoundOrExpired}, nil
	}
	if entry.attempts >= maxChallengeAttempts {
		delete(s.entries, token)
		return ports.ChallengeValidation{Outcome: ports.ChallengeTooManyAttempts}, nil
	}

	entry.attempts++
	if answer == entry.answer {
		delete(s.entries, token)
		return ports.ChallengeValidation{Outcome: ports.ChallengeSuccess}, nil
	}
	// The entry survives the final wrong answer at attempts == max; the
	// guard above deletes it and reports exhaustion on the next call.
	return ports.ChallengeValidation{
		Outcome:           ports.ChallengeWrongAnswer,
		RemainingAttempts: maxChallengeAttempts - entry.attempts,
	}, nil
}

// sweepLocked drops stale entries. Called on every Issue so the map cannot
// grow unbounded without a background goroutine.
func (s *MemoryChallengeStore) sweepLocked(now time.Time) {
	for token, entry := range s.entries {
		if now.Sub(entry.issuedAt) > s.ttl {
			delete(s.entries, token)
		}
	}
}

// MemoryThrottle is a per-client sliding-window counter over the last minute.
type MemoryThrottle struct {
	mu        sync.Mutex
	history   map[string][]time.Time
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{
		history: make(map[string][]time.Time),
		window:  time.Minute,
		now:     time.Now,
	}
}

func (t *MemoryThrottle) Allow(_ context.Context, clientID string, limitPerMinute int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	cutoff := now.Add(-t.window)
	t.sweepLocked(now, cutoff)

	recent := t.history[clientID][:0]
	for _, ts := range t.history[clientID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= limitPerMinute {
		// Denied requests are not recorded, so a client at the limit
		// regains capacity as old entries age out.
		t.history[clientID] = recent
		return false, nil
	}

	t.history[clientID] = append(recent, now)
	return true, nil
}

// sweepLocked drops clients whose entire window has aged out. Runs at most
// once per window so hot paths stay O(1) in the number of tracked clients.
func (t *MemoryThrottle) sweepLocked(now time.Time, cutoff time.Time) {
	if now.Sub(t.lastSweep) < t.window {
		return
	}
	t.lastSweep = now
	for id, stamps := range t.history {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(t.history, id)
		}
	}
}
