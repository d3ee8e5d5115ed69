// Package session keeps the client side of an authenticated session: the
// persisted token, the identity it carries and a timer that ends the session
// when the token expires.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/realty-be/internal/auth"
	"github.com/rs/zerolog/log"
)

// ErrInvalidToken is returned by Login for a token that cannot be decoded or
// has already expired.
var ErrInvalidToken = errors.New("session: token is malformed or expired")

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts time for the expiry timer.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// State is the authentication state of a Store.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Store holds the current session. A Store is authenticated exactly when a
// decodable, unexpired token is persisted.
type Store struct {
	persister Persister
	clock     Clock

	mu         sync.Mutex
	state      State
	token      string
	identity   auth.Identity
	expiresAt  time.Time
	timer      Timer
	generation uint64
	onExpire   func()
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithExpiryHook registers f to run after the timer ends a session.
func WithExpiryHook(f func()) Option {
	return func(s *Store) { s.onExpire = f }
}

// NewStore loads the persisted token and arms the expiry timer when it is
// still valid. A stale or undecodable token is cleared.
func NewStore(p Persister, opts ...Option) (*Store, error) {
	s := &Store{persister: p, clock: systemClock{}}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the persisted token and transitions accordingly. Callers hold mu.
func (s *Store) load() error {
	s.reset()

	token, err := s.persister.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	claims, err := decode(token)
	if err != nil || !s.clock.Now().Before(claims.Expiry()) {
		log.Debug().Err(err).Msg("Discarding stale session token")
		return s.persister.Clear()
	}

	s.state = Authenticated
	s.token = token
	s.identity = claims.Identity()
	s.expiresAt = claims.Expiry()

	gen := s.generation
	s.timer = s.clock.AfterFunc(s.expiresAt.Sub(s.clock.Now()), func() { s.expire(gen) })
	return nil
}

// reset cancels the timer and forgets the session without touching the
// persisted token. Every transition goes through here, so a timer armed for
// an earlier session can never end a later one.
func (s *Store) reset() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.state = Unauthenticated
	s.token = ""
	s.identity = auth.Identity{}
	s.expiresAt = time.Time{}
}

func (s *Store) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.reset()
	if err := s.persister.Clear(); err != nil {
		log.Warn().Err(err).Msg("Failed to clear expired session token")
	}
	hook := s.onExpire
	s.mu.Unlock()

	log.Info().Msg("Session expired")
	if hook != nil {
		hook()
	}
}

// decode reads the claims of a token without checking its signature. The
// client has no key and only needs the identity and expiry.
func decode(token string) (*auth.Claims, error) {
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("decode token: no expiry")
	}
	return claims, nil
}

// Login persists token and starts a session from it.
func (s *Store) Login(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persister.Save(token); err != nil {
		return err
	}
	if err := s.load(); err != nil {
		return err
	}
	if s.state != Authenticated {
		return ErrInvalidToken
	}
	return nil
}

// Logout ends the session and clears the persisted token.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return s.persister.Clear()
}

// Close cancels the expiry timer. The persisted token is kept.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) IsAuthenticated() bool {
	return s.State() == Authenticated
}

// Token returns the current token, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Store) Identity() auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Store) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}
