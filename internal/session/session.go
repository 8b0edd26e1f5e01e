// Package session keeps per-visitor browsing state in memory: identity, cart
// and the last catalog snapshot. Nothing here outlives the process.
package session

import (
	"sync"
	"time"

	"github.com/joao-fontenele/storefront-checkout/internal/cart"
	"github.com/joao-fontenele/storefront-checkout/internal/catalog"
	"github.com/joao-fontenele/storefront-checkout/internal/identity"
)

type Session struct {
	id   string
	cart *cart.Cart

	mu       sync.RWMutex
	user     identity.User
	identity identity.Identity
	catalog  *catalog.Snapshot
	lastSeen time.Time

	checkoutMu sync.Mutex
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		id:       id,
		cart:     cart.New(),
		lastSeen: now,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Cart() *cart.Cart {
	return s.cart
}

func (s *Session) Identity() identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *Session) User() identity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) SignIn(user identity.User, ident identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.identity = ident
}

func (s *Session) Catalog() *catalog.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

func (s *Session) SetCatalog(snap *catalog.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = snap
}

// TryBeginCheckout claims the session's single checkout slot. Callers that
// get true must call EndCheckout.
func (s *Session) TryBeginCheckout() bool {
	return s.checkoutMu.TryLock()
}

func (s *Session) EndCheckout() {
	s.checkoutMu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}
