package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-checkout/internal/catalog"
	"github.com/joao-fontenele/storefront-checkout/internal/identity"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func newTestStore(ttl time.Duration) (*Store, *clock) {
	c := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl)
	s.now = c.Now
	return s, c
}

func TestStore_CreateAndGet(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	sess := s.Create()
	require.NotEmpty(t, sess.ID())
	assert.True(t, sess.Cart().IsEmpty())
	assert.Nil(t, sess.Catalog())

	got, ok := s.Get(sess.ID())
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = s.Get("unknown")
	assert.False(t, ok)
}

func TestStore_Expiry(t *testing.T) {
	s, c := newTestStore(time.Hour)
	sess := s.Create()

	c.now = c.now.Add(59 * time.Minute)
	_, ok := s.Get(sess.ID())
	require.True(t, ok, "access within ttl keeps the session")

	c.now = c.now.Add(59 * time.Minute)
	_, ok = s.Get(sess.ID())
	require.True(t, ok, "ttl counts from the last access")

	c.now = c.now.Add(61 * time.Minute)
	_, ok = s.Get(sess.ID())
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Sweep(t *testing.T) {
	s, c := newTestStore(time.Hour)
	old := s.Create()

	c.now = c.now.Add(30 * time.Minute)
	fresh := s.Create()

	c.now = c.now.Add(45 * time.Minute)
	assert.Equal(t, 1, s.Sweep())

	_, ok := s.Get(old.ID())
	assert.False(t, ok)
	_, ok = s.Get(fresh.ID())
	assert.True(t, ok)
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	sess := s.Create()

	s.Delete(sess.ID())

	_, ok := s.Get(sess.ID())
	assert.False(t, ok)
}

func TestSession_State(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	sess := s.Create()

	user := identity.User{ID: "9", Username: "ana"}
	sess.SignIn(user, identity.New(user, "jwt-token"))
	assert.Equal(t, "ana", sess.User().Username)
	assert.Equal(t, "jwt-token", sess.Identity().Credential)

	snap := catalog.NewSnapshot(nil, time.Now())
	sess.SetCatalog(snap)
	assert.Same(t, snap, sess.Catalog())
}

func TestSession_SingleCheckout(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	sess := s.Create()

	require.True(t, sess.TryBeginCheckout())
	assert.False(t, sess.TryBeginCheckout())

	sess.EndCheckout()
	assert.True(t, sess.TryBeginCheckout())
	sess.EndCheckout()
}
