package contact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(ttl time.Duration) *Sessions {
	return NewSessions(ttl, func() Session {
		provider := &fakeProvider{}
		return Session{
			Widget:   NewWidget(provider, "site-key-1", testCard),
			Provider: provider,
		}
	})
}

func TestSessionsAreIsolated(t *testing.T) {
	sessions := newTestSessions(time.Minute)

	a := sessions.Open("session-a")
	b := sessions.Open("session-b")
	require.NotSame(t, a.Widget, b.Widget)

	pa := a.Provider.(*fakeProvider)
	pa.finishLoad(t, nil)
	pa.succeed(t)

	assert.True(t, a.Widget.State().HumanVerified)
	assert.False(t, b.Widget.State().HumanVerified, "verifying one session must not leak into another")
}

func TestSessionsOpenIsStable(t *testing.T) {
	sessions := newTestSessions(time.Minute)

	first := sessions.Open("session-a")
	second := sessions.Open("session-a")
	assert.Same(t, first.Widget, second.Widget)
	assert.Equal(t, 1, sessions.Len())

	got, ok := sessions.Get("session-a")
	require.True(t, ok)
	assert.Same(t, first.Widget, got.Widget)
}

func TestSessionsGetUnknown(t *testing.T) {
	sessions := newTestSessions(time.Minute)

	_, ok := sessions.Get("nope")
	assert.False(t, ok)
}

func TestSessionsCloseDropsSession(t *testing.T) {
	sessions := newTestSessions(time.Minute)

	sess := sessions.Open("session-a")
	sessions.Close("session-a")

	assert.Equal(t, 0, sessions.Len())
	assert.Equal(t, Closed, sess.Widget.Mode())

	_, ok := sessions.Get("session-a")
	assert.False(t, ok)
}

func TestSessionsSweepClosesExpired(t *testing.T) {
	sessions := newTestSessions(time.Minute)

	sess := sessions.Open("session-a")
	provider := sess.Provider.(*fakeProvider)

	sessions.sweepOnce(time.Now())
	assert.Equal(t, 1, sessions.Len(), "fresh session must survive the sweep")

	sessions.sweepOnce(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, sessions.Len())
	assert.Equal(t, Closed, sess.Widget.Mode())
	assert.Equal(t, 1, provider.cancels, "sweep must cancel the in-flight load")
}
