package core

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirebridge/internal/store"
)

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry(clock.NewMock())

	a, err := r.Create("a", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, PlaceholderName, a.Username())
	assert.False(t, a.Authenticated())
	assert.Regexp(t, `^[a-zA-Z0-9]{32}$`, a.Token)

	b, err := r.Create("b", "10.0.0.2")
	require.NoError(t, err)
	assert.NotEqual(t, a.Token, b.Token)

	_, err = r.Create("a", "10.0.0.3")
	assert.ErrorIs(t, err, ErrDuplicateSession)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry(clock.NewMock())

	s, err := r.Create("a", "")
	require.NoError(t, err)

	assert.Same(t, s, r.FindByConnection("a"))
	assert.Nil(t, r.FindByConnection("missing"))
	assert.Nil(t, r.FindByUsername(PlaceholderName), "unauthenticated sessions never match")
	assert.Nil(t, r.FindByUsername(""))

	_, err = r.Claim(s, "alice", nil, generalChannel, reasonOtherLocation)
	require.NoError(t, err)
	assert.Same(t, s, r.FindByUsername("alice"))
	assert.Nil(t, r.FindByUsername(""))
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry(clock.NewMock())
	_, err := r.Create("a", "")
	require.NoError(t, err)

	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"))
	assert.Nil(t, r.FindByConnection("a"))
}

func TestRegistryForceLogoutKeepsSession(t *testing.T) {
	r := NewRegistry(clock.NewMock())
	s, err := r.Create("a", "")
	require.NoError(t, err)

	_, err = r.Claim(s, "alice", &store.Account{Username: "alice"}, generalChannel, reasonOtherLocation)
	require.NoError(t, err)

	r.ForceLogout(s, "bye")

	assert.False(t, s.Authenticated())
	assert.Nil(t, s.Account())
	_, joined := s.Channel()
	assert.False(t, joined)
	assert.Same(t, s, r.FindByConnection("a"))

	ev := mustEvent(t, s.Events, EventLogout)
	assert.Equal(t, "bye", ev.Reason)
}

func TestRegistryClaimEvictsHolder(t *testing.T) {
	r := NewRegistry(clock.NewMock())
	first, err := r.Create("a", "")
	require.NoError(t, err)
	second, err := r.Create("b", "")
	require.NoError(t, err)

	evicted, err := r.Claim(first, "alice", nil, generalChannel, reasonOtherLocation)
	require.NoError(t, err)
	assert.Nil(t, evicted)

	evicted, err = r.Claim(second, "alice", nil, generalChannel, reasonOtherLocation)
	require.NoError(t, err)
	assert.Same(t, first, evicted)
	assert.False(t, first.Authenticated())
	assert.Same(t, second, r.FindByUsername("alice"))

	ev := mustEvent(t, first.Events, EventLogout)
	assert.Equal(t, reasonOtherLocation, ev.Reason)

	// Claiming again from the holder itself evicts nobody.
	evicted, err = r.Claim(second, "alice", nil, generalChannel, reasonOtherLocation)
	require.NoError(t, err)
	assert.Nil(t, evicted)
}

func TestRegistryClaimRemovedSession(t *testing.T) {
	r := NewRegistry(clock.NewMock())
	s, err := r.Create("a", "")
	require.NoError(t, err)
	r.Remove("a")

	_, err = r.Claim(s, "alice", nil, generalChannel, reasonOtherLocation)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, s.Authenticated())
}

func TestSessionTokenSurvivesRelogin(t *testing.T) {
	r := NewRegistry(clock.NewMock())
	s, err := r.Create("a", "")
	require.NoError(t, err)
	token := s.Token

	_, err = r.Claim(s, "alice", nil, generalChannel, reasonOtherLocation)
	require.NoError(t, err)
	r.ForceLogout(s, "bye")
	_, err = r.Claim(s, "bob", nil, offtopicChannel, reasonOtherLocation)
	require.NoError(t, err)

	assert.Equal(t, token, s.Token)
	assert.Equal(t, "bob", s.Username())
}
