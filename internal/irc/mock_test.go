package irc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	network, channel, from, text string
}

type recorder struct {
	mu   sync.Mutex
	msgs []received
}

func (r *recorder) handle(network, channel, from, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, received{network, channel, from, text})
}

func (r *recorder) all() []received {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]received, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func TestMockSendToChannel(t *testing.T) {
	m := NewMock("quakenet", []string{"#bridge"}, nil, nil, nil)

	assert.True(t, m.SendToChannel("QuakeNet", "bridge", "<alice> hi"))
	assert.False(t, m.SendToChannel("libera", "bridge", "<alice> hi"))

	assert.Equal(t, []Sent{{Channel: "bridge", Text: "<alice> hi"}}, m.Sent())
	assert.Equal(t, "quakenet", m.Network())
}

func TestMockRunEmitsFakeMessages(t *testing.T) {
	rec := &recorder{}
	clk := clock.NewMock()
	m := NewMock("quakenet", []string{"#bridge", "ot"}, rec.handle, nil, clk)
	m.Chance = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.all()) >= 2 }, time.Second, 5*time.Millisecond)
	startup := rec.all()[:2]
	assert.Equal(t, received{"quakenet", "bridge", mockUser, "fake mock message (backend started ...)"}, startup[0])
	assert.Equal(t, "ot", startup[1].channel)

	require.Eventually(t, func() bool {
		clk.Add(m.Interval)
		return len(rec.all()) >= 4
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, rec.all()[2].text, "fake mock message (sent at ")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("mock did not stop")
	}
}

func TestMockZeroChanceStaysQuiet(t *testing.T) {
	rec := &recorder{}
	clk := clock.NewMock()
	m := NewMock("quakenet", []string{"bridge"}, rec.handle, nil, clk)
	m.Chance = 0

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	for range 5 {
		clk.Add(m.Interval)
	}
	assert.Len(t, rec.all(), 1)
}
