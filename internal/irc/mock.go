package irc

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

const (
	mockUser         = "mock_user"
	mockTickInterval = 50 * time.Second
	mockChance       = 0.1
)

// Sent is one message delivered to the mock network.
type Sent struct {
	Channel string
	Text    string
}

// Mock simulates an IRC network for dry runs. Sends are logged and recorded;
// every channel receives a fake message at start and then, now and again,
// another one.
type Mock struct {
	network  string
	channels []string
	handler  Handler
	log      *zerolog.Logger
	clock    clock.Clock

	// Interval and Chance control the random fake messages.
	Interval time.Duration
	Chance   float64

	mu   sync.Mutex
	sent []Sent
}

// NewMock creates a mock network named network that serves channels.
func NewMock(network string, channels []string, handler Handler, logger *zerolog.Logger, clk clock.Clock) *Mock {
	if handler == nil {
		handler = func(string, string, string, string) {}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if clk == nil {
		clk = clock.New()
	}
	l := logger.With().Str("component", "mock-irc").Str("network", network).Logger()

	trimmed := make([]string, 0, len(channels))
	for _, ch := range channels {
		trimmed = append(trimmed, strings.TrimPrefix(ch, "#"))
	}

	return &Mock{
		network:  network,
		channels: trimmed,
		handler:  handler,
		log:      &l,
		clock:    clk,
		Interval: mockTickInterval,
		Chance:   mockChance,
	}
}

// Network returns the simulated network name.
func (m *Mock) Network() string {
	return m.network
}

// SendToChannel records text. It fails for other networks.
func (m *Mock) SendToChannel(server, channel, text string) bool {
	if !strings.EqualFold(server, m.network) {
		m.log.Warn().Str("server", server).Msg("send to unsupported network")
		return false
	}
	m.log.Info().Str("channel", channelTarget(channel)).Msg(text)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Sent{Channel: strings.TrimPrefix(channel, "#"), Text: text})
	return true
}

// Sent returns the recorded sends, oldest first.
func (m *Mock) Sent() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sent, len(m.sent))
	copy(out, m.sent)
	return out
}

// Run emits the fake messages until ctx is cancelled.
func (m *Mock) Run(ctx context.Context) error {
	for _, ch := range m.channels {
		m.handler(m.network, ch, mockUser, "fake mock message (backend started ...)")
	}

	ticker := m.clock.Ticker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			for _, ch := range m.channels {
				if rand.Float64() >= m.Chance {
					continue
				}
				m.handler(m.network, ch, mockUser, fmt.Sprintf("fake mock message (sent at %s)", now.Format(time.TimeOnly)))
			}
		}
	}
}
