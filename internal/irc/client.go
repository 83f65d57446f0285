// Package irc connects the bridge to an external IRC network.
package irc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/irc.v4"
)

const (
	defaultReconnectDelay = 5 * time.Second
	maxReconnectDelay     = 5 * time.Minute
	// stableSession resets the backoff once a connection lasted this long.
	stableSession = 2 * time.Minute

	pingFrequency = time.Minute
	pingTimeout   = 2 * time.Minute
)

// Handler receives channel messages read from the network. channel has no
// leading '#'.
type Handler func(network, channel, from, text string)

// Config describes one IRC connection.
type Config struct {
	Addr           string
	Network        string
	Nick           string
	User           string
	Name           string
	TLS            bool
	Channels       []string
	ReconnectDelay time.Duration
}

// Client is a reconnecting IRC client joined to a fixed set of channels.
type Client struct {
	cfg     Config
	handler Handler
	log     *zerolog.Logger
	dialer  net.Dialer

	mu    sync.RWMutex
	conn  *irc.Client
	ready bool
}

// NewClient creates a client. Call Run to connect.
func NewClient(cfg Config, handler Handler, logger *zerolog.Logger) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("irc server address is required")
	}
	if cfg.Network == "" {
		return nil, errors.New("irc network name is required")
	}
	if cfg.Nick == "" {
		return nil, errors.New("irc nick is required")
	}
	if cfg.User == "" {
		cfg.User = cfg.Nick
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Nick
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if handler == nil {
		handler = func(string, string, string, string) {}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "irc").Str("network", cfg.Network).Logger()

	return &Client{
		cfg:     cfg,
		handler: handler,
		log:     &l,
		dialer:  net.Dialer{Timeout: 30 * time.Second, KeepAlive: time.Minute},
	}, nil
}

// Network returns the network name this client delivers to.
func (c *Client) Network() string {
	return c.cfg.Network
}

// Ready reports whether the client is registered and has joined its channels.
func (c *Client) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// SendToChannel sends text as a PRIVMSG to channel. It fails for other
// networks and while disconnected.
func (c *Client) SendToChannel(server, channel, text string) bool {
	if !strings.EqualFold(server, c.cfg.Network) {
		c.log.Warn().Str("server", server).Msg("send to unsupported network")
		return false
	}

	c.mu.RLock()
	conn, ready := c.conn, c.ready
	c.mu.RUnlock()
	if conn == nil || !ready {
		c.log.Warn().Str("channel", channel).Msg("not connected, cannot send")
		return false
	}

	err := conn.WriteMessage(&irc.Message{
		Command: "PRIVMSG",
		Params:  []string{channelTarget(channel), sanitize(text)},
	})
	if err != nil {
		c.log.Warn().Err(err).Str("channel", channel).Msg("failed to send message")
		return false
	}
	return true
}

// Run connects and keeps reconnecting with exponential backoff until ctx is
// cancelled.
func (c *Client) Run(ctx context.Context) error {
	delay := c.cfg.ReconnectDelay
	for {
		started := time.Now()
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) > stableSession {
			delay = c.cfg.ReconnectDelay
		}
		c.log.Warn().Err(err).Dur("retry_in", delay).Msg("irc connection lost")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	client := irc.NewClient(conn, irc.ClientConfig{
		Nick:          c.cfg.Nick,
		User:          c.cfg.User,
		Name:          c.cfg.Name,
		PingFrequency: pingFrequency,
		PingTimeout:   pingTimeout,
		Handler:       irc.HandlerFunc(c.handle),
	})

	c.mu.Lock()
	c.conn = client
	c.ready = false
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.ready = false
		c.mu.Unlock()
	}()

	c.log.Info().Str("addr", c.cfg.Addr).Msg("connected")
	return client.RunContext(ctx)
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.Addr, err)
	}
	if !c.cfg.TLS {
		return conn, nil
	}

	host, _, err := net.SplitHostPort(c.cfg.Addr)
	if err != nil {
		host = c.cfg.Addr
	}
	tlsConn := tls.Client(conn, &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", c.cfg.Addr, err)
	}
	return tlsConn, nil
}

func (c *Client) handle(client *irc.Client, m *irc.Message) {
	switch m.Command {
	case "001":
		for _, ch := range c.cfg.Channels {
			c.log.Info().Str("channel", channelTarget(ch)).Msg("joining channel")
			if err := client.WriteMessage(&irc.Message{Command: "JOIN", Params: []string{channelTarget(ch)}}); err != nil {
				c.log.Warn().Err(err).Str("channel", ch).Msg("failed to join channel")
			}
		}
		c.mu.Lock()
		if c.conn == client {
			c.ready = true
		}
		c.mu.Unlock()
	case "PRIVMSG":
		if m.Prefix == nil || len(m.Params) < 2 {
			return
		}
		target := m.Params[0]
		if !strings.HasPrefix(target, "#") {
			// Private messages to the relay are not bridged.
			return
		}
		from, text := m.Prefix.Name, m.Params[len(m.Params)-1]
		c.log.Debug().Str("from", from).Str("channel", target).Msg("message")
		c.handler(c.cfg.Network, strings.TrimPrefix(target, "#"), from, text)
	}
}

func channelTarget(channel string) string {
	if strings.HasPrefix(channel, "#") {
		return channel
	}
	return "#" + channel
}

// sanitize keeps relayed text on a single IRC line.
func sanitize(text string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(text)
}
