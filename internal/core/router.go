package core

import (
	"fmt"
	"strings"

	"github.com/vovakirdan/wirebridge/internal/metrics"
)

// HandleExternal accepts a message read from the external network. Messages
// from channels without a mapping are dropped.
func (b *Bridge) HandleExternal(server, channel, from, text string) {
	mapping, ok := b.mappings.ByExternal(server, channel)
	if !ok {
		b.metrics.MessageDropped(metrics.DropNoMapping)
		b.log.Warn().Str("server", server).Str("channel", channel).Str("from", from).Msg("no mapping for external channel, dropping message")
		return
	}

	b.log.Debug().Str("from", from).Str("channel", mapping.External.String()).Msg("external message")
	b.publish(Message{
		From:      from,
		Text:      text,
		Channel:   mapping.Internal.Name,
		Server:    mapping.Internal.Server,
		CreatedAt: b.clock.Now(),
	}, metrics.DirectionInbound, nil)
}

// Relay forwards a message of a logged in session to the mapped external
// channel, then backlogs it and echoes it to every session of the internal
// channel, the sender included.
func (b *Bridge) Relay(s *Session, req MessageRequest) {
	logger := b.log.With().Str("conn_id", s.ConnID).Str("addr", s.Addr).Logger()

	if b.registry.FindByConnection(s.ConnID) != s {
		b.metrics.MessageDropped(metrics.DropSessionMissing)
		logger.Debug().Msg("message from removed session, dropping")
		return
	}

	if b.registry.FindByUsername(req.From) != s || req.Token != s.Token {
		b.metrics.MessageDropped(metrics.DropUnauthorized)
		logger.Warn().Str("from", req.From).Msg("invalid token or sender")
		b.sendError(s, coreError(ErrCodeUnauthorized, "not logged in"))
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		b.sendError(s, coreError(ErrCodeBadRequest, "message is empty"))
		return
	}

	if !s.allow(b.clock.Now()) {
		b.metrics.MessageDropped(metrics.DropRateLimited)
		logger.Info().Str("from", req.From).Msg("rate limited")
		b.sendError(s, coreError(ErrCodeRateLimited, "you are sending messages too fast"))
		return
	}

	ch, ok := s.Channel()
	if !ok {
		// Logged out between the sender check and now.
		b.metrics.MessageDropped(metrics.DropUnauthorized)
		return
	}
	mapping, ok := b.mappings.ByInternal(ch.Server, ch.Name)
	if !ok {
		b.metrics.MessageDropped(metrics.DropNoMapping)
		logger.Error().Str("channel", ch.String()).Msg("joined channel has no mapping")
		b.sendError(s, coreError(ErrCodeInternal, "internal error"))
		return
	}

	if !strings.EqualFold(mapping.External.Server, b.network.Network()) {
		b.metrics.MessageDropped(metrics.DropUnsupported)
		logger.Warn().Str("server", mapping.External.Server).Msg("unsupported external network")
		b.sendError(s, coreError(ErrCodeUnsupportedNetwork, fmt.Sprintf("unsupported network '%s'", mapping.External.Server)))
		return
	}

	line := fmt.Sprintf("<%s> %s", req.From, req.Text)
	if !b.network.SendToChannel(mapping.External.Server, mapping.External.Name, line) {
		b.metrics.MessageDropped(metrics.DropDelivery)
		logger.Warn().Str("channel", mapping.External.String()).Msg("failed to deliver message")
		b.sendError(s, coreError(ErrCodeDeliveryFailed, "failed to deliver message"))
		return
	}
	logger.Info().Str("from", req.From).Str("channel", mapping.External.String()).Msg("message relayed")

	if !b.publish(Message{
		From:      req.From,
		Text:      req.Text,
		Channel:   ch.Name,
		Server:    ch.Server,
		CreatedAt: b.clock.Now(),
	}, metrics.DirectionOutbound, s) {
		logger.Debug().Msg("sender left during delivery, not backlogged")
	}
}

// publish appends msg to the backlog and fans it out to the sessions joined
// to its internal channel. A non-nil sender must still be registered, or the
// message is dropped and publish reports false.
func (b *Bridge) publish(msg Message, direction string, sender *Session) bool {
	b.relayMu.Lock()
	defer b.relayMu.Unlock()

	if sender != nil && b.registry.FindByConnection(sender.ConnID) != sender {
		b.metrics.MessageDropped(metrics.DropSessionMissing)
		return false
	}

	msg = b.backlog.Append(msg)
	b.metrics.MessageBridged(direction, b.backlog.Len())

	target := Channel{Server: msg.Server, Name: msg.Channel}
	ev := &Event{Kind: EventMessage, Message: msg}
	for _, s := range b.registry.Sessions() {
		if ch, ok := s.Channel(); ok && ch == target {
			b.deliver(s, ev)
		}
	}
	return true
}
