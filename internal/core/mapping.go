package core

import (
	"fmt"
	"strings"
)

// Channel identifies a channel on a server. External channels are named
// without the leading '#'.
type Channel struct {
	Server string
	Name   string
}

func (c Channel) String() string {
	return c.Server + "/" + c.Name
}

// key folds case so that IRC channel names match regardless of case.
func (c Channel) key() Channel {
	return Channel{Server: strings.ToLower(c.Server), Name: strings.ToLower(strings.TrimPrefix(c.Name, "#"))}
}

// ChannelMapping routes between an external and an internal channel.
type ChannelMapping struct {
	External Channel
	Internal Channel
}

// MappingTable is the immutable set of channel mappings. It needs no locking.
type MappingTable struct {
	mappings   []ChannelMapping
	byExternal map[Channel]ChannelMapping
	byInternal map[Channel]ChannelMapping
}

// NewMappingTable validates mappings and indexes them in both directions.
// Each external channel maps to exactly one internal channel and vice versa.
func NewMappingTable(mappings []ChannelMapping) (*MappingTable, error) {
	t := &MappingTable{
		mappings:   make([]ChannelMapping, 0, len(mappings)),
		byExternal: make(map[Channel]ChannelMapping, len(mappings)),
		byInternal: make(map[Channel]ChannelMapping, len(mappings)),
	}

	for _, m := range mappings {
		m.External.Name = strings.TrimPrefix(m.External.Name, "#")
		if m.External.Server == "" || m.External.Name == "" || m.Internal.Server == "" || m.Internal.Name == "" {
			return nil, fmt.Errorf("incomplete channel mapping %s <-> %s", m.External, m.Internal)
		}
		if _, dup := t.byExternal[m.External.key()]; dup {
			return nil, fmt.Errorf("external channel %s mapped twice", m.External)
		}
		if _, dup := t.byInternal[m.Internal]; dup {
			return nil, fmt.Errorf("internal channel %s mapped twice", m.Internal)
		}

		t.byExternal[m.External.key()] = m
		t.byInternal[m.Internal] = m
		t.mappings = append(t.mappings, m)
	}

	return t, nil
}

// ByExternal finds the mapping of an external (server, channel) pair.
func (t *MappingTable) ByExternal(server, channel string) (ChannelMapping, bool) {
	m, ok := t.byExternal[Channel{Server: server, Name: channel}.key()]
	return m, ok
}

// ByInternal finds the mapping of an internal (server, channel) pair.
func (t *MappingTable) ByInternal(server, channel string) (ChannelMapping, bool) {
	m, ok := t.byInternal[Channel{Server: server, Name: channel}]
	return m, ok
}

// Mappings returns all mappings in configuration order.
func (t *MappingTable) Mappings() []ChannelMapping {
	out := make([]ChannelMapping, len(t.mappings))
	copy(out, t.mappings)
	return out
}

// ExternalChannels lists the external channel names mapped on one network.
func (t *MappingTable) ExternalChannels(network string) []string {
	var out []string
	for _, m := range t.mappings {
		if strings.EqualFold(m.External.Server, network) {
			out = append(out, m.External.Name)
		}
	}
	return out
}
