package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingTableLookups(t *testing.T) {
	table, err := NewMappingTable(testMappings)
	require.NoError(t, err)

	m, ok := table.ByExternal(testNetwork, "bridge")
	require.True(t, ok)
	assert.Equal(t, generalChannel, m.Internal)

	m, ok = table.ByExternal("QuakeNet", "#Bridge")
	require.True(t, ok, "external lookup ignores case and the channel prefix")
	assert.Equal(t, generalChannel, m.Internal)

	m, ok = table.ByInternal("main", "offtopic")
	require.True(t, ok)
	assert.Equal(t, "bridge-ot", m.External.Name)

	_, ok = table.ByInternal("main", "General")
	assert.False(t, ok, "internal lookup is exact")

	_, ok = table.ByExternal(testNetwork, "unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{"bridge", "bridge-ot"}, table.ExternalChannels(testNetwork))
	assert.Len(t, table.Mappings(), len(testMappings))
}

func TestMappingTableRejectsAmbiguity(t *testing.T) {
	_, err := NewMappingTable([]ChannelMapping{
		{External: Channel{Server: "net", Name: "a"}, Internal: Channel{Server: "s", Name: "x"}},
		{External: Channel{Server: "net", Name: "#A"}, Internal: Channel{Server: "s", Name: "y"}},
	})
	assert.Error(t, err, "external channel mapped twice")

	_, err = NewMappingTable([]ChannelMapping{
		{External: Channel{Server: "net", Name: "a"}, Internal: Channel{Server: "s", Name: "x"}},
		{External: Channel{Server: "net", Name: "b"}, Internal: Channel{Server: "s", Name: "x"}},
	})
	assert.Error(t, err, "internal channel mapped twice")

	_, err = NewMappingTable([]ChannelMapping{
		{External: Channel{Server: "net", Name: "#"}, Internal: Channel{Server: "s", Name: "x"}},
	})
	assert.Error(t, err, "incomplete mapping")
}
