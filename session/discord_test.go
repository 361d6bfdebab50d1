package session

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDiscordConn() *discordConn {
	return &discordConn{
		vc:         &discordgo.VoiceConnection{OpusRecv: make(chan *discordgo.Packet)},
		channelID:  "voice-channel",
		packets:    make(chan Packet, 4),
		departures: make(chan string, 4),
		done:       make(chan struct{}),
		speakers:   make(map[uint32]string),
	}
}

func TestVoiceStateDepartureReported(t *testing.T) {
	c := newTestDiscordConn()

	c.handleVoiceState(&discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{UserID: "u1", ChannelID: ""},
	})
	c.handleVoiceState(&discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{UserID: "u2", ChannelID: "some-other-channel"},
	})

	assert.Equal(t, "u1", <-c.departures)
	assert.Equal(t, "u2", <-c.departures)
}

func TestVoiceStateWithinChannelIgnored(t *testing.T) {
	c := newTestDiscordConn()

	// Mute/deafen toggles arrive as updates with our channel ID.
	c.handleVoiceState(&discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{UserID: "u1", ChannelID: "voice-channel"},
	})

	assert.Empty(t, c.departures)
}

func TestPumpStopsWhenConnCloses(t *testing.T) {
	c := newTestDiscordConn()
	go c.pump()

	c.vc.OpusRecv <- &discordgo.Packet{SSRC: 7, Opus: []byte{0xfc}}
	p := <-c.packets
	assert.Equal(t, uint32(7), p.SSRC)

	// OpusRecv never closes here; closing done must still end the pump.
	close(c.done)

	select {
	case _, ok := <-c.packets:
		require.False(t, ok, "packets must close once the pump exits")
	case <-time.After(time.Second):
		t.Fatal("pump did not exit after the conn was closed")
	}
}
