package session

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/redwell-labs/rto-dispatch-service/playback"
)

// DiscordTransport adapts a discordgo session to the Transport interface.
type DiscordTransport struct {
	s *discordgo.Session
}

// NewDiscordTransport wraps an open discordgo session.
func NewDiscordTransport(s *discordgo.Session) *DiscordTransport {
	return &DiscordTransport{s: s}
}

// Join validates the target and connects to the voice channel.
func (t *DiscordTransport) Join(guildID, channelID string) (Conn, error) {
	channel, err := t.s.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("%w: could not look up channel %s: %v", ErrInvalidChannel, channelID, err)
	}
	if channel.Type != discordgo.ChannelTypeGuildVoice {
		return nil, fmt.Errorf("%w: %s is a %d channel", ErrInvalidChannel, channelID, channel.Type)
	}

	vc, err := t.s.ChannelVoiceJoin(guildID, channelID, false, false)
	if err != nil {
		return nil, fmt.Errorf("could not join voice channel %s: %w", channelID, err)
	}

	conn := &discordConn{
		s:          t.s,
		vc:         vc,
		channelID:  channelID,
		packets:    make(chan Packet, 64),
		departures: make(chan string, 16),
		done:       make(chan struct{}),
		speakers:   make(map[uint32]string),
	}

	// Discord announces SSRC ownership through speaking updates; map them
	// whether or not the user is currently speaking so pre-existing
	// participants resolve too.
	vc.AddHandler(func(_ *discordgo.VoiceConnection, p *discordgo.VoiceSpeakingUpdate) {
		conn.registerSSRC(uint32(p.SSRC), p.UserID)
	})

	conn.detach = t.s.AddHandler(func(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
		conn.handleVoiceState(v)
	})

	go conn.pump()
	return conn, nil
}

type discordConn struct {
	s          *discordgo.Session
	vc         *discordgo.VoiceConnection
	channelID  string
	packets    chan Packet
	departures chan string
	done       chan struct{}
	closeOnce  sync.Once
	detach     func()

	mu       sync.RWMutex
	speakers map[uint32]string // SSRC -> userID
}

func (c *discordConn) registerSSRC(ssrc uint32, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speakers[ssrc] = userID
}

// handleVoiceState reports speakers who are no longer in our channel.
// Dropping a buffer for someone we never held one for is a no-op, so a
// missing BeforeUpdate costs nothing.
func (c *discordConn) handleVoiceState(v *discordgo.VoiceStateUpdate) {
	if v.ChannelID == c.channelID {
		return
	}
	select {
	case c.departures <- v.UserID:
	default:
	}
}

// pump forwards opus packets until the receive channel closes or the conn
// is closed. Close must unblock it; discordgo does not guarantee OpusRecv
// closes on Disconnect.
func (c *discordConn) pump() {
	defer close(c.packets)
	for {
		select {
		case <-c.done:
			return
		case p, ok := <-c.vc.OpusRecv:
			if !ok {
				return
			}
			select {
			case <-c.done:
				return
			case c.packets <- Packet{
				SSRC:      p.SSRC,
				Sequence:  p.Sequence,
				Timestamp: p.Timestamp,
				Opus:      p.Opus,
			}:
			}
		}
	}
}

func (c *discordConn) Packets() <-chan Packet {
	return c.packets
}

func (c *discordConn) Departures() <-chan string {
	return c.departures
}

func (c *discordConn) Resolve(ssrc uint32) (string, string, bool) {
	c.mu.RLock()
	userID, ok := c.speakers[ssrc]
	c.mu.RUnlock()
	if !ok {
		return "", "", false
	}

	user, err := c.s.User(userID)
	if err != nil {
		return userID, userID, true
	}
	// Never transcribe other bots, or the dispatcher's own announcements.
	if user.Bot {
		return "", "", false
	}
	return userID, displayName(user), true
}

func (c *discordConn) NewDevice() (playback.Device, error) {
	return playback.NewVoiceDevice(c.vc)
}

func (c *discordConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.detach != nil {
			c.detach()
		}
	})
	return c.vc.Disconnect()
}

func displayName(user *discordgo.User) string {
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}
