package commands

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/redwell-labs/rto-dispatch-service/cache"
	"github.com/redwell-labs/rto-dispatch-service/config"
	"github.com/redwell-labs/rto-dispatch-service/dispatch"
	"github.com/redwell-labs/rto-dispatch-service/session"
	"github.com/redwell-labs/rto-dispatch-service/system"
)

// Handler routes text commands to the dispatcher
type Handler struct {
	session   *discordgo.Session
	config    *config.Config
	lifecycle *session.Lifecycle
	registry  *dispatch.Registry
	codes     *dispatch.CodeTable
	store     cache.Cache
}

// NewHandler creates a new command handler
func NewHandler(
	s *discordgo.Session,
	cfg *config.Config,
	lifecycle *session.Lifecycle,
	registry *dispatch.Registry,
	codes *dispatch.CodeTable,
	store cache.Cache,
) *Handler {
	return &Handler{
		session:   s,
		config:    cfg,
		lifecycle: lifecycle,
		registry:  registry,
		codes:     codes,
		store:     store,
	}
}

// HandleCommand processes incoming commands
func (h *Handler) HandleCommand(m *discordgo.MessageCreate) {
	// Ignore bot messages
	if m.Author.Bot {
		return
	}

	prefix := h.config.Discord.CommandPrefix
	if !strings.HasPrefix(m.Content, prefix) {
		return
	}

	parts := strings.Fields(m.Content)
	command := strings.ToLower(strings.TrimPrefix(parts[0], prefix))
	args := parts[1:]

	log.Printf("[COMMAND] User %s (%s) executed: %s with args: %v",
		m.Author.Username, m.Author.ID, command, args)

	switch command {
	case "start":
		h.handleStart(m, args)
	case "stop":
		h.handleStop(m.ChannelID)
	case "units":
		h.handleUnits(m.ChannelID)
	case "code":
		h.handleCode(m.ChannelID, args)
	case "status":
		h.handleStatus(m.ChannelID)
	case "help":
		h.handleHelp(m.ChannelID)
	default:
		h.sendResponse(m.ChannelID, fmt.Sprintf("❌ Unknown command: `%s%s`. Use `%shelp` for available commands.", prefix, command, prefix))
	}
}

// sendResponse sends a message to a channel
func (h *Handler) sendResponse(channelID, message string) {
	_, err := h.session.ChannelMessageSend(channelID, message)
	if err != nil {
		log.Printf("[COMMAND] Failed to send response: %v", err)
	}
}

// handleStart joins a voice channel and begins dispatching
func (h *Handler) handleStart(m *discordgo.MessageCreate, args []string) {
	channelID, name, err := h.resolveVoiceChannel(m, args)
	if err != nil {
		h.sendResponse(m.ChannelID, fmt.Sprintf("❌ %v", err))
		return
	}

	if err := h.lifecycle.Start(m.GuildID, channelID); err != nil {
		switch {
		case errors.Is(err, session.ErrAlreadyRunning):
			h.sendResponse(m.ChannelID, "⚠️ Dispatcher is already running. Use `"+h.config.Discord.CommandPrefix+"stop` first.")
		case errors.Is(err, session.ErrInvalidChannel):
			h.sendResponse(m.ChannelID, fmt.Sprintf("❌ `%s` is not a voice channel.", name))
		default:
			h.sendResponse(m.ChannelID, fmt.Sprintf("❌ Failed to start dispatcher: %v", err))
		}
		return
	}

	h.sendResponse(m.ChannelID, fmt.Sprintf("📻 Dispatcher **%s** is on the air in **%s**.", h.config.Voice.BotCallsign, name))
}

// handleStop disconnects the dispatcher
func (h *Handler) handleStop(channelID string) {
	if err := h.lifecycle.Stop(); err != nil {
		if errors.Is(err, session.ErrNotRunning) {
			h.sendResponse(channelID, "⚠️ Dispatcher is not running.")
			return
		}
		h.sendResponse(channelID, fmt.Sprintf("❌ Failed to stop dispatcher: %v", err))
		return
	}
	h.sendResponse(channelID, "📻 Dispatcher signing off. Unit registry retained.")
}

// handleUnits lists all tracked units and their status
func (h *Handler) handleUnits(channelID string) {
	units := h.registry.Units()
	if len(units) == 0 {
		h.sendResponse(channelID, "No units are currently tracked.")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Tracked Units:**\n")
	for _, unit := range units {
		sb.WriteString(fmt.Sprintf("`%s` - %s (%s) since %s\n",
			unit.Callsign, unit.Status.Code(), unit.Status, unit.LastUpdated.Format("15:04:05")))
	}
	h.sendResponse(channelID, sb.String())
}

// handleCode looks up a 10-code in the loaded table
func (h *Handler) handleCode(channelID string, args []string) {
	if len(args) == 0 {
		h.sendResponse(channelID, "❌ Usage: `"+h.config.Discord.CommandPrefix+"code <code>` - Please specify a code, e.g. `10-20`")
		return
	}

	code := strings.ToUpper(args[0])
	meaning, ok := h.codes.Lookup(code)
	if !ok {
		h.sendResponse(channelID, fmt.Sprintf("❌ Unknown code: `%s`", code))
		return
	}
	h.sendResponse(channelID, fmt.Sprintf("`%s` - %s", code, meaning))
}

// handleStatus reports the dispatcher and host status
func (h *Handler) handleStatus(channelID string) {
	var sb strings.Builder
	sb.WriteString("**Dispatcher Status:**\n")
	sb.WriteString(fmt.Sprintf("Session: `%s`\n", h.lifecycle.State()))
	sb.WriteString(fmt.Sprintf("Queued chunks: `%d`\n", h.lifecycle.Pending()))
	sb.WriteString(fmt.Sprintf("Tracked units: `%d`\n", h.registry.Len()))
	sb.WriteString(fmt.Sprintf("Known codes: `%d`\n", h.codes.Len()))

	if cpuUsage, err := system.GetCPUUsage(); err == nil {
		sb.WriteString(fmt.Sprintf("CPU: `%.1f%%`\n", cpuUsage))
	}
	if memUsage, err := system.GetMemoryUsage(); err == nil {
		sb.WriteString(fmt.Sprintf("Memory: `%.1f%%`\n", memUsage))
	}

	if h.store != nil {
		if err := h.store.Ping(); err != nil {
			sb.WriteString("Persistence: `unreachable`\n")
		} else {
			sb.WriteString("Persistence: `connected`\n")
		}
	} else {
		sb.WriteString("Persistence: `disabled`\n")
	}

	h.sendResponse(channelID, sb.String())
}

// handleHelp shows available commands
func (h *Handler) handleHelp(channelID string) {
	p := h.config.Discord.CommandPrefix
	help := "**Available Commands:**\n" +
		fmt.Sprintf("`%sstart [channel]` - Join a voice channel and start dispatching\n", p) +
		fmt.Sprintf("`%sstop` - Disconnect and stop dispatching\n", p) +
		fmt.Sprintf("`%sunits` - List all tracked units and their status\n", p) +
		fmt.Sprintf("`%scode <code>` - Look up a 10-code\n", p) +
		fmt.Sprintf("`%sstatus` - Show dispatcher and host status\n", p) +
		fmt.Sprintf("`%shelp` - Show this help message", p)

	h.sendResponse(channelID, help)
}

// resolveVoiceChannel picks the channel to join: an explicit argument with
// smart matching, then the configured channel, then the invoker's current
// voice channel.
func (h *Handler) resolveVoiceChannel(m *discordgo.MessageCreate, args []string) (string, string, error) {
	if len(args) > 0 {
		return h.matchVoiceChannel(m.GuildID, strings.Join(args, " "))
	}

	if h.config.Voice.ChannelID != "" {
		name := h.config.Voice.ChannelID
		if ch, err := h.session.Channel(h.config.Voice.ChannelID); err == nil {
			name = ch.Name
		}
		return h.config.Voice.ChannelID, name, nil
	}

	guild, err := h.session.State.Guild(m.GuildID)
	if err == nil {
		for _, vs := range guild.VoiceStates {
			if vs.UserID == m.Author.ID {
				name := vs.ChannelID
				if ch, err := h.session.Channel(vs.ChannelID); err == nil {
					name = ch.Name
				}
				return vs.ChannelID, name, nil
			}
		}
	}

	return "", "", fmt.Errorf("no voice channel configured and you are not in one; use `%sstart <channel>`", h.config.Discord.CommandPrefix)
}

// matchVoiceChannel finds a voice channel by ID or name (case-insensitive,
// partial match)
func (h *Handler) matchVoiceChannel(guildID, query string) (string, string, error) {
	channels, err := h.session.GuildChannels(guildID)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch channels: %v", err)
	}

	var matches []*discordgo.Channel
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildVoice {
			continue
		}
		if ch.ID == query {
			matches = []*discordgo.Channel{ch}
			break
		}
		if strings.Contains(strings.ToLower(ch.Name), strings.ToLower(query)) {
			matches = append(matches, ch)
		}
	}

	if len(matches) == 0 {
		return "", "", fmt.Errorf("no voice channel found matching: `%s`", query)
	}
	if len(matches) > 1 {
		var names []string
		for _, ch := range matches {
			names = append(names, fmt.Sprintf("`%s`", ch.Name))
		}
		return "", "", fmt.Errorf("multiple channels found (%s), please be more specific", strings.Join(names, ", "))
	}
	return matches[0].ID, matches[0].Name, nil
}
