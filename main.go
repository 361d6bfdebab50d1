package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"

	"github.com/redwell-labs/rto-dispatch-service/cache"
	"github.com/redwell-labs/rto-dispatch-service/commands"
	"github.com/redwell-labs/rto-dispatch-service/config"
	"github.com/redwell-labs/rto-dispatch-service/dispatch"
	logger "github.com/redwell-labs/rto-dispatch-service/log"
	"github.com/redwell-labs/rto-dispatch-service/session"
	"github.com/redwell-labs/rto-dispatch-service/stt"
	"github.com/redwell-labs/rto-dispatch-service/system"
	"github.com/redwell-labs/rto-dispatch-service/tts"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Fatal error loading config: %v", err)
	}

	// 2. Initialize Discord Session
	s, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		log.Fatalf("Error creating Discord session: %v", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	// 3. Initialize Logger
	logger.Init(s, cfg.Discord.LogChannelID)

	// 4. Connect to Discord
	if err = s.Open(); err != nil {
		logger.Fatal("Error opening connection to Discord", err)
	}
	defer s.Close()

	// 5. Initialize Speech Services
	ctx := context.Background()
	transcriber, err := stt.New(ctx)
	if err != nil {
		logger.Fatal("Error creating speech-to-text client", err)
	}
	defer transcriber.Close()

	synthesizer, err := tts.New(ctx)
	if err != nil {
		logger.Fatal("Error creating text-to-speech client", err)
	}
	defer synthesizer.Close()

	// 6. Initialize Persistence
	var store cache.Cache
	db, err := cache.New(cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to persistence, continuing without", err)
	} else if db != nil {
		store = db
		defer db.Close()
	}

	// 7. Restore Unit Registry
	registry := dispatch.NewRegistry()
	if store != nil {
		units, err := store.LoadUnits()
		if err != nil {
			logger.Error("Failed to load persisted units", err)
		} else if len(units) > 0 {
			registry.Load(units)
			log.Printf("[BOOT] Restored %d units from persistence", len(units))
		}
		if removed, err := store.CleanAllAudio(); err != nil {
			logger.Error("Failed to clean stale audio archives", err)
		} else if removed > 0 {
			log.Printf("[BOOT] Cleaned %d stale audio archives", removed)
		}
	}

	// 8. Load the 10-Code Table
	codes, err := dispatch.LoadCodeTableFile(cfg.Codes.File)
	if err != nil {
		logger.Error("Failed to load code table, continuing with an empty one", err)
		codes = dispatch.NewCodeTable()
	} else {
		log.Printf("[BOOT] Loaded %d codes from %s", codes.Len(), cfg.Codes.File)
	}

	// 9. Assemble the Dispatch Pipeline
	callsign := dispatch.NewStrategy(cfg.Callsign.Strategy, cfg.Callsign.PrefixLen)
	engine := dispatch.NewEngine(registry)
	lifecycle := session.New(session.Options{
		Transport:   session.NewDiscordTransport(s),
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Interpreter: dispatch.NewInterpreter(codes, callsign),
		Responder:   dispatch.NewResponder(registry, engine, codes),
		Registry:    registry,
		Store:       store,
		Voice:       cfg.Voice,
	})

	// 10. Register Command Handler
	handler := commands.NewHandler(s, cfg, lifecycle, registry, codes, store)
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		handler.HandleCommand(m)
	})

	// 11. Post Boot Status
	logger.Post(bootStatus(cfg))
	log.Printf("[BOOT] Dispatcher %s is online. Press CTRL-C to exit.", cfg.Voice.BotCallsign)

	// 12. Wait for Shutdown Signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop

	log.Printf("[SHUTDOWN] Signal received, shutting down")
	if err := lifecycle.Stop(); err != nil && err != session.ErrNotRunning {
		logger.Error("Error stopping session during shutdown", err)
	}
	if store != nil {
		if err := store.SaveUnits(registry.Snapshot()); err != nil {
			logger.Error("Error persisting units during shutdown", err)
		}
	}
}

// bootStatus summarizes the host for the log channel.
func bootStatus(cfg *config.Config) string {
	status := fmt.Sprintf("📻 Dispatcher `%s` is online.", cfg.Voice.BotCallsign)
	if cpuUsage, err := system.GetCPUUsage(); err == nil {
		status += fmt.Sprintf(" CPU: %.1f%%", cpuUsage)
	}
	if memUsage, err := system.GetMemoryUsage(); err == nil {
		status += fmt.Sprintf(" MEM: %.1f%%", memUsage)
	}
	return status
}
