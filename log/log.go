package log

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

var (
	session      *discordgo.Session
	logChannelID string
	ready        = make(chan struct{})
	readyOnce    sync.Once
)

// Init initializes the log module with a discord session. Standard logger
// output is mirrored into the configured log channel.
func Init(s *discordgo.Session, channelID string) {
	session = s
	logChannelID = channelID
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		markReady()
	})
	log.SetOutput(&discordWriter{})
	log.SetFlags(0)
}

// markReady releases Post. The gateway re-sends READY after a failed
// resume, so this must tolerate repeat calls.
func markReady() {
	readyOnce.Do(func() { close(ready) })
}

// Post sends a message to the log channel.
func Post(msg string) {
	if session != nil && logChannelID != "" {
		// Wait until the session is ready before trying to send.
		<-ready
		_, _ = session.ChannelMessageSend(logChannelID, msg)
	}
}

// Error logs an error to the console and to the discord channel.
func Error(context string, err error) {
	_, file, line, ok := runtime.Caller(1)
	var callerInfo string
	if ok {
		parts := strings.Split(file, "/")
		if len(parts) > 2 {
			file = strings.Join(parts[len(parts)-2:], "/")
		}
		callerInfo = fmt.Sprintf("%s:%d", file, line)
	}

	log.Printf("[ERROR] in %s: %s\n%v\n", callerInfo, context, err)
}

// Fatal logs an error and then exits the program.
func Fatal(context string, err error) {
	Error(context, err)
	os.Exit(1)
}

// discordWriter mirrors standard logger output into the log channel.
type discordWriter struct{}

func (w *discordWriter) Write(p []byte) (n int, err error) {
	msg := string(p)
	fmt.Print(msg)
	if session != nil && logChannelID != "" {
		// Truncate long messages to keep under the Discord limit.
		if len(msg) > 1900 {
			msg = msg[:1900] + "..."
		}
		// Mirror asynchronously; Post blocks until the gateway is ready
		// and logging must never stall the caller.
		go Post("```\n" + msg + "```")
	}
	return len(p), nil
}
