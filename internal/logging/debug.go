package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger provides topic-based debug logging with minimal overhead when disabled
type Logger struct {
	topic   string
	enabled bool
	nop     zerolog.Logger
}

var enabledTopics = make(map[string]bool)

func init() {
	// Read DEBUG_TOPICS env var: DEBUG_TOPICS=gap,trigger,ledger
	topics := os.Getenv("DEBUG_TOPICS")
	if topics == "" {
		return
	}

	// Special case: "all" enables everything
	if topics == "all" {
		enabledTopics["*"] = true
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}

	for _, topic := range strings.Split(topics, ",") {
		topic = strings.TrimSpace(topic)
		if topic != "" {
			enabledTopics[topic] = true
		}
	}

	if len(enabledTopics) > 0 {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// Setup configures the global zerolog logger for console output at the given
// level. DEBUG_TOPICS overrides the level to debug when set.
func Setup(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if len(enabledTopics) == 0 {
		zerolog.SetGlobalLevel(lvl)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// New creates a new topic-specific logger
// Usage: var gapLog = logging.New("gap")
func New(topic string) *Logger {
	enabled := enabledTopics["*"] || enabledTopics[topic]
	return &Logger{
		topic:   topic,
		enabled: enabled,
		nop:     zerolog.Nop(),
	}
}

// Debug returns a debug event if this topic is enabled.
// Fast path: returns a no-op event if disabled (single bool check)
func (l *Logger) Debug() *zerolog.Event {
	if !l.enabled {
		return l.nop.Debug()
	}
	return log.Debug().Str("topic", l.topic)
}

// Info returns an info event if this topic is enabled
func (l *Logger) Info() *zerolog.Event {
	if !l.enabled {
		return l.nop.Info()
	}
	return log.Info().Str("topic", l.topic)
}

// Enabled returns true if this logger is enabled
// Useful for expensive computations: if log.Enabled() { ... }
func (l *Logger) Enabled() bool {
	return l.enabled
}
