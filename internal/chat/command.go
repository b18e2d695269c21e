package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/shlex"

	"whisper/internal/dm"
	"whisper/internal/keys"
	"whisper/internal/relay"
	"whisper/internal/sanitize"
	"whisper/internal/store"
)

const helpText = "/to <npub>  /clear  /quit  /help"

// Result is what one submitted input line produces. Status is advisory text
// for the status bar; Async, when set, is a follow-up the caller runs off
// the render loop and whose return value replaces the status.
type Result struct {
	Quit   bool
	Status string
	Async  func() string
}

// Execute interprets one trimmed line of user input: empty lines are a
// no-op, lines starting with "/" are commands, anything else is outgoing
// message text.
func (s *Session) Execute(line string) Result {
	line = strings.TrimSpace(line)
	if line == "" {
		return Result{}
	}
	if strings.HasPrefix(line, "/") {
		return s.command(line)
	}
	return s.send(line)
}

func (s *Session) command(line string) Result {
	fields, err := shlex.Split(line)
	if err != nil || len(fields) == 0 {
		return Result{Status: fmt.Sprintf("Unknown: %s", line)}
	}
	switch fields[0] {
	case "/quit", "/q":
		return Result{Quit: true}
	case "/clear":
		s.store.Clear()
		return Result{}
	case "/help":
		return Result{Status: helpText}
	case "/to":
		if len(fields) < 2 {
			return Result{Status: "Usage: /to <npub>"}
		}
		pub, err := keys.ParsePublicKey(fields[1])
		if err != nil {
			return Result{Status: "Invalid npub"}
		}
		s.SetRecipient(pub)
		return Result{Status: "Recipient set"}
	default:
		return Result{Status: fmt.Sprintf("Unknown: %s", fields[0])}
	}
}

// send wraps the text for the active recipient and echoes it locally. The
// local echo does not wait for the relay acknowledgment; the ack only
// updates the status text.
func (s *Session) send(text string) Result {
	recipient := s.Recipient()
	if recipient == "" {
		return Result{Status: "No recipient. Use /to <npub>"}
	}
	if s.pub.Phase() != relay.PhaseConnected {
		return Result{Status: "Not connected"}
	}

	wraps, err := dm.Wrap(text, s.key.Secret(), recipient, "")
	if err != nil {
		return Result{Status: "Failed to create DM"}
	}

	s.store.Insert(store.Message{
		Content:   sanitize.StripControl(text),
		Timestamp: time.Now().Unix(),
		Outgoing:  true,
	})

	return Result{
		Status: "Sending...",
		Async: func() string {
			ctx, cancel := context.WithTimeout(context.Background(), s.sendTO)
			defer cancel()
			for _, w := range wraps {
				if err := s.pub.Publish(ctx, w); err != nil {
					return "Send failed"
				}
			}
			return "Sent"
		},
	}
}
