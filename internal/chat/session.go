// Package chat holds the conversation state between the relay subscription
// and the render loop: the active recipient, event ingestion and the slash
// command interpreter.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"whisper/internal/dm"
	"whisper/internal/keys"
	"whisper/internal/relay"
	"whisper/internal/sanitize"
	"whisper/internal/store"
)

// Publisher is the slice of the relay client the session needs. Split out so
// command tests run without a network.
type Publisher interface {
	Publish(ctx context.Context, evt nostr.Event) error
	Phase() relay.Phase
}

type Session struct {
	key    *keys.Key
	store  *store.Store
	pub    Publisher
	sendTO time.Duration

	mu        sync.Mutex
	recipient string // hex pubkey, empty until set
}

func NewSession(key *keys.Key, st *store.Store, pub Publisher, sendTimeout time.Duration) *Session {
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Session{key: key, store: st, pub: pub, sendTO: sendTimeout}
}

// Recipient returns the active peer's hex pubkey, or empty when unset.
func (s *Session) Recipient() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipient
}

// SetRecipient switches the conversation to a new peer and clears the view.
func (s *Session) SetRecipient(pub string) {
	s.mu.Lock()
	s.recipient = pub
	s.mu.Unlock()
	s.store.Clear()
}

func (s *Session) Store() *store.Store { return s.store }

// ShortSelf returns our own identity in short display form.
func (s *Session) ShortSelf() string { return keys.ShortNpub(s.key.Public()) }

// Ingest runs on the subscription goroutine for every gift wrap delivered by
// the relay. Wraps this key cannot open are dropped silently: a kind-1059
// inbox subscription routinely carries ciphertext for other recipients.
// With a recipient set, messages from other senders are dropped to keep the
// single-peer view.
func (s *Session) Ingest(evt nostr.Event) {
	content, sender, ts, err := dm.Unwrap(evt, s.key.Secret())
	if err != nil {
		return
	}
	if r := s.Recipient(); r != "" && sender != r {
		return
	}
	if ts == 0 {
		ts = time.Now().Unix()
	}
	s.store.Insert(store.Message{
		Sender:    keys.ShortNpub(sender),
		Content:   sanitize.StripControl(content),
		Timestamp: ts,
	})
}
