// Package relay tracks the lifecycle of one Nostr relay connection. The
// phase is a single atomic value because the network goroutine writes it
// while the render loop reads it every tick.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"whisper/internal/dm"
	"whisper/internal/store"
)

type Phase int32

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

var (
	ErrTimeout      = errors.New("relay connection timed out")
	ErrNotConnected = errors.New("not connected to relay")
)

const connectPollInterval = 100 * time.Millisecond

// Client wraps a single relay connection. Phase changes never block and
// never touch the message store lock.
type Client struct {
	url   string
	dirty *store.Flag

	phase        atomic.Int32
	wasConnected atomic.Bool
	closed       atomic.Bool

	mu    sync.Mutex
	relay *nostr.Relay
	sub   *nostr.Subscription
}

func New(url string, dirty *store.Flag) *Client {
	if dirty == nil {
		dirty = &store.Flag{}
	}
	return &Client{url: url, dirty: dirty}
}

func (c *Client) URL() string { return c.url }

func (c *Client) Phase() Phase { return Phase(c.phase.Load()) }

// Dropped reports a transport-level disconnect after a successful
// connection. It is terminal for the session and is not retried.
func (c *Client) Dropped() bool {
	return c.wasConnected.Load() && c.Phase() == PhaseDisconnected
}

func (c *Client) setPhase(p Phase) {
	c.phase.Store(int32(p))
	if p == PhaseConnected {
		c.wasConnected.Store(true)
	}
	c.dirty.Set()
}

// Connect starts the connection asynchronously and polls the phase at a
// fixed interval until it observes Connected, observes Error, the timeout
// elapses or ctx is canceled.
func (c *Client) Connect(ctx context.Context, timeout time.Duration) error {
	c.setPhase(PhaseConnecting)

	go func() {
		r, err := nostr.RelayConnect(ctx, c.url)
		if err != nil {
			c.setPhase(PhaseError)
			return
		}
		c.mu.Lock()
		c.relay = r
		c.mu.Unlock()
		c.setPhase(PhaseConnected)

		// The relay context ends when the transport drops.
		<-r.Context().Done()
		if !c.closed.Load() {
			c.setPhase(PhaseDisconnected)
		}
	}()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(connectPollInterval)
	defer ticker.Stop()
	for {
		switch c.Phase() {
		case PhaseConnected:
			return nil
		case PhaseError:
			return fmt.Errorf("connect to %s failed", c.url)
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SubscribeInbox subscribes to gift wraps addressed to pubkey and invokes
// onEvent from the subscription goroutine for every delivery. onEvent must
// not block on terminal I/O.
func (c *Client) SubscribeInbox(ctx context.Context, pubkey string, since *nostr.Timestamp, onEvent func(nostr.Event)) error {
	c.mu.Lock()
	r := c.relay
	c.mu.Unlock()
	if r == nil || c.Phase() != PhaseConnected {
		return ErrNotConnected
	}

	sub, err := r.Subscribe(ctx, nostr.Filters{{
		Kinds: []int{dm.KindGiftWrap},
		Tags:  nostr.TagMap{"p": []string{pubkey}},
		Since: since,
	}})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	go func() {
		for ev := range sub.Events {
			if ev == nil {
				continue
			}
			onEvent(*ev)
		}
	}()
	return nil
}

// Publish sends a signed event and waits for the relay acknowledgment.
func (c *Client) Publish(ctx context.Context, evt nostr.Event) error {
	c.mu.Lock()
	r := c.relay
	c.mu.Unlock()
	if r == nil || c.Phase() != PhaseConnected {
		return ErrNotConnected
	}
	return r.Publish(ctx, evt)
}

// Close unsubscribes and releases the connection. Safe to call on every
// teardown path, connected or not.
func (c *Client) Close() {
	c.closed.Store(true)
	c.mu.Lock()
	sub := c.sub
	r := c.relay
	c.sub = nil
	c.relay = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Unsub()
	}
	if r != nil {
		r.Close()
	}
	c.phase.Store(int32(PhaseDisconnected))
}
