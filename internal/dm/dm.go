// Package dm wraps and unwraps NIP-17 direct messages: an unsigned kind-14
// rumor sealed and gift-wrapped (NIP-59) with NIP-44 encryption, so the relay
// sees neither sender nor plaintext.
package dm

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip44"
	"github.com/nbd-wtf/go-nostr/nip59"
)

const (
	KindChat     = 14
	KindGiftWrap = 1059
)

// Unwrap opens a kind-1059 gift wrap with our private key and returns the
// plaintext, the true sender and the rumor timestamp. Events this key cannot
// open return an error; callers drop them silently because a shared inbox
// subscription routinely delivers wraps addressed to other keys.
func Unwrap(evt nostr.Event, sk string) (content, sender string, ts int64, err error) {
	if evt.Kind != KindGiftWrap {
		return "", "", 0, fmt.Errorf("unexpected kind %d", evt.Kind)
	}
	rumor, err := nip59.GiftUnwrap(evt, func(otherPubkey, ciphertext string) (string, error) {
		ck, err := nip44.GenerateConversationKey(otherPubkey, sk)
		if err != nil {
			return "", err
		}
		return nip44.Decrypt(ciphertext, ck)
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("unwrap: %w", err)
	}
	return rumor.Content, rumor.PubKey, int64(rumor.CreatedAt), nil
}

// Wrap builds the gift wraps for one outgoing message: one addressed to the
// recipient and one to ourselves so other sessions under this key see the
// conversation. Subject is optional.
func Wrap(content, sk, recipient, subject string) ([]nostr.Event, error) {
	pub, err := nostr.GetPublicKey(sk)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	tags := nostr.Tags{{"p", recipient}}
	if subject != "" {
		tags = append(tags, nostr.Tag{"subject", subject})
	}
	rumor := nostr.Event{
		Kind:      KindChat,
		PubKey:    pub,
		CreatedAt: nostr.Now(),
		Tags:      tags,
		Content:   content,
	}
	rumor.ID = rumor.GetID()

	sign := func(evt *nostr.Event) error { return evt.Sign(sk) }
	encryptTo := func(target string) func(string) (string, error) {
		return func(plaintext string) (string, error) {
			ck, err := nip44.GenerateConversationKey(target, sk)
			if err != nil {
				return "", err
			}
			return nip44.Encrypt(plaintext, ck)
		}
	}

	toRecipient, err := nip59.GiftWrap(rumor, recipient, encryptTo(recipient), sign, nil)
	if err != nil {
		return nil, fmt.Errorf("gift wrap for recipient: %w", err)
	}
	toSelf, err := nip59.GiftWrap(rumor, pub, encryptTo(pub), sign, nil)
	if err != nil {
		return nil, fmt.Errorf("gift wrap for self: %w", err)
	}
	return []nostr.Event{toRecipient, toSelf}, nil
}
