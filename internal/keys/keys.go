package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// EnvVar is the fallback source for the private key.
const EnvVar = "NOSTR_NSEC"

var ErrNoKey = errors.New("no private key provided (use --nsec, --nsec-file or " + EnvVar + ")")

// Key holds the session key pair. The secret is kept in a single mutable
// buffer so Wipe can zero it; call sites take transient copies for signing.
type Key struct {
	sk   []byte
	pub  string
	npub string
}

// Load resolves the private key with priority: file > argument > environment.
// The key may be bech32 (nsec1...) or 64-char hex. Intermediate buffers are
// wiped before returning.
func Load(nsec, nsecFile string) (*Key, error) {
	raw := nsec
	if nsecFile != "" {
		data, err := os.ReadFile(nsecFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		raw = strings.TrimSpace(string(data))
		Wipe(data)
	} else if raw == "" {
		raw = os.Getenv(EnvVar)
	}
	if raw == "" {
		return nil, ErrNoKey
	}

	sk := raw
	if strings.HasPrefix(raw, "nsec1") {
		prefix, val, err := nip19.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode nsec: %w", err)
		}
		if prefix != "nsec" {
			return nil, fmt.Errorf("unexpected bech32 prefix %q", prefix)
		}
		sk = val.(string)
	} else if len(raw) != 64 {
		return nil, errors.New("invalid private key format (expected nsec or 64-char hex)")
	}

	pub, err := nostr.GetPublicKey(sk)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	npub, err := nip19.EncodePublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("encode npub: %w", err)
	}
	return &Key{sk: []byte(sk), pub: pub, npub: npub}, nil
}

// Public returns the hex public key.
func (k *Key) Public() string { return k.pub }

// Npub returns the bech32 public key.
func (k *Key) Npub() string { return k.npub }

// Secret returns a transient copy of the hex private key for signing and
// decryption. Zero after the session via Wipe.
func (k *Key) Secret() string { return string(k.sk) }

// Wipe zeroes the private key buffer. Safe to call more than once; every
// exit path must reach it.
func (k *Key) Wipe() {
	if k == nil {
		return
	}
	Wipe(k.sk)
}

// Wipe zeroes b in place.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ParsePublicKey accepts npub1... or 64-char hex and returns the hex form.
func ParsePublicKey(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "npub1") {
		prefix, val, err := nip19.Decode(s)
		if err != nil {
			return "", fmt.Errorf("decode npub: %w", err)
		}
		if prefix != "npub" {
			return "", fmt.Errorf("unexpected bech32 prefix %q", prefix)
		}
		return val.(string), nil
	}
	if len(s) != 64 {
		return "", errors.New("invalid public key format (expected npub or 64-char hex)")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", errors.New("invalid hex public key")
	}
	return strings.ToLower(s), nil
}

// ShortNpub renders a hex public key as a truncated npub for display.
func ShortNpub(pub string) string {
	npub, err := nip19.EncodePublicKey(pub)
	if err != nil || len(npub) < 12 {
		if len(pub) > 8 {
			return pub[:8] + "..."
		}
		return pub
	}
	return npub[:12] + "..."
}
