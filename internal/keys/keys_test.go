package keys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

func TestLoadFromHex(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	k, err := Load(sk, "")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	defer k.Wipe()
	if k.Secret() != sk {
		t.Fatal("secret does not round-trip")
	}
	pub, _ := nostr.GetPublicKey(sk)
	if k.Public() != pub {
		t.Fatalf("public key = %s, want %s", k.Public(), pub)
	}
}

func TestLoadFromNsec(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	nsec, err := nip19.EncodePrivateKey(sk)
	if err != nil {
		t.Fatalf("encode nsec: %v", err)
	}
	k, err := Load(nsec, "")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	defer k.Wipe()
	if k.Secret() != sk {
		t.Fatal("nsec did not decode to original key")
	}
}

func TestLoadFromFileTrimsWhitespace(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte(sk+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	k, err := Load("", path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	defer k.Wipe()
	if k.Secret() != sk {
		t.Fatal("file key did not load")
	}
}

func TestLoadFilePriorityOverArg(t *testing.T) {
	fileSK := nostr.GeneratePrivateKey()
	argSK := nostr.GeneratePrivateKey()
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte(fileSK), 0600); err != nil {
		t.Fatal(err)
	}
	k, err := Load(argSK, path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	defer k.Wipe()
	if k.Secret() != fileSK {
		t.Fatal("file should take priority over argument")
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvVar, "")
	if _, err := Load("", ""); err == nil {
		t.Fatal("expected error with no key source")
	}
	if _, err := Load("tooshort", ""); err == nil {
		t.Fatal("expected error for bad format")
	}
	if _, err := Load("", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWipeZeroesSecret(t *testing.T) {
	k, err := Load(nostr.GeneratePrivateKey(), "")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	k.Wipe()
	if strings.Trim(string(k.sk), "\x00") != "" {
		t.Fatal("secret buffer not zeroed")
	}
	k.Wipe() // second wipe must be harmless
}

func TestParsePublicKey(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	pub, _ := nostr.GetPublicKey(sk)
	npub, _ := nip19.EncodePublicKey(pub)

	got, err := ParsePublicKey(npub)
	if err != nil {
		t.Fatalf("parse npub: %v", err)
	}
	if got != pub {
		t.Fatalf("npub parsed to %s, want %s", got, pub)
	}

	got, err = ParsePublicKey(pub)
	if err != nil {
		t.Fatalf("parse hex: %v", err)
	}
	if got != pub {
		t.Fatalf("hex parsed to %s, want %s", got, pub)
	}

	for _, bad := range []string{"", "npub1xxxx", "zz" + strings.Repeat("0", 62), "short"} {
		if _, err := ParsePublicKey(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestShortNpub(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	pub, _ := nostr.GetPublicKey(sk)
	short := ShortNpub(pub)
	if !strings.HasPrefix(short, "npub1") || !strings.HasSuffix(short, "...") {
		t.Fatalf("unexpected short form: %q", short)
	}
	if len(short) != 15 {
		t.Fatalf("short form length = %d, want 15", len(short))
	}
}
