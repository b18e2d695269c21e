package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"whisper/internal/chat"
	"whisper/internal/config"
	"whisper/internal/dm"
	"whisper/internal/keys"
	"whisper/internal/logging"
	"whisper/internal/paths"
	"whisper/internal/relay"
	"whisper/internal/sanitize"
	"whisper/internal/store"
	"whisper/internal/ui"
	"whisper/internal/version"
)

// Exit codes, stable for scripting.
const (
	ExitOK          = 0
	ExitInvalidArgs = 1
	ExitKeyError    = 2
	ExitRelayError  = 3
	ExitCryptoError = 4
	ExitTimeout     = 5
)

const maxMessageSize = 64 * 1024

func Run(app string, args []string) int {
	logger := logging.New()

	fs := flag.NewFlagSet(app, flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	configPath := fs.String("config", "", "path to config file")

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		usage(app)
		return ExitInvalidArgs
	}

	cfg, err := config.LoadOptional(resolveConfigPath(*configPath))
	if err != nil {
		logger.Printf("config error: %v", err)
		return ExitInvalidArgs
	}
	// Relative paths in the config file resolve against the whisper home.
	if cfg.Keys.NsecFile != "" {
		if base, err := paths.HomeDir(); err == nil {
			cfg.Keys.NsecFile = paths.ResolveInHome(base, cfg.Keys.NsecFile)
		}
	}

	switch remaining[0] {
	case "chat":
		return runChat(logger, cfg, remaining[1:])
	case "send":
		return runSend(logger, cfg, remaining[1:])
	case "recv":
		return runRecv(logger, cfg, remaining[1:])
	case "version":
		fmt.Println(app + " " + version.Version)
		return ExitOK
	case "help":
		usage(app)
		return ExitOK
	default:
		logger.Printf("unknown command: %s", remaining[0])
		usage(app)
		return ExitInvalidArgs
	}
}

func usage(app string) {
	fmt.Printf(`%[1]s - encrypted Nostr DMs (NIP-17)

Usage:
  %[1]s chat --relay <url> [--to <npub>] [key options]
  echo "hello" | %[1]s send --to <npub> --relay <url> [key options]
  %[1]s recv --relay <url> [--since <ts>] [--limit <n>] [--json] [key options]
  %[1]s version

Key options (in order of priority):
  --nsec-file <path>    read key from file
  --nsec <nsec|hex>     key as argument (visible in shell history)
  %[2]s env var     fallback if no key option

Common options:
  --timeout <ms>        relay timeout (default 5000)
  --config <path>       config file (default ~/.whisper/whisper.yaml)

Chat commands: /to <npub>  /clear  /quit  /help
`, app, keys.EnvVar)
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	p, err := paths.ConfigFile()
	if err != nil {
		return "whisper.yaml"
	}
	return p
}

type commonFlags struct {
	relayURL string
	nsec     string
	nsecFile string
	timeout  time.Duration
}

func addCommonFlags(fs *flag.FlagSet, cfg config.Config) (relayURL, nsec, nsecFile *string, timeoutMS *int) {
	relayURL = fs.String("relay", cfg.Relay.URL, "relay URL (wss://...)")
	nsec = fs.String("nsec", "", "private key (nsec or hex)")
	nsecFile = fs.String("nsec-file", cfg.Keys.NsecFile, "path to private key file")
	timeoutMS = fs.Int("timeout", cfg.Relay.TimeoutMS, "relay timeout in milliseconds")
	return
}

func resolveCommon(logger *log.Logger, relayURL, nsec, nsecFile string, timeoutMS int) (commonFlags, int) {
	if relayURL == "" {
		logger.Println("relay URL is required (--relay or config)")
		return commonFlags{}, ExitInvalidArgs
	}
	if !strings.HasPrefix(relayURL, "ws://") && !strings.HasPrefix(relayURL, "wss://") {
		logger.Printf("invalid relay URL: %s", relayURL)
		return commonFlags{}, ExitInvalidArgs
	}
	if timeoutMS <= 0 {
		timeoutMS = 5000
	}
	return commonFlags{
		relayURL: relayURL,
		nsec:     nsec,
		nsecFile: nsecFile,
		timeout:  time.Duration(timeoutMS) * time.Millisecond,
	}, ExitOK
}

func connectExitCode(err error) int {
	if errors.Is(err, relay.ErrTimeout) {
		return ExitTimeout
	}
	return ExitRelayError
}

func runChat(logger *log.Logger, cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	relayURL, nsec, nsecFile, timeoutMS := addCommonFlags(fs, cfg)
	to := fs.String("to", "", "initial recipient (npub or hex)")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	common, code := resolveCommon(logger, *relayURL, *nsec, *nsecFile, *timeoutMS)
	if code != ExitOK {
		return code
	}

	key, err := keys.Load(common.nsec, common.nsecFile)
	if err != nil {
		logger.Printf("key error: %v", err)
		return ExitKeyError
	}
	defer key.Wipe()

	// The TUI takes over the terminal, so session diagnostics go to a
	// file when enabled and are discarded otherwise.
	logFile := ""
	if cfg.Log.Enabled {
		logFile = cfg.Log.File
		if logFile == "" {
			if p, err := paths.LogFile(); err == nil {
				if paths.EnsureDir(filepath.Dir(p)) == nil {
					logFile = p
				}
			}
		}
	}
	diag := logging.NewFile(logFile)

	status := "Ready"
	if !strings.HasPrefix(common.relayURL, "wss://") {
		status = "Warning: insecure relay (not wss://)"
	}

	dirty := &store.Flag{}
	st := store.New(cfg.Chat.MaxMessages, dirty)
	client := relay.New(common.relayURL, dirty)
	defer client.Close()
	session := chat.NewSession(key, st, client, common.timeout)

	if *to != "" {
		pub, err := keys.ParsePublicKey(*to)
		if err != nil {
			status = "Invalid recipient, use /to to set"
		} else {
			session.SetRecipient(pub)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := client.Connect(ctx, common.timeout); err != nil {
		logger.Printf("connect %s: %v", common.relayURL, err)
		return connectExitCode(err)
	}
	if err := client.SubscribeInbox(ctx, key.Public(), nil, session.Ingest); err != nil {
		logger.Printf("subscribe: %v", err)
		return ExitRelayError
	}
	diag.Printf("session start relay=%s as=%s", common.relayURL, session.ShortSelf())

	err = ui.Run(ctx, session, client, status)
	diag.Printf("session end messages=%d", st.Len())
	if err != nil {
		logger.Printf("tui error: %v", err)
		return ExitCryptoError
	}
	return ExitOK
}

func runSend(logger *log.Logger, cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	relayURL, nsec, nsecFile, timeoutMS := addCommonFlags(fs, cfg)
	to := fs.String("to", "", "recipient (npub or hex)")
	subject := fs.String("subject", "", "optional subject")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	common, code := resolveCommon(logger, *relayURL, *nsec, *nsecFile, *timeoutMS)
	if code != ExitOK {
		return code
	}
	if *to == "" {
		logger.Println("recipient is required (--to)")
		return ExitInvalidArgs
	}

	key, err := keys.Load(common.nsec, common.nsecFile)
	if err != nil {
		logger.Printf("key error: %v", err)
		return ExitKeyError
	}
	defer key.Wipe()

	recipient, err := keys.ParsePublicKey(*to)
	if err != nil {
		logger.Printf("invalid recipient: %v", err)
		return ExitKeyError
	}

	content, err := readMessage(os.Stdin)
	if err != nil {
		logger.Printf("read message: %v", err)
		return ExitInvalidArgs
	}
	if content == "" {
		logger.Println("no message content (pipe message via stdin)")
		return ExitInvalidArgs
	}

	wraps, err := dm.Wrap(content, key.Secret(), recipient, *subject)
	if err != nil {
		logger.Printf("wrap: %v", err)
		return ExitCryptoError
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := relay.New(common.relayURL, nil)
	defer client.Close()
	if err := client.Connect(ctx, common.timeout); err != nil {
		logger.Printf("connect %s: %v", common.relayURL, err)
		return connectExitCode(err)
	}

	pubCtx, pubCancel := context.WithTimeout(ctx, common.timeout)
	defer pubCancel()
	for _, w := range wraps {
		if err := client.Publish(pubCtx, w); err != nil {
			logger.Printf("publish: %v", err)
			return ExitRelayError
		}
	}
	logger.Printf("sent to %s", keys.ShortNpub(recipient))
	return ExitOK
}

func runRecv(logger *log.Logger, cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("recv", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	relayURL, nsec, nsecFile, timeoutMS := addCommonFlags(fs, cfg)
	since := fs.Int64("since", 0, "only messages after this unix timestamp")
	limit := fs.Int("limit", 0, "max messages before exiting (0 = stream)")
	jsonOut := fs.Bool("json", false, "output JSON lines")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	common, code := resolveCommon(logger, *relayURL, *nsec, *nsecFile, *timeoutMS)
	if code != ExitOK {
		return code
	}

	key, err := keys.Load(common.nsec, common.nsecFile)
	if err != nil {
		logger.Printf("key error: %v", err)
		return ExitKeyError
	}
	defer key.Wipe()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := relay.New(common.relayURL, nil)
	defer client.Close()
	if err := client.Connect(ctx, common.timeout); err != nil {
		logger.Printf("connect %s: %v", common.relayURL, err)
		return connectExitCode(err)
	}

	var sincePtr *nostr.Timestamp
	if *since > 0 {
		ts := nostr.Timestamp(*since)
		sincePtr = &ts
	}

	events := make(chan nostr.Event, 64)
	err = client.SubscribeInbox(ctx, key.Public(), sincePtr, func(evt nostr.Event) {
		select {
		case events <- evt:
		default: // inbox full, drop rather than block the subscription
		}
	})
	if err != nil {
		logger.Printf("subscribe: %v", err)
		return ExitRelayError
	}

	count := 0
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ExitOK
		case evt := <-events:
			content, sender, ts, err := dm.Unwrap(evt, key.Secret())
			if err != nil {
				continue
			}
			printMessage(content, sender, ts, *jsonOut)
			count++
			if *limit > 0 && count >= *limit {
				return ExitOK
			}
		case <-ticker.C:
			if client.Dropped() {
				return ExitOK
			}
		}
	}
}

func printMessage(content, sender string, ts int64, jsonOut bool) {
	if jsonOut {
		out, err := json.Marshal(struct {
			From      string `json:"from"`
			Content   string `json:"content"`
			CreatedAt int64  `json:"created_at"`
		}{From: sender, Content: content, CreatedAt: ts})
		if err != nil {
			return
		}
		fmt.Println(string(out))
		return
	}
	when := time.Unix(ts, 0).Format("2006-01-02 15:04")
	fmt.Printf("%s %s %s\n", when, keys.ShortNpub(sender), sanitize.StripControl(content))
}

func readMessage(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxMessageSize))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
