package config

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Relay RelayConfig `yaml:"relay"`
	Chat  ChatConfig  `yaml:"chat"`
	Keys  KeysConfig  `yaml:"keys"`
	Log   LogConfig   `yaml:"log"`
}

type RelayConfig struct {
	URL       string `yaml:"url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type ChatConfig struct {
	MaxMessages int `yaml:"max_messages"`
}

type KeysConfig struct {
	NsecFile string `yaml:"nsec_file"`
}

type LogConfig struct {
	File    string `yaml:"file"`
	Enabled bool   `yaml:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		Relay: RelayConfig{
			URL:       "",
			TimeoutMS: 5000,
		},
		Chat: ChatConfig{
			MaxMessages: 1000,
		},
		Keys: KeysConfig{
			NsecFile: "",
		},
		Log: LogConfig{
			File:    "",
			Enabled: false,
		},
	}
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadOptional(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	if err := validate(cfg); err != nil {
		return err
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func validate(cfg Config) error {
	if cfg.Relay.URL != "" &&
		!strings.HasPrefix(cfg.Relay.URL, "wss://") &&
		!strings.HasPrefix(cfg.Relay.URL, "ws://") {
		return errors.New("relay.url must start with ws:// or wss://")
	}
	if cfg.Relay.TimeoutMS < 100 || cfg.Relay.TimeoutMS > 120000 {
		return errors.New("relay.timeout_ms must be 100..120000")
	}
	if cfg.Chat.MaxMessages < 10 || cfg.Chat.MaxMessages > 100000 {
		return errors.New("chat.max_messages must be 10..100000")
	}
	return nil
}
