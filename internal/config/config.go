package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/idlekeeper/idlekeeper/internal/antiidle"
	"github.com/idlekeeper/idlekeeper/internal/game"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	MaxFoodThreshold = 20

	envBridgeURL     = "IDLEKEEPER_BRIDGE_URL"
	envDiscordToken  = "IDLEKEEPER_DISCORD_TOKEN"
	envTelegramToken = "IDLEKEEPER_TELEGRAM_TOKEN"
)

var Version = "dev"

type Config struct {
	Server struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Auth     string `yaml:"auth"`
		Version  string `yaml:"version"`
	} `yaml:"server"`
	Bridge struct {
		URL            string        `yaml:"url"`
		RequestTimeout time.Duration `yaml:"requestTimeout"`
		Verbose        bool          `yaml:"verbose"` // forward low-level transport warnings
	} `yaml:"bridge"`
	AntiIdle struct {
		Enabled    bool `yaml:"enabled"`
		IntervalMs int  `yaml:"intervalMs"`
	} `yaml:"antiIdle"`
	AutoEat struct {
		Enabled    bool     `yaml:"enabled"`
		Threshold  int      `yaml:"threshold"` // eat when food drops below this (0-20)
		BannedFood []string `yaml:"bannedFood"`
	} `yaml:"autoEat"`
	Reconnect struct {
		Enabled     bool          `yaml:"enabled"`
		Delay       time.Duration `yaml:"delay"`
		ManualDelay time.Duration `yaml:"manualDelay"`
	} `yaml:"reconnect"`
	AutoRespawn bool `yaml:"autoRespawn"`
	Debug       struct {
		Log    bool   `yaml:"log"`
		LogDir string `yaml:"logDir"`
	} `yaml:"debug"`
	Discord struct {
		Enabled    bool     `yaml:"enabled"`
		Token      string   `yaml:"token"`
		ChannelID  string   `yaml:"channelId"`
		BotAdmins  []string `yaml:"botAdmins"`
		RelayChat  bool     `yaml:"relayChat"`
		WebhookURL string   `yaml:"webhookUrl"` // notifications only, no remote commands
	} `yaml:"discord"`
	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		ChatID  int64  `yaml:"chatId"`
		Token   string `yaml:"token"`
	} `yaml:"telegram"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = game.DefaultPort
	cfg.Server.Auth = game.AuthOffline
	cfg.Bridge.URL = "ws://127.0.0.1:3000/ws"
	cfg.Bridge.RequestTimeout = 15 * time.Second
	cfg.AntiIdle.Enabled = true
	cfg.AntiIdle.IntervalMs = 3000
	cfg.AutoEat.Enabled = true
	cfg.AutoEat.Threshold = 14
	cfg.AutoEat.BannedFood = []string{"rotten_flesh", "spider_eye", "poisonous_potato", "pufferfish", "chorus_fruit"}
	cfg.Reconnect.Enabled = true
	cfg.Reconnect.Delay = 10 * time.Second
	cfg.Reconnect.ManualDelay = 2 * time.Second
	cfg.AutoRespawn = true
	cfg.Debug.LogDir = "logs"
	cfg.Discord.RelayChat = true
	return cfg
}

// Load reads the yaml file at path on top of the defaults. A missing file is
// not an error. Values from the environment (and a .env file, when present)
// override secrets and the bridge address.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		r, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error loading %s: %w", path, err)
		default:
			defer r.Close()
			d := yaml.NewDecoder(r)
			if err = d.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("error reading config %s: %w", path, err)
			}
		}
	}

	// .env is optional, the process environment always wins.
	_ = godotenv.Load()
	applyEnv(cfg)
	sanitizeRemoteConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(envBridgeURL); ok && strings.TrimSpace(v) != "" {
		cfg.Bridge.URL = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(envDiscordToken); ok && strings.TrimSpace(v) != "" {
		cfg.Discord.Token = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(envTelegramToken); ok && strings.TrimSpace(v) != "" {
		cfg.Telegram.Token = strings.TrimSpace(v)
	}
}

// sanitizeRemoteConfig turns remote integrations off when they are missing
// what they need to start.
func sanitizeRemoteConfig(cfg *Config) {
	if cfg.Discord.Enabled {
		hasBot := strings.TrimSpace(cfg.Discord.Token) != "" && strings.TrimSpace(cfg.Discord.ChannelID) != ""
		if !hasBot && strings.TrimSpace(cfg.Discord.WebhookURL) == "" {
			cfg.Discord.Enabled = false
		}
	}
	if cfg.Telegram.Enabled {
		if strings.TrimSpace(cfg.Telegram.Token) == "" || cfg.Telegram.ChatID == 0 {
			cfg.Telegram.Enabled = false
		}
	}
}

func (c *Config) Validate() error {
	if c.Bridge.URL == "" {
		return errors.New("bridge.url cannot be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if time.Duration(c.AntiIdle.IntervalMs)*time.Millisecond < antiidle.MinInterval {
		return fmt.Errorf("antiIdle.intervalMs must be >= %d", antiidle.MinInterval.Milliseconds())
	}
	if c.AutoEat.Threshold < 0 || c.AutoEat.Threshold > MaxFoodThreshold {
		return fmt.Errorf("autoEat.threshold must be between 0 and %d", MaxFoodThreshold)
	}
	if c.Reconnect.Delay <= 0 || c.Reconnect.ManualDelay <= 0 {
		return errors.New("reconnect.delay and reconnect.manualDelay must be positive")
	}
	return nil
}

// ConnectOptions builds the adapter options for the configured account.
func (c *Config) ConnectOptions() game.ConnectOptions {
	return game.ConnectOptions{
		Host:     c.Server.Host,
		Port:     c.Server.Port,
		Username: c.Server.Username,
		Auth:     c.Server.Auth,
		Version:  c.Server.Version,
		Verbose:  c.Bridge.Verbose,
	}
}

func (c *Config) JumpInterval() time.Duration {
	return time.Duration(c.AntiIdle.IntervalMs) * time.Millisecond
}

// ParsePort returns the numeric port or the default when s is empty or not a number.
func ParsePort(s string) int {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port <= 0 || port > 65535 {
		return game.DefaultPort
	}
	return port
}
