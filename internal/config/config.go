package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const DefaultPath = "config/wit.json"

// clientTokenLength is the length of a Wit.ai client access token.
const clientTokenLength = 32

type AppConfig struct {
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Wit     WitConfig     `json:"wit" yaml:"wit"`
	Audio   AudioConfig   `json:"audio" yaml:"audio"`
	Relay   RelayConfig   `json:"relay" yaml:"relay"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" envconfig:"LEVEL"`
	Format string `json:"format" yaml:"format" envconfig:"FORMAT"`
}

// WitConfig holds the Wit.ai credentials. It implements wit.Credentials.
type WitConfig struct {
	ClientToken    string `json:"client_token" yaml:"client_token" envconfig:"CLIENT_TOKEN"`
	ServerToken    string `json:"server_token" yaml:"server_token" envconfig:"SERVER_TOKEN"`
	BaseURL        string `json:"base_url" yaml:"base_url" envconfig:"BASE_URL"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" envconfig:"TIMEOUT_SECONDS"`
}

type AudioConfig struct {
	InputSampleRate int `json:"input_sample_rate" yaml:"input_sample_rate"`
	InputChannels   int `json:"input_channels" yaml:"input_channels"`
	ChunkBytes      int `json:"chunk_bytes" yaml:"chunk_bytes"`
}

type RelayConfig struct {
	Addr           string   `json:"addr" yaml:"addr" envconfig:"ADDR"`
	Path           string   `json:"path" yaml:"path"`
	MaxFrameBytes  int64    `json:"max_frame_bytes" yaml:"max_frame_bytes"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Logging: LoggingConfig{},
		Wit: WitConfig{
			BaseURL:        "https://api.wit.ai",
			TimeoutSeconds: 30,
		},
		Audio: AudioConfig{
			InputSampleRate: 16000,
			InputChannels:   1,
			ChunkBytes:      3200,
		},
		Relay: RelayConfig{
			Addr:          ":8090",
			Path:          "/speech",
			MaxFrameBytes: 64 * 1024,
		},
	}
}

// Load reads path (JSON, or YAML for .yaml/.yml) over the defaults and then
// applies the environment. A missing file is not an error.
func Load(path string) (*AppConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := cfg.ApplyEnv(); err != nil {
				return nil, err
			}
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overlays LOG_*, WIT_* and RELAY_* variables. Unset variables
// leave the current value alone.
func (c *AppConfig) ApplyEnv() error {
	if err := envconfig.Process("LOG", &c.Logging); err != nil {
		return fmt.Errorf("apply LOG_* env: %w", err)
	}
	if err := envconfig.Process("WIT", &c.Wit); err != nil {
		return fmt.Errorf("apply WIT_* env: %w", err)
	}
	if err := envconfig.Process("RELAY", &c.Relay); err != nil {
		return fmt.Errorf("apply RELAY_* env: %w", err)
	}
	return nil
}

func (c *AppConfig) Validate() error {
	if c.Wit.TimeoutSeconds < 0 {
		return errors.New("wit.timeout_seconds must be non-negative")
	}
	if strings.TrimSpace(c.Wit.BaseURL) == "" {
		return errors.New("wit.base_url is required")
	}
	u, err := url.Parse(c.Wit.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid wit.base_url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("wit.base_url must be http or https, got %q", c.Wit.BaseURL)
	}

	if c.Audio.InputSampleRate <= 0 {
		return errors.New("audio.input_sample_rate must be positive")
	}
	if c.Audio.InputChannels != 1 && c.Audio.InputChannels != 2 {
		return fmt.Errorf("audio.input_channels must be 1 or 2, got %d", c.Audio.InputChannels)
	}
	if c.Audio.ChunkBytes <= 0 || c.Audio.ChunkBytes%2 != 0 {
		return errors.New("audio.chunk_bytes must be a positive multiple of 2")
	}

	if strings.TrimSpace(c.Relay.Addr) == "" {
		return errors.New("relay.addr is required")
	}
	if !strings.HasPrefix(c.Relay.Path, "/") {
		return errors.New("relay.path must start with /")
	}
	if c.Relay.MaxFrameBytes <= 0 {
		return errors.New("relay.max_frame_bytes must be positive")
	}
	return nil
}

// ValidateKeys checks the tokens the caller is about to use. Client tokens
// are 32 characters long.
func (c *AppConfig) ValidateKeys(requireClient, requireServer bool) error {
	if requireClient {
		token := strings.TrimSpace(c.Wit.ClientToken)
		if token == "" {
			return errors.New("wit client_token is required")
		}
		if len(token) != clientTokenLength {
			return fmt.Errorf("wit client_token must be %d characters, got %d", clientTokenLength, len(token))
		}
	}
	if requireServer && strings.TrimSpace(c.Wit.ServerToken) == "" {
		return errors.New("wit server_token is required")
	}
	return nil
}

func (c *AppConfig) Timeout() time.Duration {
	return time.Duration(c.Wit.TimeoutSeconds) * time.Second
}

func (w WitConfig) ClientAccessToken() string {
	return w.ClientToken
}

// ServerAccessToken reports the server token as available only when it is
// configured.
func (w WitConfig) ServerAccessToken() (string, bool) {
	token := strings.TrimSpace(w.ServerToken)
	return token, token != ""
}
