package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AuthConfig struct {
	Mode           string        `mapstructure:"mode"`
	GoogleClientID string        `mapstructure:"google_client_id"`
	GoogleCertsURL string        `mapstructure:"google_certs_url"`
	GoogleIssuers  []string      `mapstructure:"google_issuers"`
	HMACSecret     string        `mapstructure:"hmac_secret"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type LimitsConfig struct {
	JoinAttempts int           `mapstructure:"join_attempts"`
	JoinInterval time.Duration `mapstructure:"join_interval"`
	HTTPRPS      float64       `mapstructure:"http_rps"`
	HTTPBurst    int           `mapstructure:"http_burst"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	StaticPath   string        `mapstructure:"static_path"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	Secret       string        `mapstructure:"secret"`
	LogLevel     string        `mapstructure:"log_level"`
	OwnerHandle  string        `mapstructure:"owner_handle"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	Backpressure string        `mapstructure:"backpressure"`
	Auth         AuthConfig    `mapstructure:"auth"`
	Limits       LimitsConfig  `mapstructure:"limits"`
	ICEServers   []ICEServer   `mapstructure:"ice_servers"`
}

// Load reads CONFIG_FILE, or config/config.<CONFIG_ENV>.yaml when unset.
// A missing file is not an error: defaults and HUDDLE_* env vars apply.
func Load() (*Config, error) {
	fileName := os.Getenv("CONFIG_FILE")
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	return LoadFile(fileName)
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("huddle")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("auth", cfg.Auth.Mode).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "dev-secret-change")
	v.SetDefault("log_level", "info")
	v.SetDefault("owner_handle", "demo@example.com")
	v.SetDefault("cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("backpressure", "disconnect")

	v.SetDefault("auth.mode", "demo")
	v.SetDefault("auth.google_client_id", "")
	v.SetDefault("auth.google_certs_url", "https://www.googleapis.com/oauth2/v3/certs")
	v.SetDefault("auth.google_issuers", []string{"accounts.google.com", "https://accounts.google.com"})
	v.SetDefault("auth.hmac_secret", "")
	v.SetDefault("auth.timeout", "5s")

	v.SetDefault("limits.join_attempts", 10)
	v.SetDefault("limits.join_interval", "1m")
	v.SetDefault("limits.http_rps", 2.0)
	v.SetDefault("limits.http_burst", 100)

	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case "demo":
	case "google":
		if c.Auth.GoogleClientID == "" {
			return fmt.Errorf("auth.google_client_id is required for google auth")
		}
	case "hmac":
		if c.Auth.HMACSecret == "" {
			return fmt.Errorf("auth.hmac_secret is required for hmac auth")
		}
	default:
		return fmt.Errorf("unknown auth.mode %q", c.Auth.Mode)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("bad port %d", c.Port)
	}
	if c.PingPeriod <= 0 {
		return fmt.Errorf("ping_period must be positive")
	}
	return nil
}

// PongWait is how long a silent client is tolerated; pings go out every PingPeriod.
func (c *Config) PongWait() time.Duration {
	return c.PingPeriod * 10 / 9
}

// WebRTCICEServers returns the ICE servers in the shape browsers expect.
func (c *Config) WebRTCICEServers() []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for _, s := range c.ICEServers {
		srv := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			srv.Username = s.Username
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}
