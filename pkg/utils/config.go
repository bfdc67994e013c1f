package utils

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MaxBatchSize is the per-transaction operation limit of the document store.
const MaxBatchSize = 500

// Config is built once at process start and passed explicitly to every
// component. Nothing reads configuration from globals after Load returns.
type Config struct {
	DB      DBConfig
	Sync    SyncConfig
	Sources SourcesConfig
	HTTP    HTTPConfig
	Auth    AuthConfig
	Discord DiscordConfig
}

type DBConfig struct {
	Path       string
	Collection string
}

type SyncConfig struct {
	BatchSize           int
	Interval            time.Duration // 0 disables the embedded scheduler
	PlaceholderPrefixes []string
	FallbackCategory    string
}

type SourcesConfig struct {
	RequestTimeout time.Duration
	RequestDelay   time.Duration

	ArchiveBaseURL   string
	ArchivePlatforms map[string]string // system tag -> archive collection
	ArchiveRows      int

	IndexBaseURL     string
	IndexPlatforms   map[string]string // system tag -> directory path
	ThumbnailBaseURL string
	ThumbnailSystems map[string]string // system tag -> thumbnail repo name

	MirrorBaseURL string
}

type HTTPConfig struct {
	Addr           string
	TrustedProxies []string
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

// Enabled reports whether service tokens are required on protected routes.
func (a AuthConfig) Enabled() bool { return a.JWTSecret != "" }

type DiscordConfig struct {
	BotToken string
	GuildID  string
	Roles    map[string]string // role name -> role ID
}

// Load reads .env files, the optional romvault.yaml, and ROMVAULT_* env vars.
func Load() (Config, error) {
	v := viper.New()
	return LoadFrom(v, ".env", ".env.local")
}

// LoadFrom is Load with a caller-supplied viper instance and env files.
// Missing env files are ignored.
func LoadFrom(v *viper.Viper, envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v.SetConfigName("romvault")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("ROMVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		DB: DBConfig{
			Path:       v.GetString("db.path"),
			Collection: v.GetString("db.collection"),
		},
		Sync: SyncConfig{
			BatchSize:           v.GetInt("sync.batch_size"),
			Interval:            v.GetDuration("sync.interval"),
			PlaceholderPrefixes: v.GetStringSlice("sync.placeholder_prefixes"),
			FallbackCategory:    v.GetString("sync.fallback_category"),
		},
		Sources: SourcesConfig{
			RequestTimeout:   v.GetDuration("sources.request_timeout"),
			RequestDelay:     v.GetDuration("sources.request_delay"),
			ArchiveBaseURL:   strings.TrimRight(v.GetString("sources.archive.base_url"), "/"),
			ArchivePlatforms: v.GetStringMapString("sources.archive.platforms"),
			ArchiveRows:      v.GetInt("sources.archive.rows"),
			IndexBaseURL:     strings.TrimRight(v.GetString("sources.index.base_url"), "/"),
			IndexPlatforms:   v.GetStringMapString("sources.index.platforms"),
			ThumbnailBaseURL: strings.TrimRight(v.GetString("sources.thumbnails.base_url"), "/"),
			ThumbnailSystems: v.GetStringMapString("sources.thumbnails.systems"),
			MirrorBaseURL:    strings.TrimRight(v.GetString("sources.mirror.base_url"), "/"),
		},
		HTTP: HTTPConfig{
			Addr:           v.GetString("http.addr"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Auth: AuthConfig{
			JWTSecret:   v.GetString("auth.jwt_secret"),
			JWTIssuer:   v.GetString("auth.jwt_issuer"),
			JWTDuration: v.GetDuration("auth.jwt_ttl"),
		},
		Discord: DiscordConfig{
			BotToken: v.GetString("discord.bot_token"),
			GuildID:  v.GetString("discord.guild_id"),
			Roles:    v.GetStringMapString("discord.roles"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate clamps what can be clamped and rejects the rest.
func (c *Config) Validate() error {
	if c.Sync.BatchSize <= 0 || c.Sync.BatchSize > MaxBatchSize {
		c.Sync.BatchSize = MaxBatchSize
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("sync.interval must be >= 0, got %s", c.Sync.Interval)
	}
	if c.Sources.RequestDelay < 0 {
		return fmt.Errorf("sources.request_delay must be >= 0, got %s", c.Sources.RequestDelay)
	}
	if c.Sources.RequestTimeout <= 0 {
		return fmt.Errorf("sources.request_timeout must be > 0, got %s", c.Sources.RequestTimeout)
	}
	if strings.TrimSpace(c.DB.Collection) == "" {
		return errors.New("db.collection is required")
	}
	for _, p := range c.HTTP.TrustedProxies {
		if !validProxy(p) {
			return fmt.Errorf("http.trusted_proxies: %q is not an IP or CIDR", p)
		}
	}
	if c.Auth.JWTDuration <= 0 {
		c.Auth.JWTDuration = 24 * time.Hour
	}
	return nil
}

func validProxy(p string) bool {
	if strings.Contains(p, "/") {
		_, _, err := net.ParseCIDR(p)
		return err == nil
	}
	return net.ParseIP(p) != nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", DefaultDBPath())
	v.SetDefault("db.collection", "games")

	v.SetDefault("sync.batch_size", MaxBatchSize)
	v.SetDefault("sync.interval", "0s")
	v.SetDefault("sync.placeholder_prefixes", []string{
		"https://via.placeholder.com",
		"https://placehold.co",
		"https://example.com",
	})
	v.SetDefault("sync.fallback_category", "Other")

	v.SetDefault("sources.request_timeout", "15s")
	v.SetDefault("sources.request_delay", "1s")

	v.SetDefault("sources.archive.base_url", "https://archive.org")
	v.SetDefault("sources.archive.rows", 200)
	v.SetDefault("sources.archive.platforms", map[string]string{
		"nes":  "nes-roms",
		"snes": "snes-roms",
		"gba":  "gba-roms",
	})

	v.SetDefault("sources.index.base_url", "")
	v.SetDefault("sources.index.platforms", map[string]string{
		"nes":  "/No-Intro/Nintendo - Nintendo Entertainment System (Headered)/",
		"snes": "/No-Intro/Nintendo - Super Nintendo Entertainment System/",
		"gb":   "/No-Intro/Nintendo - Game Boy/",
		"gba":  "/No-Intro/Nintendo - Game Boy Advance/",
	})
	v.SetDefault("sources.thumbnails.base_url", "https://thumbnails.libretro.com")
	v.SetDefault("sources.thumbnails.systems", map[string]string{
		"nes":  "Nintendo - Nintendo Entertainment System",
		"snes": "Nintendo - Super Nintendo Entertainment System",
		"gb":   "Nintendo - Game Boy",
		"gba":  "Nintendo - Game Boy Advance",
	})

	v.SetDefault("sources.mirror.base_url", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.trusted_proxies", []string{"127.0.0.1"})

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "romvault")
	v.SetDefault("auth.jwt_ttl", "24h")

	v.SetDefault("discord.bot_token", "")
	v.SetDefault("discord.guild_id", "")
	v.SetDefault("discord.roles", map[string]string{})
}
