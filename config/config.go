// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
//
// Kaynak önceliği (yüksekten düşüğe):
//  1. Komut satırı flag'leri (--port, --db-driver, --log-level)
//  2. Environment variable'lar
//  3. .env dosyası (--env-file, varsayılan ./.env; yoksa sessizce atlanır)
//  4. Varsayılanlar
//
// Config struct'ı tüm ayarları tek bir yerde toplar, böylece her yerde
// ayrı ayrı os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Identity  IdentityConfig
	Chat      ChatConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
	// DevParticipants, başlangıçta yoksa oluşturulacak katılımcılar.
	// DEV_PARTICIPANTS="alice:Alice,bob:Bob"
	DevParticipants []DevParticipant
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig, message store ayarları.
type DatabaseConfig struct {
	Driver string // "sqlite" veya "postgres"
	Path   string // SQLite dosya yolu (ör: ./data/pwachat.db)
	URL    string // PostgreSQL DSN
}

// IdentityConfig, katılımcı kimliği doğrulama ayarları.
type IdentityConfig struct {
	Mode   string // "header" veya "token"
	Secret string // token modunda HS256 anahtarı. GİZLİ TUTULMALI
}

// ChatConfig, feed ve realtime ayarları.
type ChatConfig struct {
	Channel          string
	ParticipantTTL   time.Duration // aktif katılımcı sayısının cache süresi
	PubSubBufferSize int           // abonelik başına event buffer'ı
}

// RateLimitConfig, mesaj gönderme sınırı.
type RateLimitConfig struct {
	SendRate  float64 // saniyede token
	SendBurst int
}

// CORSConfig, izin verilen origin'ler.
type CORSConfig struct {
	Origins []string
}

// LogConfig, zap seviyesi.
type LogConfig struct {
	Level string
}

// DevParticipant, geliştirme ortamı için hazır profil.
type DevParticipant struct {
	ID       string
	Username string
}

// Config anahtarları. Env variable isimleriyle aynıdır.
const (
	keyServerHost      = "SERVER_HOST"
	keyServerPort      = "SERVER_PORT"
	keyDatabaseDriver  = "DATABASE_DRIVER"
	keyDatabasePath    = "DATABASE_PATH"
	keyDatabaseURL     = "DATABASE_URL"
	keyIdentityMode    = "IDENTITY_MODE"
	keyJWTSecret       = "JWT_SECRET"
	keyChatChannel     = "CHAT_CHANNEL"
	keyParticipantTTL  = "PARTICIPANT_COUNT_TTL"
	keySendRate        = "SEND_RATE"
	keySendBurst       = "SEND_BURST"
	keyPubSubBuffer    = "PUBSUB_BUFFER"
	keyCORSOrigins     = "CORS_ORIGINS"
	keyLogLevel        = "LOG_LEVEL"
	keyDevParticipants = "DEV_PARTICIPANTS"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyServerHost, "0.0.0.0")
	v.SetDefault(keyServerPort, 9090)
	v.SetDefault(keyDatabaseDriver, "sqlite")
	v.SetDefault(keyDatabasePath, "./data/pwachat.db")
	v.SetDefault(keyDatabaseURL, "")
	v.SetDefault(keyIdentityMode, "header")
	v.SetDefault(keyJWTSecret, "")
	v.SetDefault(keyChatChannel, "chat")
	v.SetDefault(keyParticipantTTL, 5*time.Minute)
	v.SetDefault(keySendRate, 1.0)
	v.SetDefault(keySendBurst, 5)
	v.SetDefault(keyPubSubBuffer, 256)
	v.SetDefault(keyCORSOrigins, "*")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyDevParticipants, "")
}

// Load, args (os.Args[1:]) ve environment'tan Config oluşturur.
// --help verilirse pflag.ErrHelp döner.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("pwachat", pflag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "path to a .env file (optional)")
	fs.Int("port", 9090, "HTTP port")
	fs.String("db-driver", "sqlite", "message store driver: sqlite or postgres")
	fs.String("log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// .env yoksa hata vermez; production'da gerçek env variable'lar kullanılır.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", *envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		keyServerPort:     "port",
		keyDatabaseDriver: "db-driver",
		keyLogLevel:       "log-level",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	devParticipants, err := parseDevParticipants(v.GetString(keyDevParticipants))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString(keyServerHost),
			Port: v.GetInt(keyServerPort),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString(keyDatabaseDriver)),
			Path:   v.GetString(keyDatabasePath),
			URL:    v.GetString(keyDatabaseURL),
		},
		Identity: IdentityConfig{
			Mode:   strings.ToLower(v.GetString(keyIdentityMode)),
			Secret: v.GetString(keyJWTSecret),
		},
		Chat: ChatConfig{
			Channel:          v.GetString(keyChatChannel),
			ParticipantTTL:   v.GetDuration(keyParticipantTTL),
			PubSubBufferSize: v.GetInt(keyPubSubBuffer),
		},
		RateLimit: RateLimitConfig{
			SendRate:  v.GetFloat64(keySendRate),
			SendBurst: v.GetInt(keySendBurst),
		},
		CORS: CORSConfig{
			Origins: splitList(v.GetString(keyCORSOrigins)),
		},
		Log: LogConfig{
			Level: strings.ToLower(v.GetString(keyLogLevel)),
		},
		DevParticipants: devParticipants,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid %s: %d", keyServerPort, c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("%s is required for the sqlite driver", keyDatabasePath)
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("%s is required for the postgres driver", keyDatabaseURL)
		}
	default:
		return fmt.Errorf("invalid %s: %q", keyDatabaseDriver, c.Database.Driver)
	}

	switch c.Identity.Mode {
	case "header":
	case "token":
		if c.Identity.Secret == "" {
			return fmt.Errorf("%s is required when %s=token", keyJWTSecret, keyIdentityMode)
		}
	default:
		return fmt.Errorf("invalid %s: %q", keyIdentityMode, c.Identity.Mode)
	}

	if c.Chat.Channel == "" {
		return fmt.Errorf("%s must not be empty", keyChatChannel)
	}
	if c.Chat.ParticipantTTL <= 0 {
		return fmt.Errorf("invalid %s: %s", keyParticipantTTL, c.Chat.ParticipantTTL)
	}
	return nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDevParticipants, "id:name,id2:name2" formatını okur. İsim verilmezse id kullanılır.
func parseDevParticipants(s string) ([]DevParticipant, error) {
	var out []DevParticipant
	for _, entry := range splitList(s) {
		id, name, _ := strings.Cut(entry, ":")
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
		if id == "" {
			return nil, fmt.Errorf("invalid %s entry: %q", keyDevParticipants, entry)
		}
		if name == "" {
			name = id
		}
		out = append(out, DevParticipant{ID: id, Username: name})
	}
	return out, nil
}
