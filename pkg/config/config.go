package config

import (
	"encoding/base64"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	IdentityBackendMongo    = "mongo"
	IdentityBackendPostgres = "postgres"

	StorageBackendLocal = "local"
	StorageBackendMinio = "minio"
)

// Config is read once at startup and treated as immutable.
type Config struct {
	Port string

	MongoURI string
	MongoDB  string

	IdentityBackend string
	PostgresDSN     string

	JWTSecret   string
	TokenTTL    time.Duration
	FieldEncKey []byte

	StorageBackend string
	UploadDir      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	RabbitMQURL string

	CORSAllowedOrigin string
	LoginRateLimit    int

	// TrustedProxies are the peers whose X-Forwarded-For header is believed.
	TrustedProxies []netip.Prefix

	AdminEmail    string
	AdminPassword string
}

// Load reads an optional .env file and then builds the config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables, falling back to local
// development defaults.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getenv("PORT", "8080"),
		MongoURI:          getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getenv("MONGO_DB", "resolveit"),
		IdentityBackend:   getenv("IDENTITY_BACKEND", IdentityBackendMongo),
		PostgresDSN:       getenv("POSTGRES_DSN", "host=localhost user=admin password=password dbname=resolveit port=5432 sslmode=disable TimeZone=UTC"),
		JWTSecret:         getenv("JWT_SECRET", "SUPER_SECRET_KEY_CHANGE_ME"),
		StorageBackend:    getenv("STORAGE_BACKEND", StorageBackendLocal),
		UploadDir:         getenv("UPLOAD_DIR", "uploads"),
		MinioEndpoint:     getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:    os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:       getenv("MINIO_BUCKET", "resolveit-evidence"),
		RabbitMQURL:       strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
		CORSAllowedOrigin: getenv("CORS_ALLOWED_ORIGIN", "*"),
		AdminEmail:        getenv("ADMIN_EMAIL", "admin@resolveit.com"),
		AdminPassword:     getenv("ADMIN_PASSWORD", "Admin123!"),
	}

	var err error
	if cfg.TokenTTL, err = time.ParseDuration(getenv("TOKEN_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("config: TOKEN_TTL: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("config: TOKEN_TTL must be positive")
	}

	if cfg.MinioUseSSL, err = strconv.ParseBool(getenv("MINIO_USE_SSL", "false")); err != nil {
		return nil, fmt.Errorf("config: MINIO_USE_SSL: %w", err)
	}

	if cfg.LoginRateLimit, err = strconv.Atoi(getenv("LOGIN_RATE_LIMIT", "10")); err != nil {
		return nil, fmt.Errorf("config: LOGIN_RATE_LIMIT: %w", err)
	}

	if cfg.TrustedProxies, err = parsePrefixes(os.Getenv("TRUSTED_PROXIES")); err != nil {
		return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
	}

	if v := strings.TrimSpace(os.Getenv("FIELD_ENC_KEY")); v != "" {
		key, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("config: FIELD_ENC_KEY: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("config: FIELD_ENC_KEY must decode to 32 bytes")
		}
		cfg.FieldEncKey = key
	}

	switch cfg.IdentityBackend {
	case IdentityBackendMongo, IdentityBackendPostgres:
	default:
		return nil, fmt.Errorf("config: unknown IDENTITY_BACKEND %q", cfg.IdentityBackend)
	}

	switch cfg.StorageBackend {
	case StorageBackendLocal:
	case StorageBackendMinio:
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
			return nil, fmt.Errorf("config: MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for minio storage")
		}
	default:
		return nil, fmt.Errorf("config: unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// parsePrefixes reads a comma separated list of CIDRs or bare addresses.
func parsePrefixes(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
