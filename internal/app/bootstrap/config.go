package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	JWTPrivateKeyPEM  string
	JWTPublicKeyPEM   string
	JWTKeyID          string
	AllowEphemeralJWT bool

	BcryptCost int
	TokenTTL   time.Duration

	RegisterLimitPerMinute int
	LoginLimitPerMinute    int
	AnalyzeLimitPerMinute  int

	UploadDir         string
	MaxUploadBytes    int64
	AllowedExtensions []string

	DefaultProvider   string
	GoogleEndpoint    string
	GoogleAPIKey      string
	ImaggaEndpoint    string
	ImaggaAPIKey      string
	ImaggaAPISecret   string
	TranslateEndpoint string
	TargetLang        string

	FrontendOrigin string
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Uploads struct {
		Dir               string   `yaml:"dir"`
		MaxBytes          int64    `yaml:"max_bytes"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
	} `yaml:"uploads"`
	Vision struct {
		DefaultProvider   string `yaml:"default_provider"`
		GoogleEndpoint    string `yaml:"google_endpoint"`
		ImaggaEndpoint    string `yaml:"imagga_endpoint"`
		TranslateEndpoint string `yaml:"translate_endpoint"`
		TargetLang        string `yaml:"target_lang"`
	} `yaml:"vision"`
	Frontend struct {
		Origin string `yaml:"origin"`
	} `yaml:"frontend"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:              "imagelens-backend",
		HTTPPort:               8080,
		GRPCPort:               9090,
		MaxDBConns:             20,
		JWTKeyID:               "imagelens-key-1",
		AllowEphemeralJWT:      true,
		BcryptCost:             12,
		TokenTTL:               24 * time.Hour,
		RegisterLimitPerMinute: 5,
		LoginLimitPerMinute:    10,
		AnalyzeLimitPerMinute:  10,
		UploadDir:              "uploads",
		MaxUploadBytes:         5 << 20,
		AllowedExtensions:      []string{"jpg", "jpeg", "png", "gif", "webp"},
		DefaultProvider:        "google",
		TargetLang:             "es",
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Uploads.Dir != "" {
			cfg.UploadDir = f.Uploads.Dir
		}
		if f.Uploads.MaxBytes > 0 {
			cfg.MaxUploadBytes = f.Uploads.MaxBytes
		}
		if len(f.Uploads.AllowedExtensions) > 0 {
			cfg.AllowedExtensions = f.Uploads.AllowedExtensions
		}
		if f.Vision.DefaultProvider != "" {
			cfg.DefaultProvider = f.Vision.DefaultProvider
		}
		if f.Vision.GoogleEndpoint != "" {
			cfg.GoogleEndpoint = f.Vision.GoogleEndpoint
		}
		if f.Vision.ImaggaEndpoint != "" {
			cfg.ImaggaEndpoint = f.Vision.ImaggaEndpoint
		}
		if f.Vision.TranslateEndpoint != "" {
			cfg.TranslateEndpoint = f.Vision.TranslateEndpoint
		}
		if f.Vision.TargetLang != "" {
			cfg.TargetLang = f.Vision.TargetLang
		}
		if f.Frontend.Origin != "" {
			cfg.FrontendOrigin = f.Frontend.Origin
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.JWTPrivateKeyPEM = envOrDefault("JWT_PRIVATE_KEY_PEM", cfg.JWTPrivateKeyPEM)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.TokenTTL = time.Duration(envInt("TOKEN_EXPIRY_HOURS", int(cfg.TokenTTL.Hours()))) * time.Hour

	cfg.RegisterLimitPerMinute = envInt("REGISTER_LIMIT_PER_MINUTE", cfg.RegisterLimitPerMinute)
	cfg.LoginLimitPerMinute = envInt("LOGIN_LIMIT_PER_MINUTE", cfg.LoginLimitPerMinute)
	cfg.AnalyzeLimitPerMinute = envInt("ANALYZE_LIMIT_PER_MINUTE", cfg.AnalyzeLimitPerMinute)

	cfg.UploadDir = envOrDefault("UPLOAD_DIR", cfg.UploadDir)
	cfg.MaxUploadBytes = int64(envInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	cfg.AllowedExtensions = envCSV("ALLOWED_EXTENSIONS", cfg.AllowedExtensions)

	cfg.DefaultProvider = strings.ToLower(envOrDefault("VISION_DEFAULT_PROVIDER", cfg.DefaultProvider))
	cfg.GoogleEndpoint = envOrDefault("GOOGLE_VISION_ENDPOINT", cfg.GoogleEndpoint)
	cfg.GoogleAPIKey = envOrDefault("GOOGLE_VISION_API_KEY", cfg.GoogleAPIKey)
	cfg.ImaggaEndpoint = envOrDefault("IMAGGA_ENDPOINT", cfg.ImaggaEndpoint)
	cfg.ImaggaAPIKey = envOrDefault("IMAGGA_API_KEY", cfg.ImaggaAPIKey)
	cfg.ImaggaAPISecret = envOrDefault("IMAGGA_API_SECRET", cfg.ImaggaAPISecret)
	cfg.TranslateEndpoint = envOrDefault("TRANSLATE_ENDPOINT", cfg.TranslateEndpoint)
	cfg.TargetLang = envOrDefault("TRANSLATE_TARGET_LANG", cfg.TargetLang)

	cfg.FrontendOrigin = envOrDefault("FRONTEND_ORIGIN", cfg.FrontendOrigin)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if (cfg.JWTPrivateKeyPEM == "" || cfg.JWTPublicKeyPEM == "") && !cfg.AllowEphemeralJWT {
		return Config{}, fmt.Errorf("missing JWT_PRIVATE_KEY_PEM or JWT_PUBLIC_KEY_PEM")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
