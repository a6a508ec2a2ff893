// Package config loads service configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location, relative to the working
// directory the service is started from.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL string `yaml:"databaseURL"`

	AIServiceURL    string `yaml:"aiServiceURL"`
	CallbackBaseURL string `yaml:"callbackBaseURL"`

	JWTSecret             string `yaml:"jwtSecret"`
	AccessTokenTTLMinutes int    `yaml:"accessTokenTTLMinutes"`
	RefreshTokenTTLHours  int    `yaml:"refreshTokenTTLHours"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	DispatchStream      string `yaml:"dispatchStream"`
	DispatchGroup       string `yaml:"dispatchGroup"`
	DispatchConcurrency int    `yaml:"dispatchConcurrency"`
	DispatchMaxAttempts int    `yaml:"dispatchMaxAttempts"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	AuthRateLimit         int      `yaml:"authRateLimit"`
	AuthRateWindowSeconds int      `yaml:"authRateWindowSeconds"`
	TrustedProxies        []string `yaml:"trustedProxies"`

	MaxUploadMB int64 `yaml:"maxUploadMB"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("GODSAENG_AI_SERVICE_URL"); v != "" {
		cfg.AIServiceURL = v
	}
	if v := os.Getenv("GODSAENG_CALLBACK_BASE_URL"); v != "" {
		cfg.CallbackBaseURL = v
	}
	if v := os.Getenv("GODSAENG_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("GODSAENG_ACCESS_TOKEN_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AccessTokenTTLMinutes = n
		}
	}
	if v := os.Getenv("GODSAENG_REFRESH_TOKEN_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RefreshTokenTTLHours = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("GODSAENG_DISPATCH_STREAM"); v != "" {
		cfg.DispatchStream = v
	}
	if v := os.Getenv("GODSAENG_DISPATCH_GROUP"); v != "" {
		cfg.DispatchGroup = v
	}
	if v := os.Getenv("GODSAENG_DISPATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DispatchConcurrency = n
		}
	}
	if v := os.Getenv("GODSAENG_DISPATCH_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DispatchMaxAttempts = n
		}
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if useSSL, err := strconv.ParseBool(v); err == nil {
			cfg.MinioUseSSL = useSSL
		}
	}
	if v := os.Getenv("GODSAENG_AUTH_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuthRateLimit = n
		}
	}
	if v := os.Getenv("GODSAENG_AUTH_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuthRateWindowSeconds = n
		}
	}
	if v := os.Getenv("GODSAENG_TRUSTED_PROXIES"); v != "" {
		var entries []string
		for _, entry := range strings.Split(v, ",") {
			if entry = strings.TrimSpace(entry); entry != "" {
				entries = append(entries, entry)
			}
		}
		cfg.TrustedProxies = entries
	}
	if v := os.Getenv("GODSAENG_MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadMB = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.AIServiceURL == "" {
		return errors.New("config: aiServiceURL is required (set in config.yaml)")
	}
	if cfg.CallbackBaseURL == "" {
		return errors.New("config: callbackBaseURL is required (set in config.yaml)")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("config: jwtSecret must be at least 32 bytes (set in config.yaml or GODSAENG_JWT_SECRET)")
	}
	if cfg.AccessTokenTTLMinutes <= 0 {
		return errors.New("config: accessTokenTTLMinutes must be > 0")
	}
	if cfg.RefreshTokenTTLHours <= 0 {
		return errors.New("config: refreshTokenTTLHours must be > 0")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	if cfg.DispatchConcurrency < 0 {
		return errors.New("config: dispatchConcurrency must be >= 0")
	}
	if cfg.DispatchMaxAttempts < 0 {
		return errors.New("config: dispatchMaxAttempts must be >= 0")
	}
	if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
		return errors.New("config: minioEndpoint and minioBucket are required (set in config.yaml)")
	}
	if cfg.AuthRateLimit < 0 {
		return errors.New("config: authRateLimit must be >= 0")
	}
	if cfg.AuthRateLimit > 0 && cfg.AuthRateWindowSeconds <= 0 {
		return errors.New("config: authRateWindowSeconds must be > 0 when authRateLimit is set")
	}
	if cfg.MaxUploadMB < 0 {
		return errors.New("config: maxUploadMB must be >= 0")
	}
	return nil
}
