// Package config centralizes how PrintDrop reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents runtime configuration for the service.
type Config struct {
	Address        string
	MaxFileSize    int64
	AllowedTypes   []string
	SigningSecret  []byte
	SignedURLTTL   time.Duration
	ProcessingPool int
	DataDir        string
	LogDev         bool

	// EphemeralSecret is set when no signing secret was configured and a
	// random per-process one is in use. Links signed by one process do not
	// verify on another.
	EphemeralSecret bool

	// Orders are kept in PostgreSQL when set, otherwise in a JSON file under
	// DataDir.
	DatabaseURL string

	// Redis backs admin sessions and the asynq job queue when RedisAddr is set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Uploaded documents go to MinIO/S3 when S3Endpoint is set, otherwise to
	// disk under DataDir.
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Region    string
	S3Bucket    string

	AdminPassword string
	SessionTTL    time.Duration
	PageCounting  string
}

const (
	defaultAddress      = ":8080"
	defaultMaxFileSize  = 25 << 20 // 25 MiB
	defaultAllowedTypes = "application/pdf,application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	defaultSignedTTL    = 5 * time.Minute
	defaultWorkerCount  = 2
	defaultDataDir      = "./data"
	defaultS3Region     = "us-east-1"
	defaultS3Bucket     = "printdrop-uploads"
	defaultAdminPass    = "admin123"
	defaultSessionTTL   = 12 * time.Hour
	defaultPageCounting = "span"
)

// Load reads PRINTDROP_* environment variables falling back to defaults.
// Values that fail to parse or are out of range also fall back.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRINTDROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("address", defaultAddress)
	v.SetDefault("max_file_bytes", defaultMaxFileSize)
	v.SetDefault("allowed_types", defaultAllowedTypes)
	v.SetDefault("signing_secret", "")
	v.SetDefault("signed_ttl", defaultSignedTTL)
	v.SetDefault("workers", defaultWorkerCount)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("log_dev", false)
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("s3_use_ssl", false)
	v.SetDefault("s3_region", defaultS3Region)
	v.SetDefault("s3_bucket", defaultS3Bucket)
	v.SetDefault("admin_password", defaultAdminPass)
	v.SetDefault("session_ttl", defaultSessionTTL)
	v.SetDefault("page_counting", defaultPageCounting)

	cfg := &Config{
		Address:        v.GetString("address"),
		MaxFileSize:    v.GetInt64("max_file_bytes"),
		AllowedTypes:   parseList(v.GetString("allowed_types")),
		SignedURLTTL:   v.GetDuration("signed_ttl"),
		ProcessingPool: v.GetInt("workers"),
		DataDir:        v.GetString("data_dir"),
		LogDev:         v.GetBool("log_dev"),
		DatabaseURL:    v.GetString("database_url"),
		RedisAddr:      v.GetString("redis_addr"),
		RedisPassword:  v.GetString("redis_password"),
		RedisDB:        v.GetInt("redis_db"),
		S3Endpoint:     v.GetString("s3_endpoint"),
		S3AccessKey:    v.GetString("s3_access_key"),
		S3SecretKey:    v.GetString("s3_secret_key"),
		S3UseSSL:       v.GetBool("s3_use_ssl"),
		S3Region:       v.GetString("s3_region"),
		S3Bucket:       v.GetString("s3_bucket"),
		AdminPassword:  v.GetString("admin_password"),
		SessionTTL:     v.GetDuration("session_ttl"),
		PageCounting:   v.GetString("page_counting"),
	}
	if secret := v.GetString("signing_secret"); secret != "" {
		cfg.SigningSecret = []byte(secret)
	} else {
		cfg.SigningSecret = randomSecret()
		cfg.EphemeralSecret = true
	}
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.ProcessingPool <= 0 {
		cfg.ProcessingPool = defaultWorkerCount
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = defaultSignedTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = parseList(defaultAllowedTypes)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = defaultAdminPass
	}
	return cfg, nil
}

func parseList(val string) []string {
	out := make([]string, 0, 4)
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte(hex.EncodeToString([]byte("fallbacksecret")))
	}
	return buf
}
