package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Review policies for claims that already left the pending state.
const (
	ReviewPolicyPendingOnly = "pending-only"
	ReviewPolicyOverwrite   = "overwrite"
)

// Storage drivers
const (
	DriverMongo    = "mongodb"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverLevelDB  = "leveldb"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Server      ServerConfig
	Storage     StorageConfig
	MongoDB     MongoDBConfig
	Postgres    PostgresConfig
	LevelDB     LevelDBConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Claims      ClaimsConfig
	FileHost    FileHostConfig
	LogLevel    string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// StorageConfig selects the claim record store implementation
type StorageConfig struct {
	Driver string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	URL      string
	MaxConns int32
}

// LevelDBConfig holds the embedded store location
type LevelDBConfig struct {
	Path string
}

// RedisConfig holds the token revocation store configuration.
// An empty Addr keeps revocations in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	Issuer    string
	ExpiresIn time.Duration
}

// ClaimsConfig holds lifecycle settings
type ClaimsConfig struct {
	ReviewPolicy string
}

// FileHostConfig holds settings for the external document host (S3 compatible)
type FileHostConfig struct {
	Bucket            string
	Region            string
	Endpoint          string
	PublicBaseURL     string
	AccessKeyID       string
	SecretKey         string
	UploadTimeout     time.Duration
	PresignTTL        time.Duration
	MaxConcurrency    int
	MaxFileSize       int64
	AllowedExtensions []string
	MockUpload        bool
}

// Load loads configuration from a .env file, environment variables and an optional config file
func Load(path string) (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.FileHost.AllowedExtensions = splitList(cfg.FileHost.AllowedExtensions)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail at request time
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Storage.Driver {
	case DriverMongo, DriverPostgres, DriverMemory, DriverLevelDB:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverPostgres && c.Postgres.URL == "" {
		return fmt.Errorf("POSTGRES_URL is required for the postgres driver")
	}
	switch c.Claims.ReviewPolicy {
	case ReviewPolicyPendingOnly, ReviewPolicyOverwrite:
	default:
		return fmt.Errorf("unknown review policy %q", c.Claims.ReviewPolicy)
	}
	if !c.FileHost.MockUpload && c.FileHost.Bucket == "" {
		return fmt.Errorf("FILEHOST_BUCKET is required unless FILEHOST_MOCKUPLOAD is set")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Environment", "development")
	v.SetDefault("Server.Port", "7000")
	v.SetDefault("Server.AllowedOrigins", []string{"http://localhost:8000"})
	v.SetDefault("Server.ReadTimeout", 15*time.Second)
	v.SetDefault("Server.WriteTimeout", 30*time.Second)
	v.SetDefault("Server.ShutdownTimeout", 5*time.Second)
	v.SetDefault("Storage.Driver", DriverMongo)
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "healthclaims")
	v.SetDefault("MongoDB.ConnectTimeout", 10*time.Second)
	v.SetDefault("Postgres.MaxConns", 10)
	v.SetDefault("LevelDB.Path", "./data/healthclaims")
	v.SetDefault("JWT.Issuer", "healthclaims")
	v.SetDefault("JWT.ExpiresIn", 24*time.Hour)
	v.SetDefault("Claims.ReviewPolicy", ReviewPolicyPendingOnly)
	v.SetDefault("FileHost.Region", "us-east-1")
	v.SetDefault("FileHost.UploadTimeout", 20*time.Second)
	v.SetDefault("FileHost.PresignTTL", 5*time.Minute)
	v.SetDefault("FileHost.MaxConcurrency", 4)
	v.SetDefault("FileHost.MaxFileSize", 10<<20)
	v.SetDefault("FileHost.AllowedExtensions", []string{".pdf", ".png", ".jpg", ".jpeg", ".gif"})
	v.SetDefault("FileHost.MockUpload", true)
	v.SetDefault("LogLevel", "info")
}

// bindEnv maps flat environment names (JWT_SECRET, MONGODB_URI, ...) onto the nested keys
func bindEnv(v *viper.Viper) {
	keys := []string{
		"Environment",
		"Server.Port", "Server.AllowedOrigins", "Server.ReadTimeout", "Server.WriteTimeout", "Server.ShutdownTimeout",
		"Storage.Driver",
		"MongoDB.URI", "MongoDB.Database", "MongoDB.ConnectTimeout",
		"Postgres.URL", "Postgres.MaxConns",
		"LevelDB.Path",
		"Redis.Addr", "Redis.Password", "Redis.DB",
		"JWT.Secret", "JWT.Issuer", "JWT.ExpiresIn",
		"Claims.ReviewPolicy",
		"FileHost.Bucket", "FileHost.Region", "FileHost.Endpoint", "FileHost.PublicBaseURL",
		"FileHost.AccessKeyID", "FileHost.SecretKey", "FileHost.UploadTimeout", "FileHost.PresignTTL",
		"FileHost.MaxConcurrency", "FileHost.MaxFileSize", "FileHost.AllowedExtensions", "FileHost.MockUpload",
		"LogLevel",
	}
	for _, key := range keys {
		_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
	_ = v.BindEnv("Server.Port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("LogLevel", "LOGLEVEL", "LOG_LEVEL")
	_ = v.BindEnv("Claims.ReviewPolicy", "CLAIMS_REVIEWPOLICY", "CLAIMS_REVIEW_POLICY")
}

// splitList expands a single comma separated env value into its parts
func splitList(values []string) []string {
	if len(values) != 1 || !strings.Contains(values[0], ",") {
		return values
	}
	var out []string
	for _, v := range strings.Split(values[0], ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
