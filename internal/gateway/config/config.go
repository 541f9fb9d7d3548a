package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port              string         `yaml:"port"`
	Env               string         `yaml:"env"`
	DatabaseURL       string         `yaml:"database_url"`
	RecordTable       string         `yaml:"record_table"`
	UploadTimeout     time.Duration  `yaml:"upload_timeout"`
	StrictIdentifiers bool           `yaml:"strict_identifiers"`
	Artifact          ArtifactConfig `yaml:"artifact"`
	Log               LogConfig      `yaml:"log"`
}

type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// CanUseS3 reports whether enough is configured to build an S3 client.
func (a ArtifactConfig) CanUseS3() bool {
	return a.Enabled &&
		strings.TrimSpace(a.Endpoint) != "" &&
		strings.TrimSpace(a.AccessKey) != "" &&
		strings.TrimSpace(a.SecretKey) != "" &&
		strings.TrimSpace(a.Bucket) != ""
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration for the gateway binary, including the -port flag.
func Load() (*Config, error) {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	port := fs.String("port", "", "server port")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, err
	}
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	if p := strings.TrimSpace(*port); p != "" {
		cfg.Port = normalizePort(p)
	}
	return cfg, nil
}

// LoadEnv builds a Config from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence.
func LoadEnv() (*Config, error) {
	_ = godotenv.Load()

	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")
	cfg := defaults(env)

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults(env string) Config {
	if strings.EqualFold(env, "local") {
		cfg := localConfig()
		cfg.Env = env
		return cfg
	}
	return Config{
		Port:          ":8081",
		Env:           env,
		RecordTable:   "oc_details",
		UploadTimeout: 30 * time.Second,
		Artifact: ArtifactConfig{
			Region: "us-east-1",
			Bucket: "instrument-artifacts",
			UseSSL: true,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Port = normalizePort(v)
	}
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.RecordTable, "RECORD_TABLE")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if v := strings.TrimSpace(os.Getenv("UPLOAD_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("UPLOAD_TIMEOUT: %w", err)
		}
		cfg.UploadTimeout = d
	}
	if err := setBool(&cfg.StrictIdentifiers, "STRICT_IDENTIFIERS"); err != nil {
		return err
	}

	a := &cfg.Artifact
	if strings.EqualFold(cfg.Env, "local") {
		setString(&a.Endpoint, "ARTIFACT_MINIO_ENDPOINT")
	}
	setString(&a.Endpoint, "ARTIFACT_S3_ENDPOINT")
	setString(&a.Region, "ARTIFACT_S3_REGION")
	setString(&a.AccessKey, "ARTIFACT_S3_ACCESS_KEY")
	setString(&a.SecretKey, "ARTIFACT_S3_SECRET_KEY")
	setString(&a.Bucket, "ARTIFACT_S3_BUCKET")
	if err := setBool(&a.UseSSL, "ARTIFACT_S3_USE_SSL"); err != nil {
		return err
	}
	if strings.TrimSpace(a.Endpoint) != "" {
		a.Enabled = true
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func normalizePort(p string) string {
	if strings.HasPrefix(p, ":") || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
