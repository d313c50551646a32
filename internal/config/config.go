// Package config loads runtime settings from the environment.
//
// A .env file in the working directory (or its parent) is loaded first when
// present; real environment variables always win over it.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	CORS      CORSConfig
	Inference InferenceConfig
	NLP       NLPConfig
	Storage   StorageConfig
	LogLevel  slog.Level
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string
	TemplateDir    string
	StaticDir      string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// DatabaseConfig points at the SQLite file holding users and history.
type DatabaseConfig struct {
	Path string
}

// SessionConfig configures the session JWT.
type SessionConfig struct {
	SecretKey string
	TTL       time.Duration
	// Generated is true when SECRET_KEY was unset and a random key is in use.
	Generated bool
}

// CORSConfig lists origins allowed to call the API cross-site. Empty means
// same-origin only.
type CORSConfig struct {
	AllowedOrigins []string
}

// InferenceConfig locates the model-serving sidecar and the embeddings API.
type InferenceConfig struct {
	URL                string
	Token              string
	SummarizationModel string
	SentimentModel     string
	Timeout            time.Duration
	EmbeddingsURL      string
	EmbeddingsAPIKey   string
	EmbeddingsModel    string
}

// NLPConfig tunes the analysis pipeline.
type NLPConfig struct {
	PDFExtractor    string // "pure" or "mupdf"
	SummaryChunking bool
	ChunkMaxTokens  int
	TopicSeed       int64
}

// StorageConfig selects where uploads and generated PDFs are written.
type StorageConfig struct {
	Backend     string // "local" or "s3"
	UploadDir   string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		// A missing .env is normal outside local development.
		_ = godotenv.Load("../.env")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using getenv for lookups. Load passes os.Getenv;
// tests pass a map.
func FromEnv(getenv func(string) string) (*Config, error) {
	e := &env{get: getenv}

	cfg := &Config{
		Server: ServerConfig{
			Port:           e.str("PORT", "8080"),
			TemplateDir:    e.str("TEMPLATE_DIR", "web/templates"),
			StaticDir:      e.str("STATIC_DIR", "web/static"),
			MaxUploadBytes: e.int64("MAX_UPLOAD_BYTES", 16<<20),
			ReadTimeout:    e.duration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   e.duration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:    e.duration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Path: e.str("DB_PATH", "data/users.db"),
		},
		Session: SessionConfig{
			SecretKey: e.str("SECRET_KEY", ""),
			TTL:       e.duration("SESSION_TTL", 24*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: e.list("CORS_ALLOWED_ORIGINS"),
		},
		Inference: InferenceConfig{
			URL:                strings.TrimRight(e.str("INFERENCE_URL", "http://localhost:8000"), "/"),
			Token:              e.str("INFERENCE_TOKEN", ""),
			SummarizationModel: e.str("SUMMARIZATION_MODEL", "sshleifer/distilbart-cnn-12-6"),
			SentimentModel:     e.str("SENTIMENT_MODEL", "distilbert-base-uncased-finetuned-sst-2-english"),
			Timeout:            e.duration("INFERENCE_TIMEOUT", 2*time.Minute),
			EmbeddingsURL:      e.str("EMBEDDINGS_URL", "http://localhost:8000/v1"),
			EmbeddingsAPIKey:   e.str("EMBEDDINGS_API_KEY", ""),
			EmbeddingsModel:    e.str("EMBEDDINGS_MODEL", "all-MiniLM-L6-v2"),
		},
		NLP: NLPConfig{
			PDFExtractor:    e.str("PDF_EXTRACTOR", "pure"),
			SummaryChunking: e.bool("SUMMARY_CHUNKING", false),
			ChunkMaxTokens:  e.int("CHUNK_MAX_TOKENS", 512),
			TopicSeed:       e.int64("TOPIC_SEED", 1),
		},
		Storage: StorageConfig{
			Backend:     e.str("STORAGE_BACKEND", "local"),
			UploadDir:   e.str("UPLOAD_DIR", "./uploads"),
			S3Bucket:    e.str("S3_BUCKET", ""),
			S3Region:    e.str("S3_REGION", "us-east-1"),
			S3Endpoint:  e.str("S3_ENDPOINT", ""),
			S3AccessKey: e.str("S3_ACCESS_KEY", ""),
			S3SecretKey: e.str("S3_SECRET_KEY", ""),
		},
		LogLevel: e.level("LOG_LEVEL", slog.LevelInfo),
	}

	if err := errors.Join(e.errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.Session.SecretKey == "" {
		key, err := randomKey()
		if err != nil {
			return nil, fmt.Errorf("config: generating secret key: %w", err)
		}
		cfg.Session.SecretKey = key
		cfg.Session.Generated = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks values that parse but make no sense together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if len(c.Session.SecretKey) < 16 {
		errs = append(errs, errors.New("SECRET_KEY must be at least 16 characters"))
	}
	if c.NLP.ChunkMaxTokens <= 0 {
		errs = append(errs, errors.New("CHUNK_MAX_TOKENS must be positive"))
	}

	switch c.NLP.PDFExtractor {
	case "pure", "mupdf":
	default:
		errs = append(errs, fmt.Errorf("PDF_EXTRACTOR must be \"pure\" or \"mupdf\", got %q", c.NLP.PDFExtractor))
	}

	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be \"local\" or \"s3\", got %q", c.Storage.Backend))
	}

	return errors.Join(errs...)
}

// env wraps a lookup function and collects parse errors so every bad
// variable is reported at once.
type env struct {
	get  func(string) string
	errs []error
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (e *env) int64(key string, def int64) int64 {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (e *env) bool(key string, def bool) bool {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

// list splits a comma-separated value, dropping empty items.
func (e *env) list(key string) []string {
	var out []string
	for _, part := range strings.Split(e.get(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *env) level(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid log level %q", key, v))
		return def
	}
	return l
}

func randomKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
