package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// VectorBackendQdrant stores the schema collection in a Qdrant server.
	VectorBackendQdrant = "qdrant"
	// VectorBackendMemory keeps the schema collection in process memory.
	VectorBackendMemory = "memory"

	// ReindexAlways re-embeds the schema on every start.
	ReindexAlways = "always"
	// ReindexOnChange skips re-embedding when the schema text is unchanged.
	ReindexOnChange = "on-change"
)

// Config holds all configuration for the application.
type Config struct {
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DBSchema    string

	SchemaFile  string
	ReindexMode string
	WatchSchema bool

	VectorBackend    string
	QdrantURL        string
	QdrantCollection string
	VectorSize       int

	EmbeddingBaseURL   string
	EmbeddingModelName string

	LLMBaseURL     string
	LLMModelName   string
	LLMAPIKey      string
	LLMTemperature float32
	LLMTimeout     time.Duration

	RetrievalK int

	HistoryDBPath string
	APIPort       string

	LogLevel  slog.Level
	LogFormat string
}

// fileConfig is the optional YAML overlay read from CONFIG_FILE.
// Environment variables take precedence over values in the file.
type fileConfig struct {
	Database struct {
		URL      string `yaml:"url"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
		Schema   string `yaml:"schema"`
	} `yaml:"database"`
	Schema struct {
		File        string `yaml:"file"`
		ReindexMode string `yaml:"reindex_mode"`
		Watch       string `yaml:"watch"`
	} `yaml:"schema"`
	Vector struct {
		Backend    string `yaml:"backend"`
		QdrantURL  string `yaml:"qdrant_url"`
		Collection string `yaml:"collection"`
		Size       string `yaml:"size"`
	} `yaml:"vector"`
	Embedding struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"embedding"`
	LLM struct {
		BaseURL     string `yaml:"base_url"`
		Model       string `yaml:"model"`
		APIKey      string `yaml:"api_key"`
		Temperature string `yaml:"temperature"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"llm"`
	Retrieval struct {
		K string `yaml:"k"`
	} `yaml:"retrieval"`
	History struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"history"`
	API struct {
		Port string `yaml:"port"`
	} `yaml:"api"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or one of its parents, it is loaded first.
// When CONFIG_FILE points at a YAML file, its values fill in anything the environment leaves unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		fc = *loaded
	}

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", fc.Database.URL, ""),
		DBHost:      getEnv("DB_HOST", fc.Database.Host, "localhost"),
		DBPort:      getEnv("DB_PORT", fc.Database.Port, "5432"),
		DBUser:      getEnv("DB_USER", fc.Database.User, ""),
		DBPassword:  getEnv("DB_PASSWORD", fc.Database.Password, ""),
		DBName:      getEnv("DB_NAME", fc.Database.Name, ""),
		DBSSLMode:   getEnv("DB_SSLMODE", fc.Database.SSLMode, "disable"),
		DBSchema:    getEnv("DB_SCHEMA", fc.Database.Schema, "public"),

		SchemaFile:  getEnv("SCHEMA_FILE", fc.Schema.File, "db_schema.sql"),
		ReindexMode: strings.ToLower(getEnv("REINDEX_MODE", fc.Schema.ReindexMode, ReindexAlways)),

		VectorBackend:    strings.ToLower(getEnv("VECTOR_BACKEND", fc.Vector.Backend, VectorBackendQdrant)),
		QdrantURL:        getEnv("QDRANT_URL", fc.Vector.QdrantURL, "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", fc.Vector.Collection, "db_schema"),

		// Ollama serves an OpenAI-compatible API under /v1 on its default port.
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", fc.Embedding.BaseURL, "http://localhost:11434"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", fc.Embedding.Model, "all-minilm"),

		LLMBaseURL:   getEnv("LLM_BASE_URL", fc.LLM.BaseURL, "http://localhost:11434"),
		LLMModelName: getEnv("LLM_MODEL", fc.LLM.Model, "qwen2.5:3b"),
		LLMAPIKey:    getEnv("LLM_API_KEY", fc.LLM.APIKey, "ollama"),

		HistoryDBPath: getEnv("HISTORY_DB_PATH", fc.History.DBPath, "./data/text2sql.db"),
		APIPort:       getEnv("API_PORT", fc.API.Port, "9000"),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", fc.Log.Format, "text")),
	}

	// VECTOR_SIZE must match the output size of the embedding model.
	// all-minilm produces 384 dimensions; changing models requires recreating the collection.
	vectorSize, err := strconv.Atoi(getEnv("VECTOR_SIZE", fc.Vector.Size, "384"))
	if err != nil {
		return nil, fmt.Errorf("VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE must be greater than 0")
	}
	cfg.VectorSize = vectorSize

	k, err := strconv.Atoi(getEnv("RETRIEVAL_K", fc.Retrieval.K, "4"))
	if err != nil {
		return nil, fmt.Errorf("RETRIEVAL_K must be a valid integer: %w", err)
	}
	if k < 0 {
		return nil, fmt.Errorf("RETRIEVAL_K must not be negative")
	}
	cfg.RetrievalK = k

	temperature, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", fc.LLM.Temperature, "0"), 32)
	if err != nil {
		return nil, fmt.Errorf("LLM_TEMPERATURE must be a valid number: %w", err)
	}
	if temperature < 0 {
		return nil, fmt.Errorf("LLM_TEMPERATURE must not be negative")
	}
	cfg.LLMTemperature = float32(temperature)

	timeout, err := time.ParseDuration(getEnv("LLM_TIMEOUT", fc.LLM.Timeout, "120s"))
	if err != nil {
		return nil, fmt.Errorf("LLM_TIMEOUT must be a valid duration: %w", err)
	}
	cfg.LLMTimeout = timeout

	watch, err := strconv.ParseBool(getEnv("WATCH_SCHEMA", fc.Schema.Watch, "false"))
	if err != nil {
		return nil, fmt.Errorf("WATCH_SCHEMA must be a boolean: %w", err)
	}
	cfg.WatchSchema = watch

	level, err := parseLevel(getEnv("LOG_LEVEL", fc.Log.Level, "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Create the history database directory if it doesn't exist
	dataDir := filepath.Dir(cfg.HistoryDBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.VectorBackend {
	case VectorBackendQdrant, VectorBackendMemory:
	default:
		return fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", VectorBackendQdrant, VectorBackendMemory, c.VectorBackend)
	}
	switch c.ReindexMode {
	case ReindexAlways, ReindexOnChange:
	default:
		return fmt.Errorf("REINDEX_MODE must be %q or %q, got %q", ReindexAlways, ReindexOnChange, c.ReindexMode)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.SchemaFile == "" {
		return fmt.Errorf("SCHEMA_FILE is required")
	}
	return nil
}

// DatabaseDSN returns the connection string for the target database.
// DATABASE_URL wins when set; otherwise a URL is assembled from the DB_* parts.
// An empty result means no database is configured.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DBName == "" {
		return ""
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	if c.DBUser != "" {
		if c.DBPassword != "" {
			u.User = url.UserPassword(c.DBUser, c.DBPassword)
		} else {
			u.User = url.User(c.DBUser)
		}
	}
	if c.DBSSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{c.DBSSLMode}}.Encode()
	}
	return u.String()
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &fc, nil
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}

// getEnv returns the environment variable, then the file value, then the default.
func getEnv(key, fileValue, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}
