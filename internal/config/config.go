package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	AI         AI         `mapstructure:"ai"`
	Ingest     Ingest     `mapstructure:"ingest"`
	Match      Match      `mapstructure:"match"`
	Clustering Clustering `mapstructure:"clustering"`
	Fusion     Fusion     `mapstructure:"fusion"`
	Quality    Quality    `mapstructure:"quality"`
	Reputation Reputation `mapstructure:"reputation"`
	Feeds      Feeds      `mapstructure:"feeds"`
	Storage    Storage    `mapstructure:"storage"`
	Logging    Logging    `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// AI holds classifier and embedder configuration
type AI struct {
	EmbeddingProvider string       `mapstructure:"embedding_provider"` // "gemini" or "openai"
	Gemini            GeminiConfig `mapstructure:"gemini"`
	OpenAI            OpenAIConfig `mapstructure:"openai"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	Timeout        string  `mapstructure:"timeout"`
	MaxTokens      int32   `mapstructure:"max_tokens"`
	Temperature    float32 `mapstructure:"temperature"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	EmbeddingDims  int32   `mapstructure:"embedding_dims"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// OpenAIConfig holds configuration for any OpenAI-compatible embedding endpoint
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	BaseURL        string `mapstructure:"base_url"`
	Timeout        string `mapstructure:"timeout"`
}

// Ingest holds pipeline run configuration
type Ingest struct {
	MaxWorkers       int    `mapstructure:"max_workers"`        // Bounded worker pool size
	MaxPerDomain     int    `mapstructure:"max_per_domain"`     // Concurrent outbound calls per domain
	MaxNewSignals    int    `mapstructure:"max_new_signals"`    // Per-run cap on created signals; 0 = unlimited
	MinContentLength int    `mapstructure:"min_content_length"` // Validation gate, runes of title+content
	MaxDocumentAge   string `mapstructure:"max_document_age"`   // Validation gate, e.g. "720h"
	TriageThreshold  float64 `mapstructure:"triage_threshold"`  // Adjusted confidence below this is irrelevant
	Timeout          string `mapstructure:"timeout"`            // Per external call
}

// Match holds similarity tier configuration
type Match struct {
	DuplicateThreshold float64 `mapstructure:"duplicate_threshold" validate:"gt=0,lte=1"`
	EnrichThreshold    float64 `mapstructure:"enrich_threshold" validate:"gt=0,lte=1"`
	WeakThreshold      float64 `mapstructure:"weak_threshold" validate:"gt=0,lte=1"`
	TopK               int     `mapstructure:"top_k" validate:"gte=1"`
	BruteForceLimit    int     `mapstructure:"brute_force_limit" validate:"gte=1"`
}

// Clustering holds corroboration clustering configuration
type Clustering struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" validate:"gt=0,lte=1"`
}

// Fusion holds reciprocal rank fusion configuration
type Fusion struct {
	K             int     `mapstructure:"k" validate:"gte=1"`
	LexicalWeight float64 `mapstructure:"lexical_weight" validate:"gt=0"`
	VectorWeight  float64 `mapstructure:"vector_weight" validate:"gt=0"`
}

// Quality holds composite quality score weights. The five weights must
// sum to 1.0 within ±0.01 or Load fails; they are never normalized
// silently.
type Quality struct {
	AuthorityWeight     float64 `mapstructure:"authority_weight" validate:"gte=0,lte=1"`
	DiversityWeight     float64 `mapstructure:"diversity_weight" validate:"gte=0,lte=1"`
	CorroborationWeight float64 `mapstructure:"corroboration_weight" validate:"gte=0,lte=1"`
	RecencyWeight       float64 `mapstructure:"recency_weight" validate:"gte=0,lte=1"`
	SpecificityWeight   float64 `mapstructure:"specificity_weight" validate:"gte=0,lte=1"`
	RecencyHalfLife     string  `mapstructure:"recency_half_life"` // Age at which the recency sub-score halves
}

// Reputation holds domain reputation configuration
type Reputation struct {
	HomeLocale string `mapstructure:"home_locale"` // Locale whose outlets earn the per-record bonus
}

// Feeds holds RSS/feed configuration
type Feeds struct {
	FetchInterval   string `mapstructure:"fetch_interval"`
	UserAgent       string `mapstructure:"user_agent"`
	Timeout         string `mapstructure:"timeout"`
	MaxItemsPerFeed int    `mapstructure:"max_items_per_feed"`
}

// Storage holds persistence configuration
type Storage struct {
	Postgres   PostgresConfig `mapstructure:"postgres"`
	CacheDir   string         `mapstructure:"cache_dir"`   // sqlite ingest cache location
	VectorDir  string         `mapstructure:"vector_dir"`  // chromem collection location
	LexicalDir string         `mapstructure:"lexical_dir"` // bleve index location
}

// PostgresConfig holds catalog database configuration
type PostgresConfig struct {
	URL     string `mapstructure:"url"`
	Timeout string `mapstructure:"timeout"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	globalConfig *Config
	validate     = validator.New()
)

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".signalhound")
		viper.SetConfigType("yaml")
	}

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvironmentVariables()

	// Enable automatic environment variable reading
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into struct
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Apply post-processing
	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// ConfigFileUsed reports the config file the loaded configuration came
// from, empty when only defaults and environment variables applied.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".signalhound")

	// AI defaults
	viper.SetDefault("ai.embedding_provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.timeout", "30s")
	viper.SetDefault("ai.gemini.max_tokens", 8192)
	viper.SetDefault("ai.gemini.temperature", 0.2)
	viper.SetDefault("ai.gemini.embedding_model", "text-embedding-004")
	viper.SetDefault("ai.gemini.embedding_dims", 768)
	viper.SetDefault("ai.gemini.max_retries", 3)
	viper.SetDefault("ai.openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("ai.openai.timeout", "30s")

	// Ingest defaults
	viper.SetDefault("ingest.max_workers", 8)
	viper.SetDefault("ingest.max_per_domain", 2)
	viper.SetDefault("ingest.max_new_signals", 0)
	viper.SetDefault("ingest.min_content_length", 120)
	viper.SetDefault("ingest.max_document_age", "720h")
	viper.SetDefault("ingest.triage_threshold", 0.5)
	viper.SetDefault("ingest.timeout", "30s")

	// Match tier defaults
	viper.SetDefault("match.duplicate_threshold", 0.92)
	viper.SetDefault("match.enrich_threshold", 0.85)
	viper.SetDefault("match.weak_threshold", 0.75)
	viper.SetDefault("match.top_k", 3)
	viper.SetDefault("match.brute_force_limit", 200)

	// Clustering defaults
	viper.SetDefault("clustering.similarity_threshold", 0.90)

	// Fusion defaults
	viper.SetDefault("fusion.k", 60)
	viper.SetDefault("fusion.lexical_weight", 1.0)
	viper.SetDefault("fusion.vector_weight", 2.0)

	// Quality weight defaults
	viper.SetDefault("quality.authority_weight", 0.30)
	viper.SetDefault("quality.diversity_weight", 0.20)
	viper.SetDefault("quality.corroboration_weight", 0.20)
	viper.SetDefault("quality.recency_weight", 0.15)
	viper.SetDefault("quality.specificity_weight", 0.15)
	viper.SetDefault("quality.recency_half_life", "336h")

	// Reputation defaults
	viper.SetDefault("reputation.home_locale", "en-US")

	// Feeds defaults
	viper.SetDefault("feeds.fetch_interval", "1h")
	viper.SetDefault("feeds.user_agent", "Signalhound/1.0")
	viper.SetDefault("feeds.timeout", "30s")
	viper.SetDefault("feeds.max_items_per_feed", 50)

	// Storage defaults
	viper.SetDefault("storage.postgres.timeout", "5s")
	viper.SetDefault("storage.cache_dir", ".signalhound/cache")
	viper.SetDefault("storage.vector_dir", ".signalhound/vectors")
	viper.SetDefault("storage.lexical_dir", ".signalhound/lexical")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// Gemini API key - support multiple formats
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	// OpenAI API key
	bindEnvKeys("ai.openai.api_key", []string{
		"OPENAI_API_KEY",
	})

	// Catalog database
	bindEnvKeys("storage.postgres.url", []string{
		"DATABASE_URL",
		"SIGNALHOUND_DATABASE_URL",
	})

	// General settings
	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"SIGNALHOUND_DEBUG",
	})

	bindEnvKeys("app.log_level", []string{
		"SIGNALHOUND_LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	// Expand paths
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Storage.CacheDir != "" {
		config.Storage.CacheDir = expandPath(config.Storage.CacheDir)
	}
	if config.Storage.VectorDir != "" {
		config.Storage.VectorDir = expandPath(config.Storage.VectorDir)
	}
	if config.Storage.LexicalDir != "" {
		config.Storage.LexicalDir = expandPath(config.Storage.LexicalDir)
	}

	// Validate durations
	durations := map[string]string{
		"ai.gemini.timeout":         config.AI.Gemini.Timeout,
		"ai.openai.timeout":         config.AI.OpenAI.Timeout,
		"ingest.max_document_age":   config.Ingest.MaxDocumentAge,
		"ingest.timeout":            config.Ingest.Timeout,
		"quality.recency_half_life": config.Quality.RecencyHalfLife,
		"feeds.fetch_interval":      config.Feeds.FetchInterval,
		"feeds.timeout":             config.Feeds.Timeout,
		"storage.postgres.timeout":  config.Storage.Postgres.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures required configuration is present and coherent
func validateConfig(config *Config) error {
	var errors []string

	for _, section := range []any{config.Match, config.Clustering, config.Fusion, config.Quality} {
		if err := validate.Struct(section); err != nil {
			errors = append(errors, err.Error())
		}
	}

	// Tier thresholds must nest: duplicate >= enrich >= weak
	m := config.Match
	if !(m.DuplicateThreshold >= m.EnrichThreshold && m.EnrichThreshold >= m.WeakThreshold) {
		errors = append(errors, fmt.Sprintf(
			"match thresholds must satisfy duplicate >= enrich >= weak, got %.2f/%.2f/%.2f",
			m.DuplicateThreshold, m.EnrichThreshold, m.WeakThreshold))
	}

	// Quality weights must sum to 1.0 within tolerance; never normalized silently
	if err := config.Quality.CheckWeightSum(); err != nil {
		errors = append(errors, err.Error())
	}

	if config.Ingest.MaxWorkers < 1 {
		errors = append(errors, "ingest.max_workers must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// CheckWeightSum rejects weight sets that do not sum to 1.0 ± 0.01.
func (q Quality) CheckWeightSum() error {
	sum := q.AuthorityWeight + q.DiversityWeight + q.CorroborationWeight + q.RecencyWeight + q.SpecificityWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("quality weights must sum to 1.0 (±0.01), got %.4f", sum)
	}
	return nil
}

// Convenience getters for commonly used configuration values
func GetApp() App               { return Get().App }
func GetAI() AI                 { return Get().AI }
func GetIngest() Ingest         { return Get().Ingest }
func GetMatch() Match           { return Get().Match }
func GetClustering() Clustering { return Get().Clustering }
func GetFusion() Fusion         { return Get().Fusion }
func GetQuality() Quality       { return Get().Quality }
func GetReputation() Reputation { return Get().Reputation }
func GetFeeds() Feeds           { return Get().Feeds }
func GetStorage() Storage       { return Get().Storage }
func GetLogging() Logging       { return Get().Logging }

// Specific convenience getters for frequently accessed values
func GetGeminiAPIKey() string { return Get().AI.Gemini.APIKey }
func GetPostgresURL() string  { return Get().Storage.Postgres.URL }
func IsDebugMode() bool       { return Get().App.Debug }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
