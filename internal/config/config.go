package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic     AnthropicConfig     `yaml:"anthropic" mapstructure:"anthropic"`
	Jina          JinaConfig          `yaml:"jina" mapstructure:"jina"`
	Google        GoogleConfig        `yaml:"google" mapstructure:"google"`
	Perplexity    PerplexityConfig    `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl     FirecrawlConfig     `yaml:"firecrawl" mapstructure:"firecrawl"`
	Search        SearchConfig        `yaml:"search" mapstructure:"search"`
	Retry         RetryConfig         `yaml:"retry" mapstructure:"retry"`
	Synth         SynthConfig         `yaml:"synth" mapstructure:"synth"`
	Chunk         ChunkConfig         `yaml:"chunk" mapstructure:"chunk"`
	Questionnaire QuestionnaireConfig `yaml:"questionnaire" mapstructure:"questionnaire"`
	Prompts       PromptsConfig       `yaml:"prompts" mapstructure:"prompts"`
	Paths         PathsConfig         `yaml:"paths" mapstructure:"paths"`
	OCR           OCRConfig           `yaml:"ocr" mapstructure:"ocr"`
	Convert       ConvertConfig       `yaml:"convert" mapstructure:"convert"`
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Batch         BatchConfig         `yaml:"batch" mapstructure:"batch"`
	Pricing       PricingConfig       `yaml:"pricing" mapstructure:"pricing"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds completion-service settings.
type AnthropicConfig struct {
	Key         string        `yaml:"key" mapstructure:"key"`
	Model       string        `yaml:"model" mapstructure:"model"`
	VisionModel string        `yaml:"vision_model" mapstructure:"vision_model"`
	MaxTokens   int64         `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// JinaConfig holds Jina search and reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// GoogleConfig holds Google Custom Search settings.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	CX      string `yaml:"cx" mapstructure:"cx"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Country string `yaml:"country" mapstructure:"country"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// FirecrawlConfig holds Firecrawl scrape settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SearchConfig configures provider fan-out.
type SearchConfig struct {
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ResultsPerQuery  int      `yaml:"results_per_query" mapstructure:"results_per_query"`
	ScrapeTop        int      `yaml:"scrape_top" mapstructure:"scrape_top"`
	RatePerSec       float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Providers        []string `yaml:"providers" mapstructure:"providers"`
	BreakerFailures  int      `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// Breaker returns the per-provider circuit breaker settings.
func (s SearchConfig) Breaker() resilience.CircuitBreakerConfig {
	b := resilience.DefaultCircuitBreakerConfig()
	if s.BreakerFailures > 0 {
		b.FailureThreshold = s.BreakerFailures
	}
	if s.BreakerResetSecs > 0 {
		b.ResetTimeout = time.Duration(s.BreakerResetSecs) * time.Second
	}
	return b
}

// RetryConfig configures the shared retry policy.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// Policy converts the config into a resilience.RetryConfig. Unset fields
// keep the resilience defaults; a negative jitter does too.
func (r RetryConfig) Policy() resilience.RetryConfig {
	p := resilience.DefaultRetryConfig()
	if r.MaxAttempts > 0 {
		p.MaxAttempts = r.MaxAttempts
	}
	if r.InitialBackoffMs > 0 {
		p.InitialBackoff = time.Duration(r.InitialBackoffMs) * time.Millisecond
	}
	if r.MaxBackoffMs > 0 {
		p.MaxBackoff = time.Duration(r.MaxBackoffMs) * time.Millisecond
	}
	if r.JitterFraction >= 0 {
		p.JitterFraction = r.JitterFraction
	}
	return p
}

// SynthConfig configures the content synthesizer.
type SynthConfig struct {
	ChunkSize      int `yaml:"chunk_size" mapstructure:"chunk_size"`
	Overlap        int `yaml:"overlap" mapstructure:"overlap"`
	MaxPromptChars int `yaml:"max_prompt_chars" mapstructure:"max_prompt_chars"`
}

// ChunkConfig configures document chunking.
type ChunkConfig struct {
	Size    int `yaml:"size" mapstructure:"size"`
	Overlap int `yaml:"overlap" mapstructure:"overlap"`
}

// QuestionnaireConfig configures questionnaire generation.
type QuestionnaireConfig struct {
	MaxAttempts  int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	OutputFormat string `yaml:"output_format" mapstructure:"output_format"`
}

// PromptsConfig points at an optional YAML file overriding built-in templates.
type PromptsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PathsConfig configures where company workspaces live.
type PathsConfig struct {
	CompaniesDir string `yaml:"companies_dir" mapstructure:"companies_dir"`
}

// OCRConfig configures PDF text extraction. Provider is "local" (pdftotext),
// "mistral", or "auto" (pdftotext, falling back to Mistral for scanned decks).
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_key" mapstructure:"mistral_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// ConvertConfig configures markdown to docx conversion.
type ConvertConfig struct {
	PandocPath string `yaml:"pandoc_path" mapstructure:"pandoc_path"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentCompanies int `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic  map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityPricing       `yaml:"perplexity" mapstructure:"perplexity"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// PerplexityPricing holds Perplexity pricing.
type PerplexityPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from a YAML file and SHARK_* environment
// variables, environment winning. An empty path looks for an optional
// config.yaml in the working directory; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SHARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.vision_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.timeout", "5m")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("google.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("search.timeout_secs", 30)
	v.SetDefault("search.results_per_query", 5)
	v.SetDefault("search.scrape_top", 0)
	v.SetDefault("search.rate_per_sec", 2.0)
	v.SetDefault("search.providers", []string{"jina", "google", "perplexity"})
	v.SetDefault("search.breaker_failures", 5)
	v.SetDefault("search.breaker_reset_secs", 30)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 2000)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("synth.chunk_size", 1000)
	v.SetDefault("synth.overlap", 0)
	v.SetDefault("synth.max_prompt_chars", 12000)
	v.SetDefault("chunk.size", 1000)
	v.SetDefault("chunk.overlap", 200)
	v.SetDefault("questionnaire.max_attempts", 3)
	v.SetDefault("questionnaire.output_format", "markdown")
	v.SetDefault("paths.companies_dir", "outputs")
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("convert.pandoc_path", "pandoc")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "shark.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_companies", 2)
	v.SetDefault("pricing.perplexity.per_query", 0.005)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the credentials a command mode needs are present.
// Missing credentials are structural errors and are never retried.
func (c *Config) Validate(mode string) error {
	var missing []string
	require := func(val, env string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, env)
		}
	}

	switch mode {
	case "questionnaire", "evaluate", "metadata":
		require(c.Anthropic.Key, "SHARK_ANTHROPIC_KEY")
	case "public-data", "search":
		if mode == "public-data" {
			require(c.Anthropic.Key, "SHARK_ANTHROPIC_KEY")
		}
		if c.Jina.Key == "" && c.Google.Key == "" && c.Perplexity.Key == "" {
			missing = append(missing, "one of SHARK_JINA_KEY, SHARK_GOOGLE_KEY, SHARK_PERPLEXITY_KEY")
		}
		if c.Google.Key != "" {
			require(c.Google.CX, "SHARK_GOOGLE_CX")
		}
	case "":
	default:
		return resilience.NewFatalError(eris.Errorf("config: unknown mode %q", mode), 0)
	}

	switch c.Questionnaire.OutputFormat {
	case "markdown", "docx", "both":
	default:
		return resilience.NewFatalError(eris.Errorf("config: invalid questionnaire.output_format %q", c.Questionnaire.OutputFormat), 0)
	}

	if len(missing) > 0 {
		return resilience.NewFatalError(eris.Errorf("config: missing required settings for %s: %s", mode, strings.Join(missing, ", ")), 0)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
