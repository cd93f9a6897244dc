// Package config loads guidepipe settings.
//
// Values are layered: built-in defaults, then an optional YAML or TOML file,
// then .env files, then GUIDEPIPE_* environment variables. Command-line flags
// are applied on top by the cmd package. The resulting *Config is passed
// explicitly to every component; nothing reads it from a global.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/guidepipe/core"
)

// EnvPrefix is the prefix for environment overrides, e.g. GUIDEPIPE_OUTPUT_DIR.
const EnvPrefix = "GUIDEPIPE"

// envFiles are loaded in order when present. Earlier files win because
// godotenv never overrides a variable that is already set.
var envFiles = []string{".env.local", ".env.keys", ".env.app"}

// Config is the full runtime configuration.
type Config struct {
	Output    Output    `yaml:"output" toml:"output" envconfig:"OUTPUT"`
	Fetch     Fetch     `yaml:"fetch" toml:"fetch" envconfig:"FETCH"`
	Browser   Browser   `yaml:"browser" toml:"browser" envconfig:"BROWSER"`
	Images    Images    `yaml:"images" toml:"images" envconfig:"IMAGES"`
	Enhance   Enhance   `yaml:"enhance" toml:"enhance" envconfig:"ENHANCE"`
	Translate Translate `yaml:"translate" toml:"translate" envconfig:"TRANSLATE"`
	MakeCode  MakeCode  `yaml:"makecode" toml:"makecode" envconfig:"MAKECODE"`
	QRCode    QRCode    `yaml:"qrcode" toml:"qrcode" envconfig:"QRCODE"`
	PDF       PDF       `yaml:"pdf" toml:"pdf" envconfig:"PDF"`
	Log       Log       `yaml:"log" toml:"log" envconfig:"LOG"`
}

// Output controls where and in which format guides are written.
type Output struct {
	Root      string `yaml:"root" toml:"root" envconfig:"ROOT"`
	Dir       string `yaml:"dir" toml:"dir" envconfig:"DIR"`
	Format    string `yaml:"format" toml:"format" envconfig:"FORMAT"`
	StateFile string `yaml:"state_file" toml:"state_file" envconfig:"STATE_FILE"`
}

// Fetch controls page retrieval and politeness.
type Fetch struct {
	UseBrowser      bool    `yaml:"use_browser" toml:"use_browser" envconfig:"USE_BROWSER"`
	UserAgent       string  `yaml:"user_agent" toml:"user_agent" envconfig:"USER_AGENT"`
	TimeoutSeconds  float64 `yaml:"timeout_seconds" toml:"timeout_seconds" envconfig:"TIMEOUT_SECONDS"`
	MaxRetries      int     `yaml:"max_retries" toml:"max_retries" envconfig:"MAX_RETRIES"`
	RetryDelay      float64 `yaml:"retry_delay_seconds" toml:"retry_delay_seconds" envconfig:"RETRY_DELAY_SECONDS"`
	RetryBackoff    float64 `yaml:"retry_backoff" toml:"retry_backoff" envconfig:"RETRY_BACKOFF"`
	RateLimitSecond float64 `yaml:"rate_limit_seconds" toml:"rate_limit_seconds" envconfig:"RATE_LIMIT_SECONDS"`
}

// Browser configures headless Chrome.
type Browser struct {
	Headless       bool    `yaml:"headless" toml:"headless" envconfig:"HEADLESS"`
	TimeoutSeconds float64 `yaml:"timeout_seconds" toml:"timeout_seconds" envconfig:"TIMEOUT_SECONDS"`
	RemoteURL      string  `yaml:"remote_url" toml:"remote_url" envconfig:"REMOTE_URL"`
}

// Images configures asset download.
type Images struct {
	Enabled        bool    `yaml:"enabled" toml:"enabled" envconfig:"ENABLED"`
	Dir            string  `yaml:"dir" toml:"dir" envconfig:"DIR"`
	TimeoutSeconds float64 `yaml:"timeout_seconds" toml:"timeout_seconds" envconfig:"TIMEOUT_SECONDS"`
	// DelaySeconds is the minimum pause between two image downloads.
	DelaySeconds float64 `yaml:"delay_seconds" toml:"delay_seconds" envconfig:"DELAY_SECONDS"`
}

// Enhance configures the upscaler subprocess.
type Enhance struct {
	Enabled      bool   `yaml:"enabled" toml:"enabled" envconfig:"ENABLED"`
	Binary       string `yaml:"binary" toml:"binary" envconfig:"BINARY"`
	ModelsDir    string `yaml:"models_dir" toml:"models_dir" envconfig:"MODELS_DIR"`
	Model        string `yaml:"model" toml:"model" envconfig:"MODEL"`
	Scale        int    `yaml:"scale" toml:"scale" envconfig:"SCALE"`
	GPU          string `yaml:"gpu" toml:"gpu" envconfig:"GPU"`
	Threads      string `yaml:"threads" toml:"threads" envconfig:"THREADS"`
	Workers      int    `yaml:"workers" toml:"workers" envconfig:"WORKERS"`
	MinSizeBytes int64  `yaml:"min_size_bytes" toml:"min_size_bytes" envconfig:"MIN_SIZE_BYTES"`
}

// Translate configures the translation provider.
type Translate struct {
	Enabled       bool    `yaml:"enabled" toml:"enabled" envconfig:"ENABLED"`
	Provider      string  `yaml:"provider" toml:"provider" envconfig:"PROVIDER"`
	Source        string  `yaml:"source" toml:"source" envconfig:"SOURCE"`
	Target        string  `yaml:"target" toml:"target" envconfig:"TARGET"`
	DeepLAPIKey   string  `yaml:"deepl_api_key" toml:"deepl_api_key" envconfig:"DEEPL_API_KEY"`
	DeepLEndpoint string  `yaml:"deepl_endpoint" toml:"deepl_endpoint" envconfig:"DEEPL_ENDPOINT"`
	GeminiAPIKey  string  `yaml:"gemini_api_key" toml:"gemini_api_key" envconfig:"GEMINI_API_KEY"`
	GeminiModel   string  `yaml:"gemini_model" toml:"gemini_model" envconfig:"GEMINI_MODEL"`
	MaxChunkChars int     `yaml:"max_chunk_chars" toml:"max_chunk_chars" envconfig:"MAX_CHUNK_CHARS"`
	DelaySeconds  float64 `yaml:"delay_seconds" toml:"delay_seconds" envconfig:"DELAY_SECONDS"`
}

// MakeCode configures localized code screenshot replacement.
type MakeCode struct {
	Enabled        bool     `yaml:"enabled" toml:"enabled" envconfig:"ENABLED"`
	Language       string   `yaml:"language" toml:"language" envconfig:"LANGUAGE"`
	LinkPattern    string   `yaml:"link_pattern" toml:"link_pattern" envconfig:"LINK_PATTERN"`
	Lookback       int      `yaml:"lookback" toml:"lookback" envconfig:"LOOKBACK"`
	TimeoutSeconds float64  `yaml:"timeout_seconds" toml:"timeout_seconds" envconfig:"TIMEOUT_SECONDS"`
	SettleSeconds  float64  `yaml:"settle_seconds" toml:"settle_seconds" envconfig:"SETTLE_SECONDS"`
	Keywords       []string `yaml:"keywords" toml:"keywords" envconfig:"KEYWORDS"`
}

// QRCode configures QR artifact generation.
type QRCode struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" envconfig:"ENABLED"`
	Dir     string `yaml:"dir" toml:"dir" envconfig:"DIR"`
	Size    int    `yaml:"size" toml:"size" envconfig:"SIZE"`
}

// PDF configures the PDF renderer.
type PDF struct {
	PageSize    string `yaml:"page_size" toml:"page_size" envconfig:"PAGE_SIZE"`
	Orientation string `yaml:"orientation" toml:"orientation" envconfig:"ORIENTATION"`
}

// Log configures the process logger.
type Log struct {
	Level string `yaml:"level" toml:"level" envconfig:"LEVEL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output: Output{
			Root:      ".",
			Dir:       "output",
			Format:    "markdown",
			StateFile: ".batch_state.json",
		},
		Fetch: Fetch{
			UserAgent:       "guidepipe/1.0 (+https://github.com/gaurav-prasanna/guidepipe)",
			TimeoutSeconds:  30,
			MaxRetries:      3,
			RetryDelay:      5,
			RetryBackoff:    2,
			RateLimitSecond: 2,
		},
		Browser: Browser{
			Headless:       true,
			TimeoutSeconds: 60,
		},
		Images: Images{
			Enabled:        true,
			Dir:            "images",
			TimeoutSeconds: 30,
			DelaySeconds:   1,
		},
		Enhance: Enhance{
			Enabled:      true,
			Binary:       "upscayl-bin",
			ModelsDir:    "resources/models",
			Model:        "realesrgan-x4plus",
			Scale:        4,
			Workers:      4,
			MinSizeBytes: 10 * 1024,
		},
		Translate: Translate{
			Enabled:       true,
			Provider:      "deepl",
			Source:        "en",
			Target:        "nl",
			DeepLEndpoint: "https://api-free.deepl.com/v2/translate",
			GeminiModel:   "gemini-1.5-flash",
			MaxChunkChars: 4500,
			DelaySeconds:  0.5,
		},
		MakeCode: MakeCode{
			Enabled:        true,
			Language:       "nl",
			LinkPattern:    `https?://makecode\.microbit\.org/_[A-Za-z0-9]+`,
			Lookback:       3,
			TimeoutSeconds: 30,
			SettleSeconds:  2,
		},
		QRCode: QRCode{
			Enabled: true,
			Dir:     "qrcodes",
			Size:    256,
		},
		PDF: PDF{
			PageSize:    "A4",
			Orientation: "P",
		},
		Log: Log{Level: "info"},
	}
}

// Load builds a Config from defaults, the optional file at path, .env files
// in the working directory and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	for _, f := range envFiles {
		// Missing files are fine; the variables may come from the shell.
		_ = godotenv.Load(f)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", core.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes a YAML or TOML file over the current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("%w: unsupported config file type %q", core.ErrInvalidConfig, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %v", core.ErrInvalidConfig, path, err)
	}
	return nil
}

// Validate checks invariants the rest of the program relies on.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case "markdown", "pdf", "json":
	default:
		return fmt.Errorf("%w: output format %q (want markdown, pdf or json)", core.ErrInvalidConfig, c.Output.Format)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("%w: output dir is empty", core.ErrInvalidConfig)
	}
	if c.Fetch.RateLimitSecond < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", core.ErrInvalidConfig)
	}
	if c.Images.DelaySeconds < 0 {
		return fmt.Errorf("%w: image delay must not be negative", core.ErrInvalidConfig)
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", core.ErrInvalidConfig)
	}
	if c.Enhance.Workers < 1 {
		return fmt.Errorf("%w: enhance workers must be at least 1", core.ErrInvalidConfig)
	}
	if c.MakeCode.Lookback < 1 {
		return fmt.Errorf("%w: makecode lookback must be at least 1", core.ErrInvalidConfig)
	}
	if c.Translate.MaxChunkChars < 100 {
		return fmt.Errorf("%w: translate max chunk chars must be at least 100", core.ErrInvalidConfig)
	}
	if c.Translate.Enabled {
		switch c.Translate.Provider {
		case "deepl", "gemini":
		default:
			return fmt.Errorf("%w: translate provider %q (want deepl or gemini)", core.ErrInvalidConfig, c.Translate.Provider)
		}
	}
	if c.QRCode.Size < 21 {
		return fmt.Errorf("%w: qrcode size must be at least 21 pixels", core.ErrInvalidConfig)
	}
	return nil
}

// OutputPath is the directory guides are written to.
func (c *Config) OutputPath() string {
	if filepath.IsAbs(c.Output.Dir) {
		return c.Output.Dir
	}
	return filepath.Join(c.Output.Root, c.Output.Dir)
}

// StatePath is the location of the batch state file.
func (c *Config) StatePath() string {
	if filepath.IsAbs(c.Output.StateFile) {
		return c.Output.StateFile
	}
	return filepath.Join(c.OutputPath(), c.Output.StateFile)
}

// Seconds converts a float seconds setting into a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
