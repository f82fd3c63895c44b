package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendReplicate = "replicate"
	BackendArk       = "ark"

	ProviderArk    = "ark"
	ProviderOpenAI = "openai"

	DefaultAddr                = ":8080"
	DefaultReplicateBaseURL    = "https://api.replicate.com"
	DefaultReplicateVersion    = "39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b"
	DefaultArkBaseURL          = "https://ark.cn-beijing.volces.com"
	DefaultArkImageModel       = "doubao-seedream-4.0"
	DefaultPlannerModel        = "ep-20250220181854-c8s82"
	DefaultPollInterval        = 1500 * time.Millisecond
	DefaultPollMaxAttempts     = 200
	DefaultHTTPTimeout         = 30 * time.Second
	DefaultComicTTL            = 45 * time.Minute
	DefaultImageWidth          = 700
	DefaultImageHeight         = 980
	DefaultExportFileName      = "comic-book.pdf"
	DefaultExportMarginMM      = 10.0
	DefaultExportPixelRatio    = 2.0
	DefaultRasterizeTimeout    = 30 * time.Second
	DefaultCardViewportWidthPx = 512
)

var ErrMissingCredential = errors.New("missing credential")

// Config 应用配置
type Config struct {
	Addr      string `yaml:"addr"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // text | json
	LogFile   string `yaml:"log_file"`
	Theme     string `yaml:"theme"`

	ImageBackend string          `yaml:"image_backend"` // replicate | ark
	Replicate    ReplicateConfig `yaml:"replicate"`
	Ark          ArkConfig       `yaml:"ark"`
	Planner      PlannerConfig   `yaml:"planner"`
	Render       RenderConfig    `yaml:"render"`
	Export       ExportConfig    `yaml:"export"`

	ComicTTL time.Duration `yaml:"comic_ttl"`
}

// ReplicateConfig 图片预测服务配置
type ReplicateConfig struct {
	APIToken        string        `yaml:"api_token"`
	BaseURL         string        `yaml:"base_url"`
	ModelVersion    string        `yaml:"model_version"`
	Width           int           `yaml:"width"`
	Height          int           `yaml:"height"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	PollMaxAttempts int           `yaml:"poll_max_attempts"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	Mock            bool          `yaml:"mock"`
}

// ArkConfig 火山方舟配置，规划器与备用图片后端共用
type ArkConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	ImageModel  string        `yaml:"image_model"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	Mock        bool          `yaml:"mock"`
}

// PlannerConfig 分镜规划模型配置
type PlannerConfig struct {
	Provider      string  `yaml:"provider"` // ark | openai
	Model         string  `yaml:"model"`
	OpenAIAPIKey  string  `yaml:"openai_api_key"`
	OpenAIBaseURL string  `yaml:"openai_base_url"`
	Temperature   float32 `yaml:"temperature"`
}

// RenderConfig 并发渲染配置，0 表示不限制
type RenderConfig struct {
	Concurrency   int     `yaml:"concurrency"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`
}

// ExportConfig 导出配置
type ExportConfig struct {
	FileName         string        `yaml:"file_name"`
	MarginMM         float64       `yaml:"margin_mm"`
	PixelRatio       float64       `yaml:"pixel_ratio"`
	ChromeBin        string        `yaml:"chrome_bin"`
	RasterizeTimeout time.Duration `yaml:"rasterize_timeout"`
	CardWidthPx      int           `yaml:"card_width_px"`
}

// Default 默认配置
func Default() Config {
	return Config{
		Addr:         DefaultAddr,
		LogLevel:     "info",
		LogFormat:    "text",
		Theme:        "comic",
		ImageBackend: BackendReplicate,
		Replicate: ReplicateConfig{
			BaseURL:         DefaultReplicateBaseURL,
			ModelVersion:    DefaultReplicateVersion,
			Width:           DefaultImageWidth,
			Height:          DefaultImageHeight,
			PollInterval:    DefaultPollInterval,
			PollMaxAttempts: DefaultPollMaxAttempts,
			HTTPTimeout:     DefaultHTTPTimeout,
		},
		Ark: ArkConfig{
			BaseURL:     DefaultArkBaseURL,
			ImageModel:  DefaultArkImageModel,
			HTTPTimeout: DefaultHTTPTimeout,
		},
		Planner: PlannerConfig{
			Provider:    ProviderArk,
			Model:       DefaultPlannerModel,
			Temperature: 0.7,
		},
		Export: ExportConfig{
			FileName:         DefaultExportFileName,
			MarginMM:         DefaultExportMarginMM,
			PixelRatio:       DefaultExportPixelRatio,
			RasterizeTimeout: DefaultRasterizeTimeout,
			CardWidthPx:      DefaultCardViewportWidthPx,
		},
		ComicTTL: DefaultComicTTL,
	}
}

// Load 加载配置：默认值 -> YAML 文件 -> .env -> 环境变量
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Addr, "COMIC_ADDR")
	setString(&c.LogLevel, "COMIC_LOG_LEVEL")
	setString(&c.LogFormat, "COMIC_LOG_FORMAT")
	setString(&c.LogFile, "COMIC_LOG_FILE")
	setString(&c.Theme, "COMIC_THEME")
	setString(&c.ImageBackend, "COMIC_IMAGE_BACKEND")

	setString(&c.Replicate.APIToken, "REPLICATE_API_TOKEN")
	setString(&c.Replicate.BaseURL, "REPLICATE_BASE_URL")
	setString(&c.Replicate.ModelVersion, "REPLICATE_MODEL_VERSION")

	setString(&c.Ark.APIKey, "ARK_API_KEY")
	setString(&c.Ark.BaseURL, "ARK_BASE_URL")
	setString(&c.Ark.ImageModel, "ARK_IMAGE_MODEL")

	setString(&c.Planner.Provider, "COMIC_PLANNER_PROVIDER")
	setString(&c.Planner.Model, "COMIC_PLANNER_MODEL")
	setString(&c.Planner.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.Planner.OpenAIBaseURL, "OPENAI_BASE_URL")

	setString(&c.Export.ChromeBin, "COMIC_CHROME_BIN")

	mock := strings.ToLower(os.Getenv("ARK_MOCK"))
	if mock == "1" || mock == "true" {
		c.Ark.Mock = true
		c.Replicate.Mock = true
	}

	if v := os.Getenv("REPLICATE_POLL_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REPLICATE_POLL_MAX_ATTEMPTS: %w", err)
		}
		c.Replicate.PollMaxAttempts = n
	}
	if v := os.Getenv("REPLICATE_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REPLICATE_POLL_INTERVAL: %w", err)
		}
		c.Replicate.PollInterval = d
	}
	if v := os.Getenv("COMIC_RENDER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COMIC_RENDER_CONCURRENCY: %w", err)
		}
		c.Render.Concurrency = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate 启动时校验，缺少凭证立即失败
func (c Config) Validate() error {
	var errs []error

	switch c.ImageBackend {
	case BackendReplicate:
		if c.Replicate.APIToken == "" && !c.Replicate.Mock {
			errs = append(errs, fmt.Errorf("%w: REPLICATE_API_TOKEN is not set", ErrMissingCredential))
		}
		if c.Replicate.PollInterval <= 0 {
			errs = append(errs, errors.New("replicate.poll_interval must be positive"))
		}
		if c.Replicate.PollMaxAttempts <= 0 {
			errs = append(errs, errors.New("replicate.poll_max_attempts must be positive"))
		}
	case BackendArk:
		if c.Ark.APIKey == "" && !c.Ark.Mock {
			errs = append(errs, fmt.Errorf("%w: ARK_API_KEY is not set", ErrMissingCredential))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown image backend %q", c.ImageBackend))
	}

	switch c.Planner.Provider {
	case ProviderArk:
		if c.Ark.APIKey == "" && !c.Ark.Mock {
			errs = append(errs, fmt.Errorf("%w: ARK_API_KEY is required by the ark planner", ErrMissingCredential))
		}
	case ProviderOpenAI:
		if c.Planner.OpenAIAPIKey == "" && !c.Ark.Mock {
			errs = append(errs, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrMissingCredential))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown planner provider %q", c.Planner.Provider))
	}
	if c.Planner.Model == "" {
		errs = append(errs, errors.New("planner.model is required"))
	}

	if c.Render.Concurrency < 0 {
		errs = append(errs, errors.New("render.concurrency must not be negative"))
	}
	if c.Export.MarginMM < 0 || c.Export.MarginMM*2 >= 210 {
		errs = append(errs, errors.New("export.margin_mm out of range"))
	}
	if c.Export.PixelRatio <= 0 {
		errs = append(errs, errors.New("export.pixel_ratio must be positive"))
	}
	return errors.Join(errs...)
}
