package config

import (
	"fmt"
	"time"

	"pulseai/pkg/config"
)

// Features toggles the auto-learning feedback loop.
type Features struct {
	AutoLearnEnabled       bool `mapstructure:"auto_learn_enabled"`
	AutoLearnBackupEnabled bool `mapstructure:"auto_learn_backup_enabled"`
	AutoLearnMinSamples    int  `mapstructure:"auto_learn_min_samples"`
}

// RejectionAnalysis tunes the rejection analyzer.
type RejectionAnalysis struct {
	TopWordsLimit      int     `mapstructure:"top_words_limit"`
	TopSourcesLimit    int     `mapstructure:"top_sources_limit"`
	FrequencyThreshold float64 `mapstructure:"frequency_threshold"`
	PeriodDays         int     `mapstructure:"period_days"`
	LogPath            string  `mapstructure:"log_path"`
	ReportPath         string  `mapstructure:"report_path"`
	RulesPath          string  `mapstructure:"rules_path"`
	BackupDir          string  `mapstructure:"backup_dir"`
}

// Composer tunes digest generation.
type Composer struct {
	MinImportanceDefault float64        `mapstructure:"min_importance_default"`
	LengthSpecs          map[string]int `mapstructure:"length_specs"`
	GenerationTimeout    time.Duration  `mapstructure:"generation_timeout"`
	MaxContextItems      int            `mapstructure:"max_context_items"`
	DefaultAudience      string         `mapstructure:"default_audience"`
}

// HTTPTimeouts are the fetch budgets in seconds.
type HTTPTimeouts struct {
	Total   int `mapstructure:"total"`
	Connect int `mapstructure:"connect"`
}

// HTTP tunes the concurrent fetcher.
type HTTP struct {
	MaxConcurrent int          `mapstructure:"max_concurrent"`
	Timeouts      HTTPTimeouts `mapstructure:"timeouts"`
}

// Ingestion tunes the ingestion pipeline.
type Ingestion struct {
	SourcesPath         string `mapstructure:"sources_path"`
	PerSourceLimit      int    `mapstructure:"per_source_limit"`
	ScorerMaxConcurrent int    `mapstructure:"scorer_max_concurrent"`
}

// Scheduler holds the cron table, one schedule per job identity.
type Scheduler struct {
	Cron map[string]string `mapstructure:"cron"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// AI selects the provider backing the scoring and generation capability.
type AI struct {
	Provider string `mapstructure:"provider"`
}

// Telegram holds configuration for the digest dispatch notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the PulseAI service.
type Config struct {
	App               config.App        `mapstructure:"app"`
	Logger            config.Logger     `mapstructure:"logger"`
	Database          config.Database   `mapstructure:"database"`
	Redis             config.Redis      `mapstructure:"redis"`
	API               config.API        `mapstructure:"api"`
	Features          Features          `mapstructure:"features"`
	RejectionAnalysis RejectionAnalysis `mapstructure:"rejection_analysis"`
	Composer          Composer          `mapstructure:"composer"`
	HTTP              HTTP              `mapstructure:"http"`
	Ingestion         Ingestion         `mapstructure:"ingestion"`
	Scheduler         Scheduler         `mapstructure:"scheduler"`
	Gemini            Gemini            `mapstructure:"gemini"`
	AI                AI                `mapstructure:"ai"`
	Telegram          Telegram          `mapstructure:"telegram"`
}

// Load loads the PulseAI configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings whose absence must abort startup.
func (c *Config) Validate() error {
	if c.AI.Provider == "gemini" && c.Gemini.APIKey == "" {
		return fmt.Errorf("configuration error: gemini.api_key is required when ai.provider is gemini")
	}
	if c.Ingestion.SourcesPath == "" {
		return fmt.Errorf("configuration error: ingestion.sources_path is required")
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Features.AutoLearnMinSamples <= 0 {
		c.Features.AutoLearnMinSamples = 100
	}
	if c.RejectionAnalysis.TopWordsLimit <= 0 {
		c.RejectionAnalysis.TopWordsLimit = 50
	}
	if c.RejectionAnalysis.TopSourcesLimit <= 0 {
		c.RejectionAnalysis.TopSourcesLimit = 20
	}
	if c.RejectionAnalysis.FrequencyThreshold <= 0 {
		c.RejectionAnalysis.FrequencyThreshold = 0.02
	}
	if c.RejectionAnalysis.PeriodDays <= 0 {
		c.RejectionAnalysis.PeriodDays = 7
	}
	if c.RejectionAnalysis.LogPath == "" {
		c.RejectionAnalysis.LogPath = "data/rejections.log"
	}
	if c.RejectionAnalysis.ReportPath == "" {
		c.RejectionAnalysis.ReportPath = "data/rejection_analysis.json"
	}
	if c.RejectionAnalysis.RulesPath == "" {
		c.RejectionAnalysis.RulesPath = "configs/prefilter_rules.yaml"
	}
	if c.Composer.MinImportanceDefault <= 0 {
		c.Composer.MinImportanceDefault = 0.3
	}
	if len(c.Composer.LengthSpecs) == 0 {
		c.Composer.LengthSpecs = map[string]int{
			"short":  150,
			"medium": 400,
			"long":   800,
		}
	}
	if c.Composer.GenerationTimeout <= 0 {
		c.Composer.GenerationTimeout = 60 * time.Second
	}
	if c.Composer.MaxContextItems <= 0 {
		c.Composer.MaxContextItems = 5
	}
	if c.Composer.DefaultAudience == "" {
		c.Composer.DefaultAudience = "general"
	}
	if c.HTTP.MaxConcurrent <= 0 {
		c.HTTP.MaxConcurrent = 10
	}
	if c.HTTP.Timeouts.Total <= 0 {
		c.HTTP.Timeouts.Total = 30
	}
	if c.HTTP.Timeouts.Connect <= 0 {
		c.HTTP.Timeouts.Connect = 10
	}
	if c.Ingestion.PerSourceLimit <= 0 {
		c.Ingestion.PerSourceLimit = 30
	}
	if c.Ingestion.ScorerMaxConcurrent <= 0 {
		c.Ingestion.ScorerMaxConcurrent = 5
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	if c.Gemini.MaxRequestPerMinute <= 0 {
		c.Gemini.MaxRequestPerMinute = 15
	}
	if c.Gemini.MaxTokenPerMinute <= 0 {
		c.Gemini.MaxTokenPerMinute = 1000000
	}
	if len(c.Scheduler.Cron) == 0 {
		c.Scheduler.Cron = map[string]string{
			"ingestion":          "*/15 * * * *",
			"rejection_analysis": "30 2 * * *",
			"graph_update":       "0 3 * * *",
			"digest_dispatch":    "0 * * * *",
		}
	}
}
