package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

// QueueConfig - a single queue endpoint description.
type QueueConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Retries int    `yaml:"readRetries"`
}

// AppConfig ...
type AppConfig struct {
	Storage struct {
		Driver      string `yaml:"driver"` // sqlite | postgres
		DSN         string `yaml:"dsn"`
		Path        string `yaml:"path"`
		ResultsPath string `yaml:"resultsPath"`
	}
	AWS struct {
		Region             string `yaml:"region"`
		CredentialsFile    string `yaml:"credentialsFile"`
		CredentialsProfile string `yaml:"credentialsProfile"`
	}
	LLM struct {
		BaseURL        string `yaml:"baseURL"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
		Retries        int    `yaml:"retries"`
	}
	Ingest struct {
		UserAgent    string `yaml:"userAgent"`
		ASXDir       string `yaml:"asxDir"`
		SECDir       string `yaml:"secDir"`
		ProcessedDir string `yaml:"processedDir"`
		LogDir       string `yaml:"logDir"`
	}
	OCR struct {
		Languages       []string `yaml:"languages"`
		DPI             int      `yaml:"dpi"`
		MinCharsPerPage int      `yaml:"minCharsPerPage"`
	}
	Submitter struct {
		Queuesrc QueueConfig `yaml:"queuesrc"`
		Workers  int         `yaml:"workers"`
		LogLevel string      `yaml:"loglevel"`
	}
	Scheduler struct {
		Queuedst QueueConfig `yaml:"queuedst"`
		Workers  int         `yaml:"workers"`
		LogLevel string      `yaml:"loglevel"`
	}
	Worker struct {
		Queuesrc QueueConfig `yaml:"queuesrc"`
		Queuedst QueueConfig `yaml:"queuedst"`
		Workers  int         `yaml:"workers"`
		LogLevel string      `yaml:"loglevel"`
	}
	Resulter struct {
		Queuesrc QueueConfig `yaml:"queuesrc"`
		Workers  int         `yaml:"workers"`
		LogLevel string      `yaml:"loglevel"`
	}
	Supervisor struct {
		Workers         int    `yaml:"workers"`
		LogLevel        string `yaml:"loglevel"`
		StaleTimeout    int    `yaml:"staleTimeout"`
		RepairBatchSize int    `yaml:"repairBatchSize"`
		Expiration      int    `yaml:"expiration"`
	}
	Dashboard struct {
		Addr         string `yaml:"addr"`
		LogLevel     string `yaml:"loglevel"`
		MarketCapCSV string `yaml:"marketCapCSV"`
	}
}

// Secrets - credentials supplied via environment, never via the config file.
type Secrets struct {
	OpenAIKey string `env:"OPENAI_API_KEY"`
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "storage/scan_tasks.db"
	}
	if cfg.Storage.ResultsPath == "" {
		cfg.Storage.ResultsPath = "storage/processed_results.db"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-5-nano"
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 60
	}
	if cfg.LLM.Retries == 0 {
		cfg.LLM.Retries = 3
	}
	if cfg.Ingest.UserAgent == "" {
		cfg.Ingest.UserAgent = "CatalystScan filings fetcher (contact@example.com)"
	}
	if cfg.Ingest.ASXDir == "" {
		cfg.Ingest.ASXDir = "data/asx"
	}
	if cfg.Ingest.SECDir == "" {
		cfg.Ingest.SECDir = "data/sec"
	}
	if cfg.Ingest.ProcessedDir == "" {
		cfg.Ingest.ProcessedDir = "data/processed"
	}
	if cfg.Ingest.LogDir == "" {
		cfg.Ingest.LogDir = "logs"
	}
	if cfg.OCR.DPI == 0 {
		cfg.OCR.DPI = 200
	}
	if cfg.OCR.MinCharsPerPage == 0 {
		cfg.OCR.MinCharsPerPage = 120
	}
	if len(cfg.OCR.Languages) == 0 {
		cfg.OCR.Languages = []string{"eng"}
	}
	if cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = ":8501"
	}
}

// Read loads the YAML config referenced by CFG_PATH.
func Read() (*AppConfig, error) {
	filename := os.Getenv("CFG_PATH")
	buff, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(buff)
}

// Parse is Read for an in-memory document.
func Parse(buff []byte) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := yaml.Unmarshal(buff, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// ReadSecrets pulls credentials from the environment.
func ReadSecrets() (*Secrets, error) {
	sec := &Secrets{}
	if err := env.Parse(sec); err != nil {
		return nil, err
	}
	return sec, nil
}

// RequireOpenAIKey is ReadSecrets for services that cannot run without the
// LLM credential.
func RequireOpenAIKey() (*Secrets, error) {
	sec, err := ReadSecrets()
	if err != nil {
		return nil, err
	}
	if sec.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set in environment")
	}
	return sec, nil
}
