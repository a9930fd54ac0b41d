// Package config loads the jobsleuth configuration from a YAML file, an
// optional .env file and JOBSLEUTH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

const envPrefix = "JOBSLEUTH_"

// Config is the top-level application configuration.
type Config struct {
	Scraper  ScraperConfig             `yaml:"scraper"`
	Output   OutputConfig              `yaml:"output"`
	Logging  LoggingConfig             `yaml:"logging"`
	Metrics  MetricsConfig             `yaml:"metrics"`
	Schedule ScheduleConfig            `yaml:"schedule"`
	Sheets   SheetsConfig              `yaml:"sheets"`
	Telegram TelegramConfig            `yaml:"telegram"`
	Profiles []models.ReferenceProfile `yaml:"profiles"`
}

// ScraperConfig controls how the job board is crawled.
type ScraperConfig struct {
	BaseURL        string        `yaml:"base_url"`
	ListingPath    string        `yaml:"listing_path"`
	MaxJobs        int           `yaml:"max_jobs"`
	PageStep       int           `yaml:"page_step"`
	JobDelay       time.Duration `yaml:"job_delay"`
	PageDelay      time.Duration `yaml:"page_delay"`
	JitterMin      time.Duration `yaml:"jitter_min"`
	JitterMax      time.Duration `yaml:"jitter_max"`
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	AcceptLanguage string        `yaml:"accept_language"`
	ProxyURL       string        `yaml:"proxy_url"`
	FetchDetails   bool          `yaml:"fetch_details"`
}

// ListingURL returns the first results page
func (s ScraperConfig) ListingURL() string {
	return s.BaseURL + s.ListingPath
}

// OutputConfig names the files written after each run.
type OutputConfig struct {
	Dir           string `yaml:"dir"`
	ListingsCSV   string `yaml:"listings_csv"`
	ReportJSON    string `yaml:"report_json"`
	RankingPrefix string `yaml:"ranking_prefix"`
	SeenStore     string `yaml:"seen_store"`
	TopN          int    `yaml:"top_n"`
	Bins          int    `yaml:"bins"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// MetricsConfig controls the Prometheus endpoint served in daemon mode.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ScheduleConfig holds the cron expression for daemon mode.
type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// SheetsConfig enables the Google Sheets export when both fields are set.
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
}

// Enabled reports whether the export is configured
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsFile != "" && s.SpreadsheetID != ""
}

// TelegramConfig holds bot credentials for new-match alerts.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"` // Prefer TELEGRAM_BOT_TOKEN env var
	ChatID   string `yaml:"chat_id"`   // Prefer TELEGRAM_CHAT_ID env var
	APIURL   string `yaml:"api_url"`
}

// Enabled reports whether alerts can be sent
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads .env (if present), the YAML file at path (if provided) and
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		var extra profileFields
		if err := yaml.Unmarshal(data, &extra); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		extra.apply(cfg.Profiles)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// profileFields reads the optional "fields" map of each profile, keyed by the
// board's Lithuanian field names
type profileFields struct {
	Profiles []struct {
		Fields map[string]string `yaml:"fields"`
	} `yaml:"profiles"`
}

// apply fills profile fields that were left empty from the Lithuanian map
func (f profileFields) apply(profiles []models.ReferenceProfile) {
	for i, entry := range f.Profiles {
		if i >= len(profiles) || len(entry.Fields) == 0 {
			continue
		}
		fromMap := models.ProfileFromMap(entry.Fields)
		p := &profiles[i]
		fillEmpty(&p.Role, fromMap.Role)
		fillEmpty(&p.Location, fromMap.Location)
		fillEmpty(&p.Salary, fromMap.Salary)
		fillEmpty(&p.Experience, fromMap.Experience)
		fillEmpty(&p.Description, fromMap.Description)
	}
}

func fillEmpty(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			BaseURL:        "https://uzt.lt",
			ListingPath:    "/laisvos-darbo-vietos/436/results",
			MaxJobs:        42,
			PageStep:       20,
			JobDelay:       time.Second,
			PageDelay:      2 * time.Second,
			Timeout:        10 * time.Second,
			UserAgent:      "Mozilla/5.0",
			AcceptLanguage: "lt-LT,lt;q=0.9,en-US;q=0.8,en;q=0.7",
			FetchDetails:   true,
		},
		Output: OutputConfig{
			Dir:           ".",
			ListingsCSV:   "uzt_adds.csv",
			ReportJSON:    "uzt_adds.json",
			RankingPrefix: "similar_",
			SeenStore:     "seen.json",
			TopN:          10,
			Bins:          10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    "logs",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		Schedule: ScheduleConfig{
			Cron: "0 8 * * *",
		},
		Telegram: TelegramConfig{
			APIURL: "https://api.telegram.org",
		},
		Profiles: []models.ReferenceProfile{
			{
				Name:        "default",
				Role:        "Programuotojas",
				Location:    "Vilnius",
				Salary:      "2500",
				Experience:  "3 metai",
				Description: "Programinės įrangos kūrimas ir palaikymas",
			},
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "BASE_URL"); v != "" {
		cfg.Scraper.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "MAX_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scraper.MaxJobs = n
		}
	}
	if v := os.Getenv(envPrefix + "PROXY_URL"); v != "" {
		cfg.Scraper.ProxyURL = v
	}
	if v := os.Getenv(envPrefix + "TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scraper.Timeout = d
		}
	}
	if v := os.Getenv(envPrefix + "OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(envPrefix + "LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	if v := os.Getenv(envPrefix + "METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv(envPrefix + "SCHEDULE"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv(envPrefix + "SHEETS_CREDENTIALS"); v != "" {
		cfg.Sheets.CredentialsFile = v
	}
	if v := os.Getenv(envPrefix + "SHEETS_ID"); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
}

// Profile returns the named profile, or the first one when name is empty
func (c *Config) Profile(name string) (models.ReferenceProfile, bool) {
	if len(c.Profiles) == 0 {
		return models.ReferenceProfile{}, false
	}
	if name == "" {
		return c.Profiles[0], true
	}
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return models.ReferenceProfile{}, false
}

// Validate checks the configuration and returns an ErrInvalidConfig error
// describing the first problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Scraper.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: scraper.base_url %q is not an absolute URL", ErrInvalidConfig, c.Scraper.BaseURL)
	}
	if c.Scraper.MaxJobs < 1 {
		return fmt.Errorf("%w: scraper.max_jobs must be positive, got %d", ErrInvalidConfig, c.Scraper.MaxJobs)
	}
	if c.Scraper.PageStep < 1 {
		return fmt.Errorf("%w: scraper.page_step must be positive, got %d", ErrInvalidConfig, c.Scraper.PageStep)
	}
	if c.Scraper.JobDelay < 0 || c.Scraper.PageDelay < 0 {
		return fmt.Errorf("%w: scraper delays must not be negative", ErrInvalidConfig)
	}
	if c.Scraper.JitterMax < c.Scraper.JitterMin || c.Scraper.JitterMin < 0 {
		return fmt.Errorf("%w: scraper jitter range [%s, %s] is invalid", ErrInvalidConfig, c.Scraper.JitterMin, c.Scraper.JitterMax)
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("%w: scraper.timeout must be positive", ErrInvalidConfig)
	}
	if c.Scraper.ProxyURL != "" {
		if _, err := url.Parse(c.Scraper.ProxyURL); err != nil {
			return fmt.Errorf("%w: scraper.proxy_url: %v", ErrInvalidConfig, err)
		}
	}
	if c.Output.TopN < 1 {
		return fmt.Errorf("%w: output.top_n must be positive, got %d", ErrInvalidConfig, c.Output.TopN)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be text or json, got %q", ErrInvalidConfig, c.Logging.Format)
	}
	if c.Schedule.Cron != "" {
		if _, err := cronexpr.Parse(c.Schedule.Cron); err != nil {
			return fmt.Errorf("%w: schedule.cron: %v", ErrInvalidConfig, err)
		}
	}
	if len(c.Profiles) == 0 {
		return fmt.Errorf("%w: at least one profile is required", ErrInvalidConfig)
	}
	names := make(map[string]bool, len(c.Profiles))
	for i, p := range c.Profiles {
		if p.Name == "" {
			return fmt.Errorf("%w: profile #%d has no name", ErrInvalidConfig, i+1)
		}
		if strings.ContainsAny(p.Name, `/\`) || p.Name == "." || p.Name == ".." {
			return fmt.Errorf("%w: profile name %q must not contain path separators", ErrInvalidConfig, p.Name)
		}
		if names[p.Name] {
			return fmt.Errorf("%w: duplicate profile %q", ErrInvalidConfig, p.Name)
		}
		names[p.Name] = true
	}
	return nil
}
