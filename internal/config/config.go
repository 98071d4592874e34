// Package config loads and validates the coupon crawler configuration.
package config

import (
	"fmt"
	"time"

	"github.com/jonesrussell/coupon-crawler/internal/logger"
)

// Source names in their default priority order.
const (
	SourceDiscudemy     = "discudemy"
	SourceYoFreeSamples = "yofreesamples"
	SourceRealDiscount  = "realdiscount"
)

// KnownSources lists every source the crawler can run, in default priority order.
var KnownSources = []string{SourceDiscudemy, SourceYoFreeSamples, SourceRealDiscount}

// Config is the root configuration.
type Config struct {
	App           AppConfig           `mapstructure:"app"           yaml:"app"`
	Logger        logger.Config       `mapstructure:"logger"        yaml:"logger"`
	Scrape        ScrapeConfig        `mapstructure:"scrape"        yaml:"scrape"`
	Database      DatabaseConfig      `mapstructure:"database"      yaml:"database"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch" yaml:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"         yaml:"redis"`
	Server        ServerConfig        `mapstructure:"server"        yaml:"server"`
	Schedule      ScheduleConfig      `mapstructure:"schedule"      yaml:"schedule"`
}

// AppConfig holds application metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"        yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	Debug       bool   `mapstructure:"debug"       yaml:"debug"`
}

// ScrapeConfig governs a single scrape run.
type ScrapeConfig struct {
	Pages            int      `mapstructure:"pages"               yaml:"pages"`
	FastMode         bool     `mapstructure:"fast_mode"           yaml:"fast_mode"`
	ItemBudget       int      `mapstructure:"item_budget"         yaml:"item_budget"`
	Concurrency      int      `mapstructure:"concurrency"         yaml:"concurrency"`
	MaxCoursesToSend int      `mapstructure:"max_courses_to_send" yaml:"max_courses_to_send"`
	Sources          []string `mapstructure:"sources"             yaml:"sources"`
	Vendor           string   `mapstructure:"vendor"              yaml:"vendor"`
	UserAgents       []string `mapstructure:"user_agents"         yaml:"user_agents"`
	// RateLimit is the minimum interval between outbound requests of one source. Zero disables it.
	RateLimit    time.Duration `mapstructure:"rate_limit"    yaml:"rate_limit"`
	MaxRedirects int           `mapstructure:"max_redirects" yaml:"max_redirects"`
	ReportDir    string        `mapstructure:"report_dir"    yaml:"report_dir"`

	Retry         RetryConfig         `mapstructure:"retry"         yaml:"retry"`
	Probe         ProbeConfig         `mapstructure:"probe"         yaml:"probe"`
	Connectivity  ConnectivityConfig  `mapstructure:"connectivity"  yaml:"connectivity"`
	Discudemy     DiscudemyConfig     `mapstructure:"discudemy"     yaml:"discudemy"`
	YoFreeSamples YoFreeSamplesConfig `mapstructure:"yofreesamples" yaml:"yofreesamples"`
	RealDiscount  RealDiscountConfig  `mapstructure:"realdiscount"  yaml:"realdiscount"`
}

// EffectiveItemBudget returns the per-source item budget, or 0 (unbounded)
// when fast mode is off.
func (s ScrapeConfig) EffectiveItemBudget() int {
	if !s.FastMode {
		return 0
	}
	return s.ItemBudget
}

// RetryConfig is the retry policy applied by every fetcher.
type RetryConfig struct {
	MaxRetries int             `mapstructure:"max_retries" yaml:"max_retries"`
	Timeouts   []time.Duration `mapstructure:"timeouts"    yaml:"timeouts"`
	Backoff    []time.Duration `mapstructure:"backoff"     yaml:"backoff"`
}

// ProbeConfig configures the link validity probe.
type ProbeConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ConnectivityConfig configures the pre-flight connectivity check.
type ConnectivityConfig struct {
	URL     string        `mapstructure:"url"     yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DiscudemyConfig locates the discudemy listing.
type DiscudemyConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// YoFreeSamplesConfig locates the yofreesamples listing.
type YoFreeSamplesConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// RealDiscountConfig locates the real.discount JSON API.
type RealDiscountConfig struct {
	APIURL   string `mapstructure:"api_url"   yaml:"api_url"`
	PageSize int    `mapstructure:"page_size" yaml:"page_size"`
}

// DatabaseConfig holds PostgreSQL connection settings. An empty Host disables persistence.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"     yaml:"host"`
	Port     string `mapstructure:"port"     yaml:"port"`
	User     string `mapstructure:"user"     yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname"   yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode"  yaml:"sslmode"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

// ElasticsearchConfig holds report sink settings. No addresses disables indexing.
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"  yaml:"addresses"`
	Username  string   `mapstructure:"username"   yaml:"username"`
	Password  string   `mapstructure:"password"   yaml:"password"`
	APIKey    string   `mapstructure:"api_key"    yaml:"api_key"`
	IndexName string   `mapstructure:"index_name" yaml:"index_name"`
}

// Enabled reports whether Elasticsearch is configured.
func (e ElasticsearchConfig) Enabled() bool { return len(e.Addresses) > 0 }

// RedisConfig holds publisher settings. An empty Address disables publishing.
type RedisConfig struct {
	Address  string `mapstructure:"address"  yaml:"address"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db"       yaml:"db"`
	Channel  string `mapstructure:"channel"  yaml:"channel"`
}

// Enabled reports whether Redis is configured.
func (r RedisConfig) Enabled() bool { return r.Address != "" }

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address      string        `mapstructure:"address"       yaml:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"  yaml:"idle_timeout"`
}

// ScheduleConfig configures the periodic runner.
type ScheduleConfig struct {
	Spec       string `mapstructure:"spec"        yaml:"spec"`
	RunOnStart bool   `mapstructure:"run_on_start" yaml:"run_on_start"`
}

// String renders a short description used in startup logs.
func (s ScrapeConfig) String() string {
	return fmt.Sprintf("pages=%d fast=%t budget=%d concurrency=%d sources=%v",
		s.Pages, s.FastMode, s.ItemBudget, s.Concurrency, s.Sources)
}
