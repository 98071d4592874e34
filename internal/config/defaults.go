package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultPages               = 2
	DefaultItemBudget          = 10
	DefaultConcurrency         = 5
	DefaultMaxCoursesToSend    = 100
	DefaultMaxRetries          = 3
	DefaultMaxRedirects        = 10
	DefaultVendor              = "udemy.com"
	DefaultProbeTimeout        = 5 * time.Second
	DefaultConnectivityURL     = "https://httpbin.org/get"
	DefaultConnectivityTimeout = 10 * time.Second
	DefaultDiscudemyURL        = "https://www.discudemy.com"
	DefaultYoFreeSamplesURL    = "https://yofreesamples.com/courses/free-discounted-udemy-courses-list/"
	DefaultRealDiscountURL     = "https://cdn.real.discount/api/courses"
	DefaultRealDiscountPage    = 100
	DefaultIndexName           = "coupon-scrape-reports"
	DefaultRedisChannel        = "courses:new"
	DefaultScheduleSpec        = "@every 30m"
	DefaultServerAddress       = ":8080"
)

// DefaultTimeouts are the escalating per-attempt timeouts.
func DefaultTimeouts() []time.Duration {
	return []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second, 40 * time.Second}
}

// DefaultBackoff are the delays slept between attempts.
func DefaultBackoff() []time.Duration {
	return []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}
}

// DefaultUserAgents is the rotation used when none are configured.
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Default returns a fully populated configuration without consulting viper.
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "coupon-crawler", Environment: "production"},
		Scrape: ScrapeConfig{
			Pages:            DefaultPages,
			ItemBudget:       DefaultItemBudget,
			Concurrency:      DefaultConcurrency,
			MaxCoursesToSend: DefaultMaxCoursesToSend,
			Sources:          append([]string(nil), KnownSources...),
			Vendor:           DefaultVendor,
			UserAgents:       DefaultUserAgents(),
			MaxRedirects:     DefaultMaxRedirects,
			Retry: RetryConfig{
				MaxRetries: DefaultMaxRetries,
				Timeouts:   DefaultTimeouts(),
				Backoff:    DefaultBackoff(),
			},
			Probe:         ProbeConfig{Enabled: true, Timeout: DefaultProbeTimeout},
			Connectivity:  ConnectivityConfig{URL: DefaultConnectivityURL, Timeout: DefaultConnectivityTimeout},
			Discudemy:     DiscudemyConfig{BaseURL: DefaultDiscudemyURL},
			YoFreeSamples: YoFreeSamplesConfig{BaseURL: DefaultYoFreeSamplesURL},
			RealDiscount:  RealDiscountConfig{APIURL: DefaultRealDiscountURL, PageSize: DefaultRealDiscountPage},
		},
		Database:      DatabaseConfig{Port: "5432", SSLMode: "disable"},
		Elasticsearch: ElasticsearchConfig{IndexName: DefaultIndexName},
		Redis:         RedisConfig{Channel: DefaultRedisChannel},
		Server: ServerConfig{
			Address:      DefaultServerAddress,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		Schedule: ScheduleConfig{Spec: DefaultScheduleSpec},
	}
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("app", map[string]any{
		"name":        d.App.Name,
		"environment": d.App.Environment,
		"debug":       false,
	})

	v.SetDefault("logger", map[string]any{
		"level":        "info",
		"encoding":     "json",
		"development":  false,
		"enable_color": false,
		"output_paths": []string{"stdout"},
	})

	v.SetDefault("scrape", map[string]any{
		"pages":               d.Scrape.Pages,
		"fast_mode":           false,
		"item_budget":         d.Scrape.ItemBudget,
		"concurrency":         d.Scrape.Concurrency,
		"max_courses_to_send": d.Scrape.MaxCoursesToSend,
		"sources":             d.Scrape.Sources,
		"vendor":              d.Scrape.Vendor,
		"user_agents":         d.Scrape.UserAgents,
		"rate_limit":          "0s",
		"max_redirects":       d.Scrape.MaxRedirects,
		"report_dir":          "",
		"retry": map[string]any{
			"max_retries": d.Scrape.Retry.MaxRetries,
			"timeouts":    []string{"10s", "20s", "30s", "40s"},
			"backoff":     []string{"2s", "5s", "10s"},
		},
		"probe": map[string]any{
			"enabled": true,
			"timeout": d.Scrape.Probe.Timeout.String(),
		},
		"connectivity": map[string]any{
			"url":     d.Scrape.Connectivity.URL,
			"timeout": d.Scrape.Connectivity.Timeout.String(),
		},
		"discudemy":     map[string]any{"base_url": d.Scrape.Discudemy.BaseURL},
		"yofreesamples": map[string]any{"base_url": d.Scrape.YoFreeSamples.BaseURL},
		"realdiscount": map[string]any{
			"api_url":   d.Scrape.RealDiscount.APIURL,
			"page_size": d.Scrape.RealDiscount.PageSize,
		},
	})

	v.SetDefault("database", map[string]any{
		"host":     "",
		"port":     d.Database.Port,
		"user":     "",
		"password": "",
		"dbname":   "",
		"sslmode":  d.Database.SSLMode,
	})

	v.SetDefault("elasticsearch", map[string]any{
		"addresses":  []string{},
		"index_name": d.Elasticsearch.IndexName,
	})

	v.SetDefault("redis", map[string]any{
		"address": "",
		"db":      0,
		"channel": d.Redis.Channel,
	})

	v.SetDefault("server", map[string]any{
		"address":       d.Server.Address,
		"read_timeout":  d.Server.ReadTimeout.String(),
		"write_timeout": d.Server.WriteTimeout.String(),
		"idle_timeout":  d.Server.IdleTimeout.String(),
	})

	v.SetDefault("schedule", map[string]any{
		"spec":         d.Schedule.Spec,
		"run_on_start": true,
	})
}
