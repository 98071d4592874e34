package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string][]string{
	"app.environment":            {"APP_ENV"},
	"app.debug":                  {"APP_DEBUG"},
	"logger.level":               {"LOG_LEVEL"},
	"logger.encoding":            {"LOG_FORMAT"},
	"scrape.pages":               {"PAGES_TO_SCRAPE"},
	"scrape.fast_mode":           {"FAST_MODE"},
	"scrape.item_budget":         {"MAX_COURSES_TO_PROCESS"},
	"scrape.max_courses_to_send": {"MAX_COURSES_TO_SEND"},
	"scrape.concurrency":         {"SCRAPE_CONCURRENCY"},
	"database.host":              {"DATABASE_HOST", "POSTGRES_HOST"},
	"database.port":              {"DATABASE_PORT", "POSTGRES_PORT"},
	"database.user":              {"DATABASE_USER", "POSTGRES_USER"},
	"database.password":          {"DATABASE_PASSWORD", "POSTGRES_PASSWORD"},
	"database.dbname":            {"DATABASE_NAME", "POSTGRES_DB"},
	"elasticsearch.addresses":    {"ELASTICSEARCH_HOSTS", "ELASTICSEARCH_ADDRESSES"},
	"elasticsearch.password":     {"ELASTIC_PASSWORD", "ELASTICSEARCH_PASSWORD"},
	"elasticsearch.api_key":      {"ELASTICSEARCH_API_KEY"},
	"redis.address":              {"REDIS_ADDRESS"},
	"redis.password":             {"REDIS_PASSWORD"},
}

// BindEnv wires environment variables into v.
func BindEnv(v *viper.Viper) error {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", strings.Join(names, ","), err)
		}
	}

	return nil
}

// Load decodes v into a Config and validates it. Durations and comma separated
// lists are decoded by viper's default hooks.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Logger.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
