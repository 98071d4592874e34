// Package storage indexes scrape run reports in Elasticsearch.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/coupon-crawler/internal/config"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
)

const (
	// DefaultPingTimeout bounds the connection check in NewClient.
	DefaultPingTimeout = 5 * time.Second
	// DefaultIndexTimeout bounds a single index request.
	DefaultIndexTimeout = 10 * time.Second
	defaultMaxRetries   = 3
)

// ErrNotConfigured is returned when no Elasticsearch address is set.
var ErrNotConfigured = errors.New("elasticsearch is not configured")

// NewClient creates an Elasticsearch client and verifies the connection.
func NewClient(ctx context.Context, cfg config.ElasticsearchConfig, log logger.Logger) (*es.Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	log = logger.OrNop(log)

	addresses := make([]string, 0, len(cfg.Addresses))
	for _, a := range cfg.Addresses {
		addresses = append(addresses, normalizeURL(a))
	}

	clientConfig := es.Config{
		Addresses:  addresses,
		MaxRetries: defaultMaxRetries,
	}
	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
	} else if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	if err := Ping(ctx, client); err != nil {
		return nil, err
	}

	log.Info("Elasticsearch connection established", logger.Strings("addresses", addresses))

	return client, nil
}

// Ping checks that the cluster answers.
func Ping(ctx context.Context, client *es.Client) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to ping Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping returned %s", res.Status())
	}

	return nil
}

func normalizeURL(url string) string {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}
