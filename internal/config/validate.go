package config

import (
	"errors"
	"fmt"
	"slices"
)

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for values the crawler cannot run with.
func (c *Config) Validate() error {
	return c.Scrape.Validate()
}

// Validate checks the scrape section.
func (s *ScrapeConfig) Validate() error {
	var errs []error

	if s.Pages < 1 {
		errs = append(errs, &ValidationError{Field: "scrape.pages", Message: "must be at least 1"})
	}
	if s.ItemBudget < 1 {
		errs = append(errs, &ValidationError{Field: "scrape.item_budget", Message: "must be at least 1"})
	}
	if s.Concurrency < 1 {
		errs = append(errs, &ValidationError{Field: "scrape.concurrency", Message: "must be at least 1"})
	}
	if s.MaxCoursesToSend < 0 {
		errs = append(errs, &ValidationError{Field: "scrape.max_courses_to_send", Message: "must not be negative"})
	}
	if len(s.Sources) == 0 {
		errs = append(errs, &ValidationError{Field: "scrape.sources", Message: "at least one source is required"})
	}
	for i, name := range s.Sources {
		if !slices.Contains(KnownSources, name) {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("scrape.sources[%d]", i),
				Message: fmt.Sprintf("unknown source %q", name),
			})
		}
		if slices.Index(s.Sources, name) != i {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("scrape.sources[%d]", i),
				Message: fmt.Sprintf("duplicate source %q", name),
			})
		}
	}

	errs = append(errs, s.Retry.validate()...)

	return errors.Join(errs...)
}

func (r RetryConfig) validate() []error {
	var errs []error

	if r.MaxRetries < 0 {
		errs = append(errs, &ValidationError{Field: "scrape.retry.max_retries", Message: "must not be negative"})
	}
	if len(r.Timeouts) == 0 {
		errs = append(errs, &ValidationError{Field: "scrape.retry.timeouts", Message: "must not be empty"})
	}
	if r.MaxRetries > 0 && len(r.Backoff) == 0 {
		errs = append(errs, &ValidationError{Field: "scrape.retry.backoff", Message: "must not be empty when retries are enabled"})
	}
	for i, d := range r.Timeouts {
		if d <= 0 {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("scrape.retry.timeouts[%d]", i),
				Message: "must be positive",
			})
		}
		if i > 0 && d < r.Timeouts[i-1] {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("scrape.retry.timeouts[%d]", i),
				Message: "timeouts must not decrease",
			})
		}
	}

	return errs
}
