package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/jonesrussell/coupon-crawler/internal/analytics"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
)

// reportMapping keeps the per-source breakdown queryable as nested objects.
const reportMapping = `{
  "mappings": {
    "properties": {
      "run_id":         { "type": "keyword" },
      "started_at":     { "type": "date" },
      "finished_at":    { "type": "date" },
      "indexed_at":     { "type": "date" },
      "duration":       { "type": "long" },
      "total_found":    { "type": "integer" },
      "total_accepted": { "type": "integer" },
      "total_skipped":  { "type": "integer" },
      "total_errors":   { "type": "integer" },
      "success_rate":   { "type": "float" },
      "sources":        { "type": "nested" },
      "skip_reasons":   { "type": "object" },
      "recommendations": { "type": "text" }
    }
  }
}`

// reportDocument is the indexed form of a run report.
type reportDocument struct {
	analytics.Report
	IndexedAt time.Time `json:"indexed_at"`
}

// ReportIndexer writes run reports to one index.
type ReportIndexer struct {
	client *es.Client
	index  string
	log    logger.Logger
	now    func() time.Time
}

// NewReportIndexer creates an indexer writing to index.
func NewReportIndexer(client *es.Client, index string, log logger.Logger) *ReportIndexer {
	return &ReportIndexer{client: client, index: index, log: logger.OrNop(log), now: time.Now}
}

// EnsureIndex creates the report index with its mapping when missing.
func (r *ReportIndexer) EnsureIndex(ctx context.Context) error {
	res, err := r.client.Indices.Exists([]string{r.index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", r.index, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("unexpected status checking index %s: %s", r.index, res.Status())
	}

	created, err := r.client.Indices.Create(
		r.index,
		r.client.Indices.Create.WithBody(strings.NewReader(reportMapping)),
		r.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", r.index, err)
	}
	defer closeResponse(created)

	if created.IsError() {
		return fmt.Errorf("elasticsearch error creating index: %s", created.String())
	}

	r.log.Info("Created report index", logger.String("index", r.index))

	return nil
}

// IndexReport stores report under its run ID, replacing an earlier copy.
func (r *ReportIndexer) IndexReport(ctx context.Context, report analytics.Report) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultIndexTimeout)
	defer cancel()

	body, err := json.Marshal(reportDocument{Report: report, IndexedAt: r.now()})
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(body),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(report.RunID),
		r.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("failed to index report: %w", err)
	}
	defer closeResponse(res)

	if res.IsError() {
		r.log.Error("Elasticsearch returned error response",
			logger.String("error", res.String()),
			logger.String("index", r.index),
			logger.String("run_id", report.RunID),
		)
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	r.log.Info("Report indexed",
		logger.String("index", r.index),
		logger.String("run_id", report.RunID),
	)

	return nil
}

func closeResponse(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}
