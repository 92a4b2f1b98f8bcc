package logstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/runlog-engine/internal/adapter/metrics"
	"github.com/user/runlog-engine/internal/domain"
)

const (
	healthPath = "/health"
	insertPath = "/insert/jsonline"
	queryPath  = "/select/logsql/query"

	maxRetries         = 3
	retryBackoffBase   = 2
	requestTimeout     = 30 * time.Second
	healthProbeTimeout = 5 * time.Second

	// maxScanLineSize bounds a single NDJSON result line.
	maxScanLineSize = 1 << 20
)

// Client talks to a VictoriaLogs-compatible log store: health probe,
// NDJSON batch insertion with bounded retries, and LogsQL queries.
type Client struct {
	endpoint string
	client   *http.Client
	metrics  *metrics.EngineMetrics
	logger   *slog.Logger

	// sleep is swappable so tests don't pay for real backoff waits.
	sleep func(time.Duration)
}

// NewClient creates a Client for the store at endpoint.
func NewClient(endpoint string, m *metrics.EngineMetrics, logger *slog.Logger) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: requestTimeout},
		metrics:  m,
		logger:   logger.With("component", "logstore_client"),
		sleep:    time.Sleep,
	}
}

// Healthy probes the store's liveness endpoint. Any non-200 response
// or transport error counts as not running.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("log store health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// SendBatch posts one batch of serialized records as newline-delimited
// JSON. Transport failures are retried up to maxRetries attempts with
// retryBackoffBase^attempt seconds of blocking sleep in between; the
// sleep stalls only the calling worker.
func (c *Client) SendBatch(ctx context.Context, lines [][]byte, params domain.BatchParams) error {
	q := url.Values{}
	q.Set("_stream_fields", params.StreamFields)
	q.Set("_time_field", params.TimeField)
	q.Set("_msg_field", params.MsgField)
	target := c.endpoint + insertPath + "?" + q.Encode()

	body := bytes.Join(lines, []byte("\n"))

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := c.post(ctx, target, "application/json", bytes.NewReader(body))
		if err == nil {
			c.metrics.BatchesSent.WithLabelValues("ok").Inc()
			c.logger.Debug("batch ingested", "lines", len(lines))
			return nil
		}
		lastErr = err

		wait := time.Duration(math.Pow(retryBackoffBase, float64(attempt))) * time.Second
		c.logger.Warn("batch send failed",
			"attempt", attempt+1,
			"max_attempts", maxRetries,
			"backoff", wait,
			"error", err,
		)
		if attempt < maxRetries-1 {
			c.metrics.SendRetries.Inc()
			c.sleep(wait)
		}
	}

	c.metrics.BatchesSent.WithLabelValues("error").Inc()
	return fmt.Errorf("%w: batch of %d lines after %d attempts: %v",
		domain.ErrIngestion, len(lines), maxRetries, lastErr)
}

// Query posts a LogsQL expression and parses the NDJSON response.
// Lines that fail to parse are skipped with a warning; an empty body
// yields an empty result set.
func (c *Client) Query(ctx context.Context, expression string) ([]domain.LogRecord, error) {
	form := url.Values{"query": {expression}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+queryPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build query request: %v", domain.ErrQuery, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.QueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.metrics.QueriesTotal.WithLabelValues("error").Inc()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: unexpected status %d: %s",
			domain.ErrQuery, resp.StatusCode, bytes.TrimSpace(msg))
	}

	results := make([]domain.LogRecord, 0)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record domain.LogRecord
		// `null` lines unmarshal into a nil map; drop them too.
		if err := json.Unmarshal(line, &record); err != nil || record == nil {
			c.logger.Warn("skipping unparseable result line", "error", err)
			continue
		}
		results = append(results, record)
	}
	if err := scanner.Err(); err != nil {
		c.metrics.QueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrQuery, err)
	}

	c.metrics.QueriesTotal.WithLabelValues("ok").Inc()
	return results, nil
}

func (c *Client) post(ctx context.Context, target, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
