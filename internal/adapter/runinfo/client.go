package runinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/runlog-engine/internal/domain"
)

const requestTimeout = 30 * time.Second

// Client fetches test-run descriptors from the run metadata provider.
// The provider's payload is open schema; the client trims it down to
// status, a per-severity event summary, and candidate log links.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a Client against baseURL, authenticating with token.
func New(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger.With("component", "runinfo_client"),
	}
}

// RunInfo fetches and sanitizes the descriptor for one test run.
func (c *Client) RunInfo(ctx context.Context, runID string) (domain.RunInfo, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return domain.RunInfo{}, fmt.Errorf("%w: invalid run_id %q: %v", domain.ErrValidation, runID, err)
	}
	if c.token == "" {
		return domain.RunInfo{}, fmt.Errorf("%w: provider token is not configured", domain.ErrRunInfo)
	}

	target := fmt.Sprintf("%s/api/v1/client/sct/%s", c.baseURL, runID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.RunInfo{}, fmt.Errorf("%w: build request: %v", domain.ErrRunInfo, err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.RunInfo{}, fmt.Errorf("%w: %v", domain.ErrRunInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RunInfo{}, fmt.Errorf("%w: unexpected status %d: %s",
			domain.ErrRunInfo, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return domain.RunInfo{}, fmt.Errorf("%w: decode response: %v", domain.ErrRunInfo, err)
	}

	info := domain.RunInfo{
		RunID:    runID,
		Events:   summarizeEvents(raw["events"]),
		LogLinks: extractLogLinks(raw),
	}
	if status, ok := raw["status"].(string); ok {
		info.Status = status
	}

	c.logger.Info("fetched run info",
		"run_id", runID, "status", info.Status, "log_links", len(info.LogLinks))
	return info, nil
}

// summarizeEvents keeps only the event amount and severity of each
// event group; the raw payload can be arbitrarily large.
func summarizeEvents(raw any) []domain.EventSummary {
	groups, ok := raw.([]any)
	if !ok {
		return nil
	}
	summaries := make([]domain.EventSummary, 0, len(groups))
	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok {
			continue
		}
		summary := domain.EventSummary{Severity: "UNKNOWN"}
		if amount, ok := group["event_amount"].(float64); ok {
			summary.Amount = int(amount)
		}
		if severity, ok := group["severity"].(string); ok {
			summary.Severity = severity
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// extractLogLinks collects every field that looks like an http(s) link
// to a log artifact, checking the top level and one map level down.
func extractLogLinks(data map[string]any) map[string]string {
	links := make(map[string]string)
	for key, value := range data {
		switch v := value.(type) {
		case string:
			lower := strings.ToLower(key)
			if (strings.Contains(lower, "log") || strings.Contains(lower, "archive")) && isLogLink(v) {
				links[key] = v
			}
		case map[string]any:
			for nestedKey, nestedValue := range v {
				s, ok := nestedValue.(string)
				if ok && isLogLink(s) {
					links[key+"_"+nestedKey] = s
				}
			}
		}
	}
	return links
}

func isLogLink(value string) bool {
	if !strings.HasPrefix(value, "http") {
		return false
	}
	return strings.Contains(value, ".tar") || strings.Contains(value, ".log")
}
