package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/abrezinsky/moherun/internal/draw"
	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/models"
)

// DefaultDocsURL is the public spreadsheet host.
const DefaultDocsURL = "https://docs.google.com"

// Options configures an HTTPClient.
type Options struct {
	SpreadsheetID string
	// ScriptURL is the web-app endpoint used for reads by week and for all writes.
	ScriptURL string
	// ResultsTab holds one row per lucky draw.
	ResultsTab string
	// PoolPath and PoolURL locate the challenge pool; the path wins when both are set.
	PoolPath    string
	PoolURL     string
	DefaultTask string
	Timeout     time.Duration
	// DocsURL overrides DefaultDocsURL.
	DocsURL string
}

// HTTPClient reads tabs through the gviz CSV export and writes through the script endpoint.
type HTTPClient struct {
	opts       Options
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a client with its own http.Client.
func NewHTTPClient(opts Options, log logger.Logger) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewHTTPClientWithHTTPClient(opts, &http.Client{Timeout: timeout}, log)
}

// NewHTTPClientWithHTTPClient creates a client around a custom http.Client
func NewHTTPClientWithHTTPClient(opts Options, httpClient *http.Client, log logger.Logger) *HTTPClient {
	if opts.DocsURL == "" {
		opts.DocsURL = DefaultDocsURL
	}
	return &HTTPClient{opts: opts, httpClient: httpClient, log: log}
}

// ExportURL returns the CSV export address of a tab.
func (c *HTTPClient) ExportURL(tab string) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s",
		strings.TrimRight(c.opts.DocsURL, "/"), url.PathEscape(c.opts.SpreadsheetID), url.QueryEscape(tab))
}

// get performs a GET and returns the body of a 200 response.
func (c *HTTPClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	c.log.Debug("Sheets request", "method", "GET", "url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to spreadsheet: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Sheets response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spreadsheet returned status %d", resp.StatusCode)
	}
	return body, nil
}

// absentBody reports an HTML sign-in page or a gviz error instead of CSV.
func absentBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return true
	}
	lower := bytes.ToLower(trimmed[:min(len(trimmed), 64)])
	return bytes.HasPrefix(lower, []byte("<!doctype")) ||
		bytes.HasPrefix(lower, []byte("<html")) ||
		bytes.Contains(body, []byte("gviz-response-status-error")) ||
		bytes.Contains(body, []byte("google.visualization.Query.setResponse"))
}

// FetchTab reads one tab through the CSV export.
func (c *HTTPClient) FetchTab(ctx context.Context, name string) (*models.Tab, error) {
	body, err := c.get(ctx, c.ExportURL(name))
	if err != nil {
		return nil, err
	}
	if absentBody(body) {
		c.log.Debug("Tab not present", "tab", name)
		return nil, nil
	}
	rows, err := ParseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tab %s: %w", name, err)
	}
	return &models.Tab{Name: name, Raw: body, Rows: rows}, nil
}

// FetchChallengePool reads the pool file or URL. An empty pool yields the default task.
func (c *HTTPClient) FetchChallengePool(ctx context.Context) ([]string, error) {
	var text string
	switch {
	case c.opts.PoolPath != "":
		data, err := os.ReadFile(c.opts.PoolPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read challenge pool: %w", err)
		}
		text = string(data)
	case c.opts.PoolURL != "":
		data, err := c.get(ctx, c.opts.PoolURL)
		if err != nil {
			return nil, err
		}
		text = string(data)
	}
	return poolOrDefault(draw.ParseTaskPool(text), c.opts.DefaultTask), nil
}

func (c *HTTPClient) resultRows(ctx context.Context) ([]models.RawRow, error) {
	if c.opts.ResultsTab == "" {
		return nil, nil
	}
	tab, err := c.FetchTab(ctx, c.opts.ResultsTab)
	if err != nil || tab == nil {
		return nil, err
	}
	return tab.Rows, nil
}

// FetchUsedTasks reads the task column of the results tab.
func (c *HTTPClient) FetchUsedTasks(ctx context.Context) ([]string, error) {
	rows, err := c.resultRows(ctx)
	if err != nil {
		return nil, err
	}
	return UsedTasksFromRows(rows), nil
}

// scriptResponse is the envelope of the script endpoint.
type scriptResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// scriptGet queries the script endpoint. found is false when it answered without data.
func (c *HTTPClient) scriptGet(ctx context.Context, params url.Values, out any) (found bool, err error) {
	u, err := url.Parse(c.opts.ScriptURL)
	if err != nil {
		return false, fmt.Errorf("invalid script URL: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return false, err
	}
	var env scriptResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return false, fmt.Errorf("failed to parse script response: %w", err)
	}
	if !env.Success || len(env.Data) == 0 || string(env.Data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, fmt.Errorf("failed to parse script data: %w", err)
	}
	return true, nil
}

// FetchDrawResult asks the script endpoint first and falls back to the results tab
// when the endpoint is unset or unreachable.
func (c *HTTPClient) FetchDrawResult(ctx context.Context, weekID string) (*models.DrawResult, error) {
	if c.opts.ScriptURL != "" {
		var res models.DrawResult
		found, err := c.scriptGet(ctx, url.Values{"weekId": {weekID}}, &res)
		if err == nil {
			if !found || len(res.Winners) == 0 {
				return nil, nil
			}
			if res.WeekID == "" {
				res.WeekID = weekID
			}
			return &res, nil
		}
		c.log.Warn("Script lookup failed, reading results tab", "week", weekID, "error", err)
	}

	rows, err := c.resultRows(ctx)
	if err != nil {
		return nil, err
	}
	return DrawResultFromRows(rows, weekID), nil
}

// FetchPairing asks the script endpoint for the week's supply-station team.
func (c *HTTPClient) FetchPairing(ctx context.Context, weekID string) (*models.Pairing, error) {
	if c.opts.ScriptURL == "" {
		return nil, nil
	}
	var p models.Pairing
	found, err := c.scriptGet(ctx, url.Values{"action": {"getPairing"}, "weekId": {weekID}}, &p)
	if err != nil || !found || p.Runner == "" || p.Partner == "" {
		return nil, err
	}
	if p.WeekID == "" {
		p.WeekID = weekID
	}
	return &p, nil
}

// scriptPost sends an action to the script endpoint. The endpoint reads text/plain JSON.
func (c *HTTPClient) scriptPost(ctx context.Context, payload map[string]any) error {
	if c.opts.ScriptURL == "" {
		return ErrNotConfigured
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	c.log.Debug("Sheets request", "method", "POST", "url", c.opts.ScriptURL, "action", payload["action"])

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.ScriptURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to script endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Sheets response", "status", resp.StatusCode, "body", string(body))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("script endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var env scriptResponse
	if err := json.Unmarshal(body, &env); err == nil && !env.Success {
		return fmt.Errorf("script endpoint error: %s", env.Error)
	}
	return nil
}

// SaveDrawResult posts a draw. Results without three winners or a task are rejected.
func (c *HTTPClient) SaveDrawResult(ctx context.Context, res models.DrawResult) error {
	if res.WeekID == "" || len(res.Winners) != draw.WinnerCount || res.Task == "" {
		return fmt.Errorf("invalid draw result for week %q", res.WeekID)
	}
	return c.scriptPost(ctx, map[string]any{
		"action":  "saveDrawResult",
		"weekId":  res.WeekID,
		"winners": res.Winners,
		"task":    res.Task,
	})
}

// SavePairing posts a supply-station team.
func (c *HTTPClient) SavePairing(ctx context.Context, p models.Pairing) error {
	if p.WeekID == "" || p.Runner == "" || p.Partner == "" {
		return fmt.Errorf("invalid pairing for week %q", p.WeekID)
	}
	return c.scriptPost(ctx, map[string]any{
		"action":  "savePairing",
		"weekId":  p.WeekID,
		"runner":  p.Runner,
		"partner": p.Partner,
	})
}

var _ Client = (*HTTPClient)(nil)
