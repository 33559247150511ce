// Package tushare implements the HTTP client for the tushare pro data API.
package tushare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/luqian/astock-screener/pkg/config"
	"github.com/luqian/astock-screener/pkg/logger"
	"github.com/luqian/astock-screener/pkg/table"
)

// Client handles communication with the tushare pro API.
// One POST per Query call; caching is layered on top by internal/cache.
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
	cfg        config.TushareConfig
	limiter    *rate.Limiter
}

// NewClient creates a new tushare API client. Calls are rate limited to
// cfg.RateLimit requests per minute (the pro tier enforces per-minute
// quotas server side).
func NewClient(cfg config.TushareConfig, log *logger.Logger) *Client {
	perSecond := cfg.RateLimit / 60.0
	if perSecond <= 0 {
		perSecond = 3
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     log,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// request is the tushare pro request envelope.
type request struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields,omitempty"`
}

// response is the tushare pro response envelope. Items are positional
// arrays aligned with Fields.
type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

// APIError is a non-zero status returned by the tushare API.
type APIError struct {
	API  string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tushare %s: code=%d msg=%s", e.API, e.Code, e.Msg)
}

// Query calls one tushare api and decodes the positional result into a
// table keyed by the returned field names.
func (c *Client) Query(ctx context.Context, apiName string, params map[string]string, fields []string) (*table.Table, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = map[string]string{}
	}
	body, err := json.Marshal(request{
		APIName: apiName,
		Token:   c.cfg.Token,
		Params:  params,
		Fields:  strings.Join(fields, ","),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tushare %s: %w", apiName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tushare %s: read body: %w", apiName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tushare %s: status %d: %s", apiName, resp.StatusCode, string(respBody))
	}

	var out response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("tushare %s: decode: %w", apiName, err)
	}
	if out.Code != 0 {
		return nil, &APIError{API: apiName, Code: out.Code, Msg: out.Msg}
	}

	t := table.New(out.Data.Fields...)
	for _, item := range out.Data.Items {
		row := make(table.Row, len(out.Data.Fields))
		for i, field := range out.Data.Fields {
			if i < len(item) {
				row[field] = cellString(item[i])
			}
		}
		t.Append(row)
	}

	c.logger.WithFields(map[string]interface{}{
		"api":      apiName,
		"rows":     t.Len(),
		"duration": time.Since(start),
	}).Debug("tushare query completed")

	return t, nil
}

// cellString renders one wire value as a CSV cell.
func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
