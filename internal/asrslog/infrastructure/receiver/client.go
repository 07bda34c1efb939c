package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	asrslog "asrs-monitor/internal/asrslog/domain"
	"asrs-monitor/internal/observability/metrics"
)

const (
	defaultPageSize = 1000
	maxPageSize     = 5000
	sourceName      = "receiver"
	decodedPrefix   = "md_"
)

var (
	// ErrUnhealthy is returned when /health does not report OK.
	ErrUnhealthy = errors.New("receiver: unhealthy")
	// ErrOpenWindow is returned for windows without a start day.
	ErrOpenWindow = errors.New("receiver: window start required")
)

// Client reads controller logs from the log receiver API.
type Client struct {
	baseURL  string
	client   *http.Client
	pageSize int
	parse    bool
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithPageSize sets rows per request, capped at the receiver maximum.
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = min(size, maxPageSize)
		}
	}
}

// WithServerParse toggles server-side MONITORDATA decoding. When off the
// raw payload is requested and decoded locally.
func WithServerParse(parse bool) Option {
	return func(c *Client) {
		c.parse = parse
	}
}

// NewClient constructs a receiver client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("receiver: empty base url")
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
		pageSize: defaultPageSize,
		parse:    true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name identifies the source in logs and metrics.
func (c *Client) Name() string {
	return sourceName
}

// Health checks the receiver's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/health", nil, &resp); err != nil {
		return err
	}
	if !strings.EqualFold(resp.Status, "ok") {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, resp.Status)
	}
	return nil
}

// FetchLogs pages through /logs for the days covered by window.
func (c *Client) FetchLogs(ctx context.Context, window asrslog.Window) ([]asrslog.RawLogRecord, error) {
	if window.From.IsZero() {
		return nil, ErrOpenWindow
	}
	start := time.Now()
	base := url.Values{}
	base.Set("start_date", window.From.Format(asrslog.DateLayout))
	if !window.To.IsZero() {
		base.Set("end_date", window.To.Format(asrslog.DateLayout))
	}
	base.Set("limit", strconv.Itoa(c.pageSize))
	base.Set("parse", strconv.FormatBool(c.parse))
	if !c.parse {
		base.Set("include_raw_md", "true")
	}

	var out []asrslog.RawLogRecord
	for offset := 0; ; offset += c.pageSize {
		query := url.Values{}
		for k, v := range base {
			query[k] = v
		}
		query.Set("offset", strconv.Itoa(offset))

		var rows []map[string]any
		if err := c.getJSON(ctx, "/logs", query, &rows); err != nil {
			metrics.ObserveFetch(sourceName, metrics.ResultError, len(out), time.Since(start))
			return nil, err
		}
		for _, row := range rows {
			out = append(out, RecordFromRow(row))
		}
		if len(rows) < c.pageSize {
			break
		}
	}
	metrics.ObserveFetch(sourceName, metrics.ResultSuccess, len(out), time.Since(start))
	return out, nil
}

// RecordFromRow maps a receiver JSON row onto a raw record. Keys follow the
// controller table columns; "md_" keys carry registers decoded upstream.
func RecordFromRow(row map[string]any) asrslog.RawLogRecord {
	rec := asrslog.RawLogRecord{
		Line:      row["ASRS"],
		Timestamp: row["CDATE"],
		Status:    row["PLCCODE"],
		Barcode:   stringField(row["BARCODE"]),
		CheckType: stringField(row["CHKTYPE"]),
		Message:   stringField(row["MSGLOG"]),
		MsgType:   stringField(row["MSGTYPE"]),
		Payload:   row["MONITORDATA"],
	}
	for key, value := range row {
		if !strings.HasPrefix(key, decodedPrefix) {
			continue
		}
		if rec.Decoded == nil {
			rec.Decoded = make(map[string]any)
		}
		rec.Decoded[key] = value
	}
	return rec
}

func stringField(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("receiver: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body struct {
			Error  string `json:"error"`
			Detail any    `json:"detail"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			return fmt.Errorf("receiver: http %d: %s", resp.StatusCode, body.Error)
		}
		if body.Detail != nil {
			return fmt.Errorf("receiver: http %d: %v", resp.StatusCode, body.Detail)
		}
		return fmt.Errorf("receiver: http %d", resp.StatusCode)
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	return decoder.Decode(out)
}
