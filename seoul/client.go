// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package seoul retrieves cultural-event records from the Seoul open-data
// API, normalizes the inconsistent row shapes, and persists them.
package seoul

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/munhwamap/munhwamap/utils/httputils"
)

// DefaultBaseURL is the Seoul open-data endpoint. The API key travels in
// the path, not in a header.
const DefaultBaseURL = "http://openapi.seoul.go.kr:8088"

const serviceName = "culturalEventInfo"

// Defaults for the paginated full fetch.
const (
	DefaultPageSize  = 200
	DefaultHardLimit = 5000
)

// ErrMissingAPIKey is returned before any network call when no key was
// configured.
var ErrMissingAPIKey = errors.New("seoul: API key is required (set SEOUL_OPENAPI_KEY)")

// FetchError reports a failed page retrieval: a non-success HTTP status
// or a malformed payload. There is no automatic retry; the caller decides
// whether to re-invoke the fetch.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("seoul: fetching %s: %v", e.URL, e.Err)
	}

	return fmt.Sprintf("seoul: fetching %s: HTTP %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ClientOptions configuration for the Seoul API client.
type ClientOptions struct {
	// BaseURL overrides the API endpoint, mainly for tests
	BaseURL string

	// APIKey is the open-data portal key, embedded in the request path
	APIKey string

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Timeout per request. Defaults to 30s
	Timeout time.Duration
}

// FetchMetrics tracks statistics about a paginated fetch.
type FetchMetrics struct {
	Pages      int // pages requested
	TotalRows  int // raw rows seen
	Kept       int // rows kept after dedup
	Duplicates int // rows dropped as duplicates
}

// Merge combines two FetchMetrics.
func (m *FetchMetrics) Merge(o *FetchMetrics) *FetchMetrics {
	m.Pages += o.Pages
	m.TotalRows += o.TotalRows
	m.Kept += o.Kept
	m.Duplicates += o.Duplicates

	return m
}

// Client talks to the culturalEventInfo service.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	Metrics FetchMetrics
}

// NewClient creates a client. It fails eagerly when the API key is
// missing so that a misconfiguration surfaces before any network call.
func NewClient(options *ClientOptions) (*Client, error) {
	if options == nil {
		options = &ClientOptions{}
	}

	if strings.TrimSpace(options.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		MaxConnsPerHost:       4,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	loggingTransport := &httputils.LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  options.EnableHTTPBodyTrace,
		Transport: transport,
	}

	userAgent := "munhwamap/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		Transport: loggingTransport,
	}

	timeout := options.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  options.APIKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: headerTransport,
		},
	}, nil
}

// The JSON envelope the service wraps every response in.
type envelope struct {
	CulturalEventInfo *payload `json:"culturalEventInfo"`

	// Error responses put RESULT at the top level instead
	Result *resultInfo `json:"RESULT"`
}

type payload struct {
	ListTotalCount int         `json:"list_total_count"`
	Result         *resultInfo `json:"RESULT"`
	Row            []Row       `json:"row"`
}

type resultInfo struct {
	Code    string `json:"CODE"`
	Message string `json:"MESSAGE"`
}

// INFO-200 means "no data for this query"; everything else non-INFO-000
// is a hard failure.
const (
	resultOK    = "INFO-000"
	resultEmpty = "INFO-200"
)

// fetchPage retrieves rows [start, end] (1-indexed, inclusive). extra is
// the optional filter suffix "{codename}/{guname}/{date}/".
func (c *Client) fetchPage(ctx context.Context, start, end int, extra string) ([]Row, int, error) {
	reqURL := fmt.Sprintf(
		"%s/%s/json/%s/%d/%d/%s",
		c.baseURL,
		url.PathEscape(c.apiKey),
		serviceName,
		start,
		end,
		extra,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, &FetchError{URL: reqURL, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, &FetchError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, &FetchError{URL: reqURL, Status: resp.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, 0, &FetchError{URL: reqURL, Err: fmt.Errorf("decoding response: %w", err)}
	}

	c.Metrics.Pages++

	if env.CulturalEventInfo == nil {
		// Top-level RESULT: either "no data" or a real error.
		if env.Result != nil && env.Result.Code == resultEmpty {
			return nil, 0, nil
		}

		msg := "missing culturalEventInfo payload"
		if env.Result != nil {
			msg = fmt.Sprintf("%s: %s", env.Result.Code, env.Result.Message)
		}

		return nil, 0, &FetchError{URL: reqURL, Err: errors.New(msg)}
	}

	p := env.CulturalEventInfo
	if p.Result != nil && p.Result.Code != resultOK && p.Result.Code != resultEmpty {
		return nil, 0, &FetchError{
			URL: reqURL,
			Err: fmt.Errorf("%s: %s", p.Result.Code, p.Result.Message),
		}
	}

	return p.Row, p.ListTotalCount, nil
}

// PageInfo is reported to the OnPage callback after every page.
type PageInfo struct {
	Page    int // 1-based page number
	Fetched int // raw rows in this page
	Total   int // events accumulated so far
	Start   int // first row index requested
	End     int // last row index requested
}

// FetchAllOptions controls a paginated full fetch.
type FetchAllOptions struct {
	// PageSize is the number of rows per request. Defaults to 200
	PageSize int

	// HardLimit caps the number of accumulated events. Defaults to 5000
	HardLimit int

	// StopBefore (YYYY-MM-DD) stops fetching once the last row of a page
	// ends before this date. Valid only when the upstream rows are sorted
	// ascending by date; treat it as an optimization, not a guarantee: a
	// violation merely fetches up to HardLimit
	StopBefore string

	// OnPage, when set, is invoked after every page
	OnPage func(PageInfo)
}

// FetchAll retrieves the full (or capped) event dataset, page by page,
// deduplicating by identifier in order of first occurrence. Pages are
// awaited sequentially; cancelling ctx aborts between requests.
func (c *Client) FetchAll(ctx context.Context, opts FetchAllOptions) ([]Event, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	hardLimit := opts.HardLimit
	if hardLimit <= 0 {
		hardLimit = DefaultHardLimit
	}

	var stopBefore time.Time

	if opts.StopBefore != "" {
		t, err := time.Parse("2006-01-02", opts.StopBefore)
		if err != nil {
			return nil, fmt.Errorf("seoul: invalid StopBefore date %q: %w", opts.StopBefore, err)
		}

		stopBefore = t
	}

	seen := make(map[string]struct{}, hardLimit)
	events := make([]Event, 0, pageSize)
	start := 1
	page := 0

	for len(events) < hardLimit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + pageSize - 1

		rows, _, err := c.fetchPage(ctx, start, end, "")
		if err != nil {
			return nil, err
		}

		if len(rows) == 0 {
			break
		}

		c.Metrics.TotalRows += len(rows)

		for _, row := range rows {
			ev := NormalizeRow(row)
			if _, dup := seen[ev.ID]; dup {
				c.Metrics.Duplicates++

				continue
			}

			seen[ev.ID] = struct{}{}
			events = append(events, ev)

			if len(events) >= hardLimit {
				break
			}
		}

		page++

		if opts.OnPage != nil {
			opts.OnPage(PageInfo{
				Page:    page,
				Fetched: len(rows),
				Total:   len(events),
				Start:   start,
				End:     end,
			})
		}

		if !stopBefore.IsZero() && lastRowEndsBefore(rows, stopBefore) {
			break
		}

		if len(rows) < pageSize {
			break // last page
		}

		start += pageSize
	}

	c.Metrics.Kept = len(events)

	return events, nil
}

// lastRowEndsBefore reports whether the final row of the page ends (or,
// lacking an end date, starts) strictly before the target date.
func lastRowEndsBefore(rows []Row, target time.Time) bool {
	last := rows[len(rows)-1]

	endStr := last.str(endDateAliases...)
	if endStr == "" {
		endStr = last.str(startDateAliases...)
	}

	normalized := ParseDate(endStr)
	if normalized == "" {
		return false
	}

	d, err := time.Parse("2006-01-02", normalized)
	if err != nil {
		return false
	}

	return d.Before(target)
}

// normalizeRange clamps a caller-provided 0-based range to the 1-based
// inclusive range the API expects.
func normalizeRange(start, end int) (int, int) {
	if start < 1 {
		start = 1
	}

	if end < start {
		end = start
	}

	return start, end
}

// FetchRange retrieves a single page of events, plus the dataset total.
func (c *Client) FetchRange(ctx context.Context, start, end int) ([]Event, int, error) {
	start, end = normalizeRange(start, end)

	rows, total, err := c.fetchPage(ctx, start, end, "")
	if err != nil {
		return nil, 0, err
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, NormalizeRow(row))
	}

	return events, total, nil
}

// DailyResult carries one calendar-day query.
type DailyResult struct {
	Events     []Event `json:"events"`
	TotalCount int     `json:"total_count"`
}

// FetchDaily queries events active on a given date (YYYY-MM-DD), with
// optional codename and district filters. Empty filters become the single
// space the path-segmented API expects.
func (c *Client) FetchDaily(ctx context.Context, date, codename, guname string, start, end int) (*DailyResult, error) {
	if date == "" {
		return nil, errors.New("seoul: FetchDaily requires a date (YYYY-MM-DD)")
	}

	if codename == "" {
		codename = " "
	}

	if guname == "" {
		guname = " "
	}

	start, end = normalizeRange(start, end)

	extra := fmt.Sprintf(
		"%s/%s/%s/",
		url.PathEscape(codename),
		url.PathEscape(guname),
		url.PathEscape(date),
	)

	rows, total, err := c.fetchPage(ctx, start, end, extra)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, NormalizeRow(row))
	}

	return &DailyResult{Events: events, TotalCount: total}, nil
}
