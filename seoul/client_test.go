// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package seoul

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAPI serves a fixed dataset through the path-segmented protocol the
// real service uses: /{key}/json/culturalEventInfo/{start}/{end}/.
type mockAPI struct {
	rows     []Row
	requests int
}

func (m *mockAPI) handler(t *testing.T) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		m.requests++

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		require.GreaterOrEqual(t, len(parts), 5, "unexpected path %q", r.URL.Path)
		require.Equal(t, "json", parts[1])
		require.Equal(t, "culturalEventInfo", parts[2])

		start, err := strconv.Atoi(parts[3])
		require.NoError(t, err)
		end, err := strconv.Atoi(parts[4])
		require.NoError(t, err)

		if start > len(m.rows) {
			// Beyond the dataset the service answers with a bare RESULT.
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"RESULT": map[string]string{"CODE": "INFO-200", "MESSAGE": "해당하는 데이터가 없습니다."},
			})

			return
		}

		if end > len(m.rows) {
			end = len(m.rows)
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"culturalEventInfo": map[string]interface{}{
				"list_total_count": len(m.rows),
				"RESULT":           map[string]string{"CODE": "INFO-000", "MESSAGE": "정상 처리되었습니다"},
				"row":              m.rows[start-1 : end],
			},
		})
	}
}

func eventRow(id, title, start, end string) Row {
	return Row{
		"SVCID":    id,
		"TITLE":    title,
		"CODENAME": "콘서트",
		"PLACE":    "올림픽공원",
		"GUNAME":   "송파구",
		"STRTDATE": start,
		"END_DATE": end,
	}
}

func makeRows(n int) []Row {
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, eventRow(
			fmt.Sprintf("S%06d", i),
			fmt.Sprintf("행사 %d", i),
			"2026-09-01",
			"2026-09-30",
		))
	}

	return rows
}

func newTestClient(t *testing.T, api *mockAPI) *Client {
	t.Helper()

	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewClient(&ClientOptions{
		BaseURL: srv.URL,
		APIKey:  "testkey",
	})
	require.NoError(t, err)

	return client
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(&ClientOptions{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewClient(&ClientOptions{APIKey: "   "})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFetchAllPagination(t *testing.T) {
	// 200 + 200 + 50 rows: two full pages plus a short final page.
	api := &mockAPI{rows: makeRows(450)}
	client := newTestClient(t, api)

	events, err := client.FetchAll(context.Background(), FetchAllOptions{
		PageSize:  200,
		HardLimit: 450,
	})
	require.NoError(t, err)

	assert.Len(t, events, 450)
	// The 50-row page is short, so no fourth request happens.
	assert.Equal(t, 3, api.requests)
	assert.Equal(t, 450, client.Metrics.Kept)
}

func TestFetchAllStopsOnEmptyPage(t *testing.T) {
	api := &mockAPI{rows: makeRows(200)}
	client := newTestClient(t, api)

	events, err := client.FetchAll(context.Background(), FetchAllOptions{
		PageSize:  100,
		HardLimit: 1000,
	})
	require.NoError(t, err)

	assert.Len(t, events, 200)
	// Two full pages, then one request answered with INFO-200.
	assert.Equal(t, 3, api.requests)
}

func TestFetchAllDedupAcrossPages(t *testing.T) {
	rows := []Row{
		eventRow("A", "첫번째", "2026-09-01", "2026-09-10"),
		eventRow("B", "두번째", "2026-09-02", "2026-09-11"),
		eventRow("A", "첫번째 중복", "2026-09-01", "2026-09-10"),
		eventRow("C", "세번째", "2026-09-03", "2026-09-12"),
	}
	api := &mockAPI{rows: rows}
	client := newTestClient(t, api)

	events, err := client.FetchAll(context.Background(), FetchAllOptions{PageSize: 2})
	require.NoError(t, err)

	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}

	// One record per unique id, in order of first occurrence.
	assert.Equal(t, []string{"A", "B", "C"}, ids)
	assert.Equal(t, "첫번째", events[0].Title)
	assert.Equal(t, 1, client.Metrics.Duplicates)
}

func TestFetchAllHardLimitMidPage(t *testing.T) {
	api := &mockAPI{rows: makeRows(8)}
	client := newTestClient(t, api)

	events, err := client.FetchAll(context.Background(), FetchAllOptions{
		PageSize:  4,
		HardLimit: 5,
	})
	require.NoError(t, err)

	assert.Len(t, events, 5)
	assert.Equal(t, 2, api.requests)
}

func TestFetchAllEarlyStopByDate(t *testing.T) {
	// Ascending dates; everything ends before the target start date, so
	// one page suffices even though more pages exist.
	rows := make([]Row, 0, 6)
	for i := 0; i < 6; i++ {
		rows = append(rows, eventRow(
			fmt.Sprintf("D%d", i),
			fmt.Sprintf("행사 %d", i),
			fmt.Sprintf("2026-01-%02d", i+1),
			fmt.Sprintf("2026-01-%02d", i+2),
		))
	}

	api := &mockAPI{rows: rows}
	client := newTestClient(t, api)

	events, err := client.FetchAll(context.Background(), FetchAllOptions{
		PageSize:   2,
		StopBefore: "2026-06-01",
	})
	require.NoError(t, err)

	assert.Len(t, events, 2)
	assert.Equal(t, 1, api.requests)
}

func TestFetchAllNoEarlyStopWithoutFilter(t *testing.T) {
	api := &mockAPI{rows: makeRows(6)}
	client := newTestClient(t, api)

	events, err := client.FetchAll(context.Background(), FetchAllOptions{PageSize: 2})
	require.NoError(t, err)

	assert.Len(t, events, 6)
	assert.GreaterOrEqual(t, api.requests, 3)
}

func TestFetchAllInvalidStopBefore(t *testing.T) {
	api := &mockAPI{rows: makeRows(1)}
	client := newTestClient(t, api)

	_, err := client.FetchAll(context.Background(), FetchAllOptions{StopBefore: "junk"})
	require.Error(t, err)
	// Validation fails before any request goes out.
	assert.Equal(t, 0, api.requests)
}

func TestFetchAllHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(&ClientOptions{BaseURL: srv.URL, APIKey: "testkey"})
	require.NoError(t, err)

	_, err = client.FetchAll(context.Background(), FetchAllOptions{})
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.Status)
}

func TestFetchAllMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client, err := NewClient(&ClientOptions{BaseURL: srv.URL, APIKey: "testkey"})
	require.NoError(t, err)

	_, err = client.FetchAll(context.Background(), FetchAllOptions{})

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestFetchAllCancellation(t *testing.T) {
	api := &mockAPI{rows: makeRows(10)}
	client := newTestClient(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchAll(ctx, FetchAllOptions{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetchRangeNormalizesIndexes(t *testing.T) {
	api := &mockAPI{rows: makeRows(10)}
	client := newTestClient(t, api)

	// 0-based caller input becomes the 1-based range 1..5.
	events, total, err := client.FetchRange(context.Background(), 0, 5)
	require.NoError(t, err)

	assert.Len(t, events, 5)
	assert.Equal(t, 10, total)
}

func TestFetchDaily(t *testing.T) {
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"culturalEventInfo": map[string]interface{}{
				"list_total_count": 37,
				"RESULT":           map[string]string{"CODE": "INFO-000", "MESSAGE": "ok"},
				"row": []Row{
					eventRow("E1", "오늘의 행사", "2026-09-01", "2026-09-01"),
				},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(&ClientOptions{BaseURL: srv.URL, APIKey: "testkey"})
	require.NoError(t, err)

	result, err := client.FetchDaily(context.Background(), "2026-09-01", "", "송파구", 0, 4)
	require.NoError(t, err)

	assert.Equal(t, 37, result.TotalCount)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "오늘의 행사", result.Events[0].Title)

	// Blank codename turns into the single-space segment, encoded.
	assert.Contains(t, gotPath, "/1/4/%20/")
	assert.Contains(t, gotPath, "2026-09-01")
}

func TestFetchDailyRequiresDate(t *testing.T) {
	api := &mockAPI{}
	client := newTestClient(t, api)

	_, err := client.FetchDaily(context.Background(), "", "", "", 0, 4)
	require.Error(t, err)
	assert.Equal(t, 0, api.requests)
}
