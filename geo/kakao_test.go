// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munhwamap/munhwamap/spatial"
)

func TestNewKakaoLocalClientRequiresKey(t *testing.T) {
	_, err := NewKakaoLocalClient("")

	assert.ErrorIs(t, err, ErrMissingKakaoKey)
}

func newTestKakaoClient(t *testing.T, handler http.HandlerFunc) (*KakaoLocalClient, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewKakaoLocalClient("test-key")
	require.NoError(t, err)
	client.SetBaseURL(server.URL)

	return client, server
}

func TestKeywordSearch(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string

	client, _ := newTestKakaoClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"documents": [
				{"place_name": "올림픽공원", "address_name": "서울 송파구 방이동", "x": "127.1215", "y": "37.5202"},
				{"place_name": "좌표 없음", "address_name": "서울 어딘가", "x": "", "y": ""}
			]
		}`))
	})

	places, err := client.KeywordSearch(context.Background(), "송파구 올림픽공원", spatial.SeoulCityHall, 60000)
	require.NoError(t, err)

	assert.Equal(t, "/v2/local/search/keyword.json", gotPath)
	assert.Equal(t, "KakaoAK test-key", gotAuth)
	assert.Equal(t, []string{"송파구 올림픽공원"}, gotQuery["query"])
	assert.Equal(t, []string{"60000"}, gotQuery["radius"])
	require.Contains(t, gotQuery, "x")
	require.Contains(t, gotQuery, "y")

	// The document without parseable coordinates is dropped.
	require.Len(t, places, 1)
	assert.Equal(t, "올림픽공원", places[0].Name)
	assert.Equal(t, "서울 송파구 방이동", places[0].Address)
	assert.InDelta(t, 37.5202, places[0].Point.Lat, 1e-9)
	assert.InDelta(t, 127.1215, places[0].Point.Lng, 1e-9)
}

func TestKeywordSearchWithoutCenterOmitsBias(t *testing.T) {
	var gotQuery map[string][]string

	client, _ := newTestKakaoClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documents": []}`))
	})

	_, err := client.KeywordSearch(context.Background(), "문화회관", spatial.Point{}, 0)
	require.NoError(t, err)

	assert.NotContains(t, gotQuery, "x")
	assert.NotContains(t, gotQuery, "radius")
}

func TestAddressSearch(t *testing.T) {
	var gotPath string

	client, _ := newTestKakaoClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"documents": [
				{"address_name": "서울 중구 세종대로 110", "x": "126.9780", "y": "37.5665"}
			]
		}`))
	})

	places, err := client.AddressSearch(context.Background(), "서울 중구 세종대로 110")
	require.NoError(t, err)

	assert.Equal(t, "/v2/local/search/address.json", gotPath)
	require.Len(t, places, 1)
	assert.Equal(t, spatial.Point{Lat: 37.5665, Lng: 126.9780}, places[0].Point)
}

func TestSearchReportsHTTPErrors(t *testing.T) {
	client, _ := newTestKakaoClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorType": "AccessDeniedError"}`, http.StatusUnauthorized)
	})

	_, err := client.AddressSearch(context.Background(), "어딘가")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
