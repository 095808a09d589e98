// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/munhwamap/munhwamap/spatial"
)

// KakaoBaseURL is the Kakao Local REST API endpoint.
const KakaoBaseURL = "https://dapi.kakao.com"

// ErrMissingKakaoKey is returned before any network call when no REST
// key was configured.
var ErrMissingKakaoKey = errors.New("geo: Kakao REST API key is required (set KAKAO_REST_API_KEY)")

// Place is one candidate from a search call.
type Place struct {
	Name    string
	Address string
	Point   spatial.Point
}

// PlaceSearcher is the slice of the mapping service the resolver needs:
// a keyword place search and an address geocode.
type PlaceSearcher interface {
	// KeywordSearch finds places matching a free-text query, biased to a
	// radius (meters) around a center point
	KeywordSearch(ctx context.Context, query string, center spatial.Point, radiusMeters int) ([]Place, error)

	// AddressSearch geocodes an address string
	AddressSearch(ctx context.Context, query string) ([]Place, error)
}

// KakaoLocalClient implements PlaceSearcher against the Kakao Local REST
// API (keyword.json and address.json).
type KakaoLocalClient struct {
	client *resty.Client
}

// NewKakaoLocalClient creates a Kakao Local client.
func NewKakaoLocalClient(apiKey string) (*KakaoLocalClient, error) {
	if apiKey == "" {
		return nil, ErrMissingKakaoKey
	}

	client := resty.New().
		SetBaseURL(KakaoBaseURL).
		SetHeader("Authorization", "KakaoAK "+apiKey).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &KakaoLocalClient{client: client}, nil
}

// SetBaseURL overrides the endpoint, mainly for tests.
func (k *KakaoLocalClient) SetBaseURL(baseURL string) {
	k.client.SetBaseURL(baseURL)
}

// One document from either search endpoint. Coordinates arrive as
// strings: x is longitude, y is latitude.
type kakaoDocument struct {
	PlaceName       string `json:"place_name"`
	AddressName     string `json:"address_name"`
	RoadAddressName string `json:"road_address_name"`
	X               string `json:"x"`
	Y               string `json:"y"`
}

type kakaoResponse struct {
	Documents []kakaoDocument `json:"documents"`
}

func toPlaces(docs []kakaoDocument) []Place {
	places := make([]Place, 0, len(docs))

	for _, d := range docs {
		lng, errX := strconv.ParseFloat(d.X, 64)
		lat, errY := strconv.ParseFloat(d.Y, 64)

		if errX != nil || errY != nil {
			continue
		}

		places = append(places, Place{
			Name:    d.PlaceName,
			Address: d.AddressName,
			Point:   spatial.Point{Lat: lat, Lng: lng},
		})
	}

	return places
}

func (k *KakaoLocalClient) search(ctx context.Context, path string, params map[string]string) ([]Place, error) {
	var body kakaoResponse

	resp, err := k.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("kakao local request failed: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("kakao local returned status %d", resp.StatusCode())
	}

	return toPlaces(body.Documents), nil
}

// KeywordSearch implements PlaceSearcher.
func (k *KakaoLocalClient) KeywordSearch(ctx context.Context, query string, center spatial.Point, radiusMeters int) ([]Place, error) {
	params := map[string]string{"query": query}

	if center.Valid() && radiusMeters > 0 {
		params["x"] = strconv.FormatFloat(center.Lng, 'f', -1, 64)
		params["y"] = strconv.FormatFloat(center.Lat, 'f', -1, 64)
		params["radius"] = strconv.Itoa(radiusMeters)
	}

	return k.search(ctx, "/v2/local/search/keyword.json", params)
}

// AddressSearch implements PlaceSearcher.
func (k *KakaoLocalClient) AddressSearch(ctx context.Context, query string) ([]Place, error) {
	return k.search(ctx, "/v2/local/search/address.json", map[string]string{"query": query})
}
