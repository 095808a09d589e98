// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package geo resolves approximate map coordinates for event venues by
// chaining a mapping service, a persistent cache, and static fallbacks.
package geo

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/munhwamap/munhwamap/spatial"
	"github.com/munhwamap/munhwamap/utils/textutils"
)

// Method names the tier that produced a resolution.
type Method string

const (
	MethodProvided Method = "provided"
	MethodCache    Method = "cache"
	MethodKeyword  Method = "keyword"
	MethodAddress  Method = "address"
	MethodDistrict Method = "district"
	MethodFallback Method = "fallback"
)

// Request identifies a venue to resolve.
type Request struct {
	Venue    string
	District string
	Title    string

	// Existing, when valid, short-circuits everything: the upstream
	// record already told us where the event is
	Existing *spatial.Point
}

// Resolution is the outcome. Resolve never fails: the worst case is the
// fixed city-hall point.
type Resolution struct {
	Point  spatial.Point
	Method Method
}

// ResolverOptions tunes the resolver. The zero value takes Seoul-sized
// defaults.
type ResolverOptions struct {
	// Center and SearchRadius bias the keyword search. Defaults: Seoul
	// city hall, 60km
	Center       spatial.Point
	SearchRadius int

	// Bounds rejects searched coordinates far outside the target city.
	// Defaults to the Seoul box
	Bounds spatial.BoundingBox

	// Pacing is the courtesy delay between successive uncached
	// resolutions in a batch. Defaults to 150ms. This is cooperative
	// pacing, not a rate limiter: no backoff on failure
	Pacing time.Duration

	// CityPrefix filters search hits to addresses starting with the city
	// name. Defaults to "서울"
	CityPrefix string
}

// Resolver resolves venue coordinates with deterministic fallback tiers.
type Resolver struct {
	searcher PlaceSearcher
	cache    CoordinateCache
	options  ResolverOptions
}

// NewResolver creates a resolver. searcher may be nil, in which case the
// search tiers are skipped and only cache and static fallbacks apply.
func NewResolver(searcher PlaceSearcher, cache CoordinateCache, options ResolverOptions) *Resolver {
	if !options.Center.Valid() {
		options.Center = spatial.SeoulCityHall
	}

	if options.SearchRadius <= 0 {
		options.SearchRadius = 60000
	}

	if options.Bounds == (spatial.BoundingBox{}) {
		options.Bounds = spatial.SeoulBounds
	}

	if options.Pacing <= 0 {
		options.Pacing = 150 * time.Millisecond
	}

	if options.CityPrefix == "" {
		options.CityPrefix = "서울"
	}

	if cache == nil {
		cache = NewMemoryCache()
	}

	return &Resolver{searcher: searcher, cache: cache, options: options}
}

// Venue strings that name no physical place: online, contactless,
// venue-independent, undetermined, none.
var nonPhysicalVenue = regexp.MustCompile(`온라인|비대면|무관|미정|없음`)

// IsNonPhysicalVenue reports whether the venue string names no place
// worth searching for.
func IsNonPhysicalVenue(venue string) bool {
	trimmed := strings.TrimSpace(venue)

	return trimmed == "" || nonPhysicalVenue.MatchString(trimmed)
}

// pickCityHit chooses the best candidate: city-prefixed addresses only,
// preferring ones that mention the district.
func (r *Resolver) pickCityHit(places []Place, district string) *Place {
	var cityFirst *Place

	for i := range places {
		if !strings.HasPrefix(places[i].Address, r.options.CityPrefix) {
			continue
		}

		if cityFirst == nil {
			cityFirst = &places[i]
		}

		if district != "" && strings.Contains(places[i].Address, district) {
			return &places[i]
		}
	}

	return cityFirst
}

// searchVenue runs tiers 3 and 4: keyword place search, then address
// geocode. Returns nil when neither produced an in-bounds hit. Tier
// failures are never errors, just reasons to keep falling through.
func (r *Resolver) searchVenue(ctx context.Context, venue, district string) (spatial.Point, Method, bool) {
	if r.searcher == nil {
		return spatial.Point{}, "", false
	}

	// Diacritics in embedded Latin words hurt keyword matching.
	venue = textutils.StripMarks(venue)

	query := venue
	if district != "" {
		query = district + " " + venue
	}

	places, err := r.searcher.KeywordSearch(ctx, query, r.options.Center, r.options.SearchRadius)
	if err != nil {
		log.Printf("Geocode - keyword search failed for %q: %v", query, err)
	} else if hit := r.pickCityHit(places, district); hit != nil && r.options.Bounds.Contains(hit.Point) {
		return hit.Point, MethodKeyword, true
	}

	places, err = r.searcher.AddressSearch(ctx, venue)
	if err != nil {
		log.Printf("Geocode - address search failed for %q: %v", venue, err)
	} else if hit := r.pickCityHit(places, district); hit != nil && r.options.Bounds.Contains(hit.Point) {
		return hit.Point, MethodAddress, true
	}

	return spatial.Point{}, "", false
}

// Resolve maps a venue to a coordinate. Order: caller-provided
// coordinates, cache, keyword search, address geocode, district
// centroid, city hall. Search results outside the bounding box are
// discarded in favor of the static fallbacks.
func (r *Resolver) Resolve(ctx context.Context, req Request) Resolution {
	// 1. Already authoritative, no cache write needed.
	if req.Existing != nil && req.Existing.Valid() {
		return Resolution{Point: *req.Existing, Method: MethodProvided}
	}

	key := CacheKey(req.District, req.Venue, req.Title)

	// 2. Cache.
	if p, ok, err := r.cache.Get(key); err != nil {
		log.Printf("Geocode - cache read failed for %q: %v", key, err)
	} else if ok {
		return Resolution{Point: p, Method: MethodCache}
	}

	// 3-4. Mapping service, unless the venue names no physical place.
	if !IsNonPhysicalVenue(req.Venue) {
		if p, method, ok := r.searchVenue(ctx, strings.TrimSpace(req.Venue), strings.TrimSpace(req.District)); ok {
			r.putCache(key, p)

			return Resolution{Point: p, Method: method}
		}
	}

	// 5. District centroid.
	if p, ok := DistrictCentroid(req.District); ok {
		r.putCache(key, p)

		return Resolution{Point: p, Method: MethodDistrict}
	}

	// 6. Fixed city-hall point. Not cached: a later run with a district
	// or a reachable mapping service should get the chance to do better.
	return Resolution{Point: spatial.SeoulCityHall, Method: MethodFallback}
}

func (r *Resolver) putCache(key string, p spatial.Point) {
	if err := r.cache.Put(key, p); err != nil {
		log.Printf("Geocode - cache write failed for %q: %v", key, err)
	}
}

// ResolveBatch resolves requests one at a time, in order, inserting the
// pacing delay after every resolution that had to leave the cache.
// onResolve, when non-nil, is invoked with each resolution as it lands;
// a non-nil error from it aborts the batch. Cancelling ctx stops the
// batch early; resolutions made so far are returned either way.
func (r *Resolver) ResolveBatch(ctx context.Context, reqs []Request, onResolve func(i int, res Resolution) error) ([]Resolution, error) {
	out := make([]Resolution, 0, len(reqs))

	for i, req := range reqs {
		if ctx.Err() != nil {
			return out, nil
		}

		res := r.Resolve(ctx, req)
		out = append(out, res)

		if onResolve != nil {
			if err := onResolve(i, res); err != nil {
				return out, err
			}
		}

		if res.Method == MethodCache || res.Method == MethodProvided {
			continue
		}

		select {
		case <-ctx.Done():
			return out, nil
		case <-time.After(r.options.Pacing):
		}
	}

	return out, nil
}
