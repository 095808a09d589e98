// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"sort"
	"strings"

	"github.com/munhwamap/munhwamap/spatial"
)

// districtCenters maps each of Seoul's 25 autonomous districts (gu) to
// its approximate center, used as a geocoding fallback.
var districtCenters = map[string]spatial.Point{
	"종로구":  {Lat: 37.5730, Lng: 126.9794},
	"중구":   {Lat: 37.5636, Lng: 126.9976},
	"용산구":  {Lat: 37.5326, Lng: 126.9905},
	"성동구":  {Lat: 37.5636, Lng: 127.0364},
	"광진구":  {Lat: 37.5386, Lng: 127.0822},
	"동대문구": {Lat: 37.5744, Lng: 127.0396},
	"중랑구":  {Lat: 37.6060, Lng: 127.0929},
	"성북구":  {Lat: 37.5894, Lng: 127.0167},
	"강북구":  {Lat: 37.6396, Lng: 127.0257},
	"도봉구":  {Lat: 37.6688, Lng: 127.0471},
	"노원구":  {Lat: 37.6542, Lng: 127.0568},
	"은평구":  {Lat: 37.6176, Lng: 126.9227},
	"서대문구": {Lat: 37.5791, Lng: 126.9368},
	"마포구":  {Lat: 37.5665, Lng: 126.9018},
	"양천구":  {Lat: 37.5169, Lng: 126.8665},
	"강서구":  {Lat: 37.5510, Lng: 126.8495},
	"구로구":  {Lat: 37.4954, Lng: 126.8874},
	"금천구":  {Lat: 37.4599, Lng: 126.9001},
	"영등포구": {Lat: 37.5263, Lng: 126.8963},
	"동작구":  {Lat: 37.5124, Lng: 126.9393},
	"관악구":  {Lat: 37.4784, Lng: 126.9516},
	"서초구":  {Lat: 37.4836, Lng: 127.0326},
	"강남구":  {Lat: 37.5173, Lng: 127.0473},
	"송파구":  {Lat: 37.5112, Lng: 127.0980},
	"강동구":  {Lat: 37.5301, Lng: 127.1238},
}

// DistrictCentroid returns the center point for a district name. The
// lookup is exact after trimming; "중구" and " 중구 " match, "중" does not.
func DistrictCentroid(name string) (spatial.Point, bool) {
	p, ok := districtCenters[strings.TrimSpace(name)]

	return p, ok
}

// DistrictNames returns every known district, sorted for stable output.
func DistrictNames() []string {
	names := make([]string, 0, len(districtCenters))
	for name := range districtCenters {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
