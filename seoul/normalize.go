// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package seoul

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/munhwamap/munhwamap/spatial"
)

// Category is the high-level event category shown to users. The upstream
// CODENAME field is a fine-grained free-text label; we collapse it to the
// four buckets the UI filters on.
type Category string

const (
	CategoryPerformance Category = "공연"
	CategoryExhibition  Category = "전시"
	CategoryEducation   Category = "교육/체험"
	CategoryOther       Category = "기타"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryPerformance,
	CategoryExhibition,
	CategoryEducation,
	CategoryOther,
}

// Event is one cultural event, normalized from a raw API row.
type Event struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Category  Category       `json:"category"`
	Venue     string         `json:"venue"`
	District  string         `json:"district"`
	DateStart string         `json:"date_start"` // YYYY-MM-DD, empty when unknown
	DateEnd   string         `json:"date_end"`   // YYYY-MM-DD, empty when unknown
	DateLabel string         `json:"date_label"`
	Homepage  string         `json:"homepage,omitempty"`
	Thumbnail string         `json:"thumbnail,omitempty"`
	Fee       string         `json:"fee,omitempty"`
	Point     *spatial.Point `json:"point,omitempty"`
}

// Row is one raw record as returned by the API, before normalization.
// Field names are inconsistent across record types (STRTDATE vs DATE and
// so on), so nothing outside this package should touch a Row directly.
type Row map[string]interface{}

// Field alias lists in priority order, per logical attribute.
var (
	titleAliases     = []string{"TITLE", "SVCNM"}
	startDateAliases = []string{"STRTDATE", "DATE"}
	endDateAliases   = []string{"END_DATE", "ENDDATE", "END"}
	homepageAliases  = []string{"ORG_LINK", "HMPG_ADDR"}
	thumbnailAliases = []string{"MAIN_IMG", "IMGURL"}
)

// str returns the first non-empty string value among the aliases.
func (r Row) str(aliases ...string) string {
	for _, key := range aliases {
		switch v := r[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			// json.Unmarshal hands numeric fields over as float64;
			// %v would render large values in scientific notation
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}

	return ""
}

var performanceKeywords = []string{
	"공연", "콘서트", "클래식", "국악", "무용", "연극",
	"뮤지컬", "오페라", "음악회", "페스티벌", "축제",
}

var exhibitionKeywords = []string{"전시", "미술", "갤러리", "아트", "사진전"}

var educationKeywords = []string{
	"교육", "체험", "워크숍", "워크샵", "강좌", "강의", "세미나", "강연",
}

// Classify maps the free-text CODENAME/THEMECODE pair to a Category.
// Keyword lists are checked in a fixed priority order: a record matching
// both performance and exhibition keywords is a performance.
func Classify(codename, themecode string) Category {
	containsAny := func(s string, keywords []string) bool {
		for _, k := range keywords {
			if strings.Contains(s, k) {
				return true
			}
		}

		return false
	}

	if containsAny(codename, performanceKeywords) {
		return CategoryPerformance
	}

	if containsAny(codename, exhibitionKeywords) {
		return CategoryExhibition
	}

	if containsAny(codename, educationKeywords) || strings.Contains(themecode, "교육") {
		return CategoryEducation
	}

	return CategoryOther
}

var compactDate = regexp.MustCompile(`^\d{8}$`)

// ParseDate normalizes the various upstream date spellings (20250615,
// 2025.06.15, 2025-06-15, optionally with a trailing time component) to
// YYYY-MM-DD. Unparseable input yields "" and is treated as "date
// unknown" by callers, never as an error.
func ParseDate(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return ""
	}

	if compactDate.MatchString(raw) {
		t, err := time.Parse("20060102", raw)
		if err != nil {
			return ""
		}

		return t.Format("2006-01-02")
	}

	raw = strings.ReplaceAll(raw, ".", "-")

	// Strip any trailing time component ("2025-06-15 00:00:00.0").
	if i := strings.IndexAny(raw, " T"); i >= 0 {
		raw = raw[:i]
	}

	for _, layout := range []string{"2006-01-02", "2006-1-2"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}

	return ""
}

// DateRangeLabel renders the raw date pair for display, mirroring what the
// record said rather than what we managed to parse.
func DateRangeLabel(start, end string) string {
	s := strings.ReplaceAll(strings.TrimSpace(start), ".", "-")
	e := strings.ReplaceAll(strings.TrimSpace(end), ".", "-")

	switch {
	case s == "" && e == "":
		return "일정 미정"
	case s != "" && e != "":
		return s + " ~ " + e
	case s != "":
		return s
	default:
		return e
	}
}

// NormalizeRow converts one raw row into an Event.
func NormalizeRow(row Row) Event {
	startStr := row.str(startDateAliases...)
	endStr := row.str(endDateAliases...)

	start := ParseDate(startStr)

	end := ParseDate(endStr)
	if end == "" {
		end = start
	}

	title := row.str(titleAliases...)
	if title == "" {
		title = "무제"
	}

	venue := row.str("PLACE")
	district := row.str("GUNAME")

	id := row.str("SVCID")
	if id == "" {
		id = synthesizeID(venue, title, start)
	}

	return Event{
		ID:        id,
		Title:     title,
		Category:  Classify(row.str("CODENAME"), row.str("THEMECODE")),
		Venue:     venue,
		District:  district,
		DateStart: start,
		DateEnd:   end,
		DateLabel: DateRangeLabel(startStr, endStr),
		Homepage:  row.str(homepageAliases...),
		Thumbnail: row.str(thumbnailAliases...),
		Fee:       row.str("USE_FEE"),
	}
}

// synthesizeID derives a stable identifier for rows without an SVCID by
// hashing venue, title and start date. The same event therefore keeps the
// same id across fetches, which a random suffix would not.
func synthesizeID(venue, title, start string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", venue, title, start)

	return fmt.Sprintf("evt_%016x", h.Sum64())
}
