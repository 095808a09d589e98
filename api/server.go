// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package api serves the read side of the event map over HTTP.
package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/munhwamap/munhwamap/geo"
	"github.com/munhwamap/munhwamap/profile"
	"github.com/munhwamap/munhwamap/seoul"
	"github.com/munhwamap/munhwamap/spatial"
)

// MaxMapEvents caps one map response; the map draws at most this many
// individual markers before clustering takes over.
const MaxMapEvents = 100

// DefaultCalendarRows is the page size for one calendar-day query when
// the caller gives no explicit range.
const DefaultCalendarRows = 200

// DailyFetcher is the slice of the upstream client the calendar endpoint
// needs.
type DailyFetcher interface {
	FetchDaily(ctx context.Context, date, codename, guname string, start, end int) (*seoul.DailyResult, error)
}

// Server wires repositories and the live upstream into HTTP handlers.
type Server struct {
	events  seoul.EventRepository
	profile profile.Repository
	daily   DailyFetcher
}

// NewServer creates a server. daily may be nil, in which case the
// calendar endpoint reports 503.
func NewServer(events seoul.EventRepository, profileRepo profile.Repository, daily DailyFetcher) *Server {
	return &Server{events: events, profile: profileRepo, daily: daily}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/events", s.listEvents)
	r.GET("/api/events/:id", s.getEvent)
	r.GET("/api/map/events", s.mapEvents)
	r.GET("/api/map/clusters", s.mapClusters)
	r.GET("/api/calendar/:date", s.calendarDay)
	r.GET("/api/districts", s.listDistricts)

	r.GET("/api/favorites", s.listFavorites)
	r.POST("/api/favorites/:id", s.toggleFavorite)

	r.GET("/api/recents", s.listRecents)
	r.POST("/api/recents/:id", s.addRecent)

	r.GET("/api/events/:id/reviews", s.listReviews)
	r.POST("/api/events/:id/reviews", s.addReview)
	r.DELETE("/api/reviews/:id", s.deleteReview)

	return r
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func filterFromQuery(ctx *gin.Context) seoul.EventFilter {
	f := seoul.EventFilter{
		Category: seoul.Category(ctx.Query("category")),
		District: ctx.Query("district"),
		Query:    ctx.Query("q"),
		From:     ctx.Query("from"),
		To:       ctx.Query("to"),
	}

	if limit, err := strconv.Atoi(ctx.Query("limit")); err == nil && limit > 0 {
		f.Limit = limit
	}

	if offset, err := strconv.Atoi(ctx.Query("offset")); err == nil && offset > 0 {
		f.Offset = offset
	}

	return f
}

func (s *Server) listEvents(ctx *gin.Context) {
	events, err := s.events.ListEvents(filterFromQuery(ctx))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (s *Server) getEvent(ctx *gin.Context) {
	event, err := s.events.GetEvent(ctx.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "event not found"})

		return
	}

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, event)
}

// mapEvents returns geocoded events for the map view, capped at
// MaxMapEvents regardless of the requested limit.
func (s *Server) mapEvents(ctx *gin.Context) {
	f := filterFromQuery(ctx)
	f.OnlyGeo = true

	if f.Limit <= 0 || f.Limit > MaxMapEvents {
		f.Limit = MaxMapEvents
	}

	events, err := s.events.ListEvents(f)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (s *Server) mapClusters(ctx *gin.Context) {
	resolution := 8

	if raw := ctx.Query("res"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid res parameter"})

			return
		}

		resolution = parsed
	}

	clusters, err := s.events.ClusterCounts(resolution)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"resolution": resolution, "clusters": clusters})
}

func (s *Server) calendarDay(ctx *gin.Context) {
	if s.daily == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "calendar upstream not configured"})

		return
	}

	date := ctx.Param("date")

	// The upstream range is 1-indexed inclusive; default to one full
	// page from the requested start.
	start := 1

	if raw := ctx.Query("start"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})

			return
		}

		start = parsed
	}

	end := start + DefaultCalendarRows - 1

	if raw := ctx.Query("end"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < start {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})

			return
		}

		end = parsed
	}

	result, err := s.daily.FetchDaily(
		ctx.Request.Context(),
		date,
		ctx.Query("category"),
		ctx.Query("district"),
		start, end,
	)
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, result)
}

type districtInfo struct {
	Name  string        `json:"name"`
	Point spatial.Point `json:"point"`
}

func (s *Server) listDistricts(ctx *gin.Context) {
	names := geo.DistrictNames()
	districts := make([]districtInfo, 0, len(names))

	for _, name := range names {
		p, _ := geo.DistrictCentroid(name)
		districts = append(districts, districtInfo{Name: name, Point: p})
	}

	ctx.JSON(http.StatusOK, gin.H{"districts": districts})
}

func (s *Server) listFavorites(ctx *gin.Context) {
	ids, err := s.profile.ListFavorites()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"favorites": ids})
}

func (s *Server) toggleFavorite(ctx *gin.Context) {
	on, err := s.profile.ToggleFavorite(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"event_id": ctx.Param("id"), "favorite": on})
}

func (s *Server) listRecents(ctx *gin.Context) {
	recents, err := s.profile.ListRecents()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"recents": recents})
}

func (s *Server) addRecent(ctx *gin.Context) {
	if err := s.profile.AddRecent(ctx.Param("id")); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.Status(http.StatusNoContent)
}

func (s *Server) listReviews(ctx *gin.Context) {
	reviews, err := s.profile.ListReviews(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) addReview(ctx *gin.Context) {
	var body reviewRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	review, err := s.profile.AddReview(ctx.Param("id"), body.Rating, body.Comment)
	if errors.Is(err, profile.ErrInvalidRating) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusCreated, review)
}

func (s *Server) deleteReview(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid review id"})

		return
	}

	err = s.profile.DeleteReview(id)
	if errors.Is(err, sql.ErrNoRows) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "review not found"})

		return
	}

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.Status(http.StatusNoContent)
}
