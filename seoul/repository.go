// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package seoul

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/munhwamap/munhwamap/spatial"
	"github.com/uber/h3-go/v4"
)

// EventFilter narrows ListEvents results. Zero fields are ignored.
type EventFilter struct {
	Category  Category
	District  string // substring match on district or venue
	Query     string // substring match on title or venue
	From      string // YYYY-MM-DD, events ending on or after
	To        string // YYYY-MM-DD, events starting on or before
	OnlyGeo   bool   // only events with resolved coordinates
	OnlyBlank bool   // only events without resolved coordinates
	Limit     int
	Offset    int
}

// Cluster is a group of geocoded events sharing one H3 cell.
type Cluster struct {
	Cell  string        `json:"cell"`
	Count int           `json:"count"`
	Point spatial.Point `json:"point"`
}

// EventRepository handles persistence of normalized events.
type EventRepository interface {
	// CreateSchema creates the events table
	CreateSchema() error

	// UpsertEvents inserts new events and refreshes existing ones,
	// preserving any already-resolved coordinates. Returns the number of
	// events new to the database
	UpsertEvents(events []Event) (int, error)

	// GetEvent returns one event by id, or sql.ErrNoRows
	GetEvent(id string) (*Event, error)

	// ListEvents returns events matching the filter, most recent first
	ListEvents(f EventFilter) ([]Event, error)

	// CountEvents returns the total number of stored events
	CountEvents() (int, error)

	// MissingCoordinates returns events without a resolved point
	MissingCoordinates(limit int) ([]Event, error)

	// SaveCoordinates stores a resolved point (and its H3 cells) for an event
	SaveCoordinates(id string, p spatial.Point, method string) error

	// ClusterCounts groups geocoded events by H3 cell at the given resolution
	ClusterCounts(resolution int) ([]Cluster, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlEventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a DuckDB-backed event repository.
func NewEventRepository(db *sql.DB) EventRepository {
	return &sqlEventRepository{db: db}
}

func (r *sqlEventRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlEventRepository) CreateSchema() error {
	// DuckDB needs to load the spatial extension
	_, err := r.db.Exec(`INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id VARCHAR PRIMARY KEY,
			title VARCHAR NOT NULL,
			category VARCHAR NOT NULL,
			venue VARCHAR,
			district VARCHAR,
			date_start DATE,
			date_end DATE,
			date_label VARCHAR,
			homepage VARCHAR,
			thumbnail VARCHAR,
			fee VARCHAR,
			point POINT_2D,
			geocode_method VARCHAR,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT,
			h3_res9 UBIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

// nullDate maps the "date unknown" empty string to NULL.
func nullDate(s string) interface{} {
	if s == "" {
		return nil
	}

	return s
}

func (r *sqlEventRepository) UpsertEvents(events []Event) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}

	update, err := tx.Prepare(`
		UPDATE events
		SET title = ?, category = ?, venue = ?, district = ?,
		    date_start = ?, date_end = ?, date_label = ?,
		    homepage = ?, thumbnail = ?, fee = ?, updated_at = ?
		WHERE id = ?
	`)
	if err != nil {
		_ = tx.Rollback()

		return 0, err
	}
	defer update.Close()

	insert, err := tx.Prepare(`
		INSERT INTO events(
			id, title, category, venue, district,
			date_start, date_end, date_label,
			homepage, thumbnail, fee, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()

		return 0, err
	}
	defer insert.Close()

	now := time.Now()
	inserted := 0

	for _, ev := range events {
		res, err := update.Exec(
			ev.Title,
			string(ev.Category),
			ev.Venue,
			ev.District,
			nullDate(ev.DateStart),
			nullDate(ev.DateEnd),
			ev.DateLabel,
			ev.Homepage,
			ev.Thumbnail,
			ev.Fee,
			now,
			ev.ID,
		)
		if err != nil {
			_ = tx.Rollback()

			return 0, fmt.Errorf("updating event %s: %w", ev.ID, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()

			return 0, err
		}

		if affected > 0 {
			continue
		}

		_, err = insert.Exec(
			ev.ID,
			ev.Title,
			string(ev.Category),
			ev.Venue,
			ev.District,
			nullDate(ev.DateStart),
			nullDate(ev.DateEnd),
			ev.DateLabel,
			ev.Homepage,
			ev.Thumbnail,
			ev.Fee,
			now,
			now,
		)
		if err != nil {
			_ = tx.Rollback()

			return 0, fmt.Errorf("inserting event %s: %w", ev.ID, err)
		}

		inserted++
	}

	return inserted, tx.Commit()
}

const eventColumns = `
	id, title, category, venue, district,
	date_start, date_end, date_label,
	homepage, thumbnail, fee, point
`

func scanEvent(row interface{ Scan(...interface{}) error }) (*Event, error) {
	var (
		ev                   Event
		venue, district      sql.NullString
		dateStart, dateEnd   sql.NullTime
		label, homepage      sql.NullString
		thumbnail, fee       sql.NullString
		category             string
		point                spatial.Point
	)

	err := row.Scan(
		&ev.ID,
		&ev.Title,
		&category,
		&venue,
		&district,
		&dateStart,
		&dateEnd,
		&label,
		&homepage,
		&thumbnail,
		&fee,
		&point,
	)
	if err != nil {
		return nil, err
	}

	ev.Category = Category(category)
	ev.Venue = venue.String
	ev.District = district.String
	ev.DateLabel = label.String
	ev.Homepage = homepage.String
	ev.Thumbnail = thumbnail.String
	ev.Fee = fee.String

	if dateStart.Valid {
		ev.DateStart = dateStart.Time.Format("2006-01-02")
	}

	if dateEnd.Valid {
		ev.DateEnd = dateEnd.Time.Format("2006-01-02")
	}

	if point.Valid() {
		ev.Point = &point
	}

	return &ev, nil
}

func (r *sqlEventRepository) GetEvent(id string) (*Event, error) {
	return scanEvent(r.db.QueryRow(
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id,
	))
}

func (r *sqlEventRepository) ListEvents(f EventFilter) ([]Event, error) {
	var (
		where []string
		args  []interface{}
	)

	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}

	if f.District != "" {
		where = append(where, "(district LIKE ? OR venue LIKE ?)")
		pattern := "%" + f.District + "%"
		args = append(args, pattern, pattern)
	}

	if f.Query != "" {
		where = append(where, "(title ILIKE ? OR venue ILIKE ?)")
		pattern := "%" + f.Query + "%"
		args = append(args, pattern, pattern)
	}

	// Date-range overlap: the event's [start, end] window intersects
	// [From, To]. Events with no parsed dates drop out of dated queries.
	if f.From != "" {
		where = append(where, "date_end >= ?")
		args = append(args, f.From)
	}

	if f.To != "" {
		where = append(where, "date_start <= ?")
		args = append(args, f.To)
	}

	if f.OnlyGeo {
		where = append(where, "point IS NOT NULL")
	}

	if f.OnlyBlank {
		where = append(where, "point IS NULL")
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY date_start DESC NULLS LAST, id"

	if f.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(f.Limit)
	}

	if f.Offset > 0 {
		query += " OFFSET " + strconv.Itoa(f.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event

	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}

		events = append(events, *ev)
	}

	return events, rows.Err()
}

func (r *sqlEventRepository) CountEvents() (int, error) {
	var n int

	err := r.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)

	return n, err
}

func (r *sqlEventRepository) MissingCoordinates(limit int) ([]Event, error) {
	return r.ListEvents(EventFilter{OnlyBlank: true, Limit: limit})
}

// h3Cells computes the cell ids for the stored resolutions.
func h3Cells(p spatial.Point) (res7, res8, res9 int64, err error) {
	latLng := h3.NewLatLng(p.Lat, p.Lng)

	cells := make([]int64, 0, 3)

	for _, res := range []int{7, 8, 9} {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("converting to h3 cell at res %d: %w", res, err)
		}

		cells = append(cells, int64(cell))
	}

	return cells[0], cells[1], cells[2], nil
}

func (r *sqlEventRepository) SaveCoordinates(id string, p spatial.Point, method string) error {
	if !p.Valid() {
		return errors.New("point can't be empty")
	}

	res7, res8, res9, err := h3Cells(p)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(`
		UPDATE events
		SET point = ST_Point(?, ?), geocode_method = ?,
		    h3_res7 = ?, h3_res8 = ?, h3_res9 = ?, updated_at = ?
		WHERE id = ?
	`,
		p.Lng,
		p.Lat,
		method,
		res7,
		res8,
		res9,
		time.Now(),
		id,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *sqlEventRepository) ClusterCounts(resolution int) ([]Cluster, error) {
	var column string

	switch resolution {
	case 7:
		column = "h3_res7"
	case 8:
		column = "h3_res8"
	case 9:
		column = "h3_res9"
	default:
		return nil, fmt.Errorf("unsupported cluster resolution %d (want 7, 8 or 9)", resolution)
	}

	rows, err := r.db.Query(
		`SELECT ` + column + `, COUNT(*)
		 FROM events
		 WHERE ` + column + ` IS NOT NULL
		 GROUP BY 1
		 ORDER BY 2 DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []Cluster

	for rows.Next() {
		var (
			raw   int64
			count int
		)

		if err := rows.Scan(&raw, &count); err != nil {
			return nil, err
		}

		cell := h3.Cell(raw)

		center, err := h3.CellToLatLng(cell)
		if err != nil {
			return nil, fmt.Errorf("resolving h3 cell center: %w", err)
		}

		clusters = append(clusters, Cluster{
			Cell:  strconv.FormatUint(uint64(raw), 16),
			Count: count,
			Point: spatial.Point{Lat: center.Lat, Lng: center.Lng},
		})
	}

	return clusters, rows.Err()
}
