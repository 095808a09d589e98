// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile persists per-user state: favorite events, recently
// viewed events, and reviews.
package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MaxRecents caps the recently-viewed list; older entries are evicted.
const MaxRecents = 50

// ErrInvalidRating rejects reviews outside the 1-5 star range.
var ErrInvalidRating = errors.New("profile: rating must be between 1 and 5")

// Recent is one recently-viewed event.
type Recent struct {
	EventID  string    `json:"event_id"`
	ViewedAt time.Time `json:"viewed_at"`
}

// Review is one rating with an optional comment.
type Review struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository handles persistence of user profile state.
type Repository interface {
	// CreateSchema creates the favorites, recents and reviews tables
	CreateSchema() error

	// ToggleFavorite flips the favorite state of an event and returns
	// the new state
	ToggleFavorite(eventID string) (bool, error)

	// IsFavorite reports whether an event is currently a favorite
	IsFavorite(eventID string) (bool, error)

	// ListFavorites returns favorite event ids, most recently added first
	ListFavorites() ([]string, error)

	// AddRecent records a view of an event, moving it to the front and
	// evicting entries beyond MaxRecents
	AddRecent(eventID string) error

	// ListRecents returns recently viewed events, most recent first
	ListRecents() ([]Recent, error)

	// AddReview stores a review. Rating outside 1-5 is ErrInvalidRating
	AddReview(eventID string, rating int, comment string) (*Review, error)

	// ListReviews returns reviews for one event, newest first
	ListReviews(eventID string) ([]Review, error)

	// DeleteReview removes a review by id, or sql.ErrNoRows
	DeleteReview(id int64) error
}

type sqlRepository struct {
	db *sql.DB
}

// NewRepository creates a DuckDB-backed profile repository.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS favorites (
			event_id VARCHAR PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS recents (
			event_id VARCHAR PRIMARY KEY,
			viewed_at TIMESTAMP NOT NULL
		);
		CREATE SEQUENCE IF NOT EXISTS seq_review_id START 1;
		CREATE TABLE IF NOT EXISTS reviews (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_review_id'),
			event_id VARCHAR NOT NULL,
			rating INTEGER NOT NULL,
			comment VARCHAR,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

func (r *sqlRepository) IsFavorite(eventID string) (bool, error) {
	var n int

	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM favorites WHERE event_id = ?`, eventID,
	).Scan(&n)
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (r *sqlRepository) ToggleFavorite(eventID string) (bool, error) {
	fav, err := r.IsFavorite(eventID)
	if err != nil {
		return false, err
	}

	if fav {
		_, err = r.db.Exec(`DELETE FROM favorites WHERE event_id = ?`, eventID)

		return false, err
	}

	_, err = r.db.Exec(
		`INSERT INTO favorites(event_id, created_at) VALUES (?, ?)`,
		eventID, time.Now(),
	)

	return true, err
}

func (r *sqlRepository) ListFavorites() ([]string, error) {
	rows, err := r.db.Query(`SELECT event_id FROM favorites ORDER BY created_at DESC, event_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *sqlRepository) AddRecent(eventID string) error {
	now := time.Now()

	// Move to the front when already present.
	result, err := r.db.Exec(
		`UPDATE recents SET viewed_at = ? WHERE event_id = ?`, now, eventID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		_, err = r.db.Exec(
			`INSERT INTO recents(event_id, viewed_at) VALUES (?, ?)`, eventID, now,
		)
		if err != nil {
			return err
		}
	}

	// Evict everything past the cap.
	_, err = r.db.Exec(fmt.Sprintf(`
		DELETE FROM recents WHERE event_id NOT IN (
			SELECT event_id FROM recents ORDER BY viewed_at DESC LIMIT %d
		)`, MaxRecents))

	return err
}

func (r *sqlRepository) ListRecents() ([]Recent, error) {
	rows, err := r.db.Query(
		`SELECT event_id, viewed_at FROM recents ORDER BY viewed_at DESC, event_id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	recents := make([]Recent, 0)

	for rows.Next() {
		var rec Recent
		if err := rows.Scan(&rec.EventID, &rec.ViewedAt); err != nil {
			return nil, err
		}

		recents = append(recents, rec)
	}

	return recents, rows.Err()
}

func (r *sqlRepository) AddReview(eventID string, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	now := time.Now()

	var id int64

	err := r.db.QueryRow(
		`INSERT INTO reviews(event_id, rating, comment, created_at)
		 VALUES (?, ?, ?, ?) RETURNING id`,
		eventID, rating, comment, now,
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	return &Review{ID: id, EventID: eventID, Rating: rating, Comment: comment, CreatedAt: now}, nil
}

func (r *sqlRepository) ListReviews(eventID string) ([]Review, error) {
	rows, err := r.db.Query(
		`SELECT id, event_id, rating, COALESCE(comment, ''), created_at
		 FROM reviews WHERE event_id = ? ORDER BY created_at DESC, id DESC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	reviews := make([]Review, 0)

	for rows.Next() {
		var rev Review
		if err := rows.Scan(&rev.ID, &rev.EventID, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, err
		}

		reviews = append(reviews, rev)
	}

	return reviews, rows.Err()
}

func (r *sqlRepository) DeleteReview(id int64) error {
	result, err := r.db.Exec(`DELETE FROM reviews WHERE id = ?`, id)
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
