package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/tripweaver/tripweaver/internal/search"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	DB *sql.DB
}

// NewWithDSN opens a postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// CreateUser inserts a user with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, now())`,
		uuid.NewString(), email, passwordHash)
	return err
}

// GetUserByEmail returns the user id and password hash for an email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (string, string, error) {
	var id, hash string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE email = $1`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return id, hash, err
}

// SavedBundle is one persisted orchestration outcome.
type SavedBundle struct {
	ID        string               `json:"id"`
	RequestID string               `json:"request_id"`
	UserID    string               `json:"user_id"`
	Inputs    search.TripInputs    `json:"inputs"`
	Bundle    *search.SearchBundle `json:"bundle"`
	CreatedAt time.Time            `json:"created_at"`
}

// SaveSearchBundle persists a bundle for later retrieval and audit.
func (s *Store) SaveSearchBundle(ctx context.Context, requestID, userID string, inputs search.TripInputs, bundle *search.SearchBundle) (string, error) {
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("marshal inputs: %w", err)
	}
	bundleJSON, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("marshal bundle: %w", err)
	}
	id := uuid.NewString()
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO search_bundles (id, request_id, user_id, inputs, bundle, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		id, requestID, userID, inputsJSON, bundleJSON, string(bundle.Verification.Status))
	if err != nil {
		return "", fmt.Errorf("insert search bundle: %w", err)
	}
	return id, nil
}

// GetSearchBundle loads one persisted bundle owned by the given user.
func (s *Store) GetSearchBundle(ctx context.Context, id, userID string) (*SavedBundle, error) {
	var (
		sb         SavedBundle
		inputsJSON []byte
		bundleJSON []byte
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, request_id, user_id, inputs, bundle, created_at
		 FROM search_bundles WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&sb.ID, &sb.RequestID, &sb.UserID, &inputsJSON, &bundleJSON, &sb.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(inputsJSON, &sb.Inputs); err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal(bundleJSON, &sb.Bundle); err != nil {
		return nil, fmt.Errorf("unmarshal bundle: %w", err)
	}
	return &sb, nil
}

// ListSearchBundles returns the user's persisted bundles, newest first,
// without the (potentially large) bundle payloads.
func (s *Store) ListSearchBundles(ctx context.Context, userID string, limit int) ([]SavedBundle, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, request_id, user_id, inputs, created_at
		 FROM search_bundles WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SavedBundle
	for rows.Next() {
		var (
			sb         SavedBundle
			inputsJSON []byte
		)
		if err := rows.Scan(&sb.ID, &sb.RequestID, &sb.UserID, &inputsJSON, &sb.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(inputsJSON, &sb.Inputs); err != nil {
			return nil, fmt.Errorf("unmarshal inputs: %w", err)
		}
		out = append(out, sb)
	}
	return out, rows.Err()
}
