package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/tripweaver/tripweaver/internal/search"
)

func testBundle() *search.SearchBundle {
	return &search.SearchBundle{
		Stays:   []map[string]interface{}{{"title": "Canal House"}},
		Flights: []map[string]interface{}{},
		Verification: search.Verification{
			SearchedAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			ProvidersAttempted: []search.ProviderKey{search.ProviderLodgingPeer},
			ProvidersSucceeded: []search.ProviderKey{search.ProviderLodgingPeer},
			Counts:             map[search.ProviderKey]int{search.ProviderLodgingPeer: 1},
			Status:             search.BundleOK,
		},
	}
}

func TestSaveSearchBundle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	inputs := search.TripInputs{Destination: "Amsterdam", Travelers: 2}
	bundle := testBundle()

	query := regexp.QuoteMeta(`INSERT INTO search_bundles (id, request_id, user_id, inputs, bundle, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`)
	mock.ExpectExec(query).
		WithArgs(sqlmock.AnyArg(), "req-1", "user-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "ok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := st.SaveSearchBundle(context.Background(), "req-1", "user-1", inputs, bundle)
	if err != nil {
		t.Fatalf("SaveSearchBundle: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetSearchBundle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	inputs := search.TripInputs{Destination: "Amsterdam"}
	inputsJSON, _ := json.Marshal(inputs)
	bundleJSON, _ := json.Marshal(testBundle())
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	query := regexp.QuoteMeta(`SELECT id, request_id, user_id, inputs, bundle, created_at
		 FROM search_bundles WHERE id = $1 AND user_id = $2`)
	mock.ExpectQuery(query).
		WithArgs("b-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "request_id", "user_id", "inputs", "bundle", "created_at"}).
			AddRow("b-1", "req-1", "user-1", inputsJSON, bundleJSON, created))

	sb, err := st.GetSearchBundle(context.Background(), "b-1", "user-1")
	if err != nil {
		t.Fatalf("GetSearchBundle: %v", err)
	}
	if sb.Inputs.Destination != "Amsterdam" {
		t.Fatalf("expected inputs round-tripped, got %+v", sb.Inputs)
	}
	if sb.Bundle == nil || sb.Bundle.Verification.Status != search.BundleOK {
		t.Fatalf("expected ok bundle, got %+v", sb.Bundle)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetSearchBundleNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	query := regexp.QuoteMeta(`SELECT id, request_id, user_id, inputs, bundle, created_at
		 FROM search_bundles WHERE id = $1 AND user_id = $2`)
	mock.ExpectQuery(query).
		WithArgs("missing", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "request_id", "user_id", "inputs", "bundle", "created_at"}))

	if _, err := st.GetSearchBundle(context.Background(), "missing", "user-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSearchBundles(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	inputsJSON, _ := json.Marshal(search.TripInputs{Destination: "Lisbon"})
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	query := regexp.QuoteMeta(`SELECT id, request_id, user_id, inputs, created_at
		 FROM search_bundles WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`)
	mock.ExpectQuery(query).
		WithArgs("user-1", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "request_id", "user_id", "inputs", "created_at"}).
			AddRow("b-2", "req-2", "user-1", inputsJSON, created).
			AddRow("b-1", "req-1", "user-1", inputsJSON, created.Add(-time.Hour)))

	items, err := st.ListSearchBundles(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("ListSearchBundles: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 bundles, got %d", len(items))
	}
	if items[0].ID != "b-2" {
		t.Fatalf("expected newest first, got %q", items[0].ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetUserByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	query := regexp.QuoteMeta(`SELECT id, password_hash FROM users WHERE email = $1`)
	mock.ExpectQuery(query).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}))

	if _, _, err := st.GetUserByEmail(context.Background(), "nobody@example.com"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
