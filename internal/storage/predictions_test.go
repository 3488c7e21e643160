package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wildtrack/internal/seasonal"
)

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	dbPath := filepath.Join(tempDir, "wildtrack-data.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/for/sure")
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}

	// Closing an already closed store should still be safe
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestStoreAndGetPredictions(t *testing.T) {
	tempDir := t.TempDir()
	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := Record{
			Species: "Tiger",
			Month:   6,
			Ts:      base.Add(time.Duration(i) * time.Minute),
			Prediction: seasonal.Prediction{
				PrimaryBehavior: "hunting_practice",
				ActivityLevel:   "High",
				Success:         true,
			},
		}
		if err := store.StorePrediction(rec); err != nil {
			t.Fatalf("StorePrediction failed: %v", err)
		}
	}

	// A record for a different species inside the same window must not
	// leak into the Tiger query.
	other := Record{
		Species:    "Elephant",
		Month:      6,
		Ts:         base.Add(time.Minute),
		Prediction: seasonal.Prediction{PrimaryBehavior: "foraging", Success: true},
	}
	if err := store.StorePrediction(other); err != nil {
		t.Fatalf("StorePrediction failed: %v", err)
	}

	got, err := store.GetPredictions("Tiger", base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetPredictions failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(got))
	}
	for _, rec := range got {
		if rec.Species != "Tiger" {
			t.Errorf("Unexpected species in results: %s", rec.Species)
		}
		if rec.Prediction.PrimaryBehavior != "hunting_practice" {
			t.Errorf("Prediction payload not preserved: %+v", rec.Prediction)
		}
	}
}

func TestGetPredictions_TimeRange(t *testing.T) {
	tempDir := t.TempDir()
	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rec := Record{
			Species:    "Leopard",
			Month:      6,
			Ts:         base.Add(time.Duration(i) * time.Hour),
			Prediction: seasonal.Prediction{Success: true},
		}
		if err := store.StorePrediction(rec); err != nil {
			t.Fatalf("StorePrediction failed: %v", err)
		}
	}

	// Inclusive window covering records 1..3
	got, err := store.GetPredictions("Leopard", base.Add(time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("GetPredictions failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 records in range, got %d", len(got))
	}
}

func TestGetPredictions_Empty(t *testing.T) {
	tempDir := t.TempDir()
	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	got, err := store.GetPredictions("Tiger", time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("GetPredictions failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no records, got %d", len(got))
	}
}
