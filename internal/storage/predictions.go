// Package storage provides persistent storage for prediction records.
// It uses BoltDB as the underlying storage engine so the service can keep
// an audit trail of the predictions it served, queryable by species and
// time range.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"wildtrack/internal/seasonal"
)

const predictionsBucket = "predictions" // Bucket name for stored prediction records

// Record is a single served prediction together with the request that
// produced it and the time it was served.
type Record struct {
	Species    string              `json:"species"`
	Month      int                 `json:"month"`
	Ts         time.Time           `json:"ts"`
	Prediction seasonal.Prediction `json:"prediction"`
}

// Store provides persistent storage for prediction records using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New creates a new storage instance under the specified data path.
// It initializes the BoltDB database and creates the predictions bucket.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "wildtrack-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StorePrediction stores a prediction record. The record is keyed by
// "species_timestamp" so range queries per species stay cheap.
func (s *Store) StorePrediction(rec Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}

		key := fmt.Sprintf("%s_%d", rec.Species, rec.Ts.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// GetPredictions retrieves prediction records for a species within a time
// range. The range is inclusive of both start and end times.
func (s *Store) GetPredictions(species string, start, end time.Time) ([]Record, error) {
	var records []Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		c := b.Cursor()

		prefix := []byte(species + "_")
		startKey := []byte(fmt.Sprintf("%s_%d", species, start.UnixNano()))
		endKey := []byte(fmt.Sprintf("%s_%d", species, end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}

			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}

		return nil
	})

	return records, err
}
