package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"songbench/internal/runner"
)

const (
	BucketRuns = "runs"
)

var ErrNotFound = errors.New("run not found")

type HistoryItem struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Config    runner.Config `json:"config"`
	Summary   RunSummary    `json:"summary"`
}

type RunSummary struct {
	TotalRequests uint64        `json:"total_requests"`
	Success       uint64        `json:"success"`
	Fail          uint64        `json:"fail"`
	Bytes         uint64        `json:"bytes"`
	RunTime       time.Duration `json:"run_time"`
	ActualRPS     float64       `json:"actual_rps"`
	AvgLatencyMs  float64       `json:"avg_latency_ms"`
	P50LatencyMs  float64       `json:"p50_latency_ms"`
	P99LatencyMs  float64       `json:"p99_latency_ms"`
}

// NewHistoryItem captures a finished run.
func NewHistoryItem(r *runner.Runner) HistoryItem {
	s := r.Stats
	runTime := r.Elapsed()

	rps := 0.0
	if runTime > 0 {
		rps = float64(s.Requests) / runTime.Seconds()
	}

	return HistoryItem{
		ID:        r.ID,
		Timestamp: time.Now(),
		Config:    r.Cfg,
		Summary: RunSummary{
			TotalRequests: s.Requests,
			Success:       s.Success,
			Fail:          s.Fail,
			Bytes:         s.Bytes,
			RunTime:       runTime,
			ActualRPS:     rps,
			AvgLatencyMs:  s.AvgServiceMs(),
			P50LatencyMs:  s.GetP50Service(),
			P99LatencyMs:  s.GetP99Service(),
		},
	}
}

type Store struct {
	db *bbolt.DB
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}

	// Initialize Buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores item keyed by timestamp so cursors iterate in run order.
func (s *Store) Save(item HistoryItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))

		data, err := json.Marshal(item)
		if err != nil {
			return err
		}

		return b.Put(key(item), data)
	})
}

func key(item HistoryItem) []byte {
	return []byte(fmt.Sprintf("%020d_%s", item.Timestamp.UnixNano(), item.ID))
}

// List returns up to limit items, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]HistoryItem, error) {
	var items []HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(BucketRuns)).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(items) >= limit {
				break
			}
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			items = append(items, item)
		}
		return nil
	})

	return items, err
}

func (s *Store) Get(id string) (*HistoryItem, error) {
	var found *HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketRuns)).ForEach(func(_, v []byte) error {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			if item.ID == id {
				found = &item
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}
