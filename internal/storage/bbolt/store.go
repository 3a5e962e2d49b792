// Package bbolt provides a BoltDB-backed implementation of the client
// state stores.
package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/scriptoria/webclient/internal/storage"
)

const (
	planBucket      = "plan_selection"
	telemetryBucket = "telemetry"

	planKey = "pending"
)

// Store provides a BoltDB-backed store for persisted client state.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutPlanSelection persists the pending pricing selection.
func (s *Store) PutPlanSelection(ctx context.Context, selection storage.PlanSelection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(selection.Plan) == "" {
		return fmt.Errorf("plan is required")
	}
	if strings.TrimSpace(selection.BillingPeriod) == "" {
		return fmt.Errorf("billing period is required")
	}

	payload, err := json.Marshal(selection)
	if err != nil {
		return fmt.Errorf("marshal plan selection: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(planBucket))
		if bucket == nil {
			return fmt.Errorf("plan selection bucket is missing")
		}
		return bucket.Put([]byte(planKey), payload)
	})
}

// TakePlanSelection returns the pending selection and deletes it in the
// same transaction, so a selection is consumed at most once.
func (s *Store) TakePlanSelection(ctx context.Context) (storage.PlanSelection, error) {
	if err := ctx.Err(); err != nil {
		return storage.PlanSelection{}, err
	}
	if s == nil || s.db == nil {
		return storage.PlanSelection{}, fmt.Errorf("storage is not configured")
	}

	var selection storage.PlanSelection
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(planBucket))
		if bucket == nil {
			return fmt.Errorf("plan selection bucket is missing")
		}
		payload := bucket.Get([]byte(planKey))
		if payload == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(payload, &selection); err != nil {
			return fmt.Errorf("unmarshal plan selection: %w", err)
		}
		return bucket.Delete([]byte(planKey))
	})
	if err != nil {
		return storage.PlanSelection{}, err
	}
	return selection, nil
}

// AppendTelemetryEvent appends one telemetry event under a sequence key.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.Kind) == "" {
		return fmt.Errorf("event kind is required")
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal telemetry event: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(telemetryBucket))
		if bucket == nil {
			return fmt.Errorf("telemetry bucket is missing")
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("next telemetry sequence: %w", err)
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, payload)
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{planBucket, telemetryBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
