package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/adithyagurusai/media-extractor/pkg/log"
	"github.com/adithyagurusai/media-extractor/pkg/models"
	"github.com/adithyagurusai/media-extractor/pkg/utils"
)

const (
	artifactKeyPrefix = "artifact:"   // Prefix for artifact outcome keys
	ledgerDBDir       = "artifact_db" // Subdirectory name within stateDir for Badger DB files
)

// ArtifactLedger records per-artifact download outcomes so interrupted or
// repeated runs skip work that already succeeded. Keys pair the scope's
// output path with the canonical asset URL: the same URL stored in two scopes
// is two artifacts.
type ArtifactLedger interface {
	// Lookup returns the recorded outcome for an artifact, or nil if the
	// artifact has never been attempted.
	Lookup(scopePath, canonicalURL string) (*models.ArtifactEntry, error)
	// Record persists an artifact outcome, overwriting any earlier attempt.
	Record(scopePath, canonicalURL string, entry *models.ArtifactEntry) error
	Close() error
}

// BadgerLedger implements ArtifactLedger using BadgerDB
type BadgerLedger struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerLedger initializes the ledger under stateDir. With fresh set, any
// existing ledger state is removed first and every artifact is re-attempted.
func NewBadgerLedger(stateDir string, fresh bool, logger *logrus.Entry) (*BadgerLedger, error) {
	dbPath := filepath.Join(stateDir, ledgerDBDir)

	if fresh {
		logger.Warnf("Fresh run requested. REMOVING existing ledger state: %s", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			logger.Errorf("Failed to remove existing ledger state %s: %v", dbPath, err)
		}
	}

	logger.Infof("Initializing artifact ledger at: %s (fresh: %v)", dbPath, fresh)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dbPath, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1) // Only the latest outcome per artifact matters

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", dbPath, err)
	}

	logger.Info("Artifact ledger initialized successfully.")
	return &BadgerLedger{db: db, log: logger}, nil
}

func ledgerKey(scopePath, canonicalURL string) []byte {
	return []byte(artifactKeyPrefix + scopePath + "|" + canonicalURL)
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Concurrent MVCC transactions on overlapping keys can return badger.ErrConflict;
// these resolve in microseconds, so a tight retry loop is sufficient.
func (l *BadgerLedger) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := l.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		l.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// Lookup implements the ArtifactLedger interface
func (l *BadgerLedger) Lookup(scopePath, canonicalURL string) (*models.ArtifactEntry, error) {
	if l.db == nil {
		return nil, errors.New("ledger not initialized")
	}
	key := ledgerKey(scopePath, canonicalURL)
	var entry *models.ArtifactEntry

	errView := l.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil // Never attempted; not an error
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting artifact key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}

		return item.Value(func(val []byte) error {
			var decoded models.ArtifactEntry
			if errJson := json.Unmarshal(val, &decoded); errJson != nil {
				l.log.Warnf("Failed to unmarshal ArtifactEntry for key '%s': %v. Treating as never attempted.", string(key), errJson)
				return nil
			}
			entry = &decoded
			return nil
		})
	})

	if errView != nil {
		l.log.Errorf("DB View error in Lookup for key '%s': %v", string(key), errView)
		return nil, errView
	}
	return entry, nil
}

// Record implements the ArtifactLedger interface
func (l *BadgerLedger) Record(scopePath, canonicalURL string, entry *models.ArtifactEntry) error {
	if l.db == nil {
		return errors.New("ledger not initialized")
	}
	key := ledgerKey(scopePath, canonicalURL)

	entryBytes, errJson := json.Marshal(entry)
	if errJson != nil {
		wrappedErr := fmt.Errorf("%w: failed to marshal ArtifactEntry for key '%s': %w", utils.ErrParsing, string(key), errJson)
		l.log.Error(wrappedErr)
		return wrappedErr
	}

	err := l.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, entryBytes))
	})
	if err != nil {
		l.log.WithField("key", string(key)).Errorf("DB Update error in Record: %v", err)
		return fmt.Errorf("%w: failed recording artifact outcome for key '%s': %w", utils.ErrDatabase, string(key), err)
	}

	l.log.Debugf("Recorded artifact outcome '%s' for key '%s'", entry.Status, string(key))
	return nil
}

// RunGC runs BadgerDB's value log garbage collection periodically
func (l *BadgerLedger) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.log.Info("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if l.db == nil || l.db.IsClosed() {
				continue
			}

			var err error
			for {
				// Run GC while the value log is at least 50% reclaimable
				err = l.db.RunValueLogGC(0.5)
				if err != nil {
					break
				}
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				l.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			l.log.Infof("Stopping BadgerDB garbage collection goroutine: %v", ctx.Err())
			return
		}
	}
}

// Close implements the ArtifactLedger interface
func (l *BadgerLedger) Close() error {
	if l.db != nil && !l.db.IsClosed() {
		l.log.Info("Closing artifact ledger...")
		if err := l.db.Close(); err != nil {
			l.log.Errorf("Error closing artifact ledger: %v", err)
			return err
		}
		l.log.Info("Artifact ledger closed.")
		return nil
	}
	l.log.Info("Artifact ledger already closed or was not initialized.")
	return nil
}
