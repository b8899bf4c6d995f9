package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket    = []byte("config")    // Schema version, timestamps
	DatabasesBucket = []byte("databases") // Absolute database path -> DatabaseRecord
	HistoryBucket   = []byte("history")   // One nested bucket of SyncEntry per database ID
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
)

// MaxHistory is the number of sync entries kept per database
const MaxHistory = 100

var ErrDatabaseNotFound = errors.New("database not registered")

// Storage provides the BBolt-backed sync journal
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a journal file
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the journal
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the journal file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure. Calling it again is harmless.
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, DatabasesBucket, HistoryBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the journal has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// GetModified retrieves the time of the last journal write
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// databaseKey normalizes a database path for use as a key
func databaseKey(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return []byte(abs), nil
}

func getRecord(tx *bolt.Tx, key []byte) (*DatabaseRecord, error) {
	databases := tx.Bucket(DatabasesBucket)
	if databases == nil {
		return nil, fmt.Errorf("databases bucket not found")
	}
	data := databases.Get(key)
	if data == nil {
		return nil, ErrDatabaseNotFound
	}
	var rec DatabaseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode database record: %w", err)
	}
	return &rec, nil
}

// GetDatabaseID returns the ID registered for the database at path
func (s *Storage) GetDatabaseID(path string) (string, error) {
	key, err := databaseKey(path)
	if err != nil {
		return "", err
	}

	var id string
	err = s.db.View(func(tx *bolt.Tx) error {
		rec, err := getRecord(tx, key)
		if err != nil {
			return err
		}
		id = rec.ID
		return nil
	})
	return id, err
}

// GetOrCreateDatabaseID returns the database's ID, registering it first if needed
func (s *Storage) GetOrCreateDatabaseID(path string) (string, error) {
	key, err := databaseKey(path)
	if err != nil {
		return "", err
	}

	var id string
	err = s.db.Update(func(tx *bolt.Tx) error {
		rec, err := getOrCreateRecord(tx, key)
		if err != nil {
			return err
		}
		id = rec.ID
		return nil
	})
	return id, err
}

func getOrCreateRecord(tx *bolt.Tx, key []byte) (*DatabaseRecord, error) {
	rec, err := getRecord(tx, key)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrDatabaseNotFound) {
		return nil, err
	}

	rec = &DatabaseRecord{
		ID:      uuid.NewString(),
		Path:    string(key),
		Created: time.Now(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if err := tx.Bucket(DatabasesBucket).Put(key, data); err != nil {
		return nil, err
	}
	return rec, touch(tx)
}

// Databases returns every registered database
func (s *Storage) Databases() ([]DatabaseRecord, error) {
	var records []DatabaseRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		databases := tx.Bucket(DatabasesBucket)
		if databases == nil {
			return nil
		}
		return databases.ForEach(func(k, v []byte) error {
			var rec DatabaseRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// AppendSync records a sync attempt for the database at path, keeping
// only the newest MaxHistory entries.
func (s *Storage) AppendSync(path string, entry SyncEntry) error {
	key, err := databaseKey(path)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		rec, err := getOrCreateRecord(tx, key)
		if err != nil {
			return err
		}

		history, err := tx.Bucket(HistoryBucket).CreateBucketIfNotExists([]byte(rec.ID))
		if err != nil {
			return fmt.Errorf("failed to create history bucket: %w", err)
		}

		seq, err := history.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := history.Put(seqKey(seq), data); err != nil {
			return err
		}

		// Deleting while iterating a cursor skips keys; collect first.
		var keys [][]byte
		c := history.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		var stale [][]byte
		if len(keys) > MaxHistory {
			stale = keys[:len(keys)-MaxHistory]
		}
		for _, k := range stale {
			if err := history.Delete(k); err != nil {
				return err
			}
		}

		return touch(tx)
	})
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// History returns up to limit sync entries for the database at path,
// newest first. A limit of zero or less returns all of them.
func (s *Storage) History(path string, limit int) ([]SyncEntry, error) {
	key, err := databaseKey(path)
	if err != nil {
		return nil, err
	}

	var entries []SyncEntry
	err = s.db.View(func(tx *bolt.Tx) error {
		rec, err := getRecord(tx, key)
		if errors.Is(err, ErrDatabaseNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		history := tx.Bucket(HistoryBucket).Bucket([]byte(rec.ID))
		if history == nil {
			return nil
		}
		c := history.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var entry SyncEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to decode sync entry: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// LastSuccess returns the newest successful sync of the database at path,
// or nil if there is none.
func (s *Storage) LastSuccess(path string) (*SyncEntry, error) {
	entries, err := s.History(path, 0)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Succeeded() {
			return &e, nil
		}
	}
	return nil, nil
}

// Compact creates a compacted copy of the journal, removing unused space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	// Create new database
	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = bolt.Compact(dst, s.db, 0)
	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	// Reopen database
	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
