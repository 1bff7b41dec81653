package storage

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/Murchiz/Gpucompress/internal/wire"
)

// Bucket names
var (
	ConfigBucket   = []byte("config")   // catalog version and timestamps
	ArchivesBucket = []byte("archives") // record ID -> CBOR Record
	PathsBucket    = []byte("paths")    // absolute archive path -> record ID
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
)

var ErrNotFound = errors.New("archive not found in catalog")

// Catalog is the bbolt database of archives this tool has written.
type Catalog struct {
	db *bolt.DB
}

// Open opens or creates a catalog and makes sure its buckets exist.
func Open(path string) (*Catalog, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.db.Path()
}

func (c *Catalog) initialize() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, ArchivesBucket, PathsBucket} {
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

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// Modified returns when a record was last stored or removed.
func (c *Catalog) Modified() (time.Time, error) {
	var modified time.Time
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigBucket).Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// Put stores rec, assigning an ID if it has none. A record already
// stored for the same path is replaced.
func (c *Catalog) Put(rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Created.IsZero() {
		rec.Created = time.Now()
	}

	data, err := wire.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		archives := tx.Bucket(ArchivesBucket)
		paths := tx.Bucket(PathsBucket)

		if old := paths.Get([]byte(rec.Path)); old != nil && string(old) != rec.ID {
			if err := archives.Delete(old); err != nil {
				return err
			}
		}
		if err := archives.Put([]byte(rec.ID), data); err != nil {
			return err
		}
		if err := paths.Put([]byte(rec.Path), []byte(rec.ID)); err != nil {
			return err
		}
		return touch(tx)
	})
}

// Get returns the record with the given ID.
func (c *Catalog) Get(id string) (*Record, error) {
	var rec *Record
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ArchivesBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		rec = &Record{}
		return wire.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByPath returns the record for an archive path, or nil if the path
// is not cataloged.
func (c *Catalog) FindByPath(path string) (*Record, error) {
	var id []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(PathsBucket).Get([]byte(path)); v != nil {
			// Copy: the slice is only valid during the transaction
			id = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || id == nil {
		return nil, err
	}
	return c.Get(string(id))
}

// Resolve accepts either a record ID, a unique ID prefix, or an archive path.
func (c *Catalog) Resolve(ref string) (*Record, error) {
	if rec, err := c.FindByPath(ref); err != nil || rec != nil {
		return rec, err
	}

	records, err := c.List()
	if err != nil {
		return nil, err
	}
	var match *Record
	for i := range records {
		if len(ref) >= 4 && len(records[i].ID) >= len(ref) && records[i].ID[:len(ref)] == ref {
			if match != nil {
				return nil, fmt.Errorf("ambiguous id prefix %q", ref)
			}
			match = &records[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return match, nil
}

// List returns every record, oldest first.
func (c *Catalog) List() ([]Record, error) {
	var records []Record
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(ArchivesBucket).ForEach(func(k, v []byte) error {
			var rec Record
			if err := wire.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode record %s: %w", k, err)
			}
			records = append(records, rec)
			return nil
		})
	})
	sort.Slice(records, func(i, j int) bool {
		return records[i].Created.Before(records[j].Created)
	})
	return records, err
}

// Delete removes the record with the given ID.
func (c *Catalog) Delete(id string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		archives := tx.Bucket(ArchivesBucket)
		data := archives.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		var rec Record
		if err := wire.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to decode record: %w", err)
		}
		if err := archives.Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(PathsBucket).Delete([]byte(rec.Path)); err != nil {
			return err
		}
		return touch(tx)
	})
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after forgetting archives to reclaim disk space.
func (c *Catalog) Compact() error {
	srcPath := c.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = c.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := c.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	c.db, err = bolt.Open(srcPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	return nil
}
