// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package trackdb archives the records of every run in a bolt database.
package trackdb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dashgps/pkg/extract"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const (
	dbAPIversion = "1"
	// dbAPIversion = "-1" // Testing.
)

const defaultMaxKeys = 1000000

// Key layout: run start (u64 BE unix nano), run id, sequence (u32 BE).
const (
	keyTimeSize = 8
	keyRunSize  = 16
	keySeqSize  = 4
	keySize     = keyTimeSize + keyRunSize + keySeqSize
)

// Entry stored record.
type Entry struct {
	RunID    uuid.UUID `json:"runId"`
	RunStart time.Time `json:"runStart"`
	Seq      uint32    `json:"seq"`
	extract.Record
}

// DB track database.
type DB struct {
	dbPath  string
	maxKeys int

	db *bolt.DB
}

// NewDB new track database.
func NewDB(dbPath string) *DB {
	return &DB{
		dbPath:  dbPath,
		maxKeys: defaultMaxKeys,
	}
}

// Open opens or creates the database.
func (d *DB) Open() error {
	dbOpts := &bolt.Options{
		Timeout: 1 * time.Second,
	}

	db, err := bolt.Open(d.dbPath, 0o600, dbOpts)
	if err != nil {
		return fmt.Errorf("could not open database: %w: %v", err, d.dbPath)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(dbAPIversion))
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("could not create bucket: %v, %w", dbAPIversion, err)
	}

	d.db = db
	return nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// ErrTooManyRecords run does not fit the sequence number.
var ErrTooManyRecords = errors.New("too many records")

// SaveRun saves the records of a single run in one transaction.
// The oldest keys are deleted when the database is full.
func (d *DB) SaveRun(runID uuid.UUID, start time.Time, records []extract.Record) error {
	if uint64(len(records)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: %d", ErrTooManyRecords, len(records))
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(dbAPIversion))

		// Stats only sees committed pages.
		keyN := b.Stats().KeyN
		for i, record := range records {
			entry := Entry{
				RunID:    runID,
				RunStart: start.UTC(),
				Seq:      uint32(i),
				Record:   record,
			}
			value, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal record %d: %w", i, err)
			}

			if keyN >= d.maxKeys {
				if err := deleteFirstKey(b); err != nil {
					return fmt.Errorf("could not delete first key: %w", err)
				}
				keyN--
			}
			if err := b.Put(encodeKey(start, runID, uint32(i)), value); err != nil {
				return err
			}
			keyN++
		}
		return nil
	})
}

func deleteFirstKey(b *bolt.Bucket) error {
	k, _ := b.Cursor().First()
	if k == nil {
		return nil
	}
	return b.Delete(k)
}

// Query database query. From is inclusive, To is exclusive,
// both match the run start time and are ignored if zero.
type Query struct {
	From  time.Time
	To    time.Time
	RunID uuid.UUID // Ignored if nil.
	Limit int
}

// Query returns the matching entries ordered by run start and sequence.
func (d *DB) Query(q Query) ([]Entry, error) {
	var entries []Entry

	limit := q.Limit
	if limit == 0 {
		limit = d.maxKeys
	}

	var toKey []byte
	if !q.To.IsZero() {
		toKey = encodeTime(q.To)
	}

	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(dbAPIversion)).Cursor()

		var key, value []byte
		if q.From.IsZero() {
			key, value = c.First()
		} else {
			key, value = c.Seek(encodeTime(q.From))
		}

		for ; key != nil && len(entries) < limit; key, value = c.Next() {
			if toKey != nil && bytes.Compare(key[:keyTimeSize], toKey) >= 0 {
				return nil
			}
			if q.RunID != uuid.Nil && !bytes.Equal(key[keyTimeSize:keyTimeSize+keyRunSize], q.RunID[:]) {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(value, &entry); err != nil {
				return fmt.Errorf("could not unmarshal entry: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func encodeTime(t time.Time) []byte {
	output := make([]byte, keyTimeSize)
	binary.BigEndian.PutUint64(output, uint64(t.UnixNano()))
	return output
}

func encodeKey(start time.Time, runID uuid.UUID, seq uint32) []byte {
	output := make([]byte, keySize)
	copy(output, encodeTime(start))
	copy(output[keyTimeSize:], runID[:])
	binary.BigEndian.PutUint32(output[keyTimeSize+keyRunSize:], seq)
	return output
}
