/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package vfs

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/gofrs/flock"
	bolt "go.etcd.io/bbolt"
)

const filesBucket = "files"

// Snapshot persists a VFS as the "pickle-like binary snapshot... keyed by
// firmware name" artifact spec §6 names (`eval/<firmware>/db/combined_fs.bin`).
// One bolt bucket holds one gob-encoded FilePolicy per canonical path;
// mount points are not persisted (they are boot-time-only bookkeeping, not
// part of the analysis artifact downstream passes consume).
type Snapshot struct {
	dbPath string
}

func NewSnapshot(dbPath string) *Snapshot { return &Snapshot{dbPath: dbPath} }

// Save writes v to the snapshot's bolt file, taking an advisory file lock
// for the duration of the write. Spec §5: "the only scoped external
// resource is the labelled VFS; it is released when the analysis artifact
// is serialized."
func (s *Snapshot) Save(v *VFS) error {
	lock := flock.New(s.dbPath + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("vfs: acquiring snapshot lock: %w", err)
	}
	defer lock.Unlock()

	db, err := bolt.Open(s.dbPath, 0o644, nil)
	if err != nil {
		return fmt.Errorf("vfs: opening snapshot db: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(filesBucket))
		if err != nil {
			return err
		}
		for _, p := range v.Paths() {
			fp := v.files[p]
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(fp); err != nil {
				return fmt.Errorf("vfs: encoding %s: %w", p, err)
			}
			if err := b.Put([]byte(p), buf.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load reads a previously-saved snapshot back into a fresh VFS. Mount
// points are not restored (see Save).
func (s *Snapshot) Load() (*VFS, error) {
	lock := flock.New(s.dbPath + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("vfs: acquiring snapshot lock: %w", err)
	}
	defer lock.Unlock()

	db, err := bolt.Open(s.dbPath, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("vfs: opening snapshot db: %w", err)
	}
	defer db.Close()

	v := NewVFS()
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(filesBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, val []byte) error {
			var fp FilePolicy
			if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&fp); err != nil {
				return fmt.Errorf("vfs: decoding %s: %w", k, err)
			}
			v.files[string(k)] = &fp
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}
