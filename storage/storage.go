/*
 * Copyright (c) 2018 XLAB d.o.o
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package storage keeps the fuzzy hashes the compute server compares
// against in a SQLite database.
package storage

import (
	"context"
	"database/sql"
	"io"
	"math/big"

	"github.com/fentec-project/fuzzyfe/data"
	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/sample"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrDuplicate is returned when inserting a digest that is already stored.
var ErrDuplicate = errors.New("fuzzy hash already stored")

func createFuzzyHashTable() string {
	return `
		CREATE TABLE IF NOT EXISTS fuzzy_hashes (
			fh BLOB PRIMARY KEY,
			type TEXT
		);
	`
}

var bigByte = big.NewInt(256)

// DB is a database of fuzzy hashes.
type DB struct {
	db *sql.DB
}

// Open opens the SQLite database at path, creating it and the
// fuzzy_hashes table if needed. Use ":memory:" for a private in-memory
// database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// an in-memory database lives as long as its connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createFuzzyHashTable()); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create table")
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Insert stores a digest of the given type.
func (d *DB) Insert(ctx context.Context, typ fuzzyhash.Type, digest []byte) error {
	if typ.DigestSize() == 0 {
		return errors.Wrapf(fuzzyhash.ErrUnknownType, "%q", typ)
	}
	if len(digest) != typ.DigestSize() {
		return errors.Wrapf(fuzzyhash.ErrDigestSize, "got %d bytes, expected %d", len(digest), typ.DigestSize())
	}

	res, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO fuzzy_hashes (fh, type) VALUES (?, ?)`, digest, string(typ))
	if err != nil {
		return errors.Wrap(err, "insert fuzzy hash")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicate
	}
	return nil
}

// HashesByType returns all stored digests of the given type. Digests of
// the wrong length are reported as an error.
func (d *DB) HashesByType(ctx context.Context, typ fuzzyhash.Type) ([][]byte, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT fh FROM fuzzy_hashes WHERE type = ? ORDER BY rowid`, string(typ))
	if err != nil {
		return nil, errors.Wrap(err, "query fuzzy hashes")
	}
	defer rows.Close()

	var hashes [][]byte
	for rows.Next() {
		var fh []byte
		if err := rows.Scan(&fh); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		if len(fh) != typ.DigestSize() {
			return nil, errors.Wrapf(fuzzyhash.ErrDigestSize, "malformed %s hash in database", typ)
		}
		hashes = append(hashes, fh)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return hashes, nil
}

// Count returns the number of stored digests of the given type.
func (d *DB) Count(ctx context.Context, typ fuzzyhash.Type) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fuzzy_hashes WHERE type = ?`, string(typ)).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count fuzzy hashes")
	}
	return n, nil
}

// Populate inserts n random Nilsimsa digests read from random in a
// single transaction. It returns the inserted digests.
func (d *DB) Populate(ctx context.Context, n int, random io.Reader) ([][]byte, error) {
	sampler := sample.NewUniform(bigByte).WithReader(random)
	return d.populate(ctx, n, func() ([]byte, error) {
		v, err := data.NewRandomVector(fuzzyhash.Size, sampler)
		if err != nil {
			return nil, errors.Wrap(err, "sample digest")
		}
		return digestFromVector(v), nil
	})
}

// PopulateSeeded inserts n pseudo-random Nilsimsa digests derived from
// key. The same key inserts the same digests into an empty database.
func (d *DB) PopulateSeeded(ctx context.Context, n int, key *[32]byte) ([][]byte, error) {
	var stream data.Vector
	next := 0
	return d.populate(ctx, n, func() ([]byte, error) {
		if next+fuzzyhash.Size > len(stream) {
			// longer streams extend shorter ones, so skipped digests are not repeated
			size := 2 * len(stream)
			if size < n*fuzzyhash.Size {
				size = n * fuzzyhash.Size
			}
			v, err := data.NewRandomDetVector(size, bigByte, key)
			if err != nil {
				return nil, errors.Wrap(err, "derive digests")
			}
			stream = v
		}
		digest := digestFromVector(stream[next : next+fuzzyhash.Size])
		next += fuzzyhash.Size
		return digest, nil
	})
}

// populate inserts digests drawn from next until n new ones are stored.
func (d *DB) populate(ctx context.Context, n int, next func() ([]byte, error)) ([][]byte, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO fuzzy_hashes (fh, type) VALUES (?, ?)`)
	if err != nil {
		return nil, errors.Wrap(err, "prepare statement")
	}
	defer stmt.Close()

	digests := make([][]byte, 0, n)
	for len(digests) < n {
		digest, err := next()
		if err != nil {
			return nil, err
		}

		res, err := stmt.ExecContext(ctx, digest, string(fuzzyhash.TypeNilsimsa))
		if err != nil {
			return nil, errors.Wrap(err, "insert fuzzy hash")
		}
		if k, err := res.RowsAffected(); err == nil && k == 1 {
			digests = append(digests, digest)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return digests, nil
}

func digestFromVector(v data.Vector) []byte {
	digest := make([]byte, len(v))
	for i, c := range v {
		digest[i] = byte(c.Uint64())
	}
	return digest
}
