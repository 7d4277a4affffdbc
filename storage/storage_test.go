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

package storage_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	n, err := db.Count(ctx, fuzzyhash.TypeNilsimsa)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	a := fuzzyhash.Sum([]byte("The quick brown fox jumps over the lazy dog"))
	b := fuzzyhash.Sum([]byte("The quick brown fox jumps over the lazy cat"))
	require.NoError(t, db.Insert(ctx, fuzzyhash.TypeNilsimsa, a[:]))
	require.NoError(t, db.Insert(ctx, fuzzyhash.TypeNilsimsa, b[:]))

	err = db.Insert(ctx, fuzzyhash.TypeNilsimsa, a[:])
	assert.Equal(t, storage.ErrDuplicate, err)
	err = db.Insert(ctx, fuzzyhash.TypeNilsimsa, a[:4])
	assert.True(t, errors.Is(err, fuzzyhash.ErrDigestSize))
	err = db.Insert(ctx, fuzzyhash.Type("ssdeep"), a[:])
	assert.True(t, errors.Is(err, fuzzyhash.ErrUnknownType))

	hashes, err := db.HashesByType(ctx, fuzzyhash.TypeNilsimsa)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{a[:], b[:]}, hashes)

	hashes, err = db.HashesByType(ctx, fuzzyhash.Type("ssdeep"))
	require.NoError(t, err)
	assert.Empty(t, hashes)
}

func TestDB_Populate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hashes.db")
	db, err := storage.Open(path)
	require.NoError(t, err)

	digests, err := db.Populate(ctx, 100, rand.Reader)
	require.NoError(t, err)
	assert.Len(t, digests, 100)
	require.NoError(t, db.Close())

	// reopen
	db, err = storage.Open(path)
	require.NoError(t, err)
	defer db.Close()

	n, err := db.Count(ctx, fuzzyhash.TypeNilsimsa)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	hashes, err := db.HashesByType(ctx, fuzzyhash.TypeNilsimsa)
	require.NoError(t, err)
	assert.Equal(t, digests, hashes)
}

func TestDB_PopulateShortRead(t *testing.T) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Populate(context.Background(), 10, bytes.NewReader(make([]byte, 16)))
	assert.Error(t, err)

	n, err := db.Count(context.Background(), fuzzyhash.TypeNilsimsa)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "failed population is rolled back")
}

func TestDB_PopulateSeeded(t *testing.T) {
	ctx := context.Background()
	key := [32]byte{1, 2, 3}

	open := func() *storage.DB {
		db, err := storage.Open(":memory:")
		require.NoError(t, err)
		return db
	}
	a, b := open(), open()
	defer a.Close()
	defer b.Close()

	da, err := a.PopulateSeeded(ctx, 5, &key)
	require.NoError(t, err)
	db, err := b.PopulateSeeded(ctx, 5, &key)
	require.NoError(t, err)
	assert.Len(t, da, 5)
	assert.Equal(t, da, db, "same key should insert the same digests")

	// seeding an already seeded database adds new digests
	more, err := a.PopulateSeeded(ctx, 5, &key)
	require.NoError(t, err)
	assert.Len(t, more, 5)
	for _, d := range more {
		assert.NotContains(t, da, d)
	}
	n, err := a.Count(ctx, fuzzyhash.TypeNilsimsa)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	other := [32]byte{3, 2, 1}
	c := open()
	defer c.Close()
	dc, err := c.PopulateSeeded(ctx, 5, &other)
	require.NoError(t, err)
	assert.NotEqual(t, da, dc)
}
