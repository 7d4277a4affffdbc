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

package client_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fentec-project/fuzzyfe/authority"
	"github.com/fentec-project/fuzzyfe/client"
	"github.com/fentec-project/fuzzyfe/compute"
	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/internal"
	"github.com/fentec-project/fuzzyfe/messages"
	"github.com/fentec-project/fuzzyfe/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) net.Listener {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return lis
}

// TestComparison runs the instance server, the compute server and the
// client against each other over TCP.
func TestComparison(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	grp := group.Ristretto255()

	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Populate(ctx, 6, nil)
	require.NoError(t, err)
	dog := fuzzyhash.Sum([]byte("The quick brown fox jumps over the lazy dog"))
	require.NoError(t, db.Insert(ctx, fuzzyhash.TypeNilsimsa, dog[:]))

	authLis := listen(t)
	auth := authority.NewServer(grp, authority.NewMemoryLimiter(10000, time.Hour))
	go auth.Serve(ctx, authLis)
	defer auth.Close()

	computeLis := listen(t)
	srv, err := compute.NewServer(grp, db, compute.NewAuthorityClient(authLis.Addr().String(), grp),
		compute.Options{BatchSize: 3, Workers: 2})
	require.NoError(t, err)
	go srv.Serve(ctx, computeLis)
	defer srv.Close()

	c := client.New(computeLis.Addr().String())
	cat := fuzzyhash.Sum([]byte("The quick brown fox jumps over the lazy cat"))
	score, err := c.Compare(ctx, fuzzyhash.TypeNilsimsa, cat[:])
	require.NoError(t, err)
	assert.Equal(t, int64(112), score)

	// the same client serves several comparisons
	score, err = c.Compare(ctx, fuzzyhash.TypeNilsimsa, dog[:])
	require.NoError(t, err)
	assert.Equal(t, int64(128), score)
}

func TestClient_CompareRejectsInput(t *testing.T) {
	c := client.New("")
	d := fuzzyhash.Sum([]byte("abcdefgh"))

	_, err := c.CompareOn(nil, fuzzyhash.Type("ssdeep"), d[:])
	assert.True(t, errors.Is(err, fuzzyhash.ErrUnknownType))
	_, err = c.CompareOn(nil, fuzzyhash.TypeNilsimsa, d[:10])
	assert.True(t, errors.Is(err, fuzzyhash.ErrDigestSize))
}

func TestClient_CompareRejectsUnknownGroup(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go func() {
		defer serverConn.Close()
		var req messages.HashComparisonRequest
		if err := messages.Receive(serverConn, &req); err != nil {
			return
		}
		messages.Send(serverConn, &messages.EncryptionRequest{
			PublicKey: &messages.PublicKey{Group: "p256", Elements: [][]byte{{1}}},
		})
	}()

	d := fuzzyhash.Sum([]byte("abcdefgh"))
	_, err := client.New("").CompareOn(clientConn, fuzzyhash.TypeNilsimsa, d[:])
	assert.True(t, errors.Is(err, internal.ErrMalformedPubKey))
}

func TestClient_CompareScoreOnly(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go func() {
		defer serverConn.Close()
		var req messages.HashComparisonRequest
		if err := messages.Receive(serverConn, &req); err != nil {
			return
		}
		score := int64(-3)
		messages.Send(serverConn, &messages.EncryptionRequest{Score: &score})
	}()

	d := fuzzyhash.Sum([]byte("abcdefgh"))
	score, err := client.New("").CompareOn(clientConn, fuzzyhash.TypeNilsimsa, d[:])
	require.NoError(t, err)
	assert.Equal(t, int64(-3), score)
}
