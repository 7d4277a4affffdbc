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

// Package client implements the querying side of a fuzzy hash
// comparison. The client encrypts its hash under the public keys sent by
// the compute server and learns the best similarity score to the
// server's hashes, while the server learns only that score.
package client

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"
	"net"
	"sync"

	"github.com/fentec-project/fuzzyfe/data"
	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/innerprod/simple"
	"github.com/fentec-project/fuzzyfe/internal"
	"github.com/fentec-project/fuzzyfe/messages"
	"github.com/pkg/errors"
)

// ErrNoScore is returned when the server ends the comparison without
// a score, which happens when it holds no hashes of the requested type.
var ErrNoScore = errors.New("server returned no similarity score")

// Client compares fuzzy hashes with a compute server.
type Client struct {
	addr   string
	rand   io.Reader
	stopAt *int64
	dialer net.Dialer

	mu   sync.Mutex
	ddhs map[string]*simple.DDH
}

// New returns a client of the compute server at addr.
func New(addr string) *Client {
	return &Client{
		addr: addr,
		rand: rand.Reader,
		ddhs: make(map[string]*simple.DDH),
	}
}

// WithRandom sets the source of encryption randomness.
func (c *Client) WithRandom(r io.Reader) *Client {
	c.rand = r
	return c
}

// StopAt makes the client end the comparison once the best score
// reaches score.
func (c *Client) StopAt(score int64) *Client {
	c.stopAt = &score
	return c
}

// Compare connects to the server and returns the best similarity score
// between digest and the server's hashes of type typ.
func (c *Client) Compare(ctx context.Context, typ fuzzyhash.Type, digest []byte) (int64, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return 0, errors.Wrap(err, "connect to compute server")
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	return c.CompareOn(conn, typ, digest)
}

// CompareOn runs the comparison on an established connection.
func (c *Client) CompareOn(rw io.ReadWriter, typ fuzzyhash.Type, digest []byte) (int64, error) {
	if _, err := fuzzyhash.ParseType(string(typ)); err != nil {
		return 0, err
	}
	v, err := fuzzyhash.NewNilsimsaVector(digest)
	if err != nil {
		return 0, err
	}
	x := v.Bits()

	if err := messages.Send(rw, &messages.HashComparisonRequest{Type: typ}); err != nil {
		return 0, errors.Wrap(err, "send comparison request")
	}

	var best *int64
	for {
		var req messages.EncryptionRequest
		if err := messages.Receive(rw, &req); err != nil {
			return 0, errors.Wrap(err, "read encryption request")
		}
		if req.Score != nil && (best == nil || *req.Score > *best) {
			best = req.Score
		}
		if req.PublicKey == nil {
			break
		}

		if best != nil && c.stopAt != nil && *best >= *c.stopAt {
			if err := messages.Send(rw, &messages.EncryptionResponse{EndOfComparison: true}); err != nil {
				return 0, errors.Wrap(err, "end comparison")
			}
			return *best, nil
		}

		ct, err := c.encrypt(typ, x, req.PublicKey)
		if err != nil {
			return 0, err
		}
		if err := messages.Send(rw, &messages.EncryptionResponse{Ciphertext: ct}); err != nil {
			return 0, errors.Wrap(err, "send ciphertext")
		}
	}

	if best == nil {
		return 0, ErrNoScore
	}
	return *best, nil
}

// encrypt encrypts x under the public key sent by the server.
func (c *Client) encrypt(typ fuzzyhash.Type, x data.Vector, wire *messages.PublicKey) (*messages.Ciphertext, error) {
	grp, err := group.ByName(wire.Group)
	if err != nil {
		return nil, errors.Wrap(internal.ErrMalformedPubKey, err.Error())
	}
	pk, err := wire.Decode(grp)
	if err != nil {
		return nil, err
	}
	ddh, err := c.scheme(typ, grp)
	if err != nil {
		return nil, err
	}
	ct, err := ddh.Encrypt(x, pk, c.rand)
	if err != nil {
		return nil, err
	}
	return messages.NewCiphertext(ct), nil
}

func (c *Client) scheme(typ fuzzyhash.Type, grp group.Group) (*simple.DDH, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := string(typ) + "/" + grp.Name()
	if ddh, ok := c.ddhs[name]; ok {
		return ddh, nil
	}
	ddh, err := simple.NewDDH(typ.VectorBits(), big.NewInt(2), grp)
	if err != nil {
		return nil, err
	}
	c.ddhs[name] = ddh
	return ddh, nil
}
