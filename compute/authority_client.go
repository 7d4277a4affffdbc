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

package compute

import (
	"context"
	"net"

	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/innerprod/simple"
	"github.com/fentec-project/fuzzyfe/internal"
	"github.com/fentec-project/fuzzyfe/messages"
	"github.com/pkg/errors"
)

// ErrRejected is returned when the authority refuses to issue keys.
var ErrRejected = errors.New("authority rejected the request")

// KeySource issues a public key and one functional key per vector.
type KeySource interface {
	GenerateInstance(ctx context.Context, typ fuzzyhash.Type, vectors []fuzzyhash.Vector) (*simple.PublicKey, []*simple.FunctionalKey, error)
}

// AuthorityClient requests keys from an instance server over TCP.
type AuthorityClient struct {
	addr   string
	grp    group.Group
	dialer net.Dialer
}

// NewAuthorityClient returns a client of the instance server at addr.
// Keys are expected to be in grp.
func NewAuthorityClient(addr string, grp group.Group) *AuthorityClient {
	return &AuthorityClient{addr: addr, grp: grp}
}

// GenerateInstance sends the vectors to the authority and returns the
// decoded public key and functional keys.
func (a *AuthorityClient) GenerateInstance(ctx context.Context, typ fuzzyhash.Type, vectors []fuzzyhash.Vector) (*simple.PublicKey, []*simple.FunctionalKey, error) {
	conn, err := a.dialer.DialContext(ctx, "tcp", a.addr)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to authority")
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	req := &messages.GenerateInstanceRequest{Type: typ, Vectors: make([][]byte, len(vectors))}
	for i, v := range vectors {
		req.Vectors[i] = v
	}
	if err := messages.Send(conn, req); err != nil {
		return nil, nil, errors.Wrap(err, "send vectors to authority")
	}

	var resp messages.GenerateInstanceResponse
	if err := messages.Receive(conn, &resp); err != nil {
		return nil, nil, errors.Wrap(err, "read authority response")
	}
	if resp.Error != "" {
		return nil, nil, errors.Wrap(ErrRejected, resp.Error)
	}

	return decodeInstance(a.grp, &resp, len(vectors))
}

// decodeInstance decodes the keys of resp and checks they belong to a
// single master key.
func decodeInstance(grp group.Group, resp *messages.GenerateInstanceResponse, n int) (*simple.PublicKey, []*simple.FunctionalKey, error) {
	if resp.PublicKey == nil || len(resp.Keys) != n {
		return nil, nil, errors.Wrapf(internal.ErrMalformedInput, "authority returned %d keys for %d vectors", len(resp.Keys), n)
	}

	pk, err := resp.PublicKey.Decode(grp)
	if err != nil {
		return nil, nil, err
	}
	keys := make([]*simple.FunctionalKey, len(resp.Keys))
	for i, k := range resp.Keys {
		if k == nil {
			return nil, nil, errors.Wrapf(internal.ErrMalformedDecKey, "key %d", i)
		}
		key, err := k.Decode(grp)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "key %d", i)
		}
		if key.Epoch != pk.Epoch {
			return nil, nil, errors.Wrapf(simple.ErrEpochMismatch, "key %d", i)
		}
		keys[i] = key
	}

	return pk, keys, nil
}
