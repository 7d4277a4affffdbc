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

	"github.com/fentec-project/fuzzyfe/authority"
	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/innerprod/simple"
	"github.com/fentec-project/fuzzyfe/messages"
	"github.com/pkg/errors"
)

// LocalAuthority issues keys from an authority server running in the
// same process. The keys are charged to the requester "local".
type LocalAuthority struct {
	srv *authority.Server
	grp group.Group
}

// NewLocalAuthority returns a KeySource backed by srv, which issues
// keys in grp.
func NewLocalAuthority(srv *authority.Server, grp group.Group) *LocalAuthority {
	return &LocalAuthority{srv: srv, grp: grp}
}

// GenerateInstance implements KeySource.
func (l *LocalAuthority) GenerateInstance(ctx context.Context, typ fuzzyhash.Type, vectors []fuzzyhash.Vector) (*simple.PublicKey, []*simple.FunctionalKey, error) {
	req := &messages.GenerateInstanceRequest{Type: typ, Vectors: make([][]byte, len(vectors))}
	for i, v := range vectors {
		req.Vectors[i] = v
	}
	resp, err := l.srv.GenerateInstance(ctx, "local", req)
	if err != nil {
		return nil, nil, errors.Wrap(ErrRejected, err.Error())
	}
	return decodeInstance(l.grp, resp, len(vectors))
}
