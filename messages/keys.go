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

package messages

import (
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/innerprod/simple"
	"github.com/fentec-project/fuzzyfe/internal"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// PublicKey is the wire form of simple.PublicKey.
type PublicKey struct {
	Group    string    `json:"group"`
	Epoch    uuid.UUID `json:"epoch"`
	Elements [][]byte  `json:"elements"`
}

// FunctionalKey is the wire form of simple.FunctionalKey.
type FunctionalKey struct {
	Epoch uuid.UUID `json:"epoch"`
	Key   []byte    `json:"key"`
}

// Ciphertext is the wire form of simple.Ciphertext.
type Ciphertext struct {
	Epoch uuid.UUID `json:"epoch"`
	C0    []byte    `json:"c0"`
	C     [][]byte  `json:"c"`
}

func encodeElements(es []group.Element) [][]byte {
	res := make([][]byte, len(es))
	for i, e := range es {
		res[i] = e.Bytes()
	}
	return res
}

func decodeElements(grp group.Group, bs [][]byte) ([]group.Element, error) {
	res := make([]group.Element, len(bs))
	for i, b := range bs {
		e, err := grp.DecodeElement(b)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		res[i] = e
	}
	return res, nil
}

// NewPublicKey returns the wire form of pk.
func NewPublicKey(pk *simple.PublicKey) *PublicKey {
	return &PublicKey{
		Group:    pk.Group.Name(),
		Epoch:    pk.Epoch,
		Elements: encodeElements(pk.H),
	}
}

// Decode parses the public key. It fails if the key was built over a
// group other than grp or if an element is not in grp.
func (p *PublicKey) Decode(grp group.Group) (*simple.PublicKey, error) {
	if p.Group != grp.Name() {
		return nil, errors.Wrapf(internal.ErrMalformedPubKey, "group %q, expected %q", p.Group, grp.Name())
	}
	h, err := decodeElements(grp, p.Elements)
	if err != nil {
		return nil, errors.Wrap(err, "public key")
	}
	return &simple.PublicKey{Group: grp, Epoch: p.Epoch, H: h}, nil
}

// NewFunctionalKey returns the wire form of key.
func NewFunctionalKey(key *simple.FunctionalKey) *FunctionalKey {
	return &FunctionalKey{
		Epoch: key.Epoch,
		Key:   key.Key.Bytes(),
	}
}

// Decode parses the functional key as a scalar of grp.
func (k *FunctionalKey) Decode(grp group.Group) (*simple.FunctionalKey, error) {
	s, err := grp.DecodeScalar(k.Key)
	if err != nil {
		return nil, errors.Wrap(err, "functional key")
	}
	return &simple.FunctionalKey{Epoch: k.Epoch, Key: s}, nil
}

// NewCiphertext returns the wire form of ct.
func NewCiphertext(ct *simple.Ciphertext) *Ciphertext {
	return &Ciphertext{
		Epoch: ct.Epoch,
		C0:    ct.C0.Bytes(),
		C:     encodeElements(ct.C),
	}
}

// Decode parses the ciphertext as elements of grp.
func (c *Ciphertext) Decode(grp group.Group) (*simple.Ciphertext, error) {
	c0, err := grp.DecodeElement(c.C0)
	if err != nil {
		return nil, errors.Wrap(err, "ciphertext")
	}
	cs, err := decodeElements(grp, c.C)
	if err != nil {
		return nil, errors.Wrap(err, "ciphertext")
	}
	return &simple.Ciphertext{Epoch: c.Epoch, C0: c0, C: cs}, nil
}
