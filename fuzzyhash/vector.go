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

package fuzzyhash

import (
	"github.com/fentec-project/fuzzyfe/data"
	"github.com/fentec-project/fuzzyfe/innerprod/simple"
)

// NilsimsaBits is the dimension of the bit vector of a Nilsimsa digest.
const NilsimsaBits = 16 * Size

// InnerProductRange contains every inner product of two Nilsimsa bit
// vectors.
var InnerProductRange = simple.Range{Lo: 0, Hi: NilsimsaBits/2 + 1}

// Vector is a digest concatenated with its bitwise complement.
type Vector []byte

// NewNilsimsaVector returns the vector digest || not(digest).
func NewNilsimsaVector(digest []byte) (Vector, error) {
	if err := checkDigest(digest); err != nil {
		return nil, err
	}

	v := make(Vector, 2*Size)
	for i, b := range digest {
		v[i] = b
		v[Size+i] = ^b
	}
	return v, nil
}

// Digest returns the digest the vector was built from.
func (v Vector) Digest() []byte {
	return append([]byte(nil), v[:len(v)/2]...)
}

// Bits expands v to a vector of 0/1 coordinates, most significant bit
// of each byte first.
func (v Vector) Bits() data.Vector {
	return data.NewBitVector(v)
}

// ScoreFromInnerProduct converts the inner product of two Nilsimsa bit
// vectors into the similarity score of the underlying digests.
func ScoreFromInnerProduct(ip int64) int64 {
	return ip - NilsimsaBits/4
}
