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

package data

import (
	"fmt"
	"math/big"

	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/sample"
	"golang.org/x/crypto/salsa20"
)

// Vector wraps a slice of *big.Int elements.
type Vector []*big.Int

// NewVector returns a new Vector instance.
func NewVector(coordinates []*big.Int) Vector {
	return Vector(coordinates)
}

// NewVectorFromInts returns a new Vector instance holding the given
// coordinates.
func NewVectorFromInts(coordinates ...int64) Vector {
	vec := make(Vector, len(coordinates))
	for i, c := range coordinates {
		vec[i] = big.NewInt(c)
	}

	return vec
}

// NewBitVector expands b into a vector of 0/1 coordinates, most
// significant bit of each byte first.
func NewBitVector(b []byte) Vector {
	vec := make(Vector, 8*len(b))
	for i, c := range b {
		for j := 0; j < 8; j++ {
			vec[8*i+j] = big.NewInt(int64((c >> uint(7-j)) & 1))
		}
	}

	return vec
}

// NewRandomVector returns a new Vector instance
// with random elements sampled by the provided sample.Sampler.
// Returns an error in case of sampling failure.
func NewRandomVector(len int, sampler sample.Sampler) (Vector, error) {
	vec := make([]*big.Int, len)
	var err error

	for i := 0; i < len; i++ {
		vec[i], err = sampler.Sample()
		if err != nil {
			return nil, err
		}
	}

	return NewVector(vec), nil
}

// NewRandomDetVector returns a new Vector instance
// with (deterministic) random elements sampled by a pseudo-random
// number generator. Elements are sampled from [0, max) and key
// determines the pseudo-random generator.
func NewRandomDetVector(len int, max *big.Int, key *[32]byte) (Vector, error) {
	if max.Cmp(big.NewInt(2)) < 0 {
		return nil, fmt.Errorf("upper bound on samples should be at least 2")
	}

	maxBits := new(big.Int).Sub(max, big.NewInt(1)).BitLen()
	maxBytes := (maxBits + 7) / 8
	over := uint((8 * maxBytes) - maxBits)

	lTimesMaxBytes := len * maxBytes
	nonce := make([]byte, 8) // nonce is initialized to zeros
	ret := make([]*big.Int, len)

	for i := 3; true; i++ {
		in := make([]byte, i*lTimesMaxBytes) // input is initialized to zeros
		out := make([]byte, i*lTimesMaxBytes)

		salsa20.XORKeyStream(out, in, nonce, key)

		k := 0
		for j := 0; j < i*lTimesMaxBytes && k < len; j += maxBytes {
			out[j] = out[j] >> over
			ret[k] = new(big.Int).SetBytes(out[j:(j + maxBytes)])
			if ret[k].Cmp(max) < 0 {
				k++
			}
		}
		if k == len {
			break
		}
	}

	return NewVector(ret), nil
}

// CheckRange checks whether all vector elements lie in [min, max).
func (v Vector) CheckRange(min, max *big.Int) error {
	for i, c := range v {
		if c == nil {
			return fmt.Errorf("coordinate %d is not set", i)
		}
		if c.Cmp(min) < 0 || c.Cmp(max) >= 0 {
			return fmt.Errorf("coordinate %d is %s, should be in [%s, %s)", i, c, min, max)
		}
	}

	return nil
}

// Scalars maps the coordinates of v to scalars of grp, reducing them
// modulo the group order.
func (v Vector) Scalars(grp group.Group) []group.Scalar {
	res := make([]group.Scalar, len(v))
	for i, c := range v {
		res[i] = grp.NewScalar(c)
	}

	return res
}
