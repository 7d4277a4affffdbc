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

package keygen

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/fentec-project/fuzzyfe/group"
	"github.com/pkg/errors"
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// GetSafePrime returns a random safe prime p = 2q + 1 of the given
// bit length, where q is also prime.
func GetSafePrime(bits int, random io.Reader) (*big.Int, error) {
	if bits < 8 {
		return nil, fmt.Errorf("safe prime must have at least 8 bits")
	}

	p := new(big.Int)
	for {
		q, err := rand.Prime(random, bits-1)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate safe prime")
		}
		p.Lsh(q, 1).Add(p, one)
		if p.BitLen() == bits && p.ProbablyPrime(20) {
			return p, nil
		}
	}
}

// NewModP generates a fresh safe prime of the given bit length and
// returns the group of quadratic residues modulo it. The generator is
// the square of a random element of Z_p*, so it lies in the subgroup of
// order (p-1)/2.
func NewModP(name string, bits int, random io.Reader) (*group.ModP, error) {
	p, err := GetSafePrime(bits, random)
	if err != nil {
		return nil, err
	}

	max := new(big.Int).Sub(p, two)
	for {
		h, err := rand.Int(random, max)
		if err != nil {
			return nil, errors.Wrap(err, "failed to sample generator")
		}
		// h in [2, p-1)
		h.Add(h, two)
		g := new(big.Int).Exp(h, two, p)
		if g.Cmp(one) == 0 {
			continue
		}

		return group.NewModP(name, p, g)
	}
}
