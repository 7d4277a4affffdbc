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

package sample

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

// UniformRange samples random values from the interval [min, max).
type UniformRange struct {
	min  *big.Int
	max  *big.Int
	rand io.Reader
}

// NewUniformRange returns an instance of the UniformRange sampler.
// It accepts lower and upper bounds on the sampled values.
// Randomness is read from crypto/rand.Reader.
func NewUniformRange(min, max *big.Int) *UniformRange {
	return &UniformRange{
		min:  min,
		max:  max,
		rand: rand.Reader,
	}
}

// WithReader returns a copy of the sampler that reads randomness from r.
// A nil r keeps crypto/rand.Reader.
func (u *UniformRange) WithReader(r io.Reader) *UniformRange {
	if r == nil {
		r = rand.Reader
	}
	return &UniformRange{
		min:  u.min,
		max:  u.max,
		rand: r,
	}
}

// Sample samples a random value from the interval [min, max).
func (u *UniformRange) Sample() (*big.Int, error) {
	width := new(big.Int).Sub(u.max, u.min)
	if width.Sign() <= 0 {
		return nil, fmt.Errorf("upper bound must be greater than lower bound")
	}
	v, err := rand.Int(u.rand, width)
	if err != nil {
		return nil, errors.Wrap(err, "cannot sample uniform value")
	}

	return v.Add(v, u.min), nil
}

// NewUniform returns an instance of the UniformRange sampler
// which samples from the interval [0, max).
func NewUniform(max *big.Int) *UniformRange {
	return NewUniformRange(big.NewInt(0), max)
}
