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

package data_test

import (
	"math/big"
	"testing"

	"github.com/fentec-project/fuzzyfe/data"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRandomVector(t *testing.T) {
	bound := new(big.Int).Exp(big.NewInt(2), big.NewInt(20), big.NewInt(0))
	sampler := sample.NewUniform(bound)

	x, err := data.NewRandomVector(50, sampler)
	if err != nil {
		t.Fatalf("Error during random generation: %v", err)
	}

	assert.Len(t, x, 50)
	assert.NoError(t, x.CheckRange(big.NewInt(0), bound), "coordinates should be sampled from [0, bound)")
}

func TestNewRandomDetVector(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}

	a, err := data.NewRandomDetVector(100, big.NewInt(5), &key)
	require.NoError(t, err)
	b, err := data.NewRandomDetVector(100, big.NewInt(5), &key)
	require.NoError(t, err)

	assert.Equal(t, a, b, "same key should give the same vector")
	assert.NoError(t, a.CheckRange(big.NewInt(0), big.NewInt(5)))

	// a longer vector extends a shorter one generated with the same key
	long, err := data.NewRandomDetVector(300, big.NewInt(5), &key)
	require.NoError(t, err)
	assert.Equal(t, a, long[:100])

	_, err = data.NewRandomDetVector(10, big.NewInt(1), &key)
	assert.Error(t, err)
}

func TestVector_CheckRange(t *testing.T) {
	var tests = []struct {
		name string
		v    data.Vector
		ok   bool
	}{
		{name: "in range", v: data.NewVectorFromInts(0, 1, 15), ok: true},
		{name: "negative", v: data.NewVectorFromInts(0, -1), ok: false},
		{name: "upper bound", v: data.NewVectorFromInts(16, 0), ok: false},
		{name: "unset coordinate", v: data.Vector{big.NewInt(1), nil}, ok: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.v.CheckRange(big.NewInt(0), big.NewInt(16))
			if test.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewBitVector(t *testing.T) {
	v := data.NewBitVector([]byte{0x80, 0x05})
	assert.Equal(t, data.NewVectorFromInts(1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 1), v)
}

func TestVector_Scalars(t *testing.T) {
	grp := group.Ristretto255()
	v := data.NewVectorFromInts(-1, 0, 7)
	s := v.Scalars(grp)

	assert.True(t, s[0].Equal(group.ScalarFromInt64(grp, 1).Neg()))
	assert.True(t, s[1].Equal(group.ScalarFromInt64(grp, 0)))
	assert.Equal(t, big.NewInt(7), s[2].Big())
}
